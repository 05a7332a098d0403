package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"deal-link-bot/internal/pkg/config"
	"deal-link-bot/internal/telegram"
)

// webhookCmd управляет регистрацией вебхука вне основного процесса.
func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram webhook registration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Register webhook_url + /webhook/<secret> with Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTelegramConfig()
			if err != nil {
				return err
			}
			if cfg.UsePolling() {
				return errors.New("telegram.webhook_url не задан (WEBHOOK_URL)")
			}
			// Секрет должен совпадать с тем, что использует serve, поэтому здесь он не генерируется
			if cfg.Telegram.WebhookSecret == "" {
				return errors.New("telegram.webhook_secret не задан (WEBHOOK_SECRET)")
			}
			logger := setupLogger(cfg)

			api, err := telegram.NewBotAPI(cfg.Telegram.Token, "", cfg.Telegram.HTTPTimeout)
			if err != nil {
				return err
			}
			if err := telegram.RegisterWebhook(api, cfg.WebhookEndpoint()); err != nil {
				return err
			}
			logger.Info("Webhook registered", "url", cfg.WebhookEndpoint())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook so the bot can use long polling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTelegramConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			api, err := telegram.NewBotAPI(cfg.Telegram.Token, "", cfg.Telegram.HTTPTimeout)
			if err != nil {
				return err
			}
			if err := telegram.DeleteWebhook(api); err != nil {
				return err
			}
			logger.Info("Webhook deleted")
			return nil
		},
	})

	return cmd
}

func loadTelegramConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Telegram.Token == "" {
		return nil, fmt.Errorf("telegram.token не может быть пустым (BOT_TOKEN)")
	}
	return cfg, nil
}
