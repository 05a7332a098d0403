package main

import (
	"fmt"
	"log/slog"
	"os"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	applog "deal-link-bot/internal/log"
	"deal-link-bot/internal/pkg/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "deal-link-bot",
		Short:         "Telegram bot that turns deal links into product links",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFile, "path to YAML config")

	root.AddCommand(serveCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(webhookCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig загружает конфигурацию по флагу --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupLogger создает логгер по настройкам из конфига. Токен бота и секрет
// вебхука маскируются во всех сообщениях, включая логи tgbotapi.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	switch cfg.Logging.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := applog.NewMaskedLogger(handler, cfg.Telegram.Token, cfg.Telegram.WebhookSecret)
	slog.SetDefault(logger)

	if err := tgbotapi.SetLogger(&applog.TGBotAPIAdapter{Logger: logger.With(slog.String("component", "tgbotapi"))}); err != nil {
		logger.Warn("failed to set tgbotapi logger", "error", err)
	}
	return logger
}
