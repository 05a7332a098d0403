package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"deal-link-bot/internal/adapters/parser"
	"deal-link-bot/internal/bot"
	"deal-link-bot/internal/dispatcher"
	"deal-link-bot/internal/pkg/config"
	"deal-link-bot/internal/server"
	"deal-link-bot/internal/telegram"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (webhook server, or long polling when webhook_url is empty)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// runServe инкапсулирует всю логику инициализации и запуска бота.
func runServe() error {
	// 1. Загрузка и валидация конфигурации
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	generated := cfg.EnsureWebhookSecret()

	// 2. Инициализация логгера (секрет уже известен и будет замаскирован)
	logger := setupLogger(cfg)
	if generated && !cfg.UsePolling() {
		logger.Info("Webhook secret generated for this run")
	}

	// 3. Клиент Bot API. В режиме polling таймаут клиента должен превышать таймаут getUpdates.
	httpTimeout := cfg.Telegram.HTTPTimeout
	if cfg.UsePolling() {
		httpTimeout = max(httpTimeout, time.Duration(cfg.Telegram.PollingTimeout)*time.Second+10*time.Second)
	}
	api, err := telegram.NewBotAPI(cfg.Telegram.Token, "", httpTimeout)
	if err != nil {
		return err
	}
	logger.Info("Authorized on account", "username", api.Self.UserName)

	// 4. Инициализация зависимостей
	sender := telegram.NewSender(api,
		telegram.WithLinkPreview(!cfg.Telegram.DisableLinkPreview),
		telegram.WithLogger(logger.With(slog.String("component", "sender"))),
	)
	handler := newBot(cfg, sender, cfg.Telegram.SendInterval, logger)

	disp := dispatcher.New(handler,
		dispatcher.WithWorkers(cfg.Dispatcher.Workers),
		dispatcher.WithQueueSize(cfg.Dispatcher.QueueSize),
		dispatcher.WithJobTimeout(cfg.Dispatcher.JobTimeout),
		dispatcher.WithLogger(logger.With(slog.String("component", "dispatcher"))),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	disp.Start(ctx)

	// 5. Прием обновлений
	if cfg.UsePolling() {
		err = runPolling(ctx, cfg, api, disp, logger)
	} else {
		err = runWebhook(ctx, cfg, api, disp, logger)
	}

	// 6. Дожидаемся обработки уже принятых сообщений
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if stopErr := disp.Stop(drainCtx); stopErr != nil {
		logger.Error("Dispatcher forced to stop", "error", stopErr)
	}

	logger.Info("Application exited gracefully")
	return err
}

func runPolling(ctx context.Context, cfg *config.Config, api *tgbotapi.BotAPI, disp *dispatcher.Dispatcher, logger *slog.Logger) error {
	// getUpdates не работает, пока зарегистрирован вебхук
	if err := telegram.DeleteWebhook(api); err != nil {
		return err
	}

	bot.NewPoller(api, disp, cfg.Telegram.PollingTimeout, logger.With(slog.String("component", "poller"))).Start(ctx)
	return nil
}

func runWebhook(ctx context.Context, cfg *config.Config, api telegram.BotAPI, disp *dispatcher.Dispatcher, logger *slog.Logger) error {
	srv, err := server.New(cfg, parser.NewJsonParser(), disp, logger.With(slog.String("component", "server")))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.ListenAndServe()
	}()

	if err := telegram.RegisterWebhook(api, cfg.WebhookEndpoint()); err != nil {
		shutdownServer(srv, cfg, logger)
		return err
	}
	logger.Info("Webhook registered", "url", cfg.WebhookEndpoint())

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("Signal received, shutting down...")
	}

	shutdownServer(srv, cfg, logger)
	return <-serverErr
}

func shutdownServer(srv *server.Server, cfg *config.Config, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
}
