package main

import (
	"log/slog"
	"time"

	"deal-link-bot/internal/bot"
	"deal-link-bot/internal/core/services"
	"deal-link-bot/internal/pkg/config"
	"deal-link-bot/internal/ports"
	"deal-link-bot/internal/usecase"
)

// newPipeline собирает конвейер разрешения ссылок и рендерер из конфигурации.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*usecase.ResolveLinksUseCase, ports.Renderer) {
	redirects := services.NewRedirectResolver(services.RedirectConfig{
		Timeout:   cfg.Redirect.Timeout,
		UserAgent: cfg.Redirect.UserAgent,
	}, services.WithRedirectLogger(logger.With(slog.String("component", "redirect"))))

	catalog := services.NewCatalogResolver(services.CatalogConfig{
		BaseURL:   cfg.Catalog.BaseURL,
		Origin:    cfg.Catalog.Origin,
		ClientID:  cfg.Catalog.ClientID,
		UserAgent: cfg.Redirect.UserAgent,
		Timeout:   cfg.Catalog.Timeout,
		PageSize:  cfg.Catalog.PageSize,
		Variants:  cfg.Catalog.Variants,
	}, services.WithCatalogLogger(logger.With(slog.String("component", "catalog"))))

	pipeline := usecase.NewResolveLinksUseCase(
		services.NewExtractionService(),
		services.NewClassifier(),
		redirects,
		catalog,
		usecase.WithConcurrency(cfg.Dispatcher.ResolveConcurrency),
		usecase.WithLogger(logger.With(slog.String("component", "pipeline"))),
	)

	renderer := services.NewRenderer(services.RenderPolicy{
		ChunkSize:   cfg.Rendering.ChunkSize,
		DiscountMin: cfg.Rendering.DiscountMin,
		DiscountMax: cfg.Rendering.DiscountMax,
		Titles:      cfg.Rendering.Titles,
		ParseMode:   cfg.Telegram.ParseMode,
	})

	return pipeline, renderer
}

// newBot собирает обработчик сообщений поверх заданного транспорта.
func newBot(cfg *config.Config, sender ports.Sender, sendInterval time.Duration, logger *slog.Logger) *bot.Bot {
	pipeline, renderer := newPipeline(cfg, logger)
	return bot.NewBot(pipeline, renderer, sender,
		bot.WithSendInterval(sendInterval),
		bot.WithLogger(logger.With(slog.String("component", "bot"))),
	)
}
