package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deal-link-bot/internal/ports"
	"deal-link-bot/internal/telegram"
)

// UpdateSource отдает обновления в режиме long polling (*tgbotapi.BotAPI).
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Poller получает обновления через getUpdates и передает их диспетчеру.
// Используется для локального запуска, когда вебхук не настроен.
type Poller struct {
	source     UpdateSource
	dispatcher ports.Dispatcher
	timeout    int
	logger     *slog.Logger
}

// NewPoller создает новый Poller. timeout задается в секундах.
func NewPoller(source UpdateSource, dispatcher ports.Dispatcher, timeout int, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{source: source, dispatcher: dispatcher, timeout: timeout, logger: logger}
}

// Start запускает основной цикл получения обновлений и блокируется до отмены контекста.
func (p *Poller) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout

	updates := p.source.GetUpdatesChan(u)
	p.logger.InfoContext(ctx, "Long polling started", "timeout", p.timeout)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, stopping long polling")
			p.source.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				p.logger.Warn("Updates channel closed")
				return
			}
			env, ok := telegram.EnvelopeFromUpdate(update)
			if !ok {
				continue
			}
			if err := p.dispatcher.Enqueue(env); err != nil {
				// getUpdates уже подтвердил обновление, повторно оно не придет.
				p.logger.WarnContext(ctx, "Dropping update", "update_id", update.UpdateID, "chat_id", env.ChatID, "error", err)
			}
		}
	}
}
