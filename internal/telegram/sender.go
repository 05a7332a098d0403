package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deal-link-bot/internal/domain"
)

// SenderOption настраивает Sender.
type SenderOption func(*Sender)

// WithLinkPreview включает или отключает превью ссылок в исходящих сообщениях.
func WithLinkPreview(enabled bool) SenderOption {
	return func(s *Sender) {
		s.disablePreview = !enabled
	}
}

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) SenderOption {
	return func(s *Sender) {
		if l != nil {
			s.log = l
		}
	}
}

// Sender доставляет сообщения через Bot API. Реализует ports.Sender.
type Sender struct {
	api            BotAPI
	disablePreview bool
	log            *slog.Logger
}

// NewSender создает новый Sender. По умолчанию превью ссылок отключены.
func NewSender(api BotAPI, opts ...SenderOption) *Sender {
	s := &Sender{
		api:            api,
		disablePreview: true,
		log:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deliver отправляет Primary. Если транспорт его отклонил и задан Fallback,
// отправляется Fallback. Повторных попыток больше нет.
func (s *Sender) Deliver(ctx context.Context, d domain.Delivery) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delivery to chat %d cancelled: %w", d.ChatID, err)
	}

	primaryErr := s.send(d.ChatID, d.ReplyTo, d.Primary)
	if primaryErr == nil {
		return nil
	}
	if d.Fallback == nil {
		return fmt.Errorf("failed to send message to chat %d: %w", d.ChatID, primaryErr)
	}

	s.log.WarnContext(ctx, "Rich message rejected, falling back to plain text",
		"chat_id", d.ChatID,
		"parse_mode", d.Primary.ParseMode,
		"error", primaryErr,
	)

	if err := s.send(d.ChatID, d.ReplyTo, *d.Fallback); err != nil {
		return fmt.Errorf("failed to send fallback message to chat %d: %w", d.ChatID, errors.Join(primaryErr, err))
	}
	return nil
}

func (s *Sender) send(chatID int64, replyTo int, r domain.Rendered) error {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Kind == domain.RenderRich {
		msg.ParseMode = r.ParseMode
	}
	msg.DisableWebPagePreview = s.disablePreview
	if replyTo > 0 {
		msg.ReplyToMessageID = replyTo
	}

	_, err := s.api.Send(msg)
	return err
}
