package telegram

import (
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deal-link-bot/internal/domain"
)

// EnvelopeFromUpdate извлекает конверт из обновления Telegram.
// Источник: message, иначе channel_post, иначе edited_message.
// Текст берется из тела сообщения, иначе из подписи; разметка следует за выбранным полем.
// Второе значение false, если обрабатывать нечего.
func EnvelopeFromUpdate(u tgbotapi.Update) (domain.Envelope, bool) {
	msg := pickMessage(u)
	if msg == nil || msg.Chat == nil {
		return domain.Envelope{}, false
	}

	env := domain.Envelope{
		UpdateID:   u.UpdateID,
		ChatID:     msg.Chat.ID,
		MessageID:  msg.MessageID,
		ReceivedAt: time.Now(),
	}

	switch {
	case msg.Text != "":
		env.Text = msg.Text
		env.Entities = convertEntities(msg.Entities)
		if msg.IsCommand() {
			env.Command = msg.Command()
		}
	case msg.Caption != "":
		env.Text = msg.Caption
		env.Entities = convertEntities(msg.CaptionEntities)
	}

	return env, env.HasText()
}

func pickMessage(u tgbotapi.Update) *tgbotapi.Message {
	switch {
	case u.Message != nil:
		return u.Message
	case u.ChannelPost != nil:
		return u.ChannelPost
	default:
		return u.EditedMessage
	}
}

func convertEntities(in []tgbotapi.MessageEntity) []domain.TextEntity {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.TextEntity, 0, len(in))
	for _, e := range in {
		out = append(out, domain.TextEntity{
			Type:   e.Type,
			Offset: e.Offset,
			Length: e.Length,
			URL:    e.URL,
		})
	}
	return out
}
