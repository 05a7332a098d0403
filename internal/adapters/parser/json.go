package parser

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deal-link-bot/internal/domain"
	"deal-link-bot/internal/ports"
	"deal-link-bot/internal/telegram"
)

// JsonParser реализует интерфейс UpdateParser для тела вебхука Telegram.
type JsonParser struct{}

// NewJsonParser создает новый экземпляр JsonParser.
func NewJsonParser() ports.UpdateParser {
	return &JsonParser{}
}

// Parse разбирает JSON обновления и извлекает из него конверт.
// Ошибка возвращается только для тела, которое не является JSON-объектом обновления;
// обновление без текста дает ok == false.
func (p *JsonParser) Parse(data []byte) (domain.Envelope, bool, error) {
	var update tgbotapi.Update
	if err := json.Unmarshal(data, &update); err != nil {
		return domain.Envelope{}, false, fmt.Errorf("failed to unmarshal update: %w", err)
	}

	env, ok := telegram.EnvelopeFromUpdate(update)
	return env, ok, nil
}
