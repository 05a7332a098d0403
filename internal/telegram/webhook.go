package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RegisterWebhook сообщает Telegram адрес входящего вебхука.
func RegisterWebhook(api BotAPI, endpoint string) error {
	wh, err := tgbotapi.NewWebhook(endpoint)
	if err != nil {
		return fmt.Errorf("invalid webhook endpoint: %w", err)
	}

	resp, err := api.Request(wh)
	if err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram rejected webhook: %s", resp.Description)
	}
	return nil
}

// DeleteWebhook удаляет вебхук. Нужен перед переходом на long polling.
func DeleteWebhook(api BotAPI) error {
	resp, err := api.Request(tgbotapi.DeleteWebhookConfig{})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram rejected webhook deletion: %s", resp.Description)
	}
	return nil
}
