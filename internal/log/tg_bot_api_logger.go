package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// TGBotAPIAdapter адаптирует slog.Logger под интерфейс логгера,
// который ожидает библиотека go-telegram-bot-api/v5, а также под
// middleware.LoggerInterface из chi.
type TGBotAPIAdapter struct {
	Logger *slog.Logger
}

// Println реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Println(v ...interface{}) {
	// Сообщения от библиотеки считаем информационными.
	// Они будут проходить через основной маскировщик.
	a.Logger.Info(strings.TrimSpace(fmt.Sprintln(v...)))
}

// Printf реализует метод интерфейса tgbotapi.BotLogger.
func (a *TGBotAPIAdapter) Printf(format string, v ...interface{}) {
	a.Logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Print реализует middleware.LoggerInterface (журнал HTTP-запросов chi).
func (a *TGBotAPIAdapter) Print(v ...interface{}) {
	a.Logger.Info(strings.TrimSpace(fmt.Sprint(v...)))
}
