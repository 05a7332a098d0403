package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Клиент отправляет на вебхук локально запущенного бота синтетическое
// обновление, как это сделал бы Telegram.
func main() {
	var (
		serverAddr string
		secret     string
		chatID     int64
		updateID   int
	)
	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "Server address")
	flag.StringVar(&secret, "secret", os.Getenv("WEBHOOK_SECRET"), "Webhook path secret")
	flag.Int64Var(&chatID, "chat", 1, "Chat ID to send replies to")
	flag.IntVar(&updateID, "update", int(time.Now().Unix()), "Update ID")
	flag.Parse()

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		log.Fatal("Message text is required. Usage: client [flags] <text>")
	}
	if secret == "" {
		log.Fatal("Webhook secret is required (-secret or WEBHOOK_SECRET)")
	}

	update := tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			MessageID: 1,
			Date:      int(time.Now().Unix()),
			Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
			Text:      text,
		},
	}
	if strings.HasPrefix(text, "/") {
		cmdLen := len(strings.Fields(text)[0])
		update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	}

	body, err := json.Marshal(update)
	if err != nil {
		log.Fatalf("Не удалось сформировать обновление: %v", err)
	}

	url := strings.TrimRight(serverAddr, "/") + "/webhook/" + secret
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Не удалось отправить запрос: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		log.Fatalf("Не удалось прочитать ответ: %v", err)
	}

	fmt.Printf("Статус: %d\n%s", resp.StatusCode, respBody)
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
