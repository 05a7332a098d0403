package parser

import (
	"testing"
)

func TestJsonParser(t *testing.T) {
	t.Run("NewJsonParser создает корректный экземпляр", func(t *testing.T) {
		parser := NewJsonParser()
		if parser == nil {
			t.Error("Ожидался экземпляр JsonParser, получен nil")
		}
	})

	t.Run("Разбор обновления с сообщением", func(t *testing.T) {
		parser := &JsonParser{}
		testData := `{
			"update_id": 1001,
			"message": {
				"message_id": 7,
				"date": 1700000000,
				"chat": {"id": 42, "type": "private"},
				"text": "check this https://www.wishlink.com/u/post/987654",
				"entities": [{"type": "url", "offset": 11, "length": 38}]
			}
		}`

		env, ok, err := parser.Parse([]byte(testData))
		if err != nil {
			t.Fatalf("Неожиданная ошибка: %v", err)
		}
		if !ok {
			t.Fatal("Ожидался конверт с текстом")
		}
		if env.UpdateID != 1001 {
			t.Errorf("Ожидался update_id 1001, получено %d", env.UpdateID)
		}
		if env.ChatID != 42 {
			t.Errorf("Ожидался chat_id 42, получено %d", env.ChatID)
		}
		if env.MessageID != 7 {
			t.Errorf("Ожидался message_id 7, получено %d", env.MessageID)
		}
		if len(env.Entities) != 1 || env.Entities[0].Length != 38 {
			t.Errorf("Неожиданная разметка: %+v", env.Entities)
		}
	})

	t.Run("Пустой объект разбирается, но обрабатывать нечего", func(t *testing.T) {
		parser := &JsonParser{}

		_, ok, err := parser.Parse([]byte(`{}`))
		if err != nil {
			t.Errorf("Неожиданная ошибка: %v", err)
		}
		if ok {
			t.Error("Пустое обновление не должно давать конверт")
		}
	})

	t.Run("Некорректный JSON", func(t *testing.T) {
		parser := &JsonParser{}

		for _, body := range []string{``, `{invalid`, `[1,2]`, `"text"`} {
			if _, _, err := parser.Parse([]byte(body)); err == nil {
				t.Errorf("Ожидалась ошибка для тела %q", body)
			}
		}
	})
}
