package services

import (
	"regexp"
	"unicode/utf16"

	"deal-link-bot/internal/domain"
	"deal-link-bot/internal/ports"
)

const (
	entityTypeURL      = "url"
	entityTypeTextLink = "text_link"
)

// urlRegexp — запасной вариант, когда транспорт не разметил ссылки.
var urlRegexp = regexp.MustCompile(`https?://\S+`)

// ExtractionServiceImpl реализует интерфейс URLExtractor.
type ExtractionServiceImpl struct{}

// NewExtractionService создает новый экземпляр ExtractionServiceImpl.
func NewExtractionService() ports.URLExtractor {
	return &ExtractionServiceImpl{}
}

// Extract извлекает ссылки-кандидаты в порядке появления в тексте.
// Если транспорт прислал разметку ссылок, используется только она;
// иначе текст сканируется регулярным выражением. Дубликаты сохраняются.
func (s *ExtractionServiceImpl) Extract(text string, entities []domain.TextEntity) []string {
	if text == "" {
		return nil
	}

	if hasLinkEntities(entities) {
		return extractFromEntities(text, entities)
	}

	return urlRegexp.FindAllString(text, -1)
}

func hasLinkEntities(entities []domain.TextEntity) bool {
	for _, e := range entities {
		if e.Type == entityTypeURL || e.Type == entityTypeTextLink {
			return true
		}
	}
	return false
}

// extractFromEntities вырезает ссылки по разметке. Смещения в разметке
// заданы в UTF-16 code units, поэтому текст перекодируется.
func extractFromEntities(text string, entities []domain.TextEntity) []string {
	var encoded []uint16
	var urls []string

	for _, e := range entities {
		switch e.Type {
		case entityTypeTextLink:
			if e.URL != "" {
				urls = append(urls, e.URL)
			}
		case entityTypeURL:
			if encoded == nil {
				encoded = utf16.Encode([]rune(text))
			}
			end := e.Offset + e.Length
			if e.Offset < 0 || e.Length <= 0 || end > len(encoded) {
				// Разметка не совпадает с текстом, пропускаем.
				continue
			}
			urls = append(urls, string(utf16.Decode(encoded[e.Offset:end])))
		}
	}

	return urls
}
