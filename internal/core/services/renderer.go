package services

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"deal-link-bot/internal/domain"
	"deal-link-bot/internal/ports"
)

const (
	noResultsText = "❌ No product links found."
	partSuffixFmt = " (Part %d)"

	// maxMessageLen — предел длины текста сообщения в Bot API.
	maxMessageLen = 4096
)

// RandomSource — источник случайных чисел для заголовков и скидок.
// *rand.Rand из math/rand/v2 подходит без обертки.
type RandomSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// RenderPolicy — настраиваемые параметры рендеринга.
type RenderPolicy struct {
	ChunkSize   int
	DiscountMin int
	DiscountMax int
	Titles      []string
	ParseMode   string // tgbotapi.ModeMarkdownV2 или tgbotapi.ModeHTML
}

// RendererOption настраивает RendererImpl.
type RendererOption func(*RendererImpl)

// WithRandomSource подменяет источник случайности (используется в тестах).
func WithRandomSource(src RandomSource) RendererOption {
	return func(r *RendererImpl) {
		if src != nil {
			r.rnd = src
		}
	}
}

// RendererImpl реализует интерфейс Renderer.
type RendererImpl struct {
	policy RenderPolicy
	rnd    RandomSource
}

// NewRenderer создает новый RendererImpl. Некорректные значения политики
// заменяются значениями по умолчанию.
func NewRenderer(policy RenderPolicy, opts ...RendererOption) ports.Renderer {
	if policy.ChunkSize <= 0 {
		policy.ChunkSize = 8
	}
	if policy.DiscountMin > policy.DiscountMax {
		policy.DiscountMin, policy.DiscountMax = policy.DiscountMax, policy.DiscountMin
	}
	if len(policy.Titles) == 0 {
		policy.Titles = []string{"🔥 Deal Alert!"}
	}
	if policy.ParseMode == "" {
		policy.ParseMode = tgbotapi.ModeMarkdownV2
	}

	r := &RendererImpl{policy: policy, rnd: globalRand{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Chunk разбивает набор ссылок на части с сохранением порядка. Часть закрывается,
// когда в ней ChunkSize ссылок или когда следующая ссылка вывела бы размеченный
// текст за maxMessageLen. Ссылка, которая не помещается даже одна, уходит отдельной частью.
// Заголовок выбирается один раз на все сообщение, скидка выбирается для каждой ссылки отдельно.
func (r *RendererImpl) Chunk(links domain.ResolvedLinkSet) []domain.OutgoingChunk {
	if len(links) == 0 {
		return nil
	}

	title := r.policy.Titles[r.rnd.IntN(len(r.policy.Titles))]
	size := r.policy.ChunkSize
	chunks := make([]domain.OutgoingChunk, 0, (len(links)+size-1)/size)
	textLen := 0

	for _, link := range links {
		entry := domain.DecoratedLink{URL: link, Discount: r.discount()}
		entryLen := utf16Len(formatEntry(entry, r.escape))

		if n := len(chunks); n == 0 || len(chunks[n-1].Links) >= size || textLen+entryLen > maxMessageLen {
			part := n + 1
			chunk := domain.OutgoingChunk{Title: title, Part: part}
			if part > 1 {
				chunk.Title += fmt.Sprintf(partSuffixFmt, part)
			}
			chunks = append(chunks, chunk)
			textLen = utf16Len(r.richTitle(chunk.Title))
		}

		last := &chunks[len(chunks)-1]
		last.Links = append(last.Links, entry)
		textLen += entryLen
	}

	return chunks
}

// discount возвращает равномерно распределенное число из [DiscountMin, DiscountMax].
func (r *RendererImpl) discount() int {
	return r.policy.DiscountMin + r.rnd.IntN(r.policy.DiscountMax-r.policy.DiscountMin+1)
}

// Rich рендерит часть в режиме разметки. Весь свободный текст экранируется.
func (r *RendererImpl) Rich(chunk domain.OutgoingChunk) domain.Rendered {
	return domain.Rich(buildBody(r.richTitle(chunk.Title), chunk.Links, r.escape), r.policy.ParseMode)
}

func (r *RendererImpl) richTitle(title string) string {
	if r.policy.ParseMode == tgbotapi.ModeHTML {
		return "<b>" + r.escape(title) + "</b>"
	}
	return "*" + r.escape(title) + "*"
}

// escape экранирует текст для ParseMode. EscapeText не трогает обратную косую
// черту, а в MarkdownV2 она сама экранирует следующий символ.
func (r *RendererImpl) escape(s string) string {
	if r.policy.ParseMode == tgbotapi.ModeMarkdownV2 {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return tgbotapi.EscapeText(r.policy.ParseMode, s)
}

// Plain рендерит ту же часть без разметки и экранирования.
func (r *RendererImpl) Plain(chunk domain.OutgoingChunk) domain.Rendered {
	return domain.Plain(buildBody(chunk.Title, chunk.Links, func(s string) string { return s }))
}

// NoResults возвращает уведомление о пустом результате.
func (r *RendererImpl) NoResults() domain.Rendered {
	return domain.Plain(noResultsText)
}

func buildBody(title string, links []domain.DecoratedLink, escape func(string) string) string {
	var sb strings.Builder
	sb.WriteString(title)
	for _, l := range links {
		sb.WriteString(formatEntry(l, escape))
	}
	return sb.String()
}

func formatEntry(l domain.DecoratedLink, escape func(string) string) string {
	return "\n\n" + escape(fmt.Sprintf("(%d%% OFF) ", l.Discount)) + escape(l.URL)
}

// utf16Len считает длину так же, как Telegram: в UTF-16 code units.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
