package domain

import "time"

// LinkKind описывает, каким путем будет разрешаться ссылка.
type LinkKind int

const (
	// KindUnrecognized — ссылка не подходит ни под одно правило и молча отбрасывается.
	KindUnrecognized LinkKind = iota
	// KindRedirect — короткая ссылка, которую нужно пройти по редиректам.
	KindRedirect
	// KindPostOrReel — ссылка на пост или рилс с числовым идентификатором.
	KindPostOrReel
)

// String возвращает имя вида ссылки для логов.
func (k LinkKind) String() string {
	switch k {
	case KindRedirect:
		return "redirect"
	case KindPostOrReel:
		return "post_or_reel"
	default:
		return "unrecognized"
	}
}

// TextEntity описывает разметку ссылки внутри текста, как ее присылает транспорт.
// Offset и Length измеряются в UTF-16 code units.
type TextEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	URL    string `json:"url,omitempty"`
}

// Envelope — одно входящее сообщение, уже извлеченное из обновления транспорта.
type Envelope struct {
	UpdateID   int          `json:"update_id"`
	ChatID     int64        `json:"chat_id"`
	MessageID  int          `json:"message_id"`
	Text       string       `json:"text"`
	Entities   []TextEntity `json:"entities,omitempty"`
	Command    string       `json:"command,omitempty"`
	ReceivedAt time.Time    `json:"received_at"`
}

// HasText сообщает, есть ли в конверте что обрабатывать.
func (e Envelope) HasText() bool {
	return e.Text != ""
}

// ClassifiedURL хранит кандидат-ссылку с результатом классификации.
type ClassifiedURL struct {
	Raw    string
	Kind   LinkKind
	PostID string // заполняется только для KindPostOrReel
}

// ResolvedLinkSet — итоговые ссылки для одного сообщения в порядке обработки.
type ResolvedLinkSet []string

// DecoratedLink — ссылка с декоративной "скидкой".
type DecoratedLink struct {
	URL      string
	Discount int
}

// OutgoingChunk — часть ResolvedLinkSet, которая уходит одним сообщением.
type OutgoingChunk struct {
	Title string
	Part  int // начиная с 1
	Links []DecoratedLink
}

// RenderKind различает варианты рендеринга.
type RenderKind int

const (
	RenderRich RenderKind = iota
	RenderPlain
)

// Rendered содержит готовый к отправке текст. Для RenderRich ParseMode не пустой,
// для RenderPlain текст не содержит escape-последовательностей.
type Rendered struct {
	Kind      RenderKind
	Text      string
	ParseMode string
}

// Plain создает неразмеченный текст.
func Plain(text string) Rendered {
	return Rendered{Kind: RenderPlain, Text: text}
}

// Rich создает текст с разметкой в указанном режиме.
func Rich(text, parseMode string) Rendered {
	return Rendered{Kind: RenderRich, Text: text, ParseMode: parseMode}
}

// Delivery описывает одну отправку в разговор. Если Primary отклонен транспортом,
// отправляется Fallback (когда он задан).
type Delivery struct {
	ChatID   int64
	ReplyTo  int
	Primary  Rendered
	Fallback *Rendered
}
