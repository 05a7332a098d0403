package ports

import (
	"context"

	"deal-link-bot/internal/domain"
)

// TextSource определяет источник текста для офлайн-прогона конвейера.
type TextSource interface {
	// Fetch возвращает текст входящего сообщения.
	Fetch() (string, error)
}

// UpdateParser определяет интерфейс для разбора тела вебхука в конверт.
type UpdateParser interface {
	// Parse возвращает конверт и признак того, что в обновлении есть что обрабатывать.
	Parse(data []byte) (domain.Envelope, bool, error)
}

// URLExtractor извлекает ссылки-кандидаты из текста сообщения.
type URLExtractor interface {
	Extract(text string, entities []domain.TextEntity) []string
}

// URLClassifier определяет вид ссылки.
type URLClassifier interface {
	Classify(raw string) domain.ClassifiedURL
}

// RedirectResolver проходит по редиректам короткой ссылки.
// Ошибки не возвращаются: неудача означает отсутствие результата.
type RedirectResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, bool)
}

// CatalogResolver возвращает ссылки на покупку для идентификатора поста.
// Неудача любого варианта запроса означает пустой список, а не ошибку.
type CatalogResolver interface {
	PurchaseLinks(ctx context.Context, postID string) []string
}

// LinkPipeline описывает конвейер от текста сообщения до ResolvedLinkSet.
type LinkPipeline interface {
	Candidates(text string, entities []domain.TextEntity) []string
	Resolve(ctx context.Context, candidates []string) domain.ResolvedLinkSet
}

// Renderer превращает ResolvedLinkSet в сообщения.
type Renderer interface {
	Chunk(links domain.ResolvedLinkSet) []domain.OutgoingChunk
	Rich(chunk domain.OutgoingChunk) domain.Rendered
	Plain(chunk domain.OutgoingChunk) domain.Rendered
	NoResults() domain.Rendered
}

// Sender определяет исходящий канал транспорта: "отправить текст в разговор C".
type Sender interface {
	Deliver(ctx context.Context, d domain.Delivery) error
}

// EnvelopeHandler обрабатывает один конверт в фоновом воркере.
type EnvelopeHandler interface {
	HandleEnvelope(ctx context.Context, env domain.Envelope)
}

// Dispatcher принимает конверты на обработку, не блокируя вызывающего.
type Dispatcher interface {
	Enqueue(env domain.Envelope) error
}
