package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"deal-link-bot/internal/domain"
	"deal-link-bot/internal/ports"
)

// Option настраивает ResolveLinksUseCase.
type Option func(*ResolveLinksUseCase)

// WithConcurrency ограничивает число одновременных разрешений внутри одного сообщения.
func WithConcurrency(n int) Option {
	return func(uc *ResolveLinksUseCase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(uc *ResolveLinksUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// ResolveLinksUseCase реализует конвейер от текста сообщения до ResolvedLinkSet:
// извлечение, классификация и разрешение каждой ссылки.
// Состояние между вызовами не хранится.
type ResolveLinksUseCase struct {
	extractor   ports.URLExtractor
	classifier  ports.URLClassifier
	redirects   ports.RedirectResolver
	catalog     ports.CatalogResolver
	concurrency int
	log         *slog.Logger
}

// NewResolveLinksUseCase создает новый экземпляр ResolveLinksUseCase.
func NewResolveLinksUseCase(
	extractor ports.URLExtractor,
	classifier ports.URLClassifier,
	redirects ports.RedirectResolver,
	catalog ports.CatalogResolver,
	opts ...Option,
) *ResolveLinksUseCase {
	uc := &ResolveLinksUseCase{
		extractor:   extractor,
		classifier:  classifier,
		redirects:   redirects,
		catalog:     catalog,
		concurrency: 4,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Candidates возвращает ссылки-кандидаты в порядке появления. Сетевых вызовов нет.
func (uc *ResolveLinksUseCase) Candidates(text string, entities []domain.TextEntity) []string {
	return uc.extractor.Extract(text, entities)
}

// Resolve разрешает кандидатов с ограниченным параллелизмом.
// Результаты собираются по индексу, поэтому порядок набора совпадает с порядком
// кандидатов, а внутри поста с порядком ответа каталога.
// Неудача одной ссылки не влияет на остальные.
func (uc *ResolveLinksUseCase) Resolve(ctx context.Context, candidates []string) domain.ResolvedLinkSet {
	if len(candidates) == 0 {
		return nil
	}

	results := make([][]string, len(candidates))

	var g errgroup.Group
	g.SetLimit(uc.concurrency)

	for i, raw := range candidates {
		c := uc.classifier.Classify(raw)
		if c.Kind == domain.KindUnrecognized {
			uc.log.DebugContext(ctx, "Skipping unrecognized url", "url", raw)
			continue
		}

		g.Go(func() error {
			results[i] = uc.resolveOne(ctx, c)
			return nil
		})
	}
	// Ошибок горутины не возвращают, Wait только дожидается завершения.
	_ = g.Wait()

	var links domain.ResolvedLinkSet
	for _, r := range results {
		links = append(links, r...)
	}

	uc.log.InfoContext(ctx, "Links resolved", "candidates", len(candidates), "links", len(links))
	return links
}

func (uc *ResolveLinksUseCase) resolveOne(ctx context.Context, c domain.ClassifiedURL) []string {
	switch c.Kind {
	case domain.KindRedirect:
		if final, ok := uc.redirects.Resolve(ctx, c.Raw); ok {
			return []string{final}
		}
	case domain.KindPostOrReel:
		return uc.catalog.PurchaseLinks(ctx, c.PostID)
	}
	return nil
}
