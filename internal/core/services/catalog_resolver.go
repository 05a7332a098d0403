package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"deal-link-bot/internal/ports"
)

const (
	catalogProductsPath = "/api/store/getPostOrCollectionProducts"
	catalogSourceApp    = "STOREFRONT"
	maxCatalogBodyBytes = 4 << 20

	// Текстовые коды ошибок варианта запроса.
	CatalogErrUnavailable = "CATALOG_UNAVAILABLE"
	CatalogErrBadStatus   = "CATALOG_BAD_STATUS"
	CatalogErrMalformed   = "CATALOG_MALFORMED"
	CatalogErrEmpty       = "CATALOG_EMPTY"
)

// ErrNoStrategies возвращается firstSuccess, когда перебирать нечего.
var ErrNoStrategies = errors.New("no strategies to try")

// CatalogConfig хранит конфигурацию CatalogResolver.
type CatalogConfig struct {
	BaseURL        string
	Origin         string // витрина каталога, уходит в origin/referer
	ClientID       string
	ClientIDHeader string
	UserAgent      string
	Timeout        time.Duration
	PageSize       int
	// Variants — значения postType в порядке перебора.
	Variants []string
}

// CatalogOption настраивает CatalogResolverImpl.
type CatalogOption func(*CatalogResolverImpl)

// WithCatalogHTTPClient подменяет HTTP-клиент (используется в тестах).
func WithCatalogHTTPClient(c *http.Client) CatalogOption {
	return func(r *CatalogResolverImpl) {
		if c != nil {
			r.client = c
		}
	}
}

// WithCatalogLogger устанавливает логгер.
func WithCatalogLogger(l *slog.Logger) CatalogOption {
	return func(r *CatalogResolverImpl) {
		if l != nil {
			r.log = l
		}
	}
}

// catalogStrategy — описатель одного варианта запроса: значение postType
// и предикат, решающий, считается ли ответ успешным.
type catalogStrategy struct {
	postType string
	accept   func(products []catalogProduct) bool
}

type catalogProduct struct {
	PurchaseURL *string `json:"purchaseUrl"`
}

type catalogResponse struct {
	Data *struct {
		Products []catalogProduct `json:"products"`
	} `json:"data"`
}

// CatalogResolverImpl реализует интерфейс CatalogResolver.
// Сервис не хранит состояние между вызовами и безопасен для одновременного использования.
type CatalogResolverImpl struct {
	cfg        CatalogConfig
	strategies []catalogStrategy
	client     *http.Client
	log        *slog.Logger
}

// NewCatalogResolver создает новый CatalogResolverImpl.
func NewCatalogResolver(cfg CatalogConfig, opts ...CatalogOption) ports.CatalogResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.ClientIDHeader == "" {
		cfg.ClientIDHeader = "wishlinkid"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Origin = strings.TrimRight(cfg.Origin, "/")

	strategies := make([]catalogStrategy, 0, len(cfg.Variants))
	for _, v := range cfg.Variants {
		strategies = append(strategies, catalogStrategy{
			postType: v,
			accept:   nonEmptyProducts,
		})
	}

	r := &CatalogResolverImpl{
		cfg:        cfg,
		strategies: strategies,
		client:     newHTTPClient(cfg.Timeout),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func nonEmptyProducts(products []catalogProduct) bool {
	return len(products) > 0
}

// PurchaseLinks перебирает варианты запроса и останавливается на первом,
// вернувшем непустой список товаров. Пустой список равносилен ошибке.
// Если ни один вариант не сработал, возвращается пустой список.
func (r *CatalogResolverImpl) PurchaseLinks(ctx context.Context, postID string) []string {
	links, idx, err := firstSuccess(ctx, r.strategies, func(ctx context.Context, s catalogStrategy) ([]string, error) {
		return r.lookup(ctx, s, postID)
	})
	if err != nil {
		r.log.InfoContext(ctx, "Catalog returned no products", "post_id", postID, "error", err)
		return nil
	}

	r.log.DebugContext(ctx, "Catalog lookup succeeded",
		"post_id", postID,
		"variant", r.strategies[idx].postType,
		"links", len(links),
	)
	return links
}

// lookup выполняет один вариант запроса. Любая проблема возвращается как ошибка варианта.
func (r *CatalogResolverImpl) lookup(ctx context.Context, s catalogStrategy, postID string) ([]string, error) {
	meta := map[string]any{"post_id": postID, "variant": s.postType}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.productsURL(s.postType, postID), nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "catalog: build request").
			WithTextCode(CatalogErrUnavailable).
			WithMetadata(meta)
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set("content-type", "application/json")
	req.Header.Set("origin", r.cfg.Origin)
	req.Header.Set("referer", r.cfg.Origin+"/")
	req.Header.Set("user-agent", r.cfg.UserAgent)
	req.Header.Set(r.cfg.ClientIDHeader, r.cfg.ClientID)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "catalog: request failed").
			WithTextCode(CatalogErrUnavailable).
			WithMetadata(meta)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		return nil, goerrors.New(fmt.Sprintf("catalog: unexpected status %d", resp.StatusCode), goerrors.CategoryExternal).
			WithCode(resp.StatusCode).
			WithTextCode(CatalogErrBadStatus).
			WithMetadata(meta)
	}

	var body catalogResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBodyBytes)).Decode(&body); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "catalog: malformed response").
			WithTextCode(CatalogErrMalformed).
			WithMetadata(meta)
	}
	if body.Data == nil || body.Data.Products == nil {
		return nil, goerrors.New("catalog: data.products is missing", goerrors.CategoryBadInput).
			WithTextCode(CatalogErrMalformed).
			WithMetadata(meta)
	}
	if !s.accept(body.Data.Products) {
		return nil, goerrors.New("catalog: empty product list", goerrors.CategoryNotFound).
			WithTextCode(CatalogErrEmpty).
			WithMetadata(meta)
	}

	links := make([]string, 0, len(body.Data.Products))
	for _, p := range body.Data.Products {
		if p.PurchaseURL != nil && *p.PurchaseURL != "" {
			links = append(links, *p.PurchaseURL)
		}
	}
	return links, nil
}

func (r *CatalogResolverImpl) productsURL(postType, postID string) string {
	q := url.Values{}
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(r.cfg.PageSize))
	q.Set("postType", postType)
	q.Set("postOrCollectionId", postID)
	q.Set("sourceApp", catalogSourceApp)
	return r.cfg.BaseURL + catalogProductsPath + "?" + q.Encode()
}

// firstSuccess пробует стратегии по порядку и возвращает результат первой
// успешной вместе с ее индексом. Остальные стратегии не вызываются.
func firstSuccess[S, T any](ctx context.Context, strategies []S, try func(context.Context, S) (T, error)) (T, int, error) {
	var zero T
	if len(strategies) == 0 {
		return zero, -1, ErrNoStrategies
	}

	var errs []error
	for i, s := range strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := try(ctx, s)
		if err == nil {
			return v, i, nil
		}
		errs = append(errs, err)
	}
	return zero, -1, errors.Join(errs...)
}
