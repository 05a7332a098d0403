package services

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"deal-link-bot/internal/ports"
)

// maxDrainBytes ограничивает дочитывание тела ответа, чтобы соединение вернулось в пул.
const maxDrainBytes = 64 << 10

// RedirectConfig хранит конфигурацию RedirectResolver.
type RedirectConfig struct {
	// Timeout ограничивает весь запрос вместе со всеми редиректами.
	Timeout time.Duration
	// UserAgent — "браузерная" идентичность запроса.
	UserAgent string
}

// RedirectOption настраивает RedirectResolverImpl.
type RedirectOption func(*RedirectResolverImpl)

// WithRedirectHTTPClient подменяет HTTP-клиент (используется в тестах).
func WithRedirectHTTPClient(c *http.Client) RedirectOption {
	return func(r *RedirectResolverImpl) {
		if c != nil {
			r.client = c
		}
	}
}

// WithRedirectLogger устанавливает логгер.
func WithRedirectLogger(l *slog.Logger) RedirectOption {
	return func(r *RedirectResolverImpl) {
		if l != nil {
			r.log = l
		}
	}
}

// RedirectResolverImpl реализует интерфейс RedirectResolver.
type RedirectResolverImpl struct {
	cfg    RedirectConfig
	client *http.Client
	log    *slog.Logger
}

// NewRedirectResolver создает новый RedirectResolverImpl.
func NewRedirectResolver(cfg RedirectConfig, opts ...RedirectOption) ports.RedirectResolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0"
	}

	r := &RedirectResolverImpl{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve выполняет GET с автоматическим следованием редиректам и возвращает
// конечный URL. Статус конечного ответа не важен: адрес уже известен.
// Любая транспортная ошибка означает отсутствие результата.
func (r *RedirectResolverImpl) Resolve(ctx context.Context, rawURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		r.log.WarnContext(ctx, "Invalid redirect url", "url", rawURL, "error", err)
		return "", false
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.log.WarnContext(ctx, "Redirect resolution failed", "url", rawURL, "error", err)
		return "", false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	final := resp.Request.URL.String()
	r.log.DebugContext(ctx, "Redirect resolved", "url", rawURL, "final_url", final, "status", resp.StatusCode)
	return final, true
}
