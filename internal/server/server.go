package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	goerrors "github.com/goliatone/go-errors"

	applog "deal-link-bot/internal/log"
	"deal-link-bot/internal/pkg/config"
	"deal-link-bot/internal/ports"
)

// ackResponse описывает тело ответа Telegram на входящий вебхук.
type ackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Server представляет HTTP-сервер, принимающий обновления Telegram
type Server struct {
	HTTPServer   *http.Server
	parser       ports.UpdateParser
	dispatcher   ports.Dispatcher
	secret       string
	maxBodyBytes int64
	logger       *slog.Logger
}

// New создает новый экземпляр Server. Секрет вебхука должен быть уже задан
// (см. config.EnsureWebhookSecret).
func New(cfg *config.Config, parser ports.UpdateParser, dispatcher ports.Dispatcher, logger *slog.Logger) (*Server, error) {
	if cfg.Telegram.WebhookSecret == "" {
		return nil, errors.New("секрет вебхука не задан")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		parser:       parser,
		dispatcher:   dispatcher,
		secret:       cfg.Telegram.WebhookSecret,
		maxBodyBytes: cfg.Server.MaxBodyBytes,
		logger:       logger,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = config.DefaultMaxBodyBytes
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  &applog.TGBotAPIAdapter{Logger: logger},
		NoColor: true,
	}))
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
	})

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		// Сервер жив, пока принимает запросы; доступность Bot API здесь не проверяется.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chiRouter.Post(config.DefaultWebhookPathPrefix+"/{secret}", s.handleWebhook)

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  config.DefaultReadTimeout,
		WriteTimeout: config.DefaultWriteTimeout,
		IdleTimeout:  config.DefaultIdleTimeout,
	}
	return s, nil
}

// handleWebhook разбирает обновление, ставит его в очередь и сразу подтверждает.
// Обработка сообщения идет в воркерах диспетчера, ответ Telegram от нее не зависит.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.secret)) != 1 {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ackResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ackResponse{Error: "failed to read body"})
		return
	}
	if len(body) == 0 {
		writeJSON(w, http.StatusBadRequest, ackResponse{Error: "empty body"})
		return
	}

	env, ok, err := s.parser.Parse(body)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Invalid update payload", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusBadRequest, ackResponse{Error: "invalid JSON"})
		return
	}
	if !ok {
		// Обновления без текста подтверждаем, чтобы Telegram их не повторял
		writeJSON(w, http.StatusOK, ackResponse{OK: true})
		return
	}

	if err := s.dispatcher.Enqueue(env); err != nil {
		status := statusFromError(err)
		s.logger.WarnContext(r.Context(), "Update rejected", "chat_id", env.ChatID, "status", status, "error", err)
		writeJSON(w, status, ackResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ackResponse{OK: true})
}

// statusFromError достает HTTP-статус из ошибки go-errors, иначе 500.
func statusFromError(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code >= http.StatusBadRequest && rich.Code < 600 {
		return rich.Code
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP-сервер запущен", "addr", s.HTTPServer.Addr)
	if err := s.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ошибка HTTP-сервера: %w", err)
	}
	return nil
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}
