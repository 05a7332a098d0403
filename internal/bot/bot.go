package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/mattn/go-runewidth"

	"deal-link-bot/internal/domain"
	"deal-link-bot/internal/ports"
)

const (
	startCommand = "start"
	helpCommand  = "help"

	previewWidth = 64
)

const (
	welcomeText    = "Hey! 👋 Send me a Wishlink or Instagram post/reel link and I’ll fetch the real product links for you."
	usageText      = "Send me a link to a post, a reel or a /share/ link and I’ll reply with the product links."
	unknownText    = "I don’t know that command. " + usageText
	processingText = "Processing your link… 🔄"
)

// Option задает функциональную опцию для настройки Bot.
type Option func(*Bot)

// WithSendInterval задает паузу между частями одного ответа.
func WithSendInterval(d time.Duration) Option {
	return func(b *Bot) {
		if d >= 0 {
			b.sendInterval = d
		}
	}
}

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bot обрабатывает входящие конверты: команды, конвейер разрешения ссылок и отправку ответа.
// Реализует ports.EnvelopeHandler и вызывается из воркеров диспетчера.
type Bot struct {
	pipeline     ports.LinkPipeline
	renderer     ports.Renderer
	sender       ports.Sender
	sendInterval time.Duration
	logger       *slog.Logger
}

// NewBot создает новый экземпляр бота.
func NewBot(pipeline ports.LinkPipeline, renderer ports.Renderer, sender ports.Sender, opts ...Option) *Bot {
	b := &Bot{
		pipeline: pipeline,
		renderer: renderer,
		sender:   sender,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HandleEnvelope обрабатывает одно входящее сообщение от начала до конца.
// Ошибки доставки логируются и не прерывают отправку остальных частей.
func (b *Bot) HandleEnvelope(ctx context.Context, env domain.Envelope) {
	logger := b.logger.With(slog.Int64("chat_id", env.ChatID), slog.Int("message_id", env.MessageID))

	if env.Command != "" {
		b.handleCommand(ctx, logger, env)
		return
	}

	logger.InfoContext(ctx, "Handling message", "preview", runewidth.Truncate(env.Text, previewWidth, "…"))

	candidates := b.pipeline.Candidates(env.Text, env.Entities)
	if len(candidates) == 0 {
		logger.DebugContext(ctx, "No links in message")
		b.reply(ctx, logger, env, domain.Plain(usageText))
		return
	}

	b.reply(ctx, logger, env, domain.Plain(processingText))

	links := b.pipeline.Resolve(ctx, candidates)
	if len(links) == 0 {
		logger.InfoContext(ctx, "No product links found", "candidates", len(candidates))
		b.reply(ctx, logger, env, b.renderer.NoResults())
		return
	}

	chunks := b.renderer.Chunk(links)
	logger.InfoContext(ctx, "Sending results", "links", len(links), "chunks", len(chunks))

	for i, chunk := range chunks {
		if i > 0 && !b.pause(ctx) {
			logger.WarnContext(ctx, "Delivery interrupted", "sent_chunks", i, "error", ctx.Err())
			return
		}

		plain := b.renderer.Plain(chunk)
		err := b.sender.Deliver(ctx, domain.Delivery{
			ChatID:   env.ChatID,
			ReplyTo:  env.MessageID,
			Primary:  b.renderer.Rich(chunk),
			Fallback: &plain,
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to deliver chunk", "part", chunk.Part, "error", err)
		}
	}
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, logger *slog.Logger, env domain.Envelope) {
	switch env.Command {
	case startCommand:
		b.reply(ctx, logger, env, domain.Plain(welcomeText))
	case helpCommand:
		b.reply(ctx, logger, env, domain.Plain(usageText))
	default:
		b.reply(ctx, logger, env, domain.Plain(unknownText))
	}
}

func (b *Bot) reply(ctx context.Context, logger *slog.Logger, env domain.Envelope, r domain.Rendered) {
	err := b.sender.Deliver(ctx, domain.Delivery{ChatID: env.ChatID, ReplyTo: env.MessageID, Primary: r})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to send message", "error", err)
	}
}

// pause выдерживает интервал между частями. false, если контекст завершился раньше.
func (b *Bot) pause(ctx context.Context) bool {
	if b.sendInterval <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(b.sendInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
