package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"deal-link-bot/internal/domain"
	"deal-link-bot/internal/ports"
)

const (
	ErrCodeQueueFull = "DISPATCHER_QUEUE_FULL"
	ErrCodeStopped   = "DISPATCHER_STOPPED"
)

// Option настраивает Dispatcher.
type Option func(*Dispatcher)

// WithWorkers устанавливает количество воркеров.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize устанавливает емкость очереди одного воркера.
func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

// WithJobTimeout ограничивает время обработки одного конверта.
func WithJobTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.jobTimeout = t
		}
	}
}

// WithLogger устанавливает логгер.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

type job struct {
	id         string
	env        domain.Envelope
	enqueuedAt time.Time
}

// Dispatcher передает конверты долгоживущим воркерам через ограниченные очереди.
// Конверты одного чата всегда попадают к одному воркеру, поэтому порядок
// обработки внутри разговора совпадает с порядком поступления.
type Dispatcher struct {
	handler    ports.EnvelopeHandler
	workers    int
	queueSize  int
	jobTimeout time.Duration
	log        *slog.Logger

	queues []chan job
	wg     sync.WaitGroup

	mu      sync.RWMutex
	started bool
	stopped bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New создает Dispatcher. Очереди создаются сразу, воркеры запускает Start.
func New(handler ports.EnvelopeHandler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handler:    handler,
		workers:    1,
		queueSize:  100,
		jobTimeout: 2 * time.Minute,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.queues = make([]chan job, d.workers)
	for i := range d.queues {
		d.queues[i] = make(chan job, d.queueSize)
	}
	return d
}

// Start запускает воркеров. Контекст задает значения для обработки, но его отмена
// не прерывает уже принятые конверты: для остановки используется Stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true
	d.baseCtx, d.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for i, q := range d.queues {
		d.wg.Add(1)
		go d.worker(i, q)
	}

	d.log.InfoContext(ctx, "Dispatcher started",
		"workers", d.workers,
		"queue_size", d.queueSize,
		"job_timeout", d.jobTimeout,
	)
}

// Enqueue ставит конверт в очередь и никогда не блокируется.
// Если очередь воркера заполнена или диспетчер остановлен, возвращается
// ошибка с HTTP-кодом 503.
func (d *Dispatcher) Enqueue(env domain.Envelope) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return goerrors.New("dispatcher is stopped", goerrors.CategoryOperation).
			WithCode(http.StatusServiceUnavailable).
			WithTextCode(ErrCodeStopped)
	}

	idx := d.shard(env.ChatID)
	j := job{id: uuid.NewString(), env: env, enqueuedAt: time.Now()}

	select {
	case d.queues[idx] <- j:
		d.log.Debug("Envelope enqueued", "job_id", j.id, "chat_id", env.ChatID, "worker", idx)
		return nil
	default:
		return goerrors.New(fmt.Sprintf("dispatcher queue %d is full", idx), goerrors.CategoryRateLimit).
			WithCode(http.StatusServiceUnavailable).
			WithTextCode(ErrCodeQueueFull).
			WithMetadata(map[string]any{
				"chat_id":  env.ChatID,
				"worker":   idx,
				"capacity": d.queueSize,
			})
	}
}

// Stop перестает принимать конверты, дожидается обработки уже принятых и
// завершения воркеров. Если ctx истекает раньше, текущая обработка отменяется.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	for _, q := range d.queues {
		close(q)
	}
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.log.InfoContext(ctx, "Dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		err := fmt.Errorf("dispatcher drain interrupted: %w", ctx.Err())
		d.log.WarnContext(ctx, "Dispatcher stopped before queues were drained", "error", err)
		return err
	}
}

func (d *Dispatcher) shard(chatID int64) int {
	return int(uint64(chatID) % uint64(len(d.queues)))
}

func (d *Dispatcher) worker(idx int, queue <-chan job) {
	defer d.wg.Done()
	for j := range queue {
		d.process(idx, j)
	}
}

// process обрабатывает один конверт. Паника обработчика перехватывается,
// воркер продолжает читать очередь.
func (d *Dispatcher) process(idx int, j job) {
	ctx, cancel := context.WithTimeout(d.baseCtx, d.jobTimeout)
	defer cancel()

	log := d.log.With("job_id", j.id, "chat_id", j.env.ChatID, "worker", idx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "Envelope handler panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	log.DebugContext(ctx, "Processing envelope", "queued_for", start.Sub(j.enqueuedAt))
	d.handler.HandleEnvelope(ctx, j.env)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.WarnContext(ctx, "Envelope processing hit the job timeout", "timeout", d.jobTimeout)
		return
	}
	log.DebugContext(ctx, "Envelope processed", "duration", time.Since(start))
}
