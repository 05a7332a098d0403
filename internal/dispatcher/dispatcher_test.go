package dispatcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-link-bot/internal/domain"
)

// recordingHandler запоминает порядок обработки по чатам.
type recordingHandler struct {
	mu      sync.Mutex
	byChat  map[int64][]int
	total   int
	delay   time.Duration
	panicOn int
	done    chan struct{}
	expect  int
}

func newRecordingHandler(expect int) *recordingHandler {
	return &recordingHandler{byChat: map[int64][]int{}, done: make(chan struct{}), expect: expect, panicOn: -1}
}

func (h *recordingHandler) HandleEnvelope(ctx context.Context, env domain.Envelope) {
	if h.delay > 0 {
		time.Sleep(h.delay)
	}

	h.mu.Lock()
	h.byChat[env.ChatID] = append(h.byChat[env.ChatID], env.MessageID)
	h.total++
	if h.total == h.expect {
		close(h.done)
	}
	h.mu.Unlock()

	if env.MessageID == h.panicOn {
		panic("boom")
	}
}

func (h *recordingHandler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not receive all envelopes in time")
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcher_PerChatOrder(t *testing.T) {
	h := newRecordingHandler(30)
	d := New(h, WithWorkers(3), WithQueueSize(50), WithLogger(quietLogger()))
	d.Start(context.Background())
	defer func() { _ = d.Stop(context.Background()) }()

	for i := 0; i < 10; i++ {
		for _, chat := range []int64{1, 2, -1001} {
			require.NoError(t, d.Enqueue(domain.Envelope{ChatID: chat, MessageID: i}))
		}
	}
	h.wait(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	for _, chat := range []int64{1, 2, -1001} {
		assert.Equal(t, want, h.byChat[chat], "chat %d", chat)
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	h := newRecordingHandler(2)
	d := New(h, WithWorkers(1), WithQueueSize(1), WithLogger(quietLogger()))

	// Воркеры еще не запущены, поэтому очередь не разбирается
	require.NoError(t, d.Enqueue(domain.Envelope{ChatID: 7, MessageID: 1}))

	start := time.Now()
	err := d.Enqueue(domain.Envelope{ChatID: 7, MessageID: 2})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "Enqueue must not block")

	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, goerrors.CategoryRateLimit, rich.Category)
	assert.Equal(t, ErrCodeQueueFull, rich.TextCode)
	assert.Equal(t, http.StatusServiceUnavailable, rich.Code)

	d.Start(context.Background())
	require.NoError(t, d.Stop(context.Background()))
	h.mu.Lock()
	assert.Equal(t, []int{1}, h.byChat[7])
	h.mu.Unlock()
}

func TestDispatcher_SurvivesPanic(t *testing.T) {
	h := newRecordingHandler(3)
	h.panicOn = 1
	d := New(h, WithLogger(quietLogger()))
	d.Start(context.Background())
	defer func() { _ = d.Stop(context.Background()) }()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Enqueue(domain.Envelope{ChatID: 5, MessageID: i}))
	}
	h.wait(t)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, h.byChat[5])
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	h := newRecordingHandler(5)
	h.delay = 10 * time.Millisecond
	d := New(h, WithLogger(quietLogger()))
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(domain.Envelope{ChatID: 9, MessageID: i}))
	}
	require.NoError(t, d.Stop(context.Background()))

	h.mu.Lock()
	assert.Len(t, h.byChat[9], 5)
	h.mu.Unlock()

	err := d.Enqueue(domain.Envelope{ChatID: 9, MessageID: 6})
	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich))
	assert.Equal(t, ErrCodeStopped, rich.TextCode)

	// Повторная остановка безопасна
	assert.NoError(t, d.Stop(context.Background()))
}

func TestDispatcher_StopDeadlineCancelsJobs(t *testing.T) {
	block := make(chan struct{})
	var sawCancel bool
	var mu sync.Mutex
	handler := handlerFunc(func(ctx context.Context, env domain.Envelope) {
		select {
		case <-ctx.Done():
			mu.Lock()
			sawCancel = true
			mu.Unlock()
		case <-block:
		}
	})
	defer close(block)

	d := New(handler, WithLogger(quietLogger()))
	d.Start(context.Background())
	require.NoError(t, d.Enqueue(domain.Envelope{ChatID: 1}))
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	assert.True(t, sawCancel)
	mu.Unlock()
}

func TestDispatcher_JobTimeout(t *testing.T) {
	deadlines := make(chan bool, 1)
	handler := handlerFunc(func(ctx context.Context, env domain.Envelope) {
		<-ctx.Done()
		deadlines <- true
	})

	d := New(handler, WithJobTimeout(20*time.Millisecond), WithLogger(quietLogger()))
	d.Start(context.Background())
	defer func() { _ = d.Stop(context.Background()) }()

	require.NoError(t, d.Enqueue(domain.Envelope{ChatID: 3}))
	select {
	case <-deadlines:
	case <-time.After(2 * time.Second):
		t.Fatal("job timeout was not applied")
	}
}

type handlerFunc func(ctx context.Context, env domain.Envelope)

func (f handlerFunc) HandleEnvelope(ctx context.Context, env domain.Envelope) { f(ctx, env) }
