package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"deal-link-bot/internal/core/services"
	"deal-link-bot/internal/domain"
)

type mockPipeline struct{ mock.Mock }

func (m *mockPipeline) Candidates(text string, entities []domain.TextEntity) []string {
	args := m.Called(text, entities)
	if res := args.Get(0); res != nil {
		return res.([]string)
	}
	return nil
}

func (m *mockPipeline) Resolve(ctx context.Context, candidates []string) domain.ResolvedLinkSet {
	args := m.Called(ctx, candidates)
	if res := args.Get(0); res != nil {
		return res.(domain.ResolvedLinkSet)
	}
	return nil
}

// recordingSender запоминает доставки; failParts задает номера доставок (с 1), которые вернут ошибку.
type recordingSender struct {
	mu        sync.Mutex
	delivered []domain.Delivery
	failParts map[int]bool
}

func (s *recordingSender) Deliver(ctx context.Context, d domain.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, d)
	if s.failParts[len(s.delivered)] {
		return errors.New("telegram: Bad Request")
	}
	return nil
}

func (s *recordingSender) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.delivered))
	for _, d := range s.delivered {
		out = append(out, d.Primary.Text)
	}
	return out
}

func newTestBot(p *mockPipeline, s *recordingSender, opts ...Option) *Bot {
	renderer := services.NewRenderer(services.RenderPolicy{
		ChunkSize:   8,
		DiscountMin: 50,
		DiscountMax: 90,
		Titles:      []string{"🔥 Loot Deal Alert!"},
		ParseMode:   tgbotapi.ModeMarkdownV2,
	})
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewBot(p, renderer, s, opts...)
}

func links(n int) domain.ResolvedLinkSet {
	out := make(domain.ResolvedLinkSet, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://shop.example/%d", i)
	}
	return out
}

func TestBot_Commands(t *testing.T) {
	testCases := []struct {
		command string
		want    string
	}{
		{"start", welcomeText},
		{"help", usageText},
		{"unknown", unknownText},
	}

	for _, tc := range testCases {
		t.Run(tc.command, func(t *testing.T) {
			p := new(mockPipeline)
			s := &recordingSender{}
			newTestBot(p, s).HandleEnvelope(context.Background(), domain.Envelope{ChatID: 1, MessageID: 2, Text: "/" + tc.command, Command: tc.command})

			assert.Equal(t, []string{tc.want}, s.Texts())
			p.AssertNotCalled(t, "Candidates", mock.Anything, mock.Anything)
		})
	}
}

func TestBot_NoLinksInMessage(t *testing.T) {
	p := new(mockPipeline)
	p.On("Candidates", "hello", []domain.TextEntity(nil)).Return(nil)
	s := &recordingSender{}

	newTestBot(p, s).HandleEnvelope(context.Background(), domain.Envelope{ChatID: 1, Text: "hello"})

	assert.Equal(t, []string{usageText}, s.Texts())
	p.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestBot_NoResults(t *testing.T) {
	p := new(mockPipeline)
	p.On("Candidates", mock.Anything, mock.Anything).Return([]string{"https://x.test/post/1"})
	p.On("Resolve", mock.Anything, []string{"https://x.test/post/1"}).Return(nil)
	s := &recordingSender{}

	newTestBot(p, s).HandleEnvelope(context.Background(), domain.Envelope{ChatID: 1, MessageID: 9, Text: "https://x.test/post/1"})

	require.Len(t, s.delivered, 2)
	assert.Equal(t, processingText, s.delivered[0].Primary.Text)
	assert.Contains(t, s.delivered[1].Primary.Text, "No product links found")
	assert.Equal(t, domain.RenderPlain, s.delivered[1].Primary.Kind)
	assert.Equal(t, 9, s.delivered[1].ReplyTo)
}

func TestBot_SendsChunksAndSurvivesFailures(t *testing.T) {
	p := new(mockPipeline)
	p.On("Candidates", mock.Anything, mock.Anything).Return([]string{"https://x.test/post/1"})
	p.On("Resolve", mock.Anything, mock.Anything).Return(links(17))
	// Вторая доставка (первая часть результата) падает
	s := &recordingSender{failParts: map[int]bool{2: true}}

	newTestBot(p, s).HandleEnvelope(context.Background(), domain.Envelope{ChatID: 5, MessageID: 3, Text: "https://x.test/post/1"})

	require.Len(t, s.delivered, 4, "processing notice + 3 chunks")
	var seen []string
	for i, d := range s.delivered[1:] {
		assert.Equal(t, int64(5), d.ChatID)
		assert.Equal(t, domain.RenderRich, d.Primary.Kind)
		require.NotNil(t, d.Fallback)
		assert.Equal(t, domain.RenderPlain, d.Fallback.Kind)
		if i > 0 {
			assert.Contains(t, d.Fallback.Text, fmt.Sprintf("(Part %d)", i+1))
		}
		seen = append(seen, d.Fallback.Text)
	}
	for _, l := range links(17) {
		found := 0
		for _, text := range seen {
			for _, line := range strings.Split(text, "\n") {
				if strings.HasSuffix(line, l) {
					found++
				}
			}
		}
		assert.Equal(t, 1, found, "link %s", l)
	}
}

func TestBot_SendIntervalRespectsCancellation(t *testing.T) {
	p := new(mockPipeline)
	p.On("Candidates", mock.Anything, mock.Anything).Return([]string{"https://x.test/post/1"})
	p.On("Resolve", mock.Anything, mock.Anything).Return(links(17))
	s := &recordingSender{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	newTestBot(p, s, WithSendInterval(time.Hour)).HandleEnvelope(ctx, domain.Envelope{ChatID: 1, Text: "x"})

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, s.delivered, 2, "processing notice + first chunk only")
}
