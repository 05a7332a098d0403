package exporter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"deal-link-bot/internal/domain"
)

const maxRuleWidth = 60

// ConsoleExporter реализует интерфейс Sender для офлайн-прогона:
// вместо отправки в Telegram сообщения печатаются в консоль.
// Печатается текстовая версия сообщения, так как терминал не понимает разметку.
type ConsoleExporter struct {
	mu  sync.Mutex
	out io.Writer
	n   int
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter. nil означает os.Stdout.
func NewConsoleExporter(out io.Writer) *ConsoleExporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleExporter{out: out}
}

// Deliver выводит сообщение, отделяя его от предыдущего линией по ширине текста.
func (e *ConsoleExporter) Deliver(ctx context.Context, d domain.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text := d.Primary.Text
	if d.Fallback != nil {
		text = d.Fallback.Text
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.n++

	rule := strings.Repeat("─", ruleWidth(text))
	if _, err := fmt.Fprintf(e.out, "--- Message %d ---\n%s\n%s\n", e.n, text, rule); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ruleWidth возвращает ширину самой длинной строки на экране (эмодзи и CJK занимают две колонки).
func ruleWidth(text string) int {
	width := 0
	for _, line := range strings.Split(text, "\n") {
		width = max(width, runewidth.StringWidth(line))
	}
	return min(max(width, 3), maxRuleWidth)
}
