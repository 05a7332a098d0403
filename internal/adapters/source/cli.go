package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"deal-link-bot/internal/ports"
)

// maxInputBytes ограничивает чтение из файла или stdin.
const maxInputBytes = 1 << 20

// CliSource реализует интерфейс TextSource для команды resolve.
// Приоритет: аргументы командной строки, затем файл, затем stdin.
type CliSource struct {
	args     []string
	filePath string
	stdin    io.Reader
}

// NewCliSource создает новый экземпляр CliSource.
func NewCliSource(args []string, filePath string, stdin io.Reader) ports.TextSource {
	return &CliSource{args: args, filePath: filePath, stdin: stdin}
}

// Fetch возвращает текст сообщения.
func (s *CliSource) Fetch() (string, error) {
	switch {
	case len(s.args) > 0:
		return strings.Join(s.args, " "), nil
	case s.filePath != "":
		data, err := os.ReadFile(s.filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", s.filePath, err)
		}
		return string(data), nil
	case s.stdin != nil:
		data, err := io.ReadAll(io.LimitReader(s.stdin, maxInputBytes))
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) == 0 {
			return "", fmt.Errorf("не указан источник текста")
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("не указан источник текста")
	}
}
