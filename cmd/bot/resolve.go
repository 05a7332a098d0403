package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"deal-link-bot/internal/adapters/exporter"
	"deal-link-bot/internal/adapters/source"
	"deal-link-bot/internal/domain"
)

// resolveCmd прогоняет текст через тот же конвейер, что и бот, и печатает
// ответы в консоль. Токен бота не нужен.
func resolveCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "resolve [text...]",
		Short: "Resolve links from text, a file or stdin and print the replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidatePipeline(); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			logger := setupLogger(cfg)

			var stdin io.Reader
			if len(args) == 0 && filePath == "" {
				stdin = cmd.InOrStdin()
			}
			text, err := source.NewCliSource(args, filePath, stdin).Fetch()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctx, cancel := context.WithTimeout(ctx, cfg.Dispatcher.JobTimeout)
			defer cancel()

			b := newBot(cfg, exporter.NewConsoleExporter(cmd.OutOrStdout()), 0, logger)
			b.HandleEnvelope(ctx, domain.Envelope{Text: text})
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "read message text from file")
	return cmd
}
