package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/event"
	logpkg "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
)

var (
	askTenant string
	askAsker  string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the streamed answer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx := cmd.Context()
		a, err := buildApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		q := domain.Question{
			Text:     strings.Join(args, " "),
			TenantID: askTenant,
			AskerID:  askAsker,
		}
		requestID := "cli-" + uuid.NewString()
		ctx = logpkg.ContextWithLogger(ctx, logger)
		if err := a.chatbot.Run(ctx, requestID, q, &writerSink{w: cmd.OutOrStdout()}); err != nil {
			logger.Warn("Run ended with error", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askTenant, "tenant", "", "tenant (company) id the question is scoped to")
	askCmd.Flags().StringVar(&askAsker, "asker", "", "employee id of the asker")
}

// writerSink prints fragments as they arrive and the terminal summary after them.
type writerSink struct {
	w io.Writer
}

func (s *writerSink) Deliver(_ context.Context, e event.Event) error {
	if !e.Terminal() {
		_, err := io.WriteString(s.w, e.Text)
		return err
	}
	if !e.Success {
		_, err := fmt.Fprintf(s.w, "\n[failed: %s]\n", e.Error)
		return err
	}
	if e.Action == nil {
		_, err := io.WriteString(s.w, "\n")
		return err
	}
	params, err := json.Marshal(e.Action.Params)
	if err != nil {
		return fmt.Errorf("encode action params: %w", err)
	}
	_, err = fmt.Fprintf(s.w, "\n[action: %s %s]\n", e.Action.ActionID, params)
	return err
}
