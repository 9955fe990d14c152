package planner

import (
	"context"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
)

// Generator produces one non-streamed completion.
type Generator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}
