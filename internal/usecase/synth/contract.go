package synth

import (
	"context"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
)

// Generator produces one non-streamed completion.
type Generator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// StreamGenerator additionally streams completions fragment by fragment.
type StreamGenerator interface {
	Generator
	Stream(ctx context.Context, req domain.CompletionRequest) (domain.FragmentReader, error)
}
