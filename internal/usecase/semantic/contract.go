package semantic

import (
	"context"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/chunk"
)

// Index finds the chunks nearest to a query vector.
type Index interface {
	NearestNeighbors(ctx context.Context, vector []float32, f chunk.Filter, k int) ([]chunk.Record, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
