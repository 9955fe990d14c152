package structured

import (
	"context"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/sqlguard"
)

// Generator produces one non-streamed completion.
type Generator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// CatalogSource lists the tables and columns of the relational store.
type CatalogSource interface {
	Columns(ctx context.Context) (map[string][]string, error)
}

// Executor runs a guarded read-only statement.
type Executor interface {
	Execute(ctx context.Context, q sqlguard.Query) (domain.ResultSet, error)
}
