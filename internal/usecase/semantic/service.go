// Package semantic retrieves document passages by vector similarity.
package semantic

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/chunk"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/plan"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
)

// DefaultConcurrency bounds the sub-queries of one question run at once.
const DefaultConcurrency = 4

// Service embeds queries and searches the chunk index.
type Service struct {
	index       Index
	embed       Embedder
	concurrency int
}

// New creates a semantic retrieval service. A non-positive concurrency falls
// back to DefaultConcurrency.
func New(index Index, embed Embedder, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{index: index, embed: embed, concurrency: concurrency}
}

// Search returns up to topK snippets for query. Errors wrap domain.ErrRetrieval
// or domain.ErrProvider.
func (s *Service) Search(ctx context.Context, query string, topK int, f chunk.Filter) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" || topK <= 0 {
		return nil, nil
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	records, err := s.index.NearestNeighbors(ctx, emb.Embedding, f, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: nearest neighbors: %w", domain.ErrRetrieval, err)
	}

	snippets := make([]string, 0, min(len(records), topK))
	for _, r := range records {
		if len(snippets) == topK {
			break
		}
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		snippets = append(snippets, r.Snippet())
	}
	return snippets, nil
}

// SearchAll runs every task concurrently and concatenates the snippets in
// task order. A failed or panicking task contributes nothing.
func (s *Service) SearchAll(ctx context.Context, tasks []plan.SemanticTask, f chunk.Filter) []string {
	results := make([][]string, len(tasks))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					logger.FromContext(ctx).Error("Semantic task panicked",
						zap.String("query", task.Query), zap.Any("panic", p), zap.Stack("stack"))
				}
			}()
			snippets, err := s.Search(ctx, task.Query, task.TopK, f)
			if err != nil {
				logger.FromContext(ctx).Warn("Semantic task failed",
					zap.String("query", task.Query), zap.Int("top_k", task.TopK), zap.Error(err))
				return nil
			}
			results[i] = snippets
			return nil
		})
	}
	_ = g.Wait()

	return slices.Concat(results...)
}
