// Package structured answers questions from the relational store through
// generated, guarded SQL.
package structured

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/catalog"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/sqlguard"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/metrics"
)

// Config holds the SQL generation model and guard settings.
type Config struct {
	Model    string
	MaxLimit int
	Catalog  catalog.Options
}

// Service generates, guards and executes one SELECT per question.
type Service struct {
	gen    Generator
	source CatalogSource
	exec   Executor
	cfg    Config

	mu    sync.Mutex
	guard *sqlguard.Guard
	cat   catalog.Catalog
}

// New creates a structured retrieval service. The catalog is loaded on first use.
func New(gen Generator, source CatalogSource, exec Executor, cfg Config) *Service {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = sqlguard.DefaultMaxLimit
	}
	return &Service{gen: gen, source: source, exec: exec, cfg: cfg}
}

// Query answers q with rows from the relational store. Errors wrap
// domain.ErrRetrieval, domain.ErrProvider or domain.ErrGuardViolation.
// A rejected statement is never executed.
func (s *Service) Query(ctx context.Context, q domain.Question) (domain.ResultSet, error) {
	rs, err := s.query(ctx, q)
	switch {
	case err == nil:
		metrics.StructuredQueriesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, domain.ErrGuardViolation):
		metrics.StructuredQueriesTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.StructuredQueriesTotal.WithLabelValues("error").Inc()
	}
	return rs, err
}

func (s *Service) query(ctx context.Context, q domain.Question) (domain.ResultSet, error) {
	guard, cat, err := s.load(ctx)
	if err != nil {
		return domain.ResultSet{}, err
	}
	if cat.Len() == 0 {
		return domain.ResultSet{}, fmt.Errorf("%w: no allowed tables in catalog", domain.ErrRetrieval)
	}

	raw, err := s.gen.Complete(ctx, domain.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: userPrompt(cat, q.Text, q.TenantID, s.cfg.MaxLimit)},
		},
	})
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("generate sql: %w", err)
	}

	candidate := sqlguard.Clean(raw)
	guarded, err := guard.Apply(candidate, sqlguard.Scope{TenantID: q.TenantID, AskerID: q.AskerID})
	if err != nil {
		var v *sqlguard.Violation
		if errors.As(err, &v) {
			metrics.GuardViolationsTotal.WithLabelValues(string(v.Kind)).Inc()
		}
		logger.FromContext(ctx).Warn("Generated SQL rejected",
			zap.String("candidate", candidate), zap.Error(err))
		return domain.ResultSet{}, err
	}

	logger.FromContext(ctx).Debug("Executing guarded SQL", zap.String("sql", guarded.SQL))
	rs, err := s.exec.Execute(ctx, guarded)
	if err != nil {
		return domain.ResultSet{}, fmt.Errorf("%w: execute: %w", domain.ErrRetrieval, err)
	}
	return rs, nil
}

// load returns the guard and catalog, introspecting the store on first use.
// A failed load is not cached.
func (s *Service) load(ctx context.Context) (*sqlguard.Guard, catalog.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guard != nil {
		return s.guard, s.cat, nil
	}
	cols, err := s.source.Columns(ctx)
	if err != nil {
		return nil, catalog.Catalog{}, fmt.Errorf("%w: load catalog: %w", domain.ErrRetrieval, err)
	}
	s.cat = catalog.New(cols, s.cfg.Catalog)
	s.guard = sqlguard.New(s.cat, s.cfg.MaxLimit)
	logger.FromContext(ctx).Info("Catalog loaded", zap.Int("tables", s.cat.Len()))
	return s.guard, s.cat, nil
}
