// Package chatbot runs one question from planning to the terminal callback.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/grounding"
)

// Deps are the collaborators of the orchestrator.
type Deps struct {
	Planner    Planner
	Structured StructuredRetriever
	Semantic   SemanticRetriever
	Assembler  *grounding.Assembler
	Synth      Synthesizer
	Suggester  ActionSuggester
	Sinks      SinkFactory
	Pool       Submitter
}

// Service orchestrates chatbot requests.
type Service struct {
	planner    Planner
	structured StructuredRetriever
	semantic   SemanticRetriever
	assembler  *grounding.Assembler
	synth      Synthesizer
	suggester  ActionSuggester
	sinks      SinkFactory
	pool       Submitter
}

// New creates the orchestrator. A nil Assembler uses default row limits.
func New(d Deps) *Service {
	if d.Assembler == nil {
		d.Assembler = grounding.New(0)
	}
	return &Service{
		planner:    d.Planner,
		structured: d.Structured,
		semantic:   d.Semantic,
		assembler:  d.Assembler,
		synth:      d.Synth,
		suggester:  d.Suggester,
		sinks:      d.Sinks,
		pool:       d.Pool,
	}
}

// Request is an accepted question with its callback destination.
type Request struct {
	ID          string
	Question    domain.Question
	CallbackURL string
	CallbackKey string
}

// Start validates req and hands it to the worker pool. It returns
// domain.ErrInvalidQuestion, domain.ErrInvalidCallback or domain.ErrOverloaded
// without side effects; any later failure is reported through the callback.
func (s *Service) Start(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("%w: missing request id", domain.ErrInvalidQuestion)
	}
	if strings.TrimSpace(req.Question.Text) == "" {
		return fmt.Errorf("%w: empty question", domain.ErrInvalidQuestion)
	}

	sink, err := s.sinks.NewSink(req.CallbackURL, req.CallbackKey)
	if err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	err = s.pool.Submit(func() {
		_ = s.Run(bg, req.ID, req.Question, sink)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrOverloaded) {
			err = fmt.Errorf("%w: %w", domain.ErrOverloaded, err)
		}
		logger.FromContext(ctx).Warn("Request rejected", zap.String("request_id", req.ID), zap.Error(err))
		return err
	}
	return nil
}
