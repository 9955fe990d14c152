package chatbot

import (
	"context"
	"iter"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/action"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/chunk"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/event"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/plan"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/synth"
)

// Planner chooses the retrieval paths for a question.
type Planner interface {
	Plan(ctx context.Context, q domain.Question) plan.Plan
}

// StructuredRetriever answers a question from the relational store.
type StructuredRetriever interface {
	Query(ctx context.Context, q domain.Question) (domain.ResultSet, error)
}

// SemanticRetriever searches document passages.
type SemanticRetriever interface {
	SearchAll(ctx context.Context, tasks []plan.SemanticTask, f chunk.Filter) []string
}

// Synthesizer streams the grounded answer.
type Synthesizer interface {
	Stream(ctx context.Context, in synth.Input) iter.Seq2[string, error]
}

// ActionSuggester picks a follow-up action.
type ActionSuggester interface {
	Suggest(ctx context.Context, in synth.Input) *action.Suggestion
}

// SinkFactory opens the delivery channel of one request.
type SinkFactory interface {
	NewSink(endpoint, key string) (event.Sink, error)
}

// Submitter runs background work.
type Submitter interface {
	Submit(task func()) error
}
