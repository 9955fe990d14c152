package synth

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/action"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
)

//go:embed action.schema.json
var actionSchema []byte

// Suggester picks at most one navigation action for an answered question.
type Suggester struct {
	gen    Generator
	model  string
	schema *jsonschema.Schema
}

// NewSuggester creates a Suggester.
func NewSuggester(gen Generator, model string) (*Suggester, error) {
	schema, err := jsonschema.NewCompiler().Compile(actionSchema)
	if err != nil {
		return nil, fmt.Errorf("compile action schema: %w", err)
	}
	return &Suggester{gen: gen, model: model, schema: schema}, nil
}

type wireSuggestion struct {
	ActionID string `json:"actionId"`
	Params   any    `json:"params"`
}

// Suggest returns the chosen action, or nil when the model declines, picks
// an unknown action or fails.
func (s *Suggester) Suggest(ctx context.Context, in Input) *action.Suggestion {
	log := logger.FromContext(ctx)

	raw, err := s.gen.Complete(ctx, domain.CompletionRequest{
		Model: s.model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: actionSystemPrompt()},
			{Role: domain.RoleUser, Content: actionUserPrompt(in)},
		},
	})
	if err != nil {
		log.Warn("Action suggestion failed", zap.Error(err))
		return nil
	}

	body := domain.StripFence(raw, "null")
	if res := s.schema.ValidateJSON([]byte(body)); !res.IsValid() {
		log.Warn("Action suggestion failed validation", zap.String("raw", raw), zap.Any("errors", res.Errors))
		return nil
	}

	var w *wireSuggestion
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		log.Warn("Action suggestion is not JSON", zap.String("raw", raw), zap.Error(err))
		return nil
	}
	if w == nil {
		return nil
	}

	params, _ := w.Params.(map[string]any)
	sug, ok := action.NewSuggestion(w.ActionID, params)
	if !ok {
		log.Warn("Action suggestion names an unknown action", zap.String("action_id", w.ActionID))
		return nil
	}
	log.Debug("Action suggested", zap.String("action_id", sug.ActionID))
	return sug
}
