// Package planner decides which retrieval paths answer a question.
package planner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonschema"
	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/plan"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
)

//go:embed plan.schema.json
var planSchema []byte

// Config holds the planning model and top-k bounds.
type Config struct {
	Model       string
	DefaultTopK int
	MaxTopK     int
}

// Service classifies questions into retrieval plans.
type Service struct {
	gen    Generator
	schema *jsonschema.Schema
	cfg    Config
}

// New creates a planner.
func New(gen Generator, cfg Config) (*Service, error) {
	schema, err := jsonschema.NewCompiler().Compile(planSchema)
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = plan.DefaultTopK
	}
	if cfg.MaxTopK < cfg.DefaultTopK {
		cfg.MaxTopK = cfg.DefaultTopK
	}
	return &Service{gen: gen, schema: schema, cfg: cfg}, nil
}

// Plan returns the plan for q. Provider and parse failures yield plan.Default.
func (s *Service) Plan(ctx context.Context, q domain.Question) plan.Plan {
	p, err := s.classify(ctx, q)
	def := plan.Default(q.Text)
	p, err = domain.Fallback(p, err, def, domain.ErrProvider, domain.ErrMalformedOutput)
	if err != nil {
		logger.FromContext(ctx).Warn("Planner failed unexpectedly, using default plan", zap.Error(err))
		return def
	}
	return p
}

type wirePlan struct {
	Mode            string           `json:"mode"`
	SemanticTasks   []wireSemantic   `json:"semantic_tasks"`
	StructuredTasks []wireStructured `json:"structured_tasks"`
	AnswerStyle     *string          `json:"answer_style"`
}

type wireSemantic struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

type wireStructured struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

func (s *Service) classify(ctx context.Context, q domain.Question) (plan.Plan, error) {
	log := logger.FromContext(ctx)

	raw, err := s.gen.Complete(ctx, domain.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: systemPrompt},
			{Role: domain.RoleUser, Content: userPrompt(q)},
		},
	})
	if err != nil {
		log.Warn("Planner call failed, using default plan", zap.Error(err))
		return plan.Plan{}, fmt.Errorf("%w: plan: %w", domain.ErrProvider, err)
	}

	body := domain.StripFence(raw, "{}")
	res := s.schema.ValidateJSON([]byte(body))
	if !res.IsValid() {
		log.Warn("Planner output failed validation, using default plan",
			zap.String("raw", raw), zap.Any("errors", res.Errors))
		return plan.Plan{}, fmt.Errorf("%w: plan schema: %v", domain.ErrMalformedOutput, res.Errors)
	}

	var w wirePlan
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		log.Warn("Planner output is not JSON, using default plan", zap.String("raw", raw), zap.Error(err))
		return plan.Plan{}, fmt.Errorf("%w: plan json: %w", domain.ErrMalformedOutput, err)
	}

	p := s.toPlan(w)
	log.Debug("Plan ready",
		zap.String("mode", string(p.Mode)),
		zap.Int("semantic_tasks", len(p.SemanticTasks)),
		zap.Int("structured_tasks", len(p.StructuredTasks)),
	)
	return p, nil
}

func (s *Service) toPlan(w wirePlan) plan.Plan {
	mode := plan.ModeSemantic
	if m, ok := plan.ParseMode(w.Mode); ok {
		mode = m
	}

	p := plan.Plan{Mode: mode}
	for _, t := range w.SemanticTasks {
		query := strings.TrimSpace(t.Query)
		if query == "" {
			continue
		}
		p.SemanticTasks = append(p.SemanticTasks, plan.SemanticTask{Query: query, TopK: s.topK(t.TopK)})
	}
	for _, t := range w.StructuredTasks {
		p.StructuredTasks = append(p.StructuredTasks, plan.StructuredTask{Name: t.Name, Args: t.Args})
	}
	if w.AnswerStyle != nil {
		p.AnswerStyle = strings.TrimSpace(*w.AnswerStyle)
	}
	return p
}

func (s *Service) topK(k *int) int {
	if k == nil {
		return s.cfg.DefaultTopK
	}
	return min(max(*k, 1), s.cfg.MaxTopK)
}
