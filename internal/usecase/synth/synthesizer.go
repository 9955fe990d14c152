// Package synth writes the grounded answer and picks a follow-up action.
package synth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
)

// DefaultTemperature is the sampling temperature of the answer model.
const DefaultTemperature = 0.2

// Config holds the answer model settings.
type Config struct {
	Model       string
	Temperature float32
}

// Synthesizer streams the answer to a grounded question.
type Synthesizer struct {
	gen StreamGenerator
	cfg Config
}

// New creates a Synthesizer.
func New(gen StreamGenerator, cfg Config) *Synthesizer {
	return &Synthesizer{gen: gen, cfg: cfg}
}

// Stream yields answer fragments as the model produces them. When streaming
// cannot be opened or breaks off, the answer is generated in one call and
// yielded paragraph by paragraph. If that also fails the sequence ends with
// an error wrapping domain.ErrSynthesis. The sequence is single-use.
func (s *Synthesizer) Stream(ctx context.Context, in Input) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		log := logger.FromContext(ctx)
		req := s.request(in)

		r, err := s.gen.Stream(ctx, req)
		if err == nil {
			stopped, err := relay(r, yield)
			if stopped || err == nil {
				return
			}
			log.Warn("Answer stream broke off, falling back to single completion", zap.Error(err))
		} else {
			log.Warn("Answer stream unavailable, falling back to single completion", zap.Error(err))
		}

		text, err := s.gen.Complete(ctx, req)
		if err != nil {
			yield("", fmt.Errorf("%w: %w", domain.ErrSynthesis, err))
			return
		}
		for _, p := range Paragraphs(text) {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (s *Synthesizer) request(in Input) domain.CompletionRequest {
	return domain.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: answerSystemPrompt},
			{Role: domain.RoleUser, Content: answerPrompt(in)},
		},
		Temperature: s.cfg.Temperature,
	}
}

// relay forwards non-empty fragments until EOF. stopped is true when the
// consumer stopped iterating.
func relay(r domain.FragmentReader, yield func(string, error) bool) (stopped bool, err error) {
	defer func() { _ = r.Close() }()
	for {
		frag, err := r.Next()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if frag == "" {
			continue
		}
		if !yield(frag, nil) {
			return true, nil
		}
	}
}

// Paragraphs splits text on blank lines into trimmed, non-empty parts, each
// terminated by a newline.
func Paragraphs(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part+"\n")
	}
	return out
}
