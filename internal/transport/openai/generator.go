package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/metrics"
)

// Generator is a chat completion provider using the OpenAI-compatible API.
type Generator struct {
	client  *openai.Client
	user    string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGenerator creates a chat completion provider. cfg.Model is ignored; models come per request.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		client:  newClient(cfg),
		user:    cfg.User,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Complete implements domain.Generator.
func (g *Generator) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(req, false))
	metrics.GenerationRequestDuration.WithLabelValues(req.Model, "complete").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(req.Model, "complete", "error").Inc()
		return "", parseAPIError("completion", err)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(req.Model, "complete", "error").Inc()
		return "", fmt.Errorf("completion returned no choices: %w", domain.ErrProvider)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(req.Model, "complete", "success").Inc()
	return resp.Choices[0].Message.Content, nil
}

// Stream implements domain.StreamGenerator. The per-call timeout covers the whole stream.
func (g *Generator) Stream(ctx context.Context, req domain.CompletionRequest) (domain.FragmentReader, error) {
	cancel := context.CancelFunc(func() {})
	if g.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
	}

	start := time.Now()
	stream, err := g.client.CreateChatCompletionStream(ctx, g.buildRequest(req, true))
	metrics.GenerationRequestDuration.WithLabelValues(req.Model, "stream").Observe(time.Since(start).Seconds())
	if err != nil {
		cancel()
		metrics.GenerationRequestsTotal.WithLabelValues(req.Model, "stream", "error").Inc()
		return nil, parseAPIError("stream", err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(req.Model, "stream", "success").Inc()
	return &streamReader{stream: stream, cancel: cancel}, nil
}

func (g *Generator) buildRequest(req domain.CompletionRequest, stream bool) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	// temperature is omitempty upstream; a zero would fall back to the server default
	temp := req.Temperature
	if temp == 0 {
		temp = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: temp,
		Stream:      stream,
		User:        g.user,
	}
}

// streamReader adapts a chat completion stream to domain.FragmentReader.
type streamReader struct {
	stream *openai.ChatCompletionStream
	cancel context.CancelFunc
}

// Next returns the next content delta, possibly empty. io.EOF marks the end.
func (r *streamReader) Next() (string, error) {
	resp, err := r.stream.Recv()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", parseAPIError("stream", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

// Close releases the stream.
func (r *streamReader) Close() error {
	defer r.cancel()
	if err := r.stream.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}
