package domain

import (
	"context"
	"regexp"
	"strings"
)

// Message is a single prompt message sent to a chat model.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest is a chat completion call: model, messages and sampling temperature.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
}

// Generator produces a complete chat answer in one call.
type Generator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// FragmentReader yields streamed answer fragments. Next returns io.EOF after the last one.
type FragmentReader interface {
	Next() (string, error)
	Close() error
}

// StreamGenerator produces answers either incrementally or in one call.
type StreamGenerator interface {
	Generator
	Stream(ctx context.Context, req CompletionRequest) (FragmentReader, error)
}

var fenceRe = regexp.MustCompile("(?s)```(?:json|sql)?\\s*(.*?)\\s*```")

// StripFence returns the body of the first fenced code block in raw,
// or raw itself when there is none. Blank output yields def.
func StripFence(raw, def string) string {
	out := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(out); m != nil {
		out = strings.TrimSpace(m[1])
	}
	if out == "" {
		return def
	}
	return out
}
