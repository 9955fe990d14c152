// Package event defines what a run reports to its collaborator.
package event

import (
	"context"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/action"
)

// Kind distinguishes streamed answer pieces from the final event.
type Kind int

const (
	// KindFragment carries one piece of the answer.
	KindFragment Kind = iota
	// KindTerminal closes the run.
	KindTerminal
)

// Event is a single delivery for a request.
type Event struct {
	RequestID string
	Kind      Kind
	Seq       int
	Text      string
	Success   bool
	FullText  string
	Action    *action.Suggestion
	Error     string
}

// Fragment builds the seq-th answer fragment.
func Fragment(requestID string, seq int, text string) Event {
	return Event{RequestID: requestID, Kind: KindFragment, Seq: seq, Text: text}
}

// Success builds the terminal event of a completed run.
func Success(requestID, fullText string, suggestion *action.Suggestion) Event {
	return Event{
		RequestID: requestID,
		Kind:      KindTerminal,
		Success:   true,
		FullText:  fullText,
		Action:    suggestion,
	}
}

// Failure builds the terminal event of a failed run. code is one of the fixed failure codes.
func Failure(requestID, code string) Event {
	return Event{RequestID: requestID, Kind: KindTerminal, Error: code}
}

// Terminal reports whether the event closes the run.
func (e Event) Terminal() bool { return e.Kind == KindTerminal }

// Sink receives the events of one run in order.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}
