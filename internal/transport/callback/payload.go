package callback

import "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/event"

// payload is the wire form of an event.
type payload struct {
	RequestID    string         `json:"requestId"`
	Chunk        *string        `json:"chunk,omitempty"`
	Seq          *int           `json:"seq,omitempty"`
	Done         bool           `json:"done"`
	Success      bool           `json:"success"`
	FullText     *string        `json:"fullText,omitempty"`
	ActionID     string         `json:"actionId,omitempty"`
	Params       map[string]any `json:"params,omitzero"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
}

func toPayload(e event.Event) payload {
	p := payload{RequestID: e.RequestID}

	if !e.Terminal() {
		text, seq := e.Text, e.Seq
		p.Chunk = &text
		p.Seq = &seq
		p.Success = true
		return p
	}

	p.Done = true
	p.Success = e.Success
	if !e.Success {
		p.ErrorMessage = e.Error
		return p
	}

	full := e.FullText
	p.FullText = &full
	if e.Action != nil {
		p.ActionID = e.Action.ActionID
		p.Params = e.Action.Params
		if p.Params == nil {
			p.Params = map[string]any{}
		}
	}
	return p
}
