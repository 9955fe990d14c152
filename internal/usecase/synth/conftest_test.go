package synth

import (
	"context"
	"io"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
)

// --- Mocks ---

type scriptedReader struct {
	frags  []string
	err    error
	pos    int
	closed bool
}

func (r *scriptedReader) Next() (string, error) {
	if r.pos < len(r.frags) {
		f := r.frags[r.pos]
		r.pos++
		return f, nil
	}
	if r.err != nil {
		return "", r.err
	}
	return "", io.EOF
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

type mockGenerator struct {
	reader      *scriptedReader
	streamErr   error
	complete    string
	completeErr error

	streamReqs   []domain.CompletionRequest
	completeReqs []domain.CompletionRequest
}

func (m *mockGenerator) Stream(_ context.Context, req domain.CompletionRequest) (domain.FragmentReader, error) {
	m.streamReqs = append(m.streamReqs, req)
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return m.reader, nil
}

func (m *mockGenerator) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	m.completeReqs = append(m.completeReqs, req)
	return m.complete, m.completeErr
}
