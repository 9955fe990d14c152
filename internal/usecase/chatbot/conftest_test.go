package chatbot

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/action"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/chunk"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/event"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/plan"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/usecase/synth"
)

// --- Mocks ---

type mockPlanner struct {
	plan  plan.Plan
	panic any
}

func (m *mockPlanner) Plan(_ context.Context, _ domain.Question) plan.Plan {
	if m.panic != nil {
		panic(m.panic)
	}
	return m.plan
}

type mockStructured struct {
	rs    domain.ResultSet
	err   error
	panic any
	calls int
}

func (m *mockStructured) Query(_ context.Context, _ domain.Question) (domain.ResultSet, error) {
	m.calls++
	if m.panic != nil {
		panic(m.panic)
	}
	return m.rs, m.err
}

type mockSemantic struct {
	snippets []string
	panic    any
	calls    int
	tasks    []plan.SemanticTask
	filter   chunk.Filter
}

func (m *mockSemantic) SearchAll(_ context.Context, tasks []plan.SemanticTask, f chunk.Filter) []string {
	m.calls++
	m.tasks = tasks
	m.filter = f
	if m.panic != nil {
		panic(m.panic)
	}
	return m.snippets
}

type mockSynth struct {
	frags  []string
	err    error
	calls  int
	inputs []synth.Input
}

func (m *mockSynth) Stream(_ context.Context, in synth.Input) iter.Seq2[string, error] {
	m.calls++
	m.inputs = append(m.inputs, in)
	return func(yield func(string, error) bool) {
		for _, f := range m.frags {
			if !yield(f, nil) {
				return
			}
		}
		if m.err != nil {
			yield("", m.err)
		}
	}
}

type mockSuggester struct {
	sug   *action.Suggestion
	calls int
}

func (m *mockSuggester) Suggest(_ context.Context, _ synth.Input) *action.Suggestion {
	m.calls++
	return m.sug
}

// recordingSink keeps every delivered event. fail decides per event whether
// delivery fails.
type recordingSink struct {
	mu     sync.Mutex
	events []event.Event
	fail   func(e event.Event) error
	done   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{done: make(chan struct{})}
}

func (s *recordingSink) Deliver(_ context.Context, e event.Event) error {
	if s.fail != nil {
		if err := s.fail(e); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if e.Terminal() {
		close(s.done)
	}
	return nil
}

func (s *recordingSink) snapshot() []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]event.Event, len(s.events))
	copy(out, s.events)
	return out
}

type staticSinks struct {
	sink event.Sink
	err  error
}

func (f *staticSinks) NewSink(_, _ string) (event.Sink, error) {
	return f.sink, f.err
}

type stubPool struct{ err error }

func (p *stubPool) Submit(func()) error { return p.err }

type fixedGenerator struct {
	out string
}

func (g *fixedGenerator) Complete(_ context.Context, _ domain.CompletionRequest) (string, error) {
	return g.out, nil
}

var errDown = errors.New("callback endpoint down")

type fixture struct {
	planner    *mockPlanner
	structured *mockStructured
	semantic   *mockSemantic
	synth      *mockSynth
	suggester  *mockSuggester
	sink       *recordingSink
}

func newFixture() *fixture {
	return &fixture{
		planner:    &mockPlanner{plan: plan.Plan{Mode: plan.ModeHybrid}},
		structured: &mockStructured{},
		semantic:   &mockSemantic{},
		synth:      &mockSynth{},
		suggester:  &mockSuggester{},
		sink:       newRecordingSink(),
	}
}

func (f *fixture) service() *Service {
	return New(Deps{
		Planner:    f.planner,
		Structured: f.structured,
		Semantic:   f.semantic,
		Synth:      f.synth,
		Suggester:  f.suggester,
		Sinks:      &staticSinks{sink: f.sink},
		Pool:       &stubPool{},
	})
}
