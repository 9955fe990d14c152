package structured

import (
	"context"
	"sync"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/catalog"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/sqlguard"
)

// --- Mocks ---

type mockGenerator struct {
	out  string
	err  error
	reqs []domain.CompletionRequest
}

func (m *mockGenerator) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	m.reqs = append(m.reqs, req)
	return m.out, m.err
}

type mockSource struct {
	mu    sync.Mutex
	cols  map[string][]string
	err   error
	calls int
}

func (m *mockSource) Columns(_ context.Context) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.cols, nil
}

type mockExecutor struct {
	rs      domain.ResultSet
	err     error
	queries []sqlguard.Query
}

func (m *mockExecutor) Execute(_ context.Context, q sqlguard.Query) (domain.ResultSet, error) {
	m.queries = append(m.queries, q)
	return m.rs, m.err
}

func groupwareColumns() map[string][]string {
	return map[string][]string{
		"mail":         {"mail_id", "com_id", "emp_id", "title", "sent_at"},
		"employee":     {"emp_id", "com_id", "emp_name", "email", "salary"},
		"board":        {"board_id", "com_id", "title", "created_at"},
		"meeting_room": {"room_id", "room_name"},
		"secret_audit": {"id", "payload"},
	}
}

func newTestService(gen *mockGenerator, src *mockSource, exec *mockExecutor) *Service {
	return New(gen, src, exec, Config{Model: "sql-model", MaxLimit: 20, Catalog: catalog.DefaultOptions()})
}
