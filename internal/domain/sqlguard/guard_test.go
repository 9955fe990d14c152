package sqlguard

import (
	"errors"
	"reflect"
	"testing"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/catalog"
)

func testGuard() *Guard {
	cols := map[string][]string{
		"mail":         {"mail_id", "com_id", "emp_id", "title", "sent_at"},
		"employee":     {"emp_id", "com_id", "emp_name", "email", "salary"},
		"board":        {"board_id", "com_id", "title", "created_at"},
		"meeting_room": {"room_id", "room_name"},
		"todo_list":    {"todo_id", "emp_id", "content"},
	}
	return New(catalog.New(cols, catalog.DefaultOptions()), 50)
}

var fullScope = Scope{TenantID: "T1", AskerID: "E1"}

func TestApply_Rewrites(t *testing.T) {
	tests := []struct {
		name       string
		candidate  string
		scope      Scope
		wantSQL    string
		wantParams map[string]any
	}{
		{
			name:       "tenant filter injected before ORDER BY",
			candidate:  "SELECT title FROM board WHERE title LIKE '%공지%' ORDER BY created_at DESC LIMIT 10",
			scope:      fullScope,
			wantSQL:    "SELECT title FROM board WHERE (title LIKE '%공지%') AND com_id = @com_id ORDER BY created_at DESC LIMIT 50",
			wantParams: map[string]any{"com_id": "T1"},
		},
		{
			name:       "personal table gets tenant and asker",
			candidate:  "SELECT title FROM mail",
			scope:      fullScope,
			wantSQL:    "SELECT title FROM mail WHERE (com_id = @com_id) AND emp_id = @emp_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1", "emp_id": "E1"},
		},
		{
			name:       "literal identity values are rebound",
			candidate:  "SELECT title FROM mail WHERE com_id = 'T2' AND emp_id = 'E9' LIMIT 5",
			scope:      fullScope,
			wantSQL:    "SELECT title FROM mail WHERE com_id = @com_id AND emp_id = @emp_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1", "emp_id": "E1"},
		},
		{
			name:       "OR cannot bypass the tenant filter",
			candidate:  "SELECT title FROM board WHERE com_id = 'T1' OR 1=1",
			scope:      fullScope,
			wantSQL:    "SELECT title FROM board WHERE (com_id = @com_id OR 1=1) AND com_id = @com_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1"},
		},
		{
			name:       "stray tenant filter stripped when no table carries it",
			candidate:  "SELECT room_name FROM meeting_room WHERE com_id = 'T1' AND room_name LIKE '%A%'",
			scope:      fullScope,
			wantSQL:    "SELECT room_name FROM meeting_room WHERE room_name LIKE '%A%' LIMIT 50",
			wantParams: map[string]any{},
		},
		{
			name:       "stray placeholder filter stripped",
			candidate:  "SELECT room_name FROM meeting_room WHERE com_id = :com_id",
			scope:      fullScope,
			wantSQL:    "SELECT room_name FROM meeting_room LIMIT 50",
			wantParams: map[string]any{},
		},
		{
			name:       "personal table without tenant column",
			candidate:  "SELECT content FROM todo_list",
			scope:      fullScope,
			wantSQL:    "SELECT content FROM todo_list WHERE emp_id = @emp_id LIMIT 50",
			wantParams: map[string]any{"emp_id": "E1"},
		},
		{
			name:       "no identity leaves statement unscoped",
			candidate:  "SELECT title FROM board",
			scope:      Scope{},
			wantSQL:    "SELECT title FROM board LIMIT 50",
			wantParams: map[string]any{},
		},
		{
			name:       "negated tenant filter still gets the bound filter",
			candidate:  "SELECT title FROM board WHERE NOT com_id = 'T2'",
			scope:      fullScope,
			wantSQL:    "SELECT title FROM board WHERE (NOT com_id = @com_id) AND com_id = @com_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1"},
		},
		{
			name:       "negated asker filter still gets the bound filter",
			candidate:  "SELECT title FROM mail WHERE com_id = 'T1' AND NOT emp_id = 'E9'",
			scope:      fullScope,
			wantSQL:    "SELECT title FROM mail WHERE ((com_id = @com_id AND NOT emp_id = @emp_id) AND com_id = @com_id) AND emp_id = @emp_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1", "emp_id": "E1"},
		},
		{
			name:       "set keyword inside a literal is not a set operation",
			candidate:  "SELECT title FROM board WHERE title LIKE '%union%'",
			scope:      Scope{TenantID: "T1"},
			wantSQL:    "SELECT title FROM board WHERE (title LIKE '%union%') AND com_id = @com_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1"},
		},
		{
			name:       "oversized LIMIT with OFFSET is clamped",
			candidate:  "SELECT title FROM board LIMIT 100 OFFSET 20",
			scope:      Scope{TenantID: "T1"},
			wantSQL:    "SELECT title FROM board WHERE com_id = @com_id LIMIT 50 OFFSET 20",
			wantParams: map[string]any{"com_id": "T1"},
		},
		{
			name:       "EXTRACT FROM is not a table reference",
			candidate:  "SELECT title FROM board WHERE EXTRACT(YEAR FROM created_at) = 2024",
			scope:      Scope{TenantID: "T1"},
			wantSQL:    "SELECT title FROM board WHERE (EXTRACT(YEAR FROM created_at) = 2024) AND com_id = @com_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1"},
		},
		{
			name:       "allowed sensitive projection",
			candidate:  "SELECT e.emp_name AS name, e.email FROM employee e",
			scope:      Scope{TenantID: "T1"},
			wantSQL:    "SELECT e.emp_name AS name, e.email FROM employee e WHERE com_id = @com_id LIMIT 50",
			wantParams: map[string]any{"com_id": "T1"},
		},
		{
			name:       "banned word inside a literal is allowed",
			candidate:  "SELECT title FROM board WHERE title LIKE '%delete%'",
			scope:      Scope{},
			wantSQL:    "SELECT title FROM board WHERE title LIKE '%delete%' LIMIT 50",
			wantParams: map[string]any{},
		},
	}

	g := testGuard()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := g.Apply(tc.candidate, tc.scope)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.SQL != tc.wantSQL {
				t.Errorf("sql mismatch:\ngot:  %q\nwant: %q", q.SQL, tc.wantSQL)
			}
			if !reflect.DeepEqual(q.Params, tc.wantParams) {
				t.Errorf("params = %v, want %v", q.Params, tc.wantParams)
			}
		})
	}
}

func TestApply_Violations(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      Kind
	}{
		{"empty", "   ", KindEmpty},
		{"unknown table", "SELECT * FROM salary_history", KindUnknownTable},
		{"unknown joined table", "SELECT m.title FROM mail m JOIN audit_log a ON a.id = m.mail_id", KindUnknownTable},
		{"sensitive wildcard", "SELECT * FROM employee", KindDisallowedColumn},
		{"sensitive qualified wildcard", "SELECT e.* FROM employee e", KindDisallowedColumn},
		{"sensitive column", "SELECT emp_name, salary FROM employee", KindDisallowedColumn},
		{"second statement", "SELECT title FROM board; DROP TABLE board", KindMultipleStatements},
		{"not a select", "DELETE FROM board", KindNotSelect},
		{"banned keyword", "SELECT title FROM board WHERE board_id IN (DELETE FROM board RETURNING board_id)", KindBannedKeyword},
		{"two top-level limits", "SELECT title FROM board LIMIT 5 OFFSET 10 LIMIT 3 OFFSET 1", KindMultipleLimit},
		{"non-numeric limit", "SELECT title FROM board LIMIT ALL", KindInvalidLimit},
		{"limit inside subquery", "SELECT title FROM board WHERE board_id IN (SELECT board_id FROM board LIMIT 5)", KindMultipleLimit},
		{"union branch escapes tenant scope", "SELECT title FROM board WHERE com_id = 'T1' UNION SELECT title FROM board", KindSetOperation},
		{"except", "SELECT title FROM mail EXCEPT SELECT title FROM mail WHERE emp_id = 'E1'", KindSetOperation},
		{"intersect in subquery", "SELECT title FROM board WHERE board_id IN (SELECT board_id FROM board INTERSECT SELECT board_id FROM board)", KindSetOperation},
	}

	g := testGuard()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Apply(tc.candidate, fullScope)
			if err == nil {
				t.Fatal("expected violation")
			}
			if !errors.Is(err, domain.ErrGuardViolation) {
				t.Errorf("expected ErrGuardViolation, got %v", err)
			}
			var v *Violation
			if !errors.As(err, &v) {
				t.Fatalf("expected *Violation, got %T", err)
			}
			if v.Kind != tc.want {
				t.Errorf("kind = %q, want %q (%v)", v.Kind, tc.want, err)
			}
		})
	}
}

func TestApply_AlwaysSingleBoundedLimit(t *testing.T) {
	g := testGuard()
	candidates := []string{
		"SELECT title FROM board",
		"SELECT title FROM board LIMIT 1000",
		"SELECT title FROM board ORDER BY created_at LIMIT 7",
		"SELECT title FROM board WHERE board_id IN (SELECT board_id FROM board ORDER BY created_at DESC)",
	}
	for _, c := range candidates {
		q, err := g.Apply(c, fullScope)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c, err)
		}
		found := outsideQuotes(limitRe, q.SQL, depths(q.SQL))
		if len(found) != 1 {
			t.Fatalf("%q: expected one LIMIT, got %d in %q", c, len(found), q.SQL)
		}
	}
}

func TestReferencedTables(t *testing.T) {
	got := ReferencedTables(`SELECT m.title FROM public.mail m JOIN "Employee" e ON e.emp_id = m.emp_id WHERE m.title <> 'from x'`)
	want := []string{"mail", "employee"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"```sql\nSELECT 1;\n```":      "SELECT 1",
		"SELECT 1 ; ;":                "SELECT 1",
		"  SELECT title FROM board  ": "SELECT title FROM board",
		"":                            "",
	}
	for in, want := range tests {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripFilter_TrailingAnd(t *testing.T) {
	got := StripFilter("SELECT room_name FROM meeting_room WHERE room_name = 'A' AND com_id = 'T1' ORDER BY room_name", "com_id")
	want := "SELECT room_name FROM meeting_room WHERE room_name = 'A' ORDER BY room_name"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
