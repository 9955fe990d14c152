// Package plan holds the retrieval strategy chosen for a question.
package plan

import "strings"

// DefaultTopK is the number of snippets fetched per semantic task when unspecified.
const DefaultTopK = 5

// Mode selects which retrieval paths run.
type Mode string

const (
	// ModeStructured queries the relational database only.
	ModeStructured Mode = "structured"
	// ModeSemantic searches the document index only.
	ModeSemantic Mode = "semantic"
	// ModeHybrid runs both paths.
	ModeHybrid Mode = "hybrid"
)

// ParseMode accepts the canonical names and the rdb/rag synonyms.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "rdb":
		return ModeStructured, true
	case "semantic", "rag":
		return ModeSemantic, true
	case "hybrid":
		return ModeHybrid, true
	default:
		return "", false
	}
}

// UsesStructured reports whether the relational path runs.
func (m Mode) UsesStructured() bool { return m == ModeStructured || m == ModeHybrid }

// UsesSemantic reports whether the document search path runs.
func (m Mode) UsesSemantic() bool { return m == ModeSemantic || m == ModeHybrid }

// SemanticTask is one similarity search.
type SemanticTask struct {
	Query string
	TopK  int
}

// StructuredTask is a named lookup proposed by the planner. Tasks are
// validated and logged but the relational path always generates its own SQL.
type StructuredTask struct {
	Name string
	Args map[string]any
}

// Plan is the planner's decision for one question.
type Plan struct {
	Mode            Mode
	SemanticTasks   []SemanticTask
	StructuredTasks []StructuredTask
	AnswerStyle     string
}

// Default is the plan used when classification fails: one semantic search
// for the question itself.
func Default(question string) Plan {
	return Plan{
		Mode:          ModeSemantic,
		SemanticTasks: []SemanticTask{{Query: question, TopK: DefaultTopK}},
	}
}

// Searches returns the semantic tasks, or a single task for the question
// when the plan carries none.
func (p Plan) Searches(question string) []SemanticTask {
	if len(p.SemanticTasks) > 0 {
		return p.SemanticTasks
	}
	return []SemanticTask{{Query: question, TopK: DefaultTopK}}
}
