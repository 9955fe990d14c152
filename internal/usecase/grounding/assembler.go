// Package grounding turns retrieved rows and passages into prompt context.
package grounding

import (
	"fmt"
	"strings"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
)

// InsufficientMessage is the whole answer when nothing was retrieved.
const InsufficientMessage = "근거와 데이터가 부족해 답변할 수 없습니다.\n"

// DefaultMaxRows is the number of result rows shown to the model.
const DefaultMaxRows = 10

// Context is the grounding handed to the synthesizer.
type Context struct {
	Structured string
	Semantic   string
}

// Empty reports whether neither path produced anything.
func (c Context) Empty() bool { return c.Structured == "" && c.Semantic == "" }

// Assembler renders retrieval results.
type Assembler struct {
	maxRows int
}

// New creates an Assembler. A non-positive maxRows falls back to DefaultMaxRows.
func New(maxRows int) *Assembler {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Assembler{maxRows: maxRows}
}

// Assemble renders rows as a table preview and joins snippets line by line.
func (a *Assembler) Assemble(rs domain.ResultSet, snippets []string) Context {
	return Context{
		Structured: FormatRows(rs, a.maxRows),
		Semantic:   strings.Join(snippets, "\n"),
	}
}

// FormatRows renders a header line and one " | "-joined line per row, capped
// at maxRows with a "...(N more)" trailer. An empty result renders as "".
func FormatRows(rs domain.ResultSet, maxRows int) string {
	if rs.Empty() {
		return ""
	}
	shown := rs.Rows
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}

	lines := make([]string, 0, len(shown)+2)
	lines = append(lines, strings.Join(rs.Columns, " | "))
	for _, row := range shown {
		cells := make([]string, len(rs.Columns))
		for i := range rs.Columns {
			if i < len(row) {
				cells[i] = cell(row[i])
			}
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	if n := len(rs.Rows) - len(shown); n > 0 {
		lines = append(lines, fmt.Sprintf("...(%d more)", n))
	}
	return strings.Join(lines, "\n")
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
