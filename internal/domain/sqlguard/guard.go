// Package sqlguard rewrites and validates model-generated SQL before it reaches the database.
//
// The checks are lexical. They understand quotes and parenthesis depth but do
// not parse SQL, so statements outside the plain SELECT/JOIN/WHERE shape may be
// rejected or scoped conservatively.
package sqlguard

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/catalog"
)

// DefaultMaxLimit caps the rows returned by one structured query.
const DefaultMaxLimit = 50

var bannedKeywords = []string{
	"insert", "update", "delete", "drop", "alter", "truncate",
	"create", "grant", "revoke", "merge", "copy", "call",
}

var (
	trailingLimitRe = regexp.MustCompile(`(?i)\s+limit\s+\d+\s*$`)
	tableRefRe      = regexp.MustCompile("(?i)\\b(?:from|join)\\s+([`\"\\w.]+)")
	projectionRe    = regexp.MustCompile(`(?is)^\s*select\s+(.*?)\s+from\b`)
	aliasRe         = regexp.MustCompile(`(?i)\s+as\s+.*$`)
	distinctRe      = regexp.MustCompile(`(?i)^distinct\s+`)
	limitRe         = regexp.MustCompile(`(?i)\blimit\b(?:\s+(\w+))?`)
	setOpRe         = regexp.MustCompile(`(?i)\b(union|intersect|except)\b`)
	bannedRe        = regexp.MustCompile(`(?i)\b(` + strings.Join(bannedKeywords, "|") + `)\b`)
)

// Functions whose argument syntax uses FROM without naming a table.
var fromFunctions = map[string]struct{}{
	"extract": {}, "substring": {}, "trim": {}, "overlay": {},
}

// Scope carries the identity every structured query is bound to.
type Scope struct {
	TenantID string
	AskerID  string
}

// Query is a guarded statement with named parameters in pgx @name form.
type Query struct {
	SQL    string
	Params map[string]any
}

// Guard applies the rewrite and validation stages against a catalog.
type Guard struct {
	catalog  catalog.Catalog
	maxLimit int
}

// New creates a Guard. A non-positive maxLimit falls back to DefaultMaxLimit.
func New(c catalog.Catalog, maxLimit int) *Guard {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Guard{catalog: c, maxLimit: maxLimit}
}

// Clean strips a code fence and trailing statement terminators from raw model output.
func Clean(raw string) string {
	sql := domain.StripFence(raw, "")
	for {
		trimmed := strings.TrimRight(strings.TrimSpace(sql), ";")
		if trimmed == sql {
			return sql
		}
		sql = trimmed
	}
}

// Apply turns a cleaned candidate into a scoped, limited, read-only statement
// or returns a *Violation.
func (g *Guard) Apply(candidate string, scope Scope) (Query, error) {
	sql := strings.TrimSpace(candidate)
	if sql == "" {
		return Query{}, violation(KindEmpty, "")
	}

	sql = trailingLimitRe.ReplaceAllString(sql, "")

	if found := outsideQuotes(setOpRe, sql, depths(sql)); len(found) > 0 {
		return Query{}, violation(KindSetOperation, strings.ToLower(sql[found[0][2]:found[0][3]]))
	}

	tables := ReferencedTables(sql)
	for _, t := range tables {
		if !g.catalog.Allowed(t) {
			return Query{}, violation(KindUnknownTable, t)
		}
	}

	if err := g.checkProjection(sql, tables); err != nil {
		return Query{}, err
	}

	params := make(map[string]any)
	if scope.TenantID != "" {
		sql = g.bind(sql, tables, g.catalog.TenantColumn(), scope.TenantID, params)
	}
	if scope.AskerID != "" && g.anyPersonal(tables) {
		sql = g.bind(sql, tables, g.catalog.AskerColumn(), scope.AskerID, params)
	}

	sql, err := g.limit(sql)
	if err != nil {
		return Query{}, err
	}

	if err := checkSafety(sql); err != nil {
		return Query{}, err
	}

	return Query{SQL: sql, Params: params}, nil
}

// ReferencedTables returns lower-cased table names following FROM or JOIN,
// without schema qualifiers or quoting, in order of first appearance.
func ReferencedTables(sql string) []string {
	d := depths(sql)
	seen := make(map[string]struct{})
	var tables []string
	for _, loc := range outsideQuotes(tableRefRe, sql, d) {
		if _, ok := fromFunctions[enclosingCall(sql, d, loc[0])]; ok {
			continue
		}
		name := strings.Trim(sql[loc[2]:loc[3]], "`\"")
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = strings.Trim(name[i+1:], "`\"")
		}
		name = strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		tables = append(tables, name)
	}
	return tables
}

func (g *Guard) anyPersonal(tables []string) bool {
	for _, t := range tables {
		if g.catalog.IsPersonal(t) {
			return true
		}
	}
	return false
}

func (g *Guard) checkProjection(sql string, tables []string) error {
	sensitive := g.catalog.SensitiveTable()
	if sensitive == "" || !slices.Contains(tables, sensitive) {
		return nil
	}
	m := projectionRe.FindStringSubmatch(sql)
	if m == nil {
		return nil
	}
	for _, part := range strings.Split(m[1], ",") {
		col := strings.ToLower(strings.TrimSpace(part))
		col = distinctRe.ReplaceAllString(col, "")
		col = strings.TrimSpace(aliasRe.ReplaceAllString(col, ""))
		if col == "*" || strings.HasSuffix(col, ".*") {
			return violation(KindDisallowedColumn, "wildcard projection on "+sensitive)
		}
		if i := strings.LastIndexByte(col, '.'); i >= 0 {
			col = col[i+1:]
		}
		col = strings.Trim(col, "`\"")
		if !g.catalog.SensitiveColumnAllowed(col) {
			return violation(KindDisallowedColumn, col)
		}
	}
	return nil
}

func (g *Guard) bind(sql string, tables []string, column, value string, params map[string]any) string {
	if column == "" {
		return sql
	}
	if !g.catalog.AnyHasColumn(tables, column) {
		return StripFilter(sql, column)
	}
	params[column] = value
	return EnsureFilter(sql, column)
}

func (g *Guard) limit(sql string) (string, error) {
	d := depths(sql)
	found := matchesAt(limitRe, sql, d, 0)
	if nested := len(outsideQuotes(limitRe, sql, d)) - len(found); nested > 0 {
		return "", violation(KindMultipleLimit, fmt.Sprintf("%d LIMIT clauses in subqueries", nested))
	}
	switch len(found) {
	case 0:
		return sql + " LIMIT " + strconv.Itoa(g.maxLimit), nil
	case 1:
	default:
		return "", violation(KindMultipleLimit, fmt.Sprintf("%d LIMIT clauses", len(found)))
	}

	loc := found[0]
	if loc[2] < 0 {
		return "", violation(KindInvalidLimit, "missing count")
	}
	n, err := strconv.Atoi(sql[loc[2]:loc[3]])
	if err != nil {
		return "", violation(KindInvalidLimit, sql[loc[2]:loc[3]])
	}
	if n <= g.maxLimit {
		return sql, nil
	}
	return sql[:loc[2]] + strconv.Itoa(g.maxLimit) + sql[loc[3]:], nil
}

func checkSafety(sql string) error {
	if strings.Contains(sql, ";") {
		return violation(KindMultipleStatements, "")
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(sql)), "select") {
		return violation(KindNotSelect, "")
	}
	if found := outsideQuotes(bannedRe, sql, depths(sql)); len(found) > 0 {
		return violation(KindBannedKeyword, strings.ToLower(sql[found[0][2]:found[0][3]]))
	}
	return nil
}
