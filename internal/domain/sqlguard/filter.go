package sqlguard

import (
	"regexp"
	"strings"
)

// Right-hand sides recognized in "column = value" predicates.
const (
	strippableValue = `(?:'[^']*'|"[^"]*"|[:@]?\w+(?:\.\w+)?)`
	literalValue    = `(?:'[^']*'|"[^"]*"|[:@]\w+|-?\d+(?:\.\d+)?)`
)

var (
	spacesRe        = regexp.MustCompile(`\s+`)
	trailingWhereRe = regexp.MustCompile(`(?i)\s+where\s*$`)
	whereRe         = regexp.MustCompile(`(?i)\bwhere\b`)
	fromRe          = regexp.MustCompile(`(?i)\bfrom\b`)
	orRe            = regexp.MustCompile(`(?i)\bor\b`)
	notRe           = regexp.MustCompile(`(?i)\bnot\b`)
	tailClauseRe    = regexp.MustCompile(`(?i)\b(?:group\s+by|order\s+by|having|window|limit|offset|fetch|union|intersect|except)\b`)
)

// StripFilter removes "column = value" predicates for a column that none of
// the referenced tables carries, then tidies the WHERE clause.
func StripFilter(sql, column string) string {
	col := `(?:\w+\.)?` + regexp.QuoteMeta(column)
	rules := []struct {
		re   *regexp.Regexp
		repl string
	}{
		{regexp.MustCompile(`(?i)\bwhere\s+` + col + `\s*=\s*` + strippableValue + `\s+and\s+`), "WHERE "},
		{regexp.MustCompile(`(?i)\s+and\s+` + col + `\s*=\s*` + strippableValue), ""},
		{regexp.MustCompile(`(?i)\bwhere\s+` + col + `\s*=\s*` + strippableValue), ""},
	}
	for _, r := range rules {
		sql = r.re.ReplaceAllString(sql, r.repl)
	}
	sql = strings.TrimSpace(spacesRe.ReplaceAllString(sql, " "))
	return strings.TrimSpace(trailingWhereRe.ReplaceAllString(sql, ""))
}

// EnsureFilter binds every literal comparison on column to the @column
// parameter and adds a top-level "column = @column" conjunct unless one is
// already present in a WHERE clause without OR or NOT.
func EnsureFilter(sql, column string) string {
	placeholder := "@" + column
	literalRe := regexp.MustCompile(`(?i)((?:\w+\.)?)\b` + regexp.QuoteMeta(column) + `\s*=\s*` + literalValue)
	sql = literalRe.ReplaceAllString(sql, "${1}"+column+" = "+placeholder)

	boundRe := regexp.MustCompile(`(?i)((?:\w+\.)?)\b` + regexp.QuoteMeta(column) + `\s*=\s*` + regexp.QuoteMeta(placeholder) + `\b`)
	d := depths(sql)
	bound := matchesAt(boundRe, sql, d, 0)
	qualifier := ""
	if len(bound) > 0 {
		qualifier = sql[bound[0][2]:bound[0][3]]
		where := matchesAt(whereRe, sql, d, 0)
		if len(where) > 0 && where[0][0] < bound[0][0] &&
			len(outsideQuotes(orRe, sql, d)) == 0 && len(outsideQuotes(notRe, sql, d)) == 0 {
			return sql
		}
	}
	return injectPredicate(sql, qualifier+column+" = "+placeholder)
}

// injectPredicate ANDs predicate onto the top-level WHERE clause, wrapping the
// existing condition in parentheses, or adds a WHERE before any trailing clause.
func injectPredicate(sql, predicate string) string {
	d := depths(sql)

	start := 0
	if from := matchesAt(fromRe, sql, d, 0); len(from) > 0 {
		start = from[0][1]
	}
	where := matchesAt(whereRe, sql, d, 0)
	if len(where) > 0 {
		start = where[0][1]
	}

	insert := len(sql)
	for _, loc := range matchesAt(tailClauseRe, sql, d, 0) {
		if loc[0] >= start {
			insert = loc[0]
			break
		}
	}

	head := sql[:insert]
	tail := strings.TrimSpace(sql[insert:])

	var b strings.Builder
	if len(where) > 0 {
		cond := strings.TrimSpace(sql[where[0][1]:insert])
		b.WriteString(strings.TrimSpace(sql[:where[0][0]]))
		b.WriteString(" WHERE (")
		b.WriteString(cond)
		b.WriteString(") AND ")
		b.WriteString(predicate)
	} else {
		b.WriteString(strings.TrimSpace(head))
		b.WriteString(" WHERE ")
		b.WriteString(predicate)
	}
	if tail != "" {
		b.WriteByte(' ')
		b.WriteString(tail)
	}
	return b.String()
}
