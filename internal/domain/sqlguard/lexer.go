package sqlguard

import (
	"regexp"
	"strings"
)

// inQuote marks bytes inside a quoted literal or identifier in a depth map.
const inQuote = -1

// depths returns the parenthesis depth of every byte of sql, or inQuote for
// bytes inside '...' or "..." (doubled quotes stay inside the literal).
func depths(sql string) []int {
	out := make([]int, len(sql))
	depth := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			out[i] = inQuote
			if c == quote {
				if i+1 < len(sql) && sql[i+1] == quote {
					out[i+1] = inQuote
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			out[i] = inQuote
			continue
		case '(':
			out[i] = depth
			depth++
			continue
		case ')':
			if depth > 0 {
				depth--
			}
		}
		out[i] = depth
	}
	return out
}

// matchesAt returns regex matches whose first byte sits at the given depth.
func matchesAt(re *regexp.Regexp, sql string, d []int, depth int) [][]int {
	var out [][]int
	for _, loc := range re.FindAllStringSubmatchIndex(sql, -1) {
		if d[loc[0]] == depth {
			out = append(out, loc)
		}
	}
	return out
}

// outsideQuotes returns regex matches that do not start inside a literal.
func outsideQuotes(re *regexp.Regexp, sql string, d []int) [][]int {
	var out [][]int
	for _, loc := range re.FindAllStringSubmatchIndex(sql, -1) {
		if d[loc[0]] != inQuote {
			out = append(out, loc)
		}
	}
	return out
}

var callNameRe = regexp.MustCompile(`(\w+)\s*$`)

// enclosingCall returns the lower-cased identifier right before the innermost
// unmatched '(' preceding pos, or "" when pos is at depth zero.
func enclosingCall(sql string, d []int, pos int) string {
	if d[pos] <= 0 {
		return ""
	}
	want := d[pos] - 1
	for i := pos - 1; i >= 0; i-- {
		if sql[i] == '(' && d[i] == want {
			m := callNameRe.FindStringSubmatch(sql[:i])
			if m == nil {
				return ""
			}
			return strings.ToLower(m[1])
		}
	}
	return ""
}
