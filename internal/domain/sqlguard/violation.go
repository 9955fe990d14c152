package sqlguard

import (
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
)

// Kind classifies why a statement was rejected.
type Kind string

const (
	// KindEmpty is a blank candidate.
	KindEmpty Kind = "empty_statement"
	// KindUnknownTable is a reference to a table outside the catalog.
	KindUnknownTable Kind = "unknown_table"
	// KindDisallowedColumn is a projection outside the sensitive table's allowed set.
	KindDisallowedColumn Kind = "disallowed_column"
	// KindMultipleStatements is a statement separator inside the candidate.
	KindMultipleStatements Kind = "multiple_statements"
	// KindNotSelect is a statement that does not start with SELECT.
	KindNotSelect Kind = "not_select"
	// KindBannedKeyword is a data-modifying or DDL keyword.
	KindBannedKeyword Kind = "banned_keyword"
	// KindMultipleLimit is more than one top-level LIMIT or a LIMIT inside a subquery.
	KindMultipleLimit Kind = "multiple_limit"
	// KindSetOperation is a UNION, INTERSECT or EXCEPT, whose branches cannot all be scoped.
	KindSetOperation Kind = "set_operation"
	// KindInvalidLimit is a top-level LIMIT without a numeric count.
	KindInvalidLimit Kind = "invalid_limit"
)

// Violation is a rejected statement. It unwraps to domain.ErrGuardViolation.
type Violation struct {
	Kind   Kind
	Detail string
}

func (v *Violation) Error() string {
	if v.Detail == "" {
		return "sql guard: " + string(v.Kind)
	}
	return "sql guard: " + string(v.Kind) + ": " + v.Detail
}

func (v *Violation) Unwrap() error { return domain.ErrGuardViolation }

func violation(kind Kind, detail string) error {
	return &Violation{Kind: kind, Detail: detail}
}
