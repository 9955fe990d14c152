// Package filter expresses tag pre-filters for vector search.
package filter

import "fmt"

// MaxConditions bounds the size of one expression.
const MaxConditions = 16

// Condition is an exact match on a TAG field.
type Condition struct {
	key   string
	value string
}

// NewMatch creates a tag match condition.
func NewMatch(key, value string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if value == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, value: value}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Value returns the tag value to match.
func (c Condition) Value() string { return c.value }

// Expression is a conjunction of required and excluded tag matches.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must)+len(mustNot) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d)", MaxConditions)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// Must returns conditions every hit satisfies.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns conditions no hit satisfies.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 && len(e.mustNot) == 0 }
