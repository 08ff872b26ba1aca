package ingest

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Selector evaluates a JSONPath expression over a loaded forest.
type Selector struct {
	expr jp.Expr
}

// NewSelector parses a JSONPath expression.
func NewSelector(expr string) (*Selector, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return &Selector{expr: x}, nil
}

// Query returns the values selected from forest. The forest is the root
// array, so "$[*].server" lists every server executable.
func (s *Selector) Query(forest []any) []any {
	root := make([]any, len(forest))
	for i, doc := range forest {
		root[i] = ToPlain(doc)
	}
	return s.expr.Get(root)
}

// Select is NewSelector followed by Query.
func Select(forest []any, expr string) ([]any, error) {
	s, err := NewSelector(expr)
	if err != nil {
		return nil, err
	}
	return s.Query(forest), nil
}
