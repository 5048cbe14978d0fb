// Package queryguard bounds the cost of incoming read queries before
// they execute. It walks the parsed query's AST rather than scanning
// raw text, so braces inside string literals cannot skew the
// estimates. The estimates are deliberately cheap approximations; the
// contract is that they are deterministic for the same query text and
// monotonic (more fields never lowers the score).
package queryguard

import (
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const (
	DefaultMaxComplexity = 1000
	DefaultMaxDepth      = 10
	// DefaultFieldWeight is the fixed cost attributed to each field
	// selection.
	DefaultFieldWeight = 10
)

var (
	ErrMalformedQuery  = errors.New("query is not parseable")
	ErrQueryTooComplex = errors.New("query is too complex")
	ErrQueryTooDeep    = errors.New("query is too deeply nested")
)

// Stats reports what the guard observed for a query.
type Stats struct {
	Complexity int
	Depth      int
}

type Guard struct {
	maxComplexity int
	maxDepth      int
	fieldWeight   int
}

type Option func(*Guard)

func WithMaxComplexity(max int) Option {
	return func(g *Guard) {
		if max > 0 {
			g.maxComplexity = max
		}
	}
}

func WithMaxDepth(max int) Option {
	return func(g *Guard) {
		if max > 0 {
			g.maxDepth = max
		}
	}
}

func WithFieldWeight(weight int) Option {
	return func(g *Guard) {
		if weight > 0 {
			g.fieldWeight = weight
		}
	}
}

func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		maxComplexity: DefaultMaxComplexity,
		maxDepth:      DefaultMaxDepth,
		fieldWeight:   DefaultFieldWeight,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Validate parses the query and rejects it when its estimated
// complexity or nesting depth exceeds the configured ceilings. It runs
// synchronously before query execution and must be the only path to
// the listing store; a rejected query performs no store access at all.
func (g *Guard) Validate(query string) (Stats, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "listing query", Input: query})
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %s", ErrMalformedQuery, err.Error())
	}

	w := &walker{fragments: doc.Fragments, fieldWeight: g.fieldWeight}
	for _, op := range doc.Operations {
		w.walkSelectionSet(op.SelectionSet, 1)
	}

	stats := Stats{Complexity: w.complexity, Depth: w.maxDepth}
	if stats.Complexity > g.maxComplexity {
		return stats, fmt.Errorf("%w: estimated complexity %d exceeds the maximum of %d; select fewer fields or paginate with a smaller page size",
			ErrQueryTooComplex, stats.Complexity, g.maxComplexity)
	}
	if stats.Depth > g.maxDepth {
		return stats, fmt.Errorf("%w: nesting depth %d exceeds the maximum of %d; flatten the selection or query nested resources separately",
			ErrQueryTooDeep, stats.Depth, g.maxDepth)
	}
	return stats, nil
}

type walker struct {
	fragments   ast.FragmentDefinitionList
	fieldWeight int
	complexity  int
	maxDepth    int
	// visiting guards against fragment spread cycles, which the parser
	// alone does not reject.
	visiting map[string]bool
}

func (w *walker) walkSelectionSet(set ast.SelectionSet, depth int) {
	if len(set) == 0 {
		return
	}
	if depth > w.maxDepth {
		w.maxDepth = depth
	}
	for _, selection := range set {
		switch sel := selection.(type) {
		case *ast.Field:
			w.complexity += w.fieldWeight
			w.walkSelectionSet(sel.SelectionSet, depth+1)
		case *ast.InlineFragment:
			w.walkSelectionSet(sel.SelectionSet, depth)
		case *ast.FragmentSpread:
			w.walkFragment(sel.Name, depth)
		}
	}
}

func (w *walker) walkFragment(name string, depth int) {
	if w.visiting == nil {
		w.visiting = make(map[string]bool)
	}
	if w.visiting[name] {
		return
	}
	fragment := w.fragments.ForName(name)
	if fragment == nil {
		return
	}
	w.visiting[name] = true
	w.walkSelectionSet(fragment.SelectionSet, depth)
	w.visiting[name] = false
}
