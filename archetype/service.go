// Package archetype defines the domain object model and the persistence
// service the workflow tasks read and write through.
package archetype

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("object not found")
	// ErrStale is returned by Save when the object was changed by someone
	// else since it was read.
	ErrStale            = errors.New("object has been modified by another user")
	ErrUnknownArchetype = errors.New("unknown archetype")
)

// Service is the domain/archetype service.
type Service interface {
	// Create instantiates a new, unsaved object of the given short name.
	Create(ctx context.Context, shortName string) (*IMObject, error)
	Get(ctx context.Context, ref Reference) (*IMObject, error)
	Query(ctx context.Context, q *Query) ([]*IMObject, error)
	// Save persists objects atomically where the backend supports it and
	// bumps their versions.
	Save(ctx context.Context, objects ...*IMObject) error
	Remove(ctx context.Context, ref Reference) error
}

type Operator string

const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpLt Operator = "lt"
	OpGt Operator = "gt"
)

type Constraint struct {
	Node  string
	Op    Operator
	Value any
}

// Query selects objects by short name and node constraints.
type Query struct {
	ShortNames  []string
	Constraints []Constraint
	SortNode    string
	SortDesc    bool
	Limit       int
}

func NewQuery(shortNames ...string) *Query {
	return &Query{ShortNames: shortNames}
}

func (q *Query) Where(node string, op Operator, value any) *Query {
	normalized, err := Normalize(value)
	if err != nil {
		normalized = value
	}
	q.Constraints = append(q.Constraints, Constraint{Node: node, Op: op, Value: normalized})

	return q
}

func (q *Query) Eq(node string, value any) *Query {
	return q.Where(node, OpEq, value)
}

func (q *Query) Ne(node string, value any) *Query {
	return q.Where(node, OpNe, value)
}

func (q *Query) OrderBy(node string, desc bool) *Query {
	q.SortNode = node
	q.SortDesc = desc

	return q
}

func (q *Query) WithLimit(limit int) *Query {
	q.Limit = limit

	return q
}

// MatchesShortName reports whether shortName is selected by the query.
func (q *Query) MatchesShortName(shortName string) bool {
	if len(q.ShortNames) == 0 {
		return true
	}
	for _, pattern := range q.ShortNames {
		if MatchShortName(pattern, shortName) {
			return true
		}
	}

	return false
}

// Matches reports whether obj satisfies every query constraint.
func (q *Query) Matches(obj *IMObject) bool {
	if !q.MatchesShortName(obj.ShortName) {
		return false
	}

	for _, c := range q.Constraints {
		cmp, comparable := compareValues(obj.Get(c.Node), c.Value)
		switch c.Op {
		case OpEq:
			if !comparable || cmp != 0 {
				return false
			}
		case OpNe:
			if comparable && cmp == 0 {
				return false
			}
		case OpLt:
			if !comparable || cmp >= 0 {
				return false
			}
		case OpGt:
			if !comparable || cmp <= 0 {
				return false
			}
		default:
			return false
		}
	}

	return true
}

// Apply filters, sorts and limits objs according to q. Backends that cannot
// push constraints down to storage use it on the candidate set.
func (q *Query) Apply(objs []*IMObject) []*IMObject {
	result := make([]*IMObject, 0, len(objs))
	for _, obj := range objs {
		if q.Matches(obj) {
			result = append(result, obj)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if q.SortNode == "" {
			return result[i].ID < result[j].ID
		}
		cmp, _ := compareValues(result[i].Get(q.SortNode), result[j].Get(q.SortNode))
		if q.SortDesc {
			return cmp > 0
		}

		return cmp < 0
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}

	return result
}

// ShortNameLikePatterns converts the short name patterns into SQL LIKE
// patterns.
func (q *Query) ShortNameLikePatterns() []string {
	patterns := make([]string, 0, len(q.ShortNames))
	for _, name := range q.ShortNames {
		patterns = append(patterns, strings.ReplaceAll(name, "*", "%"))
	}

	return patterns
}

// compareValues orders two normalized node values. The second result is
// false when the values are of different kinds. nil equals only nil and
// sorts first.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, false
		default:
			return 1, false
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), true
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0, true
			case !av:
				return -1, true
			default:
				return 1, true
			}
		}
	case int64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, bv), true
		case float64:
			return compareOrdered(float64(av), bv), true
		}
	case float64:
		switch bv := b.(type) {
		case float64:
			return compareOrdered(av, bv), true
		case int64:
			return compareOrdered(av, float64(bv)), true
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), true
		}
	case Reference:
		if bv, ok := b.(Reference); ok {
			if c := strings.Compare(av.ShortName, bv.ShortName); c != 0 {
				return c, true
			}
			return strings.Compare(av.ID, bv.ID), true
		}
	}

	return 0, false
}

// Equal reports whether two normalized node values are equal. Integer and
// float numbers compare by value.
func Equal(a, b any) bool {
	cmp, ok := compareValues(a, b)

	return ok && cmp == 0
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
