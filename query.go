package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Product fields that can be filtered or ordered on.
const (
	FieldID        = "id"
	FieldName      = "name"
	FieldPrice     = "price"
	FieldCategory  = "category"
	FieldCreatedAt = "created_at"
	FieldTag       = "tag"
)

// MaxMembership is the largest id list a single "in" constraint may carry.
const MaxMembership = 10

// Operator is a comparison supported by the backing store.
type Operator string

const (
	OpEqual         Operator = "=="
	OpLess          Operator = "<"
	OpLessEqual     Operator = "<="
	OpGreater       Operator = ">"
	OpGreaterEqual  Operator = ">="
	OpArrayContains Operator = "array-contains"
	OpIn            Operator = "in"
)

// IsRange reports whether o is an inequality.
func (o Operator) IsRange() bool {
	switch o {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		return true
	}
	return false
}

// Constraint is a single field predicate.
type Constraint struct {
	Field string
	Op    Operator
	Value any
}

// OrderBy specifies a sort field and direction.
type OrderBy struct {
	Field string
	Desc  bool
}

// Query is a store-agnostic description of a product listing query.
// Build it with the chaining methods; each returns a modified copy.
type Query struct {
	Constraints []Constraint
	OrderBy     []OrderBy
	Limit       int
	StartAfter  *CursorPosition
}

// Where appends a constraint.
func (q Query) Where(field string, op Operator, value any) Query {
	q.Constraints = append(append([]Constraint(nil), q.Constraints...), Constraint{Field: field, Op: op, Value: value})
	return q
}

// With appends already-built constraints.
func (q Query) With(cs ...Constraint) Query {
	if len(cs) == 0 {
		return q
	}
	q.Constraints = append(append([]Constraint(nil), q.Constraints...), cs...)
	return q
}

// Order appends an ordering.
func (q Query) Order(field string, desc bool) Query {
	q.OrderBy = append(append([]OrderBy(nil), q.OrderBy...), OrderBy{Field: field, Desc: desc})
	return q
}

// WithLimit sets the maximum number of results. Zero means unlimited.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// After resumes the query strictly after pos.
func (q Query) After(pos *CursorPosition) Query {
	q.StartAfter = pos
	return q
}

// Unpaged drops ordering, limit and cursor, leaving only the constraints.
func (q Query) Unpaged() Query {
	return Query{Constraints: q.Constraints}
}

// RangeField returns the field carrying range operators, if any.
func (q Query) RangeField() string {
	for _, c := range q.Constraints {
		if c.Op.IsRange() {
			return c.Field
		}
	}
	return ""
}

// Validate checks q against the limits of the backing document store:
// range operators on one field only, that field ordered first, at most
// MaxMembership ids per "in" and one array filter of each kind.
func (q Query) Validate() error {
	var rangeField string
	var ins, contains int
	for _, c := range q.Constraints {
		if c.Field == "" {
			return &ValidationError{Field: "constraint", Reason: "empty field"}
		}
		switch {
		case c.Op.IsRange():
			if rangeField != "" && rangeField != c.Field {
				return fmt.Errorf("%w: %s and %s", ErrMultipleRangeFields, rangeField, c.Field)
			}
			rangeField = c.Field
		case c.Op == OpIn:
			ins++
			if ins > 1 {
				return fmt.Errorf("%w: %s", ErrDuplicateArrayFilter, c.Op)
			}
			ids, ok := c.Value.([]string)
			if !ok {
				return &ValidationError{Field: c.Field, Reason: "membership value must be a list of ids"}
			}
			if len(ids) == 0 {
				return ErrEmptyMembership
			}
			if len(ids) > MaxMembership {
				return fmt.Errorf("%w: %d ids", ErrMembershipTooLarge, len(ids))
			}
		case c.Op == OpArrayContains:
			contains++
			if contains > 1 {
				return fmt.Errorf("%w: %s", ErrDuplicateArrayFilter, c.Op)
			}
		case c.Op == OpEqual:
		default:
			return &ValidationError{Field: c.Field, Reason: fmt.Sprintf("unsupported operator %q", c.Op)}
		}
	}

	if rangeField != "" && len(q.OrderBy) > 0 && q.OrderBy[0].Field != rangeField {
		return fmt.Errorf("%w: range on %s, ordered by %s", ErrRangeOrderMismatch, rangeField, q.OrderBy[0].Field)
	}
	if q.Limit < 0 {
		return &ValidationError{Field: "limit", Reason: "must not be negative"}
	}
	if q.StartAfter != nil && len(q.OrderBy) == 0 {
		return ErrCursorWithoutOrder
	}
	return nil
}

// Key returns a deterministic signature of the whole query, suitable as a
// cache key.
func (q Query) Key() string {
	var b strings.Builder
	for _, c := range q.Constraints {
		fmt.Fprintf(&b, "%s%s%s;", c.Field, c.Op, keyValue(c.Value))
	}
	b.WriteString("|")
	for _, ob := range q.OrderBy {
		b.WriteString(ob.Field)
		if ob.Desc {
			b.WriteString("-")
		}
		b.WriteString(",")
	}
	fmt.Fprintf(&b, "|%d|", q.Limit)
	if q.StartAfter != nil {
		fields := make([]string, 0, len(q.StartAfter.Values))
		for f := range q.StartAfter.Values {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(&b, "%s=%s;", f, keyValue(q.StartAfter.Values[f]))
		}
	}
	return b.String()
}

func keyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case []string:
		ids := append([]string(nil), x...)
		sort.Strings(ids)
		return "[" + strings.Join(ids, ",") + "]"
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case *string:
		if x == nil {
			return "<nil>"
		}
		return *x
	case *int64:
		if x == nil {
			return "<nil>"
		}
		return fmt.Sprint(*x)
	default:
		return fmt.Sprint(x)
	}
}
