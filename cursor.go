package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// CursorPosition is the decoded form of a keyset cursor: the ordered field
// values of the last document on a page.
type CursorPosition struct {
	Values map[string]any
}

// CursorFor captures the values of p for every field in orderBy, plus the id.
func CursorFor(p *Product, orderBy []OrderBy) *CursorPosition {
	if p == nil {
		return nil
	}
	values := make(map[string]any, len(orderBy)+1)
	for _, ob := range orderBy {
		if v, ok := FieldValue(p, ob.Field); ok {
			values[ob.Field] = v
		}
	}
	values[FieldID] = p.ID
	return &CursorPosition{Values: values}
}

// Ordered returns the cursor values in orderBy order, normalized to the
// field's native type.
func (c *CursorPosition) Ordered(orderBy []OrderBy) ([]any, error) {
	out := make([]any, 0, len(orderBy))
	for _, ob := range orderBy {
		raw, ok := c.Values[ob.Field]
		if !ok {
			return nil, &ValidationError{Field: "cursor", Reason: fmt.Sprintf("missing value for %s", ob.Field)}
		}
		v, err := NormalizeValue(ob.Field, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// IsAfter reports whether p sorts strictly after the cursor under orderBy.
func (c *CursorPosition) IsAfter(p *Product, orderBy []OrderBy) (bool, error) {
	values, err := c.Ordered(orderBy)
	if err != nil {
		return false, err
	}
	for i, ob := range orderBy {
		pv, _ := FieldValue(p, ob.Field)
		cmp := CompareValues(pv, values[i])
		if ob.Desc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp > 0, nil
		}
	}
	return false, nil
}

// NormalizeValue converts a cursor or constraint value into the Go type the
// field holds on Product. Values decoded from JSON arrive as strings and
// float64s.
func NormalizeValue(field string, v any) (any, error) {
	switch field {
	case FieldPrice:
		return toInt64(v)
	case FieldCreatedAt:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			t, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, &ValidationError{Field: field, Reason: err.Error()}
			}
			return t, nil
		}
	case FieldID, FieldName, FieldCategory, FieldTag:
		if s, ok := v.(string); ok {
			return s, nil
		}
	default:
		return v, nil
	}
	return nil, &ValidationError{Field: field, Reason: fmt.Sprintf("unexpected value type %T", v)}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, &ValidationError{Field: FieldPrice, Reason: "must be a whole number"}
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, &ValidationError{Field: FieldPrice, Reason: "must be a whole number"}
		}
		return n, nil
	}
	return 0, &ValidationError{Field: FieldPrice, Reason: fmt.Sprintf("unexpected value type %T", v)}
}
