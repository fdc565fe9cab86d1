package catalog

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// FieldValue returns the value of a named field on p.
func FieldValue(p *Product, field string) (any, bool) {
	switch field {
	case FieldID:
		return p.ID, true
	case FieldName:
		return p.Name, true
	case FieldPrice:
		return p.Price, true
	case FieldCategory:
		return p.CategoryID, true
	case FieldCreatedAt:
		return p.CreatedAt, true
	case FieldTag:
		return p.Tags, true
	}
	return nil, false
}

// CompareValues orders two scalar field values of the same kind.
// Mismatched or unsupported kinds compare equal.
func CompareValues(a, b any) int {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return 0
}

// Compare orders two products by orderBy, falling back to ascending id so
// the result is total. Both the in-memory store and the batched membership
// path sort with it.
func Compare(a, b *Product, orderBy []OrderBy) int {
	hasID := false
	for _, ob := range orderBy {
		if ob.Field == FieldID {
			hasID = true
		}
		av, _ := FieldValue(a, ob.Field)
		bv, _ := FieldValue(b, ob.Field)
		c := CompareValues(av, bv)
		if ob.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	if hasID {
		return 0
	}
	return strings.Compare(a.ID, b.ID)
}

// SortProducts sorts products in place.
func SortProducts(products []*Product, orderBy []OrderBy) {
	slices.SortStableFunc(products, func(a, b *Product) int {
		return Compare(a, b, orderBy)
	})
}
