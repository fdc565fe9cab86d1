package catalog

import (
	"fmt"
	"strings"
)

// SortKey selects the listing order.
type SortKey string

const (
	SortNewest       SortKey = "newest"
	SortOldest       SortKey = "oldest"
	SortPriceLowest  SortKey = "price_lowest"
	SortPriceHighest SortKey = "price_highest"
	SortNameAZ       SortKey = "name_a_z"
	SortNameZA       SortKey = "name_z_a"
)

// DefaultSort is used when no sort key is given.
const DefaultSort = SortNewest

var sortOrders = map[SortKey]OrderBy{
	SortNewest:       {Field: FieldCreatedAt, Desc: true},
	SortOldest:       {Field: FieldCreatedAt},
	SortPriceLowest:  {Field: FieldPrice},
	SortPriceHighest: {Field: FieldPrice, Desc: true},
	SortNameAZ:       {Field: FieldName},
	SortNameZA:       {Field: FieldName, Desc: true},
}

// ParseSort validates a sort key. An empty string yields DefaultSort.
func ParseSort(s string) (SortKey, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultSort, nil
	}
	key := SortKey(s)
	if _, ok := sortOrders[key]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
	}
	return key, nil
}

// Valid reports whether k is one of the supported keys.
func (k SortKey) Valid() bool {
	_, ok := sortOrders[k]
	return ok
}

// OrderBy returns the primary ordering for k. Unknown keys fall back to DefaultSort.
func (k SortKey) OrderBy() OrderBy {
	if ob, ok := sortOrders[k]; ok {
		return ob
	}
	return sortOrders[DefaultSort]
}
