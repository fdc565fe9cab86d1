package catalog

import (
	"fmt"
	"strings"
)

// ViewMode is the grid/list presentation toggle. It never affects queries.
type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

// Filter is the listing filter state. Use the setters so inputs are
// normalized consistently; the zero value lists everything newest-first.
type Filter struct {
	CategoryID *string
	MinPrice   *int64
	MaxPrice   *int64
	PriceRange bool
	Sort       SortKey

	GenreID         string
	GenreProductIDs []string

	SearchTerm string
	View       ViewMode
}

// NewFilter returns the default filter state.
func NewFilter() Filter {
	return Filter{Sort: DefaultSort, View: ViewGrid}
}

// SetCategory selects a category. An empty id clears it.
func (f *Filter) SetCategory(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		f.CategoryID = nil
		return
	}
	f.CategoryID = &id
}

// SetPriceRange sets independent price bounds. The range is active when
// either bound is present.
func (f *Filter) SetPriceRange(min, max *int64) {
	f.MinPrice = copyInt64(min)
	f.MaxPrice = copyInt64(max)
	f.PriceRange = f.MinPrice != nil || f.MaxPrice != nil
}

// ClearPriceRange deactivates the price range.
func (f *Filter) ClearPriceRange() {
	f.MinPrice, f.MaxPrice, f.PriceRange = nil, nil, false
}

// SetSort parses and applies a sort key.
func (f *Filter) SetSort(s string) error {
	key, err := ParseSort(s)
	if err != nil {
		return err
	}
	f.Sort = key
	return nil
}

// SetSearch sets the free-text term, collapsing whitespace.
func (f *Filter) SetSearch(term string) {
	f.SearchTerm = strings.Join(strings.Fields(term), " ")
}

// SetGenre selects a curated genre and the ids it resolved to. Ids are
// trimmed and de-duplicated in order. An empty genre id clears it.
func (f *Filter) SetGenre(genreID string, productIDs []string) {
	genreID = strings.TrimSpace(genreID)
	if genreID == "" {
		f.ClearGenre()
		return
	}
	f.GenreID = genreID
	f.GenreProductIDs = dedupe(productIDs)
}

// ClearGenre removes the genre membership filter.
func (f *Filter) ClearGenre() {
	f.GenreID = ""
	f.GenreProductIDs = nil
}

// SetView switches the presentation mode.
func (f *Filter) SetView(v ViewMode) {
	if v != ViewList {
		v = ViewGrid
	}
	f.View = v
}

// HasGenre reports whether a genre membership filter is active.
func (f Filter) HasGenre() bool {
	return f.GenreID != ""
}

// OversizedMembership reports whether the genre id list is too large for a
// single "in" constraint and must be fetched in batches.
func (f Filter) OversizedMembership() bool {
	return f.HasGenre() && len(f.GenreProductIDs) > MaxMembership
}

// Validate rejects inconsistent filter input.
func (f Filter) Validate() error {
	if f.MinPrice != nil && *f.MinPrice < 0 {
		return &ValidationError{Field: "min_price", Reason: "must not be negative"}
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return &ValidationError{Field: "max_price", Reason: "must not be negative"}
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return &ValidationError{Field: "price", Reason: "min_price is greater than max_price"}
	}
	if f.Sort != "" && !f.Sort.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSort, f.Sort)
	}
	return nil
}

// Key returns a deterministic signature of every field that affects the
// query. View is excluded.
func (f Filter) Key() string {
	sortKey := f.Sort
	if sortKey == "" {
		sortKey = DefaultSort
	}
	var b strings.Builder
	fmt.Fprintf(&b, "cat=%s;", keyValue(f.CategoryID))
	if f.PriceRange {
		fmt.Fprintf(&b, "price=%s..%s;", keyValue(f.MinPrice), keyValue(f.MaxPrice))
	}
	fmt.Fprintf(&b, "sort=%s;", sortKey)
	if f.HasGenre() {
		fmt.Fprintf(&b, "genre=%s%s;", f.GenreID, keyValue(f.GenreProductIDs))
	}
	fmt.Fprintf(&b, "q=%s", strings.ToLower(f.SearchTerm))
	return b.String()
}

// MatchesAttributes reports whether p satisfies the category and price parts
// of the filter. Text and genre membership are checked elsewhere.
func (f Filter) MatchesAttributes(p *Product) bool {
	if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
		return false
	}
	if f.PriceRange {
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			return false
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			return false
		}
	}
	return true
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
