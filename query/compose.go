// Package query turns listing filter state into a catalog.Query the backing
// store can execute.
package query

import (
	"fmt"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/search"
)

// Compose builds the listing query for f. Constraints are added in a fixed
// order: equality, range, text tag, membership; then ordering, limit and the
// resume cursor.
//
// Compose returns catalog.ErrMembershipTooLarge when the genre id list cannot
// be expressed as a single "in" constraint; callers take the batched
// membership path instead. A genre with no ids yields catalog.ErrEmptyMembership.
func Compose(f catalog.Filter, after *catalog.CursorPosition, limit int) (catalog.Query, error) {
	if err := f.Validate(); err != nil {
		return catalog.Query{}, err
	}

	q := Attributes(f)

	if tag := search.PrefixTag(f.SearchTerm); tag != "" {
		q = q.Where(catalog.FieldTag, catalog.OpArrayContains, tag)
	}

	if f.HasGenre() {
		switch n := len(f.GenreProductIDs); {
		case n == 0:
			return catalog.Query{}, catalog.ErrEmptyMembership
		case n > catalog.MaxMembership:
			return catalog.Query{}, fmt.Errorf("%w: genre %s has %d products", catalog.ErrMembershipTooLarge, f.GenreID, n)
		}
		ids := append([]string(nil), f.GenreProductIDs...)
		q = q.Where(catalog.FieldID, catalog.OpIn, ids)
	}

	for _, ob := range Ordering(f) {
		q = q.Order(ob.Field, ob.Desc)
	}
	q = q.WithLimit(limit).After(after)

	if err := q.Validate(); err != nil {
		return catalog.Query{}, err
	}
	return q, nil
}

// Attributes returns the category and price constraints of f, unordered.
func Attributes(f catalog.Filter) catalog.Query {
	var q catalog.Query
	if f.CategoryID != nil {
		q = q.Where(catalog.FieldCategory, catalog.OpEqual, *f.CategoryID)
	}
	return q.With(priceConstraints(f)...)
}

// Category returns a query counting the category of f alone.
func Category(f catalog.Filter) catalog.Query {
	var q catalog.Query
	if f.CategoryID != nil {
		q = q.Where(catalog.FieldCategory, catalog.OpEqual, *f.CategoryID)
	}
	return q
}

// PriceRange returns a query counting the price range of f alone.
func PriceRange(f catalog.Filter) catalog.Query {
	var q catalog.Query
	return q.With(priceConstraints(f)...)
}

// Ordering returns the sort order for f. With an active price range and a
// non-price sort, price ascending leads so the first ordering matches the
// range field. The id is always the final tiebreak, in the direction of
// the requested sort.
func Ordering(f catalog.Filter) []catalog.OrderBy {
	primary := f.Sort.OrderBy()
	out := make([]catalog.OrderBy, 0, 3)
	if f.PriceRange && primary.Field != catalog.FieldPrice {
		out = append(out, catalog.OrderBy{Field: catalog.FieldPrice})
	}
	out = append(out, primary)
	return append(out, catalog.OrderBy{Field: catalog.FieldID, Desc: primary.Desc})
}

func priceConstraints(f catalog.Filter) []catalog.Constraint {
	if !f.PriceRange {
		return nil
	}
	var cs []catalog.Constraint
	if f.MinPrice != nil {
		cs = append(cs, catalog.Constraint{Field: catalog.FieldPrice, Op: catalog.OpGreaterEqual, Value: *f.MinPrice})
	}
	if f.MaxPrice != nil {
		cs = append(cs, catalog.Constraint{Field: catalog.FieldPrice, Op: catalog.OpLessEqual, Value: *f.MaxPrice})
	}
	return cs
}
