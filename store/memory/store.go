// Package memory is an in-process catalog store with the same query
// semantics and limits as the hosted document store. It backs tests, local
// development and the CLI when no database is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
)

// Store holds products, genres and the commerce documents in memory.
type Store struct {
	mu       sync.RWMutex
	products map[string]*catalog.Product
	genres   map[string][]string
	carts    map[string]*cart.Cart
	orders   map[string]*cart.Order
	sale     cart.Sale
	rates    cart.DeliveryRates
}

// New returns a store seeded with products.
func New(products ...*catalog.Product) *Store {
	s := &Store{
		products: make(map[string]*catalog.Product, len(products)),
		genres:   make(map[string][]string),
		carts:    make(map[string]*cart.Cart),
		orders:   make(map[string]*cart.Order),
	}
	for _, p := range products {
		s.products[p.ID] = p.Clone()
	}
	return s
}

// Put inserts or replaces a product.
func (s *Store) Put(p *catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p.Clone()
}

// Delete removes a product.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// Fetch implements catalog.Store.
func (s *Store) Fetch(ctx context.Context, q catalog.Query) ([]*catalog.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched, err := s.match(q)
	if err != nil {
		return nil, err
	}
	catalog.SortProducts(matched, q.OrderBy)

	if q.StartAfter != nil {
		start := len(matched)
		for i, p := range matched {
			after, err := q.StartAfter.IsAfter(p, q.OrderBy)
			if err != nil {
				return nil, err
			}
			if after {
				start = i
				break
			}
		}
		matched = matched[start:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]*catalog.Product, len(matched))
	for i, p := range matched {
		out[i] = p.Clone()
	}
	return out, nil
}

// Count implements catalog.Store.
func (s *Store) Count(ctx context.Context, q catalog.Query) (int64, error) {
	q = q.Unpaged()
	if err := q.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	matched, err := s.match(q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

func (s *Store) match(q catalog.Query) ([]*catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		ok, err := matches(p, q.Constraints)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func matches(p *catalog.Product, constraints []catalog.Constraint) (bool, error) {
	for _, c := range constraints {
		ok, err := matchOne(p, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOne(p *catalog.Product, c catalog.Constraint) (bool, error) {
	pv, ok := catalog.FieldValue(p, c.Field)
	if !ok {
		return false, &catalog.ValidationError{Field: c.Field, Reason: "unknown field"}
	}

	switch c.Op {
	case catalog.OpIn:
		ids, _ := c.Value.([]string)
		s, _ := pv.(string)
		return slices.Contains(ids, s), nil
	case catalog.OpArrayContains:
		arr, ok := pv.([]string)
		if !ok {
			return false, &catalog.ValidationError{Field: c.Field, Reason: "not an array field"}
		}
		want, _ := c.Value.(string)
		return slices.Contains(arr, want), nil
	}

	want, err := catalog.NormalizeValue(c.Field, c.Value)
	if err != nil {
		return false, err
	}
	cmp := catalog.CompareValues(pv, want)
	switch c.Op {
	case catalog.OpEqual:
		return cmp == 0, nil
	case catalog.OpLess:
		return cmp < 0, nil
	case catalog.OpLessEqual:
		return cmp <= 0, nil
	case catalog.OpGreater:
		return cmp > 0, nil
	case catalog.OpGreaterEqual:
		return cmp >= 0, nil
	}
	return false, &catalog.ValidationError{Field: c.Field, Reason: fmt.Sprintf("unsupported operator %q", c.Op)}
}
