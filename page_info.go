package catalog

import "sync"

// PageInfo contains metadata about a paginated result set.
// It uses function fields to enable lazy evaluation of pagination metadata,
// which matters here because the total count may need several aggregation
// queries (see package estimate).
//
// All functions return both a value and an error to support computation
// that may fail.
type PageInfo struct {
	TotalCount      func() (*int, error)
	HasPreviousPage func() (bool, error)
	HasNextPage     func() (bool, error)
	StartCursor     func() (*string, error)
	EndCursor       func() (*string, error)
}

// NewPageInfo builds PageInfo for a numbered keyset page. Cursors are encoded
// from the first and last node with encoder; a nil encoder yields nil cursors.
// TotalCount is unknown until WithTotalCount is called.
func NewPageInfo[T any](encoder CursorEncoder[T], nodes []T, number int, hasNext bool) *PageInfo {
	pi := NewEmptyPageInfo()
	pi.HasNextPage = func() (bool, error) { return hasNext, nil }
	pi.HasPreviousPage = func() (bool, error) { return number > 1, nil }
	if encoder == nil || len(nodes) == 0 {
		return pi
	}
	first, last := nodes[0], nodes[len(nodes)-1]
	pi.StartCursor = func() (*string, error) { return encoder.Encode(first) }
	pi.EndCursor = func() (*string, error) { return encoder.Encode(last) }
	return pi
}

// NewEmptyPageInfo returns a empty instance of PageInfo. Useful for when working on a new page to be able to fullfil PageInfo requirements
func NewEmptyPageInfo() *PageInfo {
	return &PageInfo{
		TotalCount:      func() (*int, error) { return nil, nil },
		StartCursor:     func() (*string, error) { return nil, nil },
		EndCursor:       func() (*string, error) { return nil, nil },
		HasNextPage:     func() (bool, error) { return false, nil },
		HasPreviousPage: func() (bool, error) { return false, nil },
	}
}

// WithTotalCount replaces the total count function. The result of fn is
// memoized so repeated resolution issues the underlying queries once.
func (pi *PageInfo) WithTotalCount(fn func() (*int, error)) *PageInfo {
	var (
		once  sync.Once
		count *int
		err   error
	)
	pi.TotalCount = func() (*int, error) {
		once.Do(func() { count, err = fn() })
		return count, err
	}
	return pi
}
