// Package offset provides offset pagination over an in-memory result set.
//
// The batched membership path cannot page in the backing store: it merges
// several "in" queries client-side and then slices the sorted union. This
// package computes the window and the matching page info for that slice.
//
//	paginator := offset.New(args, len(products), pageSize)
//	nodes := offset.Slice(products, paginator)
package offset

import (
	"math"

	"github.com/nrfta/catalog-go"
)

// Paginator is one window over a sorted slice.
type Paginator struct {
	Limit    int
	Offset   int
	Number   int
	PageInfo *catalog.PageInfo
}

// New computes the window for args over totalCount items.
//
// The window is taken from args.After when it holds a valid offset cursor,
// otherwise from args.Page. The page size comes from args.First, falling back
// to defaultSize and then catalog.DefaultPageSize. Offsets are clamped so
// the window end never overflows; a clamped window lies past any real set.
func New(args *catalog.PageArgs, totalCount int, defaultSize int) Paginator {
	if defaultSize <= 0 {
		defaultSize = catalog.DefaultPageSize
	}
	limit := catalog.NewPageConfig().WithDefaultSize(defaultSize).EffectiveLimit(args)

	maxOffset := math.MaxInt - limit

	number := args.PageNumber()
	offset := maxOffset
	if number-1 <= maxOffset/limit {
		offset = (number - 1) * limit
	}
	if after, ok := DecodeCursor(args.GetAfter()); ok {
		offset = min(after, maxOffset)
	}
	number = offset/limit + 1

	return Paginator{
		Limit:    limit,
		Offset:   offset,
		Number:   number,
		PageInfo: newOffsetBasedPageInfo(limit, totalCount, offset),
	}
}

// Slice returns the items inside the paginator's window.
func Slice[T any](items []T, p Paginator) []T {
	if p.Offset < 0 || p.Limit <= 0 || p.Offset >= len(items) {
		return nil
	}
	end := len(items)
	if p.Limit < end-p.Offset {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}

// ItemCursor returns the cursor that resumes after the i-th item of the page.
func (p Paginator) ItemCursor(i int) string {
	return *EncodeCursor(p.Offset + i + 1)
}

// newOffsetBasedPageInfo creates PageInfo for a window of a fully known set.
// StartCursor is the window start; EndCursor resumes right after the window.
func newOffsetBasedPageInfo(pageSize int, totalCount int, currentOffset int) *catalog.PageInfo {
	count := totalCount
	end := currentOffset + pageSize
	if end > count {
		end = count
	}

	pi := &catalog.PageInfo{
		StartCursor:     func() (*string, error) { return EncodeCursor(currentOffset), nil },
		EndCursor:       func() (*string, error) { return EncodeCursor(end), nil },
		HasNextPage:     func() (bool, error) { return currentOffset+pageSize < count, nil },
		HasPreviousPage: func() (bool, error) { return currentOffset > 0, nil },
	}
	return pi.WithTotalCount(func() (*int, error) { return &count, nil })
}
