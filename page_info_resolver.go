package catalog

import (
	"context"
	"fmt"
)

// PageInfoResolver resolves the lazy PageInfo fields.
type PageInfoResolver interface {
	HasPreviousPage(ctx context.Context, pageInfo *PageInfo) (bool, error)
	HasNextPage(ctx context.Context, pageInfo *PageInfo) (bool, error)
	TotalCount(ctx context.Context, pageInfo *PageInfo) (*int, error)
	StartCursor(ctx context.Context, pageInfo *PageInfo) (*string, error)
	EndCursor(ctx context.Context, pageInfo *PageInfo) (*string, error)
	Resolve(ctx context.Context, pageInfo *PageInfo) (PageInfoView, error)
}

// PageInfoView is the resolved, serializable form of PageInfo.
type PageInfoView struct {
	TotalCount      *int    `json:"totalCount,omitempty"`
	HasPreviousPage bool    `json:"hasPreviousPage"`
	HasNextPage     bool    `json:"hasNextPage"`
	StartCursor     *string `json:"startCursor,omitempty"`
	EndCursor       *string `json:"endCursor,omitempty"`
}

type pageInfoResolver struct {
	withTotal bool
}

// NewPageInfoResolver returns the resolver for PageInfo. Resolve skips the
// total count unless withTotal is set, since counting may be expensive.
func NewPageInfoResolver(withTotal bool) PageInfoResolver {
	return &pageInfoResolver{withTotal: withTotal}
}

func (r *pageInfoResolver) TotalCount(ctx context.Context, pageInfo *PageInfo) (*int, error) {
	if pageInfo == nil || pageInfo.TotalCount == nil {
		return nil, nil
	}
	return pageInfo.TotalCount()
}

func (r *pageInfoResolver) HasPreviousPage(ctx context.Context, pageInfo *PageInfo) (bool, error) {
	if pageInfo == nil || pageInfo.HasPreviousPage == nil {
		return false, nil
	}
	return pageInfo.HasPreviousPage()
}

func (r *pageInfoResolver) HasNextPage(ctx context.Context, pageInfo *PageInfo) (bool, error) {
	if pageInfo == nil || pageInfo.HasNextPage == nil {
		return false, nil
	}
	return pageInfo.HasNextPage()
}

func (r *pageInfoResolver) StartCursor(ctx context.Context, pageInfo *PageInfo) (*string, error) {
	if pageInfo == nil || pageInfo.StartCursor == nil {
		return nil, nil
	}
	return pageInfo.StartCursor()
}

func (r *pageInfoResolver) EndCursor(ctx context.Context, pageInfo *PageInfo) (*string, error) {
	if pageInfo == nil || pageInfo.EndCursor == nil {
		return nil, nil
	}
	return pageInfo.EndCursor()
}

func (r *pageInfoResolver) Resolve(ctx context.Context, pageInfo *PageInfo) (PageInfoView, error) {
	var (
		view PageInfoView
		err  error
	)
	if view.HasPreviousPage, err = r.HasPreviousPage(ctx, pageInfo); err != nil {
		return view, fmt.Errorf("resolve hasPreviousPage: %w", err)
	}
	if view.HasNextPage, err = r.HasNextPage(ctx, pageInfo); err != nil {
		return view, fmt.Errorf("resolve hasNextPage: %w", err)
	}
	if view.StartCursor, err = r.StartCursor(ctx, pageInfo); err != nil {
		return view, fmt.Errorf("resolve startCursor: %w", err)
	}
	if view.EndCursor, err = r.EndCursor(ctx, pageInfo); err != nil {
		return view, fmt.Errorf("resolve endCursor: %w", err)
	}
	if r.withTotal {
		if view.TotalCount, err = r.TotalCount(ctx, pageInfo); err != nil {
			return view, fmt.Errorf("resolve totalCount: %w", err)
		}
	}
	return view, nil
}
