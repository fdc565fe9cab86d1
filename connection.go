package catalog

import (
	"context"
	"fmt"
)

// Connection is the JSON envelope of a catalog page: the products both as
// cursor-carrying edges and as plain nodes, with resolved page info.
type Connection[T any] struct {
	Edges    []Edge[T]    `json:"edges"`
	Nodes    []T          `json:"nodes"`
	PageInfo PageInfoView `json:"pageInfo"`

	// Page is the 1-based page number, zero for keyset requests.
	Page int `json:"page,omitempty"`

	// Partial is set when some membership batches failed and products may
	// be missing from the page.
	Partial bool `json:"partial,omitempty"`
}

// Edge is one product of a Connection with the cursor that resumes right
// after it.
type Edge[T any] struct {
	Cursor string `json:"cursor"`
	Node   T      `json:"node"`
}

// BuildConnection resolves page's lazy page info and converts each node with
// view, pairing it with the cursor from edgeCursor.
//
//	conn, err := catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(true),
//		lister.EdgeCursor(f, page),
//		func(p *catalog.Product) (productView, error) { return toView(p), nil },
//	)
func BuildConnection[From any, To any](
	ctx context.Context,
	page *Page[From],
	resolver PageInfoResolver,
	edgeCursor func(index int, item From) string,
	view func(From) (To, error),
) (*Connection[To], error) {
	if page == nil {
		return nil, fmt.Errorf("build connection: nil page")
	}

	pageInfo, err := resolver.Resolve(ctx, page.PageInfo)
	if err != nil {
		return nil, fmt.Errorf("build connection: %w", err)
	}

	conn := &Connection[To]{
		Nodes:    make([]To, 0, len(page.Nodes)),
		Edges:    make([]Edge[To], 0, len(page.Nodes)),
		PageInfo: pageInfo,
		Page:     page.Number,
		Partial:  page.Metadata.Partial,
	}

	for i, node := range page.Nodes {
		v, err := view(node)
		if err != nil {
			return nil, fmt.Errorf("build connection: node %d: %w", i, err)
		}
		conn.Nodes = append(conn.Nodes, v)
		conn.Edges = append(conn.Edges, Edge[To]{Cursor: edgeCursor(i, node), Node: v})
	}

	return conn, nil
}
