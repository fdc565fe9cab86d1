// Package cursor provides keyset pagination over the catalog store with
// numbered pages.
//
// The backing store only supports forward keyset reads ("start after this
// document"), but the storefront offers page numbers. Paginator bridges the
// two with a Cache that maps each visited page to the cursor after its last
// product, scoped to the filter that produced it:
//
//   - sequential navigation reuses the cached cursor of the previous page
//     and issues one fetch;
//   - a jump to an uncached page replays forward from the nearest cached
//     predecessor, caching each intermediate cursor;
//   - a new query or any change of the filter key clears the cache.
//
// Cursors are opaque to API clients: Schema encodes them as base64 JSON
// with short keys.
//
//	{"c":"2024-01-01T00:00:00Z","i":"abc-123"}
//	→ eyJjIjoiMjAyNC0wMS0wMVQwMDowMDowMFoiLCJpIjoiYWJjLTEyMyJ9
//
// Each fetch asks for one row more than the page size (the N+1 pattern) so
// HasNextPage is exact without counting.
package cursor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/query"
)

// Paginator serves numbered catalog pages from a keyset-only store.
// It is safe for concurrent use; calls are serialized.
type Paginator struct {
	store    catalog.Store
	schema   *Schema[*catalog.Product]
	pageSize int
	logger   *zap.Logger

	mu    sync.Mutex
	cache *Cache
}

// Option configures a Paginator.
type Option func(*Paginator)

// WithPageSize sets the number of products per page.
func WithPageSize(n int) Option {
	return func(p *Paginator) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Paginator) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSchema overrides the cursor schema used for page info cursors.
func WithSchema(s *Schema[*catalog.Product]) Option {
	return func(p *Paginator) {
		if s != nil {
			p.schema = s
		}
	}
}

// New creates a Paginator over store.
func New(store catalog.Store, opts ...Option) *Paginator {
	p := &Paginator{
		store:    store,
		schema:   ProductSchema(),
		pageSize: catalog.DefaultPageSize,
		logger:   zap.NewNop(),
		cache:    NewCache(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PageSize returns the configured page size.
func (p *Paginator) PageSize() int {
	return p.pageSize
}

// GetPage returns the 1-based page of products matching f.
//
// isNewQuery clears the cursor cache unconditionally; a change of f.Key()
// since the previous call clears it as well. A page past the end of the
// result set is returned empty. A fetch error aborts the call and leaves
// the cache as it was after the last successful fetch.
func (p *Paginator) GetPage(ctx context.Context, f catalog.Filter, page int, isNewQuery bool) (*catalog.Page[*catalog.Product], error) {
	if err := catalog.ValidatePage(page); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := f.Key()
	if isNewQuery || p.cache.Key() != key {
		p.cache.Reset(key)
	}

	from, after := p.cache.Nearest(page)
	meta := catalog.Metadata{
		Strategy: catalog.StrategyCursor,
		Replayed: from < page,
	}
	if meta.Replayed {
		p.logger.Debug("replaying cursor chain",
			zap.Int("from", from),
			zap.Int("to", page),
			zap.String("filter", key),
		)
	}

	var (
		nodes   []*catalog.Product
		hasNext bool
		orderBy []catalog.OrderBy
	)
	for n := from; n <= page; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", n, err)
		}
		q, err := query.Compose(f, after, p.pageSize+1)
		if err != nil {
			return nil, err
		}
		orderBy = q.OrderBy

		start := time.Now()
		batch, err := p.store.Fetch(ctx, q)
		meta.QueryTimeMs += time.Since(start).Milliseconds()
		meta.Fetches++
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", n, err)
		}

		hasNext = len(batch) > p.pageSize
		if hasNext {
			batch = batch[:p.pageSize]
		}
		meta.ItemsExamined += len(batch)

		if len(batch) == 0 {
			nodes, hasNext = nil, false
			break
		}

		after = catalog.CursorFor(batch[len(batch)-1], orderBy)
		p.cache.Put(n, after)
		nodes = batch

		if n < page && !hasNext {
			// Result set ends before the requested page.
			nodes = nil
			break
		}
	}

	return &catalog.Page[*catalog.Product]{
		Number:   page,
		Nodes:    nodes,
		PageInfo: catalog.NewPageInfo(p.encoder(orderBy), nodes, page, hasNext),
		Metadata: meta,
	}, nil
}

// FetchAfter returns up to limit products following an opaque cursor
// produced by an earlier page's EndCursor. It neither reads nor updates the
// page cache. An empty after starts from the beginning.
func (p *Paginator) FetchAfter(ctx context.Context, f catalog.Filter, after string, limit int) (*catalog.Page[*catalog.Product], error) {
	if limit <= 0 {
		limit = p.pageSize
	}

	orderBy := query.Ordering(f)
	encoder, err := p.schema.EncoderFor(orderBy)
	if err != nil {
		return nil, err
	}

	var pos *catalog.CursorPosition
	if after != "" {
		if pos, err = encoder.Decode(after); err != nil {
			return nil, &catalog.ValidationError{Field: "after", Reason: err.Error()}
		}
	}

	q, err := query.Compose(f, pos, limit+1)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	items, err := p.store.Fetch(ctx, q)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("fetch after cursor: %w", err)
	}

	hasNext := len(items) > limit
	if hasNext {
		items = items[:limit]
	}

	pageInfo := catalog.NewPageInfo(encoder, items, 0, hasNext)
	hasPrev := pos != nil
	pageInfo.HasPreviousPage = func() (bool, error) { return hasPrev, nil }

	return &catalog.Page[*catalog.Product]{
		Nodes:    items,
		PageInfo: pageInfo,
		Metadata: catalog.Metadata{
			Strategy:      catalog.StrategyCursor,
			QueryTimeMs:   elapsed,
			ItemsExamined: len(items),
			Fetches:       1,
		},
	}, nil
}

// Encoder returns the cursor encoder for the ordering of f.
func (p *Paginator) Encoder(f catalog.Filter) (catalog.CursorEncoder[*catalog.Product], error) {
	return p.schema.EncoderFor(query.Ordering(f))
}

// Reset clears the page cache.
func (p *Paginator) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Reset("")
}

// CachedPages returns the page numbers with a cached cursor.
func (p *Paginator) CachedPages() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Pages()
}

func (p *Paginator) encoder(orderBy []catalog.OrderBy) catalog.CursorEncoder[*catalog.Product] {
	if len(orderBy) == 0 {
		return nil
	}
	enc, err := p.schema.EncoderFor(orderBy)
	if err != nil {
		p.logger.Warn("no cursor encoder for ordering", zap.Error(err))
		return nil
	}
	return enc
}
