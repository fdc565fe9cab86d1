// Package listing is the catalog listing pipeline: it routes a filter to
// either the keyset paginator or the batched membership path, applies the
// text post-filter and attaches a lazily computed total.
package listing

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cursor"
	"github.com/nrfta/catalog-go/estimate"
	"github.com/nrfta/catalog-go/membership"
	"github.com/nrfta/catalog-go/offset"
	"github.com/nrfta/catalog-go/query"
	"github.com/nrfta/catalog-go/quotafill"
	"github.com/nrfta/catalog-go/search"
)

// Config tunes a Lister.
type Config struct {
	PageSize         int
	SearchMatchRate  float64
	BatchConcurrency int
	Logger           *zap.Logger

	// FillOptions tune the quota fill used for searched keyset requests.
	FillOptions []quotafill.Option
}

// Lister serves catalog pages for one browsing session. It keeps the cursor
// cache and the merged membership set of the current filter, so each
// session (or request, for stateless callers) should own its Lister.
type Lister struct {
	store     catalog.Store
	pager     *cursor.Paginator
	members   *membership.Fetcher
	estimator *estimate.Estimator
	filler    *quotafill.Filler
	pageSize  int
	logger    *zap.Logger

	mu     sync.Mutex
	merged *mergedSet
}

type mergedSet struct {
	key    string
	result *membership.Result
}

// New creates a Lister over store.
func New(store catalog.Store, cfg Config) *Lister {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = catalog.DefaultPageSize
	}
	return &Lister{
		store: store,
		pager: cursor.New(store,
			cursor.WithPageSize(pageSize),
			cursor.WithLogger(logger),
		),
		members: membership.NewFetcher(store,
			membership.WithConcurrency(cfg.BatchConcurrency),
			membership.WithLogger(logger),
		),
		estimator: estimate.New(store,
			estimate.WithPageSize(pageSize),
			estimate.WithSearchMatchRate(cfg.SearchMatchRate),
			estimate.WithLogger(logger),
		),
		filler:   quotafill.New(store, append([]quotafill.Option{quotafill.WithLogger(logger)}, cfg.FillOptions...)...),
		pageSize: pageSize,
		logger:   logger,
	}
}

// PageSize returns the configured page size.
func (l *Lister) PageSize() int {
	return l.pageSize
}

// Page returns the numbered page for f. isNewQuery discards cached cursors
// and merged membership sets before fetching.
//
// The text post-filter runs after pagination, so a page may hold fewer
// products than the page size even when later pages exist.
func (l *Lister) Page(ctx context.Context, f catalog.Filter, number int, isNewQuery bool) (*catalog.Page[*catalog.Product], error) {
	if err := catalog.ValidatePage(number); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		page *catalog.Page[*catalog.Product]
		err  error
	)
	switch {
	case f.HasGenre() && len(f.GenreProductIDs) == 0:
		page = emptyPage(number)
	case f.OversizedMembership():
		page, err = l.membershipPage(ctx, f, &catalog.PageArgs{Page: &number}, isNewQuery)
	default:
		page, err = l.pager.GetPage(ctx, f, number, isNewQuery)
		if err == nil && f.SearchTerm != "" {
			page.Nodes = search.Filter(page.Nodes, f.SearchTerm)
		}
	}
	if err != nil {
		l.logger.Error("listing page failed",
			zap.Int("page", number),
			zap.String("filter", f.Key()),
			zap.Error(err),
		)
		return nil, err
	}

	if page.Metadata.Strategy != catalog.StrategyMembership {
		page.PageInfo.WithTotalCount(l.totalCount(ctx, f))
	}
	return page, nil
}

// After returns up to limit products after an opaque cursor. Cursors come
// from a previous page's EndCursor or edge cursors; an empty cursor starts
// from the beginning.
//
// With a search term the page is quota-filled: batches are fetched and
// post-filtered until limit matches are found or a safeguard trips.
func (l *Lister) After(ctx context.Context, f catalog.Filter, after string, limit int) (*catalog.Page[*catalog.Product], error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = l.pageSize
	}

	switch {
	case f.HasGenre() && len(f.GenreProductIDs) == 0:
		return emptyPage(0), nil
	case f.OversizedMembership():
		args := &catalog.PageArgs{First: &limit}
		if after != "" {
			args.After = &after
		}
		return l.membershipPage(ctx, f, args, false)
	}

	if f.SearchTerm != "" {
		return l.fillAfter(ctx, f, after, limit)
	}

	page, err := l.pager.FetchAfter(ctx, f, after, limit)
	if err != nil {
		return nil, err
	}
	page.PageInfo.WithTotalCount(l.totalCount(ctx, f))
	return page, nil
}

func (l *Lister) fillAfter(ctx context.Context, f catalog.Filter, after string, limit int) (*catalog.Page[*catalog.Product], error) {
	enc, err := l.pager.Encoder(f)
	if err != nil {
		return nil, err
	}
	var pos *catalog.CursorPosition
	if after != "" {
		if pos, err = enc.Decode(after); err != nil {
			return nil, &catalog.ValidationError{Field: "after", Reason: err.Error()}
		}
	}

	q, err := query.Compose(f, nil, 0)
	if err != nil {
		return nil, err
	}
	res, err := l.filler.Fill(ctx, q, pos, limit, search.PostFilter(f.SearchTerm))
	if err != nil {
		return nil, err
	}

	pageInfo := catalog.NewPageInfo(enc, res.Items, 0, res.HasNext)
	hasPrev := pos != nil
	pageInfo.HasPreviousPage = func() (bool, error) { return hasPrev, nil }
	pageInfo.WithTotalCount(l.totalCount(ctx, f))

	return &catalog.Page[*catalog.Product]{
		Nodes:    res.Items,
		PageInfo: pageInfo,
		Metadata: catalog.Metadata{
			Strategy:      catalog.StrategyFill,
			QueryTimeMs:   res.QueryTimeMs,
			ItemsExamined: res.Examined,
			Fetches:       res.Iterations,
			Iterations:    res.Iterations,
			SafeguardHit:  res.SafeguardHit,
		},
	}, nil
}

// EdgeCursor returns a function producing the resume cursor for each node of
// a page built for f.
func (l *Lister) EdgeCursor(f catalog.Filter, page *catalog.Page[*catalog.Product]) func(int, *catalog.Product) string {
	if page.Metadata.Strategy == catalog.StrategyMembership {
		start := 0
		if c, err := page.PageInfo.StartCursor(); err == nil {
			start, _ = offset.DecodeCursor(c)
		}
		return func(i int, _ *catalog.Product) string {
			return *offset.EncodeCursor(start + i + 1)
		}
	}
	enc, err := l.pager.Encoder(f)
	if err != nil {
		return func(int, *catalog.Product) string { return "" }
	}
	return func(_ int, p *catalog.Product) string {
		c, err := enc.Encode(p)
		if err != nil || c == nil {
			return ""
		}
		return *c
	}
}

// Count returns the exact or estimated total for f.
func (l *Lister) Count(ctx context.Context, f catalog.Filter) (estimate.Result, error) {
	if err := f.Validate(); err != nil {
		return estimate.Result{}, err
	}
	return l.estimator.Estimate(ctx, f)
}

// Product returns a single product by id.
func (l *Lister) Product(ctx context.Context, id string) (*catalog.Product, error) {
	if id == "" {
		return nil, &catalog.ValidationError{Field: "id", Reason: "is required"}
	}
	q := catalog.Query{}.Where(catalog.FieldID, catalog.OpIn, []string{id}).WithLimit(1)
	products, err := l.store.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", id, err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("product %s: %w", id, catalog.ErrNotFound)
	}
	return products[0], nil
}

// ProductsByID loads products keyed by id. Missing ids are absent from the map.
func (l *Lister) ProductsByID(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	return l.members.ByID(ctx, ids)
}

// Reset drops all cached cursors and membership sets.
func (l *Lister) Reset() {
	l.pager.Reset()
	l.mu.Lock()
	l.merged = nil
	l.mu.Unlock()
}

func (l *Lister) membershipPage(ctx context.Context, f catalog.Filter, args *catalog.PageArgs, isNewQuery bool) (*catalog.Page[*catalog.Product], error) {
	res, err := l.mergedResult(ctx, f, isNewQuery)
	if err != nil {
		return nil, err
	}

	p := offset.New(args, len(res.Products), l.pageSize)
	page := &catalog.Page[*catalog.Product]{
		Number:   p.Number,
		Nodes:    offset.Slice(res.Products, p),
		PageInfo: p.PageInfo,
		Metadata: catalog.Metadata{
			Strategy:      catalog.StrategyMembership,
			QueryTimeMs:   res.QueryTimeMs,
			ItemsExamined: res.Examined,
			Fetches:       res.Batches,
			Partial:       res.Partial,
			FailedBatches: res.FailedBatches,
		},
	}
	if res.Partial {
		l.logger.Warn("membership page is partial",
			zap.String("genre", f.GenreID),
			zap.Int("failed_batches", res.FailedBatches),
			zap.Error(res.Err),
		)
	}
	return page, nil
}

// mergedResult returns the cached merged set for f, fetching it when the
// filter changed or a new query was requested.
func (l *Lister) mergedResult(ctx context.Context, f catalog.Filter, isNewQuery bool) (*membership.Result, error) {
	key := f.Key()

	l.mu.Lock()
	defer l.mu.Unlock()

	if !isNewQuery && l.merged != nil && l.merged.key == key {
		return l.merged.result, nil
	}
	l.merged = nil

	res, err := l.members.Fetch(ctx, f.GenreProductIDs, f)
	if err != nil {
		return nil, err
	}
	// A partial set is served but not reused, so the next page retries.
	if !res.Partial {
		l.merged = &mergedSet{key: key, result: res}
	}
	return res, nil
}

func (l *Lister) totalCount(ctx context.Context, f catalog.Filter) func() (*int, error) {
	return func() (*int, error) {
		res, err := l.estimator.Estimate(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("total count: %w", err)
		}
		return &res.TotalItems, nil
	}
}

func emptyPage(number int) *catalog.Page[*catalog.Product] {
	zero := 0
	pi := catalog.NewEmptyPageInfo()
	pi.HasPreviousPage = func() (bool, error) { return number > 1, nil }
	pi.TotalCount = func() (*int, error) { return &zero, nil }
	return &catalog.Page[*catalog.Product]{
		Number:   number,
		PageInfo: pi,
		Metadata: catalog.Metadata{Strategy: catalog.StrategyCursor},
	}
}
