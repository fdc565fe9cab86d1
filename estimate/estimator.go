// Package estimate computes listing totals for page navigation.
//
// Totals are exact server-side counts whenever the filter can be expressed
// as a single query. When a genre holds more ids than one membership query
// may carry, the total is approximated from selectivity ratios instead of
// fetching every batch.
package estimate

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/query"
)

// DefaultSearchMatchRate is the assumed fraction of candidates a search term
// keeps when estimating. It is a placeholder, not a measured value.
const DefaultSearchMatchRate = 0.2

// Result is a listing total.
type Result struct {
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	Estimated  bool `json:"estimated"`
}

// Estimator counts or estimates listing totals.
type Estimator struct {
	store           catalog.Store
	pageSize        int
	searchMatchRate float64
	logger          *zap.Logger
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithPageSize sets the page size used for TotalPages.
func WithPageSize(n int) Option {
	return func(e *Estimator) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithSearchMatchRate sets the assumed search selectivity, in (0, 1].
func WithSearchMatchRate(rate float64) Option {
	return func(e *Estimator) {
		if rate > 0 && rate <= 1 {
			e.searchMatchRate = rate
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Estimator) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Estimator over store.
func New(store catalog.Store, opts ...Option) *Estimator {
	e := &Estimator{
		store:           store,
		pageSize:        catalog.DefaultPageSize,
		searchMatchRate: DefaultSearchMatchRate,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns the total for f.
//
// The text refinement that runs after pagination is not reflected in exact
// counts: they count the coarse tag pre-filter.
func (e *Estimator) Estimate(ctx context.Context, f catalog.Filter) (Result, error) {
	if f.HasGenre() && len(f.GenreProductIDs) == 0 {
		return e.result(0, false), nil
	}
	if f.OversizedMembership() {
		return e.approximate(ctx, f)
	}

	q, err := query.Compose(f, nil, 0)
	if err != nil {
		return Result{}, err
	}
	n, err := e.store.Count(ctx, q.Unpaged())
	if err != nil {
		return Result{}, fmt.Errorf("count listing: %w", err)
	}
	return e.result(int(n), false), nil
}

func (e *Estimator) approximate(ctx context.Context, f catalog.Filter) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	var all, inCategory, inRange int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		all, err = e.store.Count(gctx, catalog.Query{})
		return err
	})
	if f.CategoryID != nil {
		g.Go(func() (err error) {
			inCategory, err = e.store.Count(gctx, query.Category(f))
			return err
		})
	}
	if f.PriceRange {
		g.Go(func() (err error) {
			inRange, err = e.store.Count(gctx, query.PriceRange(f))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("estimate listing: %w", err)
	}
	if all == 0 {
		return e.result(0, true), nil
	}

	n := float64(len(f.GenreProductIDs))
	if f.CategoryID != nil {
		n *= float64(inCategory) / float64(all)
	}
	if f.PriceRange {
		n *= float64(inRange) / float64(all)
	}
	if f.SearchTerm != "" {
		n *= e.searchMatchRate
	}

	total := int(math.Round(n))
	e.logger.Debug("estimated listing total",
		zap.Int("candidates", len(f.GenreProductIDs)),
		zap.Int64("all", all),
		zap.Int("total", total),
	)
	return e.result(total, true), nil
}

func (e *Estimator) result(total int, estimated bool) Result {
	return Result{
		TotalItems: total,
		TotalPages: TotalPages(total, e.pageSize),
		Estimated:  estimated,
	}
}

// TotalPages returns ceil(total / pageSize).
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
