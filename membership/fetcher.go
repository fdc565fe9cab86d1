// Package membership fetches product sets defined by an explicit id list,
// such as a curated genre, when the list exceeds what a single "in"
// constraint may carry.
//
// Ids are split into chunks of catalog.MaxMembership, one "in" query runs
// per chunk with bounded concurrency, and the results are merged by id so
// overlapping chunks never produce duplicates. Category, price and text
// filters are then applied in memory and the union is sorted with
// catalog.Compare.
package membership

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/query"
	"github.com/nrfta/catalog-go/search"
)

// DefaultConcurrency is the default number of chunk queries in flight.
const DefaultConcurrency = 4

// Result is the merged, filtered and sorted membership set.
type Result struct {
	Products []*catalog.Product

	// Examined is the number of distinct products fetched before filtering.
	Examined int

	Batches       int
	FailedBatches int

	// Partial is set when at least one batch failed; Err joins their errors.
	Partial bool
	Err     error

	QueryTimeMs int64
}

// Fetcher runs batched membership queries against a store.
type Fetcher struct {
	store       catalog.Store
	concurrency int
	logger      *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency bounds the number of chunk queries in flight.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher over store.
func NewFetcher(store catalog.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:       store,
		concurrency: DefaultConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch loads every product in ids that satisfies filter, sorted by the
// filter's ordering. Failed batches are reported through Result.Partial; the
// call itself fails only if every batch fails or ctx is done.
func (f *Fetcher) Fetch(ctx context.Context, ids []string, filter catalog.Filter) (*Result, error) {
	chunks := Chunk(ids, catalog.MaxMembership)
	res := &Result{Batches: len(chunks)}
	if len(chunks) == 0 {
		return res, nil
	}

	var (
		mu     sync.Mutex
		merged = make(map[string]*catalog.Product, len(ids))
		errs   []error
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			q := catalog.Query{}.Where(catalog.FieldID, catalog.OpIn, chunk)
			products, err := f.store.Fetch(gctx, q)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger.Warn("membership batch failed",
					zap.Int("batch", i),
					zap.Int("size", len(chunk)),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("batch %d: %w", i, err))
				return nil
			}
			for _, p := range products {
				merged[p.ID] = p
			}
			return nil
		})
	}
	_ = g.Wait()
	res.QueryTimeMs = time.Since(start).Milliseconds()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.FailedBatches = len(errs)
	if res.FailedBatches > 0 {
		res.Partial = true
		res.Err = errors.Join(errs...)
	}
	if res.FailedBatches == res.Batches {
		return nil, fmt.Errorf("membership fetch: all %d batches failed: %w", res.Batches, res.Err)
	}

	res.Examined = len(merged)
	tokens := search.Tokenize(filter.SearchTerm)
	products := make([]*catalog.Product, 0, len(merged))
	for _, p := range merged {
		if filter.MatchesAttributes(p) && search.Match(p.Name, tokens) {
			products = append(products, p)
		}
	}
	catalog.SortProducts(products, query.Ordering(filter))
	res.Products = products

	return res, nil
}

// ByID loads the products in ids without filtering and returns them keyed by id.
// Unlike Fetch, any failed batch fails the call.
func (f *Fetcher) ByID(ctx context.Context, ids []string) (map[string]*catalog.Product, error) {
	res, err := f.Fetch(ctx, ids, catalog.NewFilter())
	if err != nil {
		return nil, err
	}
	if res.Partial {
		return nil, fmt.Errorf("membership fetch: %w", res.Err)
	}
	out := make(map[string]*catalog.Product, len(res.Products))
	for _, p := range res.Products {
		out[p.ID] = p
	}
	return out, nil
}

// Chunk splits ids into consecutive groups of at most size ids.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = catalog.MaxMembership
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
