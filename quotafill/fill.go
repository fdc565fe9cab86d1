// Package quotafill fills a keyset page to the requested size when a
// client-side filter drops some of the fetched products.
//
// Each iteration fetches the number of items still missing, scaled by an
// adaptive backoff multiplier, filters them and resumes after the last
// examined item. Three safeguards bound the work: an iteration cap, a cap on
// examined records and a timeout. When a safeguard trips, the items found so
// far are returned and Result.SafeguardHit names it.
package quotafill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
)

const (
	defaultMaxIterations      = 5
	defaultMaxRecordsExamined = 500
	defaultTimeout            = 3 * time.Second
)

// Default adaptive backoff multipliers (Fibonacci-like progression)
var defaultBackoffMultipliers = []int{1, 2, 3, 5, 8}

// Safeguard identifiers returned in Result.SafeguardHit.
const (
	SafeguardTimeout       = "timeout"
	SafeguardMaxRecords    = "max_records"
	SafeguardMaxIterations = "max_iterations"
)

// Result is a filled batch.
type Result struct {
	Items []*catalog.Product

	// HasNext is true when more matching products may follow Items.
	HasNext bool

	Examined     int
	Iterations   int
	SafeguardHit string
	QueryTimeMs  int64
}

// Filler runs quota-fill loops against a store.
type Filler struct {
	store              catalog.Store
	maxIterations      int
	maxRecordsExamined int
	timeout            time.Duration
	backoffMultipliers []int
	logger             *zap.Logger
}

// Option configures a Filler.
type Option func(*Filler)

// WithMaxIterations sets the maximum number of fetch iterations.
// Default: 5
func WithMaxIterations(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.maxIterations = n
		}
	}
}

// WithMaxRecordsExamined sets the maximum number of records to examine.
// Default: 500
func WithMaxRecordsExamined(n int) Option {
	return func(f *Filler) {
		if n > 0 {
			f.maxRecordsExamined = n
		}
	}
}

// WithTimeout sets the maximum time allowed for one Fill.
// Default: 3 seconds
func WithTimeout(d time.Duration) Option {
	return func(f *Filler) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithBackoffMultipliers sets the adaptive backoff multipliers. The last
// multiplier is reused once iterations exceed the list.
// Default: [1, 2, 3, 5, 8]
func WithBackoffMultipliers(multipliers []int) Option {
	return func(f *Filler) {
		if len(multipliers) > 0 {
			f.backoffMultipliers = multipliers
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Filler) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a Filler over store.
func New(store catalog.Store, opts ...Option) *Filler {
	f := &Filler{
		store:              store,
		maxIterations:      defaultMaxIterations,
		maxRecordsExamined: defaultMaxRecordsExamined,
		timeout:            defaultTimeout,
		backoffMultipliers: defaultBackoffMultipliers,
		logger:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Filler) multiplier(iteration int) int {
	return f.backoffMultipliers[min(iteration, len(f.backoffMultipliers)-1)]
}

// Fill returns up to limit products of q, starting after the cursor, that
// keep accepts. q must carry its ordering; its Limit and StartAfter are
// replaced on every iteration.
func (f *Filler) Fill(
	ctx context.Context,
	q catalog.Query,
	after *catalog.CursorPosition,
	limit int,
	keep catalog.FilterFunc[*catalog.Product],
) (*Result, error) {
	if limit <= 0 {
		return nil, &catalog.ValidationError{Field: "limit", Reason: "must be positive"}
	}
	if len(q.OrderBy) == 0 {
		return nil, catalog.ErrCursorWithoutOrder
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	target := limit + 1
	res := &Result{}
	cursor := after
	exhausted := false

	for len(res.Items) < target && !exhausted {
		if res.Iterations >= f.maxIterations {
			res.SafeguardHit = SafeguardMaxIterations
			break
		}
		if ctx.Err() != nil {
			res.SafeguardHit = SafeguardTimeout
			break
		}

		batch := (target - len(res.Items)) * f.multiplier(res.Iterations)
		if res.Examined+batch > f.maxRecordsExamined {
			batch = f.maxRecordsExamined - res.Examined
			if batch <= 0 {
				res.SafeguardHit = SafeguardMaxRecords
				break
			}
		}

		items, err := f.store.Fetch(ctx, q.After(cursor).WithLimit(batch+1))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
				res.SafeguardHit = SafeguardTimeout
				break
			}
			return nil, fmt.Errorf("fetch batch (iteration %d): %w", res.Iterations+1, err)
		}
		res.Iterations++

		if len(items) > batch {
			items = items[:batch]
		} else {
			exhausted = true
		}
		if len(items) == 0 {
			break
		}

		kept, err := keep(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("apply filter (iteration %d): %w", res.Iterations, err)
		}
		res.Items = append(res.Items, kept...)
		res.Examined += len(items)
		cursor = catalog.CursorFor(items[len(items)-1], q.OrderBy)
	}

	res.HasNext = len(res.Items) > limit || (res.SafeguardHit != "" && !exhausted)
	if len(res.Items) > limit {
		res.Items = res.Items[:limit]
	}
	res.QueryTimeMs = time.Since(start).Milliseconds()

	if res.SafeguardHit != "" {
		f.logger.Warn("quota fill stopped early",
			zap.String("safeguard", res.SafeguardHit),
			zap.Int("found", len(res.Items)),
			zap.Int("examined", res.Examined),
			zap.Int("iterations", res.Iterations),
		)
	}
	return res, nil
}
