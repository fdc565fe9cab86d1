// Package session drives catalog listing for one shopper: it owns the filter
// state, debounces filter edits, and makes sure only the response to the
// latest request is committed.
//
// Every filter change or page navigation bumps a sequence number and cancels
// the request in flight. A response is committed only when its sequence
// number is still the latest, so a slow response for an old filter can never
// overwrite a newer one.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/estimate"
)

// DefaultDebounce is the delay between the last filter edit and the refetch.
const DefaultDebounce = 300 * time.Millisecond

// Lister is the listing pipeline a session reads from.
type Lister interface {
	Page(ctx context.Context, f catalog.Filter, number int, isNewQuery bool) (*catalog.Page[*catalog.Product], error)
	Count(ctx context.Context, f catalog.Filter) (estimate.Result, error)
}

// Snapshot is a committed listing result.
type Snapshot struct {
	Seq    uint64
	Filter catalog.Filter
	Number int
	Page   *catalog.Page[*catalog.Product]
	Total  estimate.Result

	// Err is set when the page could not be loaded; CountErr when only the
	// total failed.
	Err      error
	CountErr error
}

// Session is safe for concurrent use.
type Session struct {
	lister   Lister
	debounce time.Duration
	logger   *zap.Logger
	onCommit func(Snapshot)

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	filter catalog.Filter
	number int
	seq    uint64
	dirty  bool
	cancel context.CancelFunc
	timer  *time.Timer
	closed bool
	latest Snapshot
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce sets the filter edit debounce. Zero refetches immediately.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCommit registers a callback invoked after each committed snapshot.
func WithCommit(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onCommit = fn
	}
}

// WithFilter sets the initial filter.
func WithFilter(f catalog.Filter) Option {
	return func(s *Session) {
		s.filter = f
	}
}

// New creates a Session. Requests are bound to ctx; Close releases them.
func New(ctx context.Context, lister Lister, opts ...Option) *Session {
	s := &Session{
		lister:   lister,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		filter:   catalog.NewFilter(),
		number:   1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.stop = context.WithCancel(ctx)
	return s
}

// Filter returns the current filter state.
func (s *Session) Filter() catalog.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Current returns the latest committed snapshot.
func (s *Session) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Update edits the filter. Edits that change the query reset to page 1 and
// schedule a debounced refetch as a new query; presentation-only edits
// (the view mode) apply without a refetch. A validation error leaves the
// filter unchanged.
func (s *Session) Update(edit func(f *catalog.Filter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return context.Canceled
	}

	next := s.filter
	if err := edit(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}

	changed := next.Key() != s.filter.Key()
	s.filter = next
	if !changed {
		return nil
	}

	s.number = 1
	s.dirty = true
	s.seq++
	s.cancelInFlightLocked()
	s.scheduleLocked(s.seq)
	return nil
}

// GoTo navigates to a page immediately, flushing any pending filter edit.
func (s *Session) GoTo(number int) error {
	if err := catalog.ValidatePage(number); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return context.Canceled
	}
	s.number = number
	s.seq++
	s.launchLocked(s.seq)
	return nil
}

// Refresh refetches the current page as a new query, discarding cached cursors.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.dirty = true
	s.seq++
	s.launchLocked(s.seq)
}

// Close cancels pending and in-flight requests and waits for them to exit.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.stopTimerLocked()
	s.cancelInFlightLocked()
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
}

func (s *Session) scheduleLocked(seq uint64) {
	s.stopTimerLocked()
	if s.debounce == 0 {
		s.launchLocked(seq)
		return
	}
	s.wg.Add(1)
	s.timer = time.AfterFunc(s.debounce, func() {
		defer s.wg.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.seq != seq {
			return
		}
		s.timer = nil
		s.launchLocked(seq)
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
}

func (s *Session) cancelInFlightLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) launchLocked(seq uint64) {
	s.stopTimerLocked()
	s.cancelInFlightLocked()

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	f, number, isNew := s.filter, s.number, s.dirty
	s.dirty = false

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.commit(s.fetch(ctx, seq, f, number, isNew))
	}()
}

func (s *Session) fetch(ctx context.Context, seq uint64, f catalog.Filter, number int, isNew bool) Snapshot {
	snap := Snapshot{Seq: seq, Filter: f, Number: number}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.lister.Page(gctx, f, number, isNew)
		if err != nil {
			return err
		}
		snap.Page = page
		return nil
	})
	g.Go(func() error {
		total, err := s.lister.Count(gctx, f)
		if err != nil {
			// The page is still useful without a total.
			snap.CountErr = err
			return nil
		}
		snap.Total = total
		return nil
	})
	snap.Err = g.Wait()
	return snap
}

func (s *Session) commit(snap Snapshot) {
	s.mu.Lock()
	if s.closed || snap.Seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("dropping stale listing response", zap.Uint64("seq", snap.Seq))
		return
	}
	s.latest = snap
	s.cancel = nil
	onCommit := s.onCommit
	s.mu.Unlock()

	if snap.Err != nil {
		s.logger.Warn("listing request failed", zap.Uint64("seq", snap.Seq), zap.Error(snap.Err))
	}
	if onCommit != nil {
		onCommit(snap)
	}
}
