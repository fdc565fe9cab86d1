package session_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/estimate"
	"github.com/nrfta/catalog-go/session"
)

type pageCall struct {
	Filter     catalog.Filter
	Number     int
	IsNewQuery bool
}

// fakeLister answers immediately unless the search term has a delay
// configured. Delays ignore cancellation so stale responses really arrive.
type fakeLister struct {
	mu       sync.Mutex
	calls    []pageCall
	delays   map[string]time.Duration
	pageErr  error
	countErr error
}

func (l *fakeLister) Page(ctx context.Context, f catalog.Filter, number int, isNewQuery bool) (*catalog.Page[*catalog.Product], error) {
	l.mu.Lock()
	l.calls = append(l.calls, pageCall{Filter: f, Number: number, IsNewQuery: isNewQuery})
	delay, err := l.delays[f.SearchTerm], l.pageErr
	l.mu.Unlock()

	time.Sleep(delay)
	if err != nil {
		return nil, err
	}
	return &catalog.Page[*catalog.Product]{
		Number: number,
		Nodes:  []*catalog.Product{{ID: f.SearchTerm}},
	}, nil
}

func (l *fakeLister) Count(context.Context, catalog.Filter) (estimate.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.countErr != nil {
		return estimate.Result{}, l.countErr
	}
	return estimate.Result{TotalItems: 30, TotalPages: 3}, nil
}

func (l *fakeLister) Calls() []pageCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]pageCall(nil), l.calls...)
}

var _ = Describe("Session", func() {
	var (
		ctx     context.Context
		lister  *fakeLister
		s       *session.Session
		leaks   goleak.Option
		mu      sync.Mutex
		commits []session.Snapshot
	)

	committed := func() []session.Snapshot {
		mu.Lock()
		defer mu.Unlock()
		return append([]session.Snapshot(nil), commits...)
	}

	search := func(term string) func(*catalog.Filter) error {
		return func(f *catalog.Filter) error {
			f.SetSearch(term)
			return nil
		}
	}

	BeforeEach(func() {
		leaks = goleak.IgnoreCurrent()
		ctx = context.Background()
		lister = &fakeLister{delays: map[string]time.Duration{}}
		commits = nil
		s = session.New(ctx, lister,
			session.WithDebounce(40*time.Millisecond),
			session.WithCommit(func(snap session.Snapshot) {
				mu.Lock()
				commits = append(commits, snap)
				mu.Unlock()
			}),
		)
	})

	AfterEach(func() {
		s.Close()
		goleak.VerifyNone(GinkgoT(), leaks)
	})

	It("should collapse rapid edits into one new query", func() {
		Expect(s.Update(search("r"))).To(Succeed())
		Expect(s.Update(search("re"))).To(Succeed())
		Expect(s.Update(search("red"))).To(Succeed())

		Eventually(committed).Should(HaveLen(1))
		Consistently(lister.Calls, 100*time.Millisecond).Should(HaveLen(1))

		call := lister.Calls()[0]
		Expect(call.Filter.SearchTerm).To(Equal("red"))
		Expect(call.IsNewQuery).To(BeTrue())
		Expect(call.Number).To(Equal(1))

		snap := s.Current()
		Expect(snap.Page.Nodes[0].ID).To(Equal("red"))
		Expect(snap.Total.TotalPages).To(Equal(3))
	})

	It("should drop a slow response superseded by navigation", func() {
		lister.delays["slow"] = 150 * time.Millisecond
		Expect(s.Update(search("slow"))).To(Succeed())
		Eventually(lister.Calls).Should(HaveLen(1))

		Expect(s.GoTo(2)).To(Succeed())
		Eventually(committed).Should(HaveLen(1))
		Consistently(committed, 250*time.Millisecond).Should(HaveLen(1))

		snap := s.Current()
		Expect(snap.Number).To(Equal(2))
		Expect(lister.Calls()[1].IsNewQuery).To(BeFalse())
	})

	It("should reset to page 1 when the filter changes", func() {
		Expect(s.GoTo(3)).To(Succeed())
		Eventually(committed).Should(HaveLen(1))

		Expect(s.Update(func(f *catalog.Filter) error { f.SetCategory("shawls"); return nil })).To(Succeed())
		Eventually(committed).Should(HaveLen(2))
		Expect(s.Current().Number).To(Equal(1))
		Expect(*s.Current().Filter.CategoryID).To(Equal("shawls"))
	})

	It("should not refetch for a view change", func() {
		Expect(s.Update(func(f *catalog.Filter) error { f.SetView(catalog.ViewList); return nil })).To(Succeed())
		Consistently(lister.Calls, 100*time.Millisecond).Should(BeEmpty())
		Expect(s.Filter().View).To(Equal(catalog.ViewList))
	})

	It("should keep the filter on a rejected edit", func() {
		err := s.Update(func(f *catalog.Filter) error { return f.SetSort("cheapest") })
		Expect(err).To(MatchError(catalog.ErrInvalidSort))

		min, max := int64(10), int64(5)
		err = s.Update(func(f *catalog.Filter) error { f.SetPriceRange(&min, &max); return nil })
		Expect(catalog.IsInvalid(err)).To(BeTrue())
		Expect(s.Filter().PriceRange).To(BeFalse())
	})

	It("should reject pages outside the served range", func() {
		Expect(catalog.IsInvalid(s.GoTo(0))).To(BeTrue())
		Expect(catalog.IsInvalid(s.GoTo(catalog.MaxPage + 1))).To(BeTrue())
	})

	It("should refresh as a new query", func() {
		s.Refresh()
		Eventually(committed).Should(HaveLen(1))
		Expect(lister.Calls()[0].IsNewQuery).To(BeTrue())
	})

	It("should report page and count errors separately", func() {
		lister.countErr = errors.New("count unavailable")
		Expect(s.GoTo(1)).To(Succeed())
		Eventually(committed).Should(HaveLen(1))
		snap := s.Current()
		Expect(snap.Err).ToNot(HaveOccurred())
		Expect(snap.CountErr).To(MatchError("count unavailable"))
		Expect(snap.Page).ToNot(BeNil())

		lister.mu.Lock()
		lister.pageErr = errors.New("store down")
		lister.mu.Unlock()
		Expect(s.GoTo(2)).To(Succeed())
		Eventually(committed).Should(HaveLen(2))
		Expect(s.Current().Err).To(MatchError("store down"))
	})

	It("should refuse work after Close", func() {
		lister.delays["slow"] = 50 * time.Millisecond
		Expect(s.Update(search("slow"))).To(Succeed())
		s.Close()
		Expect(s.GoTo(1)).To(MatchError(context.Canceled))
		Expect(committed()).To(BeEmpty())
	})
})
