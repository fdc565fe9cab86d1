package estimate_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/estimate"
	"github.com/nrfta/catalog-go/store/memory"
)

type brokenCounter struct {
	catalog.Store
}

func (brokenCounter) Count(context.Context, catalog.Query) (int64, error) {
	return 0, errors.New("aggregation unavailable")
}

func price(n int64) *int64 { return &n }

var _ = Describe("Estimator", func() {
	var (
		ctx       context.Context
		store     *memory.Store
		estimator *estimate.Estimator
		f         catalog.Filter
	)

	candidates := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("g-%03d", i)
		}
		return out
	}

	BeforeEach(func() {
		ctx = context.Background()
		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		var products []*catalog.Product
		for i := 0; i < 40; i++ {
			name, category := "Blue Saree", "sarees"
			if i%2 == 0 {
				name, category = "Red Shawl", "shawls"
			}
			products = append(products, &catalog.Product{
				ID:         fmt.Sprintf("p-%02d", i),
				Name:       name,
				Price:      int64(100 * (i + 1)),
				CategoryID: category,
				CreatedAt:  at.Add(time.Duration(i) * time.Hour),
			})
		}
		store = memory.New(products...)
		estimator = estimate.New(store, estimate.WithPageSize(12))
		f = catalog.NewFilter()
	})

	Describe("exact counts", func() {
		It("should count the whole catalog", func() {
			res, err := estimator.Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res).To(Equal(estimate.Result{TotalItems: 40, TotalPages: 4}))
		})

		It("should count category and price together", func() {
			f.SetCategory("shawls")
			f.SetPriceRange(nil, price(1000))
			res, err := estimator.Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.TotalItems).To(Equal(5))
			Expect(res.Estimated).To(BeFalse())
		})

		It("should count a small genre exactly", func() {
			f.SetGenre("new", []string{"p-01", "p-02", "missing"})
			res, err := estimator.Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.TotalItems).To(Equal(2))
		})

		It("should report zero for an empty genre", func() {
			f.SetGenre("new", nil)
			res, err := estimator.Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res).To(Equal(estimate.Result{}))
		})

		It("should wrap count errors", func() {
			_, err := estimate.New(brokenCounter{Store: store}).Estimate(ctx, f)
			Expect(err).To(MatchError(ContainSubstring("aggregation unavailable")))
		})
	})

	Describe("oversized genres", func() {
		BeforeEach(func() {
			f.SetGenre("festival", candidates(100))
		})

		It("should scale candidates by category selectivity", func() {
			f.SetCategory("shawls")
			res, err := estimator.Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res).To(Equal(estimate.Result{TotalItems: 50, TotalPages: 5, Estimated: true}))
		})

		It("should multiply category and price selectivity", func() {
			f.SetCategory("shawls")
			f.SetPriceRange(nil, price(1000))
			res, err := estimator.Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			// 100 * 20/40 * 10/40 = 12.5
			Expect(res.TotalItems).To(Equal(13))
		})

		It("should apply the search match rate", func() {
			f.SetCategory("shawls")
			f.SetSearch("red")
			res, err := estimator.Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.TotalItems).To(Equal(10))

			res, err = estimate.New(store, estimate.WithSearchMatchRate(0.5)).Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.TotalItems).To(Equal(25))
		})

		It("should ignore an out of range match rate", func() {
			f.SetSearch("red")
			res, err := estimate.New(store, estimate.WithSearchMatchRate(1.5)).Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.TotalItems).To(Equal(20))
		})

		It("should estimate zero for an empty catalog", func() {
			res, err := estimate.New(memory.New()).Estimate(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res).To(Equal(estimate.Result{Estimated: true}))
		})

		It("should fail when a count fails", func() {
			_, err := estimate.New(brokenCounter{Store: store}).Estimate(ctx, f)
			Expect(err).To(MatchError(ContainSubstring("estimate listing")))
		})
	})
})

var _ = DescribeTable("TotalPages",
	func(total, size, expected int) {
		Expect(estimate.TotalPages(total, size)).To(Equal(expected))
	},
	Entry("empty", 0, 12, 0),
	Entry("exact", 24, 12, 2),
	Entry("remainder", 25, 12, 3),
	Entry("no page size", 25, 0, 0),
)
