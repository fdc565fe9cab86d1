package listing_test

import (
	"context"
	"fmt"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/listing"
	"github.com/nrfta/catalog-go/offset"
	"github.com/nrfta/catalog-go/search"
	"github.com/nrfta/catalog-go/store/memory"
)

func ids(products []*catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func idRange(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("p-%02d", i))
	}
	return out
}

var _ = Describe("Lister", func() {
	var (
		ctx    context.Context
		store  *memory.Store
		lister *listing.Lister
		f      catalog.Filter
	)

	BeforeEach(func() {
		ctx = context.Background()
		at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		// p-00, p-03, ... are "Red Shawl"; p-02, p-05, ... share the "re"
		// tag as "Regal Saree" without matching a search for "red".
		var products []*catalog.Product
		for i := 0; i < 30; i++ {
			name, category := "Blue Saree", "sarees"
			switch i % 3 {
			case 0:
				name, category = "Red Shawl", "shawls"
			case 2:
				name = "Regal Saree"
			}
			products = append(products, &catalog.Product{
				ID:         fmt.Sprintf("p-%02d", i),
				Name:       name,
				Price:      int64(100 * (i + 1)),
				CategoryID: category,
				CreatedAt:  at.Add(time.Duration(i) * time.Hour),
				Tags:       search.Tags(name),
			})
		}
		store = memory.New(products...)
		lister = listing.New(store, listing.Config{PageSize: 5})
		f = catalog.NewFilter()
	})

	Describe("Page", func() {
		It("should page through the cursor path with a total", func() {
			page, err := lister.Page(ctx, f, 2, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids(page.Nodes)).To(Equal([]string{"p-24", "p-23", "p-22", "p-21", "p-20"}))
			Expect(page.Metadata.Strategy).To(Equal(catalog.StrategyCursor))

			total, err := page.PageInfo.TotalCount()
			Expect(err).ToNot(HaveOccurred())
			Expect(*total).To(Equal(30))
		})

		It("should post-filter numbered pages, leaving short pages", func() {
			f.SetSearch("red")
			page, err := lister.Page(ctx, f, 1, true)
			Expect(err).ToNot(HaveOccurred())
			// Fetched p-29 p-27 p-26 p-24 p-23 by the "re" tag.
			Expect(ids(page.Nodes)).To(Equal([]string{"p-27", "p-24"}))
			hasNext, _ := page.PageInfo.HasNextPage()
			Expect(hasNext).To(BeTrue())
		})

		It("should take the membership path for oversized genres", func() {
			f.SetGenre("new", idRange(0, 14))
			page, err := lister.Page(ctx, f, 3, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Metadata.Strategy).To(Equal(catalog.StrategyMembership))
			Expect(page.Metadata.Fetches).To(Equal(2))
			Expect(ids(page.Nodes)).To(Equal([]string{"p-04", "p-03", "p-02", "p-01", "p-00"}))

			total, _ := page.PageInfo.TotalCount()
			Expect(*total).To(Equal(15))
		})

		It("should reuse the merged membership set for the same filter", func() {
			f.SetGenre("new", idRange(0, 14))
			_, err := lister.Page(ctx, f, 1, true)
			Expect(err).ToNot(HaveOccurred())

			store.Delete("p-13")
			page, err := lister.Page(ctx, f, 1, false)
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Nodes[1].ID).To(Equal("p-13"))

			page, err = lister.Page(ctx, f, 1, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Nodes[1].ID).To(Equal("p-12"))
		})

		It("should query a small genre in one constraint", func() {
			f.SetGenre("picks", []string{"p-01", "p-05", "p-09"})
			page, err := lister.Page(ctx, f, 1, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Metadata.Strategy).To(Equal(catalog.StrategyCursor))
			Expect(ids(page.Nodes)).To(Equal([]string{"p-09", "p-05", "p-01"}))
		})

		It("should return an empty page for an empty genre", func() {
			f.SetGenre("empty", nil)
			page, err := lister.Page(ctx, f, 1, true)
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Nodes).To(BeEmpty())
			total, _ := page.PageInfo.TotalCount()
			Expect(*total).To(BeZero())
		})

		DescribeTable("should reject page numbers past the deepest page",
			func(genre bool, number int) {
				if genre {
					f.SetGenre("new", idRange(0, 29))
				}
				var err error
				Expect(func() { _, err = lister.Page(ctx, f, number, true) }).ToNot(Panic())
				Expect(catalog.IsInvalid(err)).To(BeTrue())
			},
			Entry("cursor path, one past", false, catalog.MaxPage+1),
			Entry("cursor path, largest int", false, math.MaxInt),
			Entry("membership path, one past", true, catalog.MaxPage+1),
			Entry("membership path, largest int", true, math.MaxInt),
		)

		It("should reject invalid filters", func() {
			f.Sort = "random"
			_, err := lister.Page(ctx, f, 1, true)
			Expect(err).To(MatchError(catalog.ErrInvalidSort))
		})
	})

	Describe("After", func() {
		It("should resume keyset pages from edge cursors", func() {
			page, err := lister.After(ctx, f, "", 3)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids(page.Nodes)).To(Equal([]string{"p-29", "p-28", "p-27"}))

			edge := lister.EdgeCursor(f, page)
			next, err := lister.After(ctx, f, edge(1, page.Nodes[1]), 3)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids(next.Nodes)).To(Equal([]string{"p-27", "p-26", "p-25"}))
			hasPrev, _ := next.PageInfo.HasPreviousPage()
			Expect(hasPrev).To(BeTrue())
		})

		It("should fill searched pages to the limit", func() {
			f.SetSearch("red")
			page, err := lister.After(ctx, f, "", 5)
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Metadata.Strategy).To(Equal(catalog.StrategyFill))
			Expect(ids(page.Nodes)).To(Equal([]string{"p-27", "p-24", "p-21", "p-18", "p-15"}))
			Expect(page.Metadata.Iterations).To(BeNumerically(">", 1))
			Expect(page.Metadata.SafeguardHit).To(BeEmpty())

			end, err := page.PageInfo.EndCursor()
			Expect(err).ToNot(HaveOccurred())
			next, err := lister.After(ctx, f, *end, 5)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids(next.Nodes)).To(Equal([]string{"p-12", "p-09", "p-06", "p-03", "p-00"}))
			hasNext, _ := next.PageInfo.HasNextPage()
			Expect(hasNext).To(BeFalse())
		})

		It("should offset-page oversized genres", func() {
			f.SetGenre("new", idRange(0, 14))
			page, err := lister.After(ctx, f, "", 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids(page.Nodes)).To(Equal([]string{"p-14", "p-13", "p-12", "p-11"}))

			edge := lister.EdgeCursor(f, page)
			next, err := lister.After(ctx, f, edge(3, page.Nodes[3]), 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(ids(next.Nodes)).To(Equal([]string{"p-10", "p-09", "p-08", "p-07"}))
		})

		It("should serve an empty genre window for an offset cursor past the end", func() {
			f.SetGenre("new", idRange(0, 14))
			var (
				page *catalog.Page[*catalog.Product]
				err  error
			)
			Expect(func() { page, err = lister.After(ctx, f, *offset.EncodeCursor(math.MaxInt), 4) }).ToNot(Panic())
			Expect(err).ToNot(HaveOccurred())
			Expect(page.Nodes).To(BeEmpty())
			hasNext, _ := page.PageInfo.HasNextPage()
			Expect(hasNext).To(BeFalse())
		})

		It("should reject a malformed cursor", func() {
			_, err := lister.After(ctx, f, "not*base64", 3)
			Expect(catalog.IsInvalid(err)).To(BeTrue())

			f.SetSearch("red")
			_, err = lister.After(ctx, f, "not*base64", 3)
			Expect(catalog.IsInvalid(err)).To(BeTrue())
		})
	})

	Describe("Count", func() {
		It("should count exactly for a single query", func() {
			f.SetCategory("shawls")
			res, err := lister.Count(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.TotalItems).To(Equal(10))
			Expect(res.TotalPages).To(Equal(2))
			Expect(res.Estimated).To(BeFalse())
		})

		It("should estimate oversized genres", func() {
			f.SetGenre("new", idRange(0, 14))
			f.SetCategory("shawls")
			res, err := lister.Count(ctx, f)
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Estimated).To(BeTrue())
			Expect(res.TotalItems).To(Equal(5))
		})
	})

	Describe("products by id", func() {
		It("should load one product", func() {
			p, err := lister.Product(ctx, "p-03")
			Expect(err).ToNot(HaveOccurred())
			Expect(p.Name).To(Equal("Red Shawl"))

			_, err = lister.Product(ctx, "nope")
			Expect(err).To(MatchError(catalog.ErrNotFound))
			_, err = lister.Product(ctx, "")
			Expect(catalog.IsInvalid(err)).To(BeTrue())
		})

		It("should load many products across batches", func() {
			got, err := lister.ProductsByID(ctx, append(idRange(0, 24), "nope"))
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(HaveLen(25))
		})
	})

	It("should forget cursors on Reset", func() {
		_, err := lister.Page(ctx, f, 3, true)
		Expect(err).ToNot(HaveOccurred())
		lister.Reset()

		page, err := lister.Page(ctx, f, 3, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(page.Metadata.Replayed).To(BeTrue())
		Expect(lister.PageSize()).To(Equal(5))
	})
})
