package catalog_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/catalog-go"
)

// idEncoder uses the product id as its cursor.
type idEncoder struct{}

func (idEncoder) Encode(p *catalog.Product) (*string, error) {
	c := "c:" + p.ID
	return &c, nil
}

func (idEncoder) Decode(cursor string) (*catalog.CursorPosition, error) {
	return &catalog.CursorPosition{Values: map[string]any{"id": strings.TrimPrefix(cursor, "c:")}}, nil
}

type productView struct {
	ID   string
	Name string
}

func toView(p *catalog.Product) (*productView, error) {
	return &productView{ID: p.ID, Name: strings.ToUpper(p.Name)}, nil
}

var _ = Describe("BuildConnection", func() {
	var (
		ctx  context.Context
		page *catalog.Page[*catalog.Product]
	)

	BeforeEach(func() {
		ctx = context.Background()
		nodes := []*catalog.Product{{ID: "a", Name: "red shawl"}, {ID: "b", Name: "blue saree"}}
		page = &catalog.Page[*catalog.Product]{
			Number:   2,
			Nodes:    nodes,
			PageInfo: catalog.NewPageInfo[*catalog.Product](idEncoder{}, nodes, 2, true),
			Metadata: catalog.Metadata{Partial: true},
		}
	})

	It("should transform nodes and attach edge cursors", func() {
		conn, err := catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(false),
			func(i int, p *catalog.Product) string { return p.ID + ":" + string(rune('0'+i)) },
			toView,
		)
		Expect(err).ToNot(HaveOccurred())

		Expect(conn.Nodes).To(HaveLen(2))
		Expect(conn.Nodes[0].Name).To(Equal("RED SHAWL"))
		Expect(conn.Edges[1].Cursor).To(Equal("b:1"))
		Expect(conn.Edges[1].Node).To(BeIdenticalTo(conn.Nodes[1]))
		Expect(conn.Page).To(Equal(2))
		Expect(conn.Partial).To(BeTrue())

		Expect(conn.PageInfo.HasNextPage).To(BeTrue())
		Expect(conn.PageInfo.HasPreviousPage).To(BeTrue())
		Expect(*conn.PageInfo.StartCursor).To(Equal("c:a"))
		Expect(*conn.PageInfo.EndCursor).To(Equal("c:b"))
		Expect(conn.PageInfo.TotalCount).To(BeNil())
	})

	It("should resolve the total only when asked", func() {
		calls := 0
		page.PageInfo.WithTotalCount(func() (*int, error) {
			calls++
			n := 25
			return &n, nil
		})

		conn, err := catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(false),
			func(int, *catalog.Product) string { return "" }, toView)
		Expect(err).ToNot(HaveOccurred())
		Expect(conn.PageInfo.TotalCount).To(BeNil())
		Expect(calls).To(Equal(0))

		for range 2 {
			conn, err = catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(true),
				func(int, *catalog.Product) string { return "" }, toView)
			Expect(err).ToNot(HaveOccurred())
		}
		Expect(*conn.PageInfo.TotalCount).To(Equal(25))
		Expect(calls).To(Equal(1))
	})

	It("should surface total count errors", func() {
		page.PageInfo.WithTotalCount(func() (*int, error) { return nil, errors.New("count failed") })
		_, err := catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(true),
			func(int, *catalog.Product) string { return "" }, toView)
		Expect(err).To(MatchError(ContainSubstring("count failed")))
	})

	It("should report the index of a failed transform", func() {
		_, err := catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(false),
			func(int, *catalog.Product) string { return "" },
			func(p *catalog.Product) (*productView, error) {
				if p.ID == "b" {
					return nil, errors.New("bad product")
				}
				return toView(p)
			})
		Expect(err).To(MatchError(ContainSubstring("index 1")))
	})

	It("should reject a nil page", func() {
		_, err := catalog.BuildConnection[*catalog.Product, *productView](ctx, nil, catalog.NewPageInfoResolver(false),
			func(int, *catalog.Product) string { return "" }, toView)
		Expect(err).To(HaveOccurred())
	})

	It("should build empty page info without cursors", func() {
		pi := catalog.NewPageInfo[*catalog.Product](idEncoder{}, nil, 1, false)
		start, err := pi.StartCursor()
		Expect(err).ToNot(HaveOccurred())
		Expect(start).To(BeNil())
		prev, _ := pi.HasPreviousPage()
		Expect(prev).To(BeFalse())
	})
})

var _ = Describe("Product", func() {
	p := &catalog.Product{
		ID:   "p-01",
		Tags: []string{"re"},
		Combinations: []catalog.Combination{
			{Size: "M", Color: "Red", Quantity: 3},
			{Size: "L", Color: "Red", Quantity: 0, Price: func() *int64 { n := int64(900); return &n }()},
		},
	}

	It("should match combinations ignoring case and spaces", func() {
		c, ok := p.Combination(" m ", "RED")
		Expect(ok).To(BeTrue())
		Expect(c.Quantity).To(Equal(3))

		_, ok = p.Combination("XL", "red")
		Expect(ok).To(BeFalse())
	})

	It("should deep copy on Clone", func() {
		cp := p.Clone()
		cp.Tags[0] = "zz"
		*cp.Combinations[1].Price = 1
		Expect(p.Tags[0]).To(Equal("re"))
		Expect(*p.Combinations[1].Price).To(Equal(int64(900)))
	})
})
