package cart_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
)

func rupees(n int64) *int64 { return &n }

var _ = DescribeTable("DiscountedPrice",
	func(price int64, pct int, expected int64) {
		Expect(cart.DiscountedPrice(price, pct)).To(Equal(expected))
	},
	Entry("round discount", int64(1000), 20, int64(800)),
	Entry("floors fractions", int64(999), 15, int64(849)),
	Entry("no discount", int64(500), 0, int64(500)),
	Entry("negative discount", int64(500), -5, int64(500)),
	Entry("full discount", int64(500), 100, int64(0)),
	Entry("over full discount", int64(500), 150, int64(0)),
)

var _ = Describe("Pricing", func() {
	shawl := &catalog.Product{
		ID: "p-1", Name: "Red Shawl", Price: 1000,
		Combinations: []catalog.Combination{
			{Size: "M", Color: "Red", Quantity: 5},
			{Size: "L", Color: "Red", Quantity: 1, Price: rupees(1200)},
		},
	}
	saree := &catalog.Product{ID: "p-2", Name: "Blue Saree", Price: 999}
	products := map[string]*catalog.Product{"p-1": shawl, "p-2": saree}
	rates := cart.DeliveryRates{Domestic: 50, International: 500}

	Describe("UnitPrice", func() {
		It("should prefer the line price, then the combination, then the product", func() {
			Expect(cart.UnitPrice(cart.Item{Size: "m", Color: "red", Price: rupees(700)}, shawl)).To(Equal(int64(700)))
			Expect(cart.UnitPrice(cart.Item{Size: "L", Color: "Red"}, shawl)).To(Equal(int64(1200)))
			Expect(cart.UnitPrice(cart.Item{Size: "M", Color: "Red"}, shawl)).To(Equal(int64(1000)))
		})
	})

	It("should charge the domestic rate for India only", func() {
		Expect(rates.Cost(" india ")).To(Equal(int64(50)))
		Expect(rates.Cost("Nepal")).To(Equal(int64(500)))
	})

	Describe("Sale", func() {
		It("should apply only to listed products of an active sale", func() {
			sale := cart.Sale{Active: true, DiscountPercent: 15, ProductIDs: []string{"p-2"}}
			Expect(sale.Applies("p-2")).To(BeTrue())
			Expect(sale.Applies("p-1")).To(BeFalse())
			sale.Active = false
			Expect(sale.Applies("p-2")).To(BeFalse())
		})
	})

	Describe("NewQuote", func() {
		It("should total lines, discounts and delivery", func() {
			items := []cart.Item{
				{ProductID: "p-1", Size: "L", Color: "Red", Quantity: 1},
				{ProductID: "p-2", Quantity: 2},
			}
			sale := cart.Sale{Active: true, DiscountPercent: 15, ProductIDs: []string{"p-2"}}

			q, err := cart.NewQuote(items, products, sale, rates, "India")
			Expect(err).ToNot(HaveOccurred())

			Expect(q.Lines).To(HaveLen(2))
			Expect(q.Lines[0].Total).To(Equal(int64(1200)))
			Expect(q.Lines[0].Discounted).To(BeFalse())
			Expect(q.Lines[1].SalePrice).To(Equal(int64(849)))
			Expect(q.Lines[1].Total).To(Equal(int64(1698)))
			Expect(q.Lines[1].ProductName).To(Equal("Blue Saree"))

			Expect(q.Subtotal).To(Equal(int64(1200 + 1998)))
			Expect(q.Total).To(Equal(int64(1200 + 1698)))
			Expect(q.Discount).To(Equal(int64(300)))
			Expect(q.Delivery).To(Equal(int64(50)))
			Expect(q.GrandTotal).To(Equal(int64(2948)))
		})

		It("should not charge delivery for an empty cart", func() {
			q, err := cart.NewQuote(nil, products, cart.Sale{}, rates, "Nepal")
			Expect(err).ToNot(HaveOccurred())
			Expect(q.GrandTotal).To(BeZero())
		})

		It("should reject lines whose product disappeared", func() {
			_, err := cart.NewQuote([]cart.Item{{ProductID: "gone", Quantity: 1}}, products, cart.Sale{}, rates, "India")
			Expect(err).To(MatchError(cart.ErrProductUnavailable))
		})
	})

	Describe("CheckStock", func() {
		It("should accept lines within stock", func() {
			Expect(cart.CheckStock([]cart.Item{
				{ProductID: "p-1", Size: "M", Color: "Red", Quantity: 5},
				{ProductID: "p-2", Quantity: 40},
			}, products)).To(Succeed())
		})

		It("should reject lines above stock", func() {
			err := cart.CheckStock([]cart.Item{{ProductID: "p-1", Size: "L", Color: "Red", Quantity: 2}}, products)
			Expect(err).To(MatchError(cart.ErrInsufficientStock))
			Expect(err).To(MatchError(ContainSubstring("only 1 left")))
		})

		It("should reject combinations the product does not offer", func() {
			err := cart.CheckStock([]cart.Item{{ProductID: "p-1", Size: "XL", Color: "Red", Quantity: 1}}, products)
			Expect(err).To(MatchError(cart.ErrProductUnavailable))
		})
	})
})
