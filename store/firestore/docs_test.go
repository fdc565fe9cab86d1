package firestore

import (
	"context"
	"errors"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
)

var _ = Describe("document mapping", func() {
	var (
		ctx    context.Context
		client *firestore.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		// The emulator setting skips credentials; nothing here dials out.
		prev, had := os.LookupEnv("FIRESTORE_EMULATOR_HOST")
		Expect(os.Setenv("FIRESTORE_EMULATOR_HOST", "localhost:8681")).To(Succeed())
		DeferCleanup(func() {
			if had {
				os.Setenv("FIRESTORE_EMULATOR_HOST", prev)
			} else {
				os.Unsetenv("FIRESTORE_EMULATOR_HOST")
			}
		})

		var err error
		client, err = NewClient(ctx, "catalog-test", "")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(client.Close)
	})

	It("should map products to documents and back", func() {
		price := int64(1299)
		p := &catalog.Product{
			ID:         "p-1",
			Name:       "Red Shawl",
			Price:      999,
			CategoryID: "shawls",
			CreatedAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800)),
			Tags:       []string{"re", "sh"},
			Combinations: []catalog.Combination{
				{Size: "M", Color: "red", Quantity: 3},
				{Size: "L", Color: "red", Quantity: 1, Price: &price},
			},
		}

		d := productToDoc(p)
		Expect(d.Category).To(Equal("shawls"))
		Expect(d.Tag).To(Equal([]string{"re", "sh"}))
		Expect(d.CreatedAt.Location()).To(Equal(time.UTC))

		back := productFromDoc("p-1", d)
		Expect(back.CreatedAt.Equal(p.CreatedAt)).To(BeTrue())
		back.CreatedAt = p.CreatedAt
		Expect(back).To(Equal(p))
	})

	It("should map reviews with UTC timestamps", func() {
		r := catalog.Review{UserID: "u-1", Name: "Asha", Rating: 5, Comment: "lovely",
			CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 19800))}
		d := reviewToDoc(r)
		Expect(d.Rating).To(Equal(5))
		Expect(d.CreatedAt).To(Equal(time.Date(2024, 3, 1, 4, 30, 0, 0, time.UTC)))
	})

	It("should turn id membership into document references", func() {
		col := client.Collection(ProductsCollection)
		v := constraintValue(col, catalog.Constraint{Field: catalog.FieldID, Op: catalog.OpIn, Value: []string{"p-1", "p-2"}})
		refs, ok := v.([]*firestore.DocumentRef)
		Expect(ok).To(BeTrue())
		Expect(refs).To(HaveLen(2))
		Expect(refs[1].ID).To(Equal("p-2"))

		Expect(constraintValue(col, catalog.Constraint{Field: catalog.FieldTag, Op: catalog.OpArrayContains, Value: "re"})).
			To(Equal("re"))
	})

	It("should turn the id of a cursor into a document reference", func() {
		col := client.Collection(ProductsCollection)
		orderBy := []catalog.OrderBy{{Field: catalog.FieldPrice}, {Field: catalog.FieldID}}
		pos := catalog.CursorFor(&catalog.Product{ID: "p-7", Price: 500}, orderBy)

		values, err := cursorValues(col, pos, orderBy)
		Expect(err).ToNot(HaveOccurred())
		Expect(values).To(HaveLen(2))
		Expect(values[0]).To(BeEquivalentTo(500))
		ref, ok := values[1].(*firestore.DocumentRef)
		Expect(ok).To(BeTrue())
		Expect(ref.ID).To(Equal("p-7"))
	})

	It("should reject invalid queries before sending them", func() {
		s := NewProductStore(client)
		_, err := s.build(catalog.Query{}.Where(catalog.FieldID, catalog.OpIn, []string{}))
		Expect(err).To(MatchError(catalog.ErrEmptyMembership))

		_, err = s.build(catalog.Query{}.Where("colour", catalog.OpEqual, "red"))
		Expect(catalog.IsInvalid(err)).To(BeTrue())

		_, err = s.build(catalog.Query{}.
			Where(catalog.FieldCategory, catalog.OpEqual, "shawls").
			Order(catalog.FieldCreatedAt, true).
			Order(catalog.FieldID, true).
			WithLimit(11))
		Expect(err).ToNot(HaveOccurred())
	})

	It("should map placed orders", func() {
		o := &cart.Order{
			ID:     "o-1",
			UserID: "u-1",
			Status: "placed",
			Quote: cart.Quote{
				Lines: []cart.Line{{
					Item:        cart.Item{ProductID: "p-1", Size: "M", Color: "red", Quantity: 2},
					ProductName: "Red Shawl",
					UnitPrice:   1000,
					SalePrice:   800,
					Total:       1600,
				}},
				Subtotal:   2000,
				Discount:   400,
				Delivery:   50,
				GrandTotal: 1650,
				Country:    "India",
			},
		}
		d := orderToDoc(o)
		Expect(d["grand_total"]).To(BeEquivalentTo(1650))
		lines := d["lines"].([]map[string]any)
		Expect(lines).To(HaveLen(1))
		Expect(lines[0]["sale_price"]).To(BeEquivalentTo(800))
	})
})

var _ = Describe("errors", func() {
	It("should map NotFound to catalog.ErrNotFound", func() {
		err := notFound(status.Error(codes.NotFound, "missing"), "genre g-1")
		Expect(err).To(MatchError(catalog.ErrNotFound))
		Expect(err.Error()).To(HavePrefix("genre g-1"))

		other := status.Error(codes.Unavailable, "down")
		Expect(errors.Is(notFound(other, "genre g-1"), catalog.ErrNotFound)).To(BeFalse())
	})

	It("should refuse to work without a client", func() {
		ctx := context.Background()
		var products *ProductStore
		_, err := products.Fetch(ctx, catalog.Query{})
		Expect(err).To(MatchError(errNilClient))

		_, err = (&UserStore{}).Load(ctx, "u-1")
		Expect(err).To(MatchError(errNilClient))

		_, err = (&SaleRepository{}).ActiveSale(ctx)
		Expect(err).To(MatchError(errNilClient))

		Expect((&OrderRepository{}).CreateOrder(ctx, &cart.Order{ID: "o-1"})).To(MatchError(errNilClient))
	})
})
