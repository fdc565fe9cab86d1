package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
)

// Repository persists carts keyed by user id.
type Repository interface {
	// Load returns an empty cart for a user without one.
	Load(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
}

// ProductSource loads products by id.
type ProductSource interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]*catalog.Product, error)
}

// SaleSource returns the current sale configuration.
type SaleSource interface {
	ActiveSale(ctx context.Context) (Sale, error)
}

// DeliverySource returns the current delivery rates.
type DeliverySource interface {
	DeliveryRates(ctx context.Context) (DeliveryRates, error)
}

// OrderRepository persists placed orders.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *Order) error
}

// Address is a shipping address.
type Address struct {
	Name       string `json:"name" firestore:"name"`
	Phone      string `json:"phone" firestore:"phone"`
	Line1      string `json:"line1" firestore:"line1"`
	Line2      string `json:"line2,omitempty" firestore:"line2,omitempty"`
	City       string `json:"city" firestore:"city"`
	State      string `json:"state" firestore:"state"`
	PostalCode string `json:"postal_code" firestore:"postal_code"`
	Country    string `json:"country" firestore:"country"`
}

// Validate checks the fields checkout needs.
func (a Address) Validate() error {
	fields := []struct{ name, value string }{
		{"name", a.Name},
		{"line1", a.Line1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &catalog.ValidationError{Field: f.name, Reason: "is required"}
		}
	}
	return nil
}

// OrderStatusPlaced is the status of a newly placed order.
const OrderStatusPlaced = "placed"

// Order is a placed order.
type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Quote     Quote     `json:"quote"`
	Address   Address   `json:"address"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Deps are the collaborators of a Service.
type Deps struct {
	Carts    Repository
	Products ProductSource
	Sales    SaleSource
	Delivery DeliverySource
	Orders   OrderRepository
	Logger   *zap.Logger
	Clock    func() time.Time
	NewID    func() string
}

// Service implements cart mutations, quoting and checkout.
type Service struct {
	carts    Repository
	products ProductSource
	sales    SaleSource
	delivery DeliverySource
	orders   OrderRepository
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewService validates deps and creates a Service.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Carts == nil:
		return nil, errors.New("cart: cart repository is required")
	case deps.Products == nil:
		return nil, errors.New("cart: product source is required")
	case deps.Sales == nil:
		return nil, errors.New("cart: sale source is required")
	case deps.Delivery == nil:
		return nil, errors.New("cart: delivery source is required")
	case deps.Orders == nil:
		return nil, errors.New("cart: order repository is required")
	}

	s := &Service{
		carts:    deps.Carts,
		products: deps.Products,
		sales:    deps.Sales,
		delivery: deps.Delivery,
		orders:   deps.Orders,
		logger:   deps.Logger,
		now:      deps.Clock,
		newID:    deps.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s, nil
}

// Get returns the user's cart.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return c, nil
}

// AddItem adds item to the user's cart. The combination must exist and the
// merged quantity must fit its stock; otherwise nothing is written.
func (s *Service) AddItem(ctx context.Context, userID string, item Item) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	products, err := s.products.ProductsByID(ctx, []string{item.ProductID})
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	p, ok := products[item.ProductID]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", item.ProductID, catalog.ErrNotFound)
	}

	merged := item
	if existing, ok := c.Find(item.ProductID, item.Size, item.Color); ok {
		merged.Quantity += existing.Quantity
	}
	if merged.Quantity > 0 {
		if err := checkItem(merged, p); err != nil {
			return nil, err
		}
	}

	if err := c.Add(item, s.now()); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// SetQuantity changes a line's quantity; zero removes it.
func (s *Service) SetQuantity(ctx context.Context, userID, productID, size, color string, qty int) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if qty > 0 {
		products, err := s.products.ProductsByID(ctx, []string{productID})
		if err != nil {
			return nil, fmt.Errorf("load product: %w", err)
		}
		p, ok := products[productID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", productID, catalog.ErrNotFound)
		}
		if err := checkItem(Item{ProductID: productID, Size: size, Color: color, Quantity: qty}, p); err != nil {
			return nil, err
		}
	}
	if err := c.SetQuantity(productID, size, color, qty); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// RemoveItem deletes a line from the user's cart.
func (s *Service) RemoveItem(ctx context.Context, userID, productID, size, color string) (*Cart, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(productID, size, color) {
		return nil, ErrItemNotFound
	}
	if err := s.carts.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	return c, nil
}

// Quote prices the user's cart for delivery to country.
func (s *Service) Quote(ctx context.Context, userID, country string) (Quote, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	q, _, err := s.quote(ctx, c, country)
	return q, err
}

func (s *Service) quote(ctx context.Context, c *Cart, country string) (Quote, map[string]*catalog.Product, error) {
	products, err := s.products.ProductsByID(ctx, c.ProductIDs())
	if err != nil {
		return Quote{}, nil, fmt.Errorf("load cart products: %w", err)
	}
	sale, err := s.sales.ActiveSale(ctx)
	if err != nil {
		return Quote{}, nil, fmt.Errorf("load sale: %w", err)
	}
	rates, err := s.delivery.DeliveryRates(ctx)
	if err != nil {
		return Quote{}, nil, fmt.Errorf("load delivery rates: %w", err)
	}
	q, err := NewQuote(c.Items, products, sale, rates, country)
	if err != nil {
		return Quote{}, nil, err
	}
	return q, products, nil
}

// PlaceOrder checks stock, prices the cart, records the order and empties
// the cart.
func (s *Service) PlaceOrder(ctx context.Context, userID string, addr Address) (*Order, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	q, products, err := s.quote(ctx, c, addr.Country)
	if err != nil {
		return nil, err
	}
	if err := CheckStock(c.Items, products); err != nil {
		return nil, err
	}

	order := &Order{
		ID:        s.newID(),
		UserID:    userID,
		Quote:     q,
		Address:   addr,
		Status:    OrderStatusPlaced,
		CreatedAt: s.now(),
	}
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	c.Clear()
	if err := s.carts.Save(ctx, c); err != nil {
		s.logger.Error("order placed but cart not cleared",
			zap.String("order_id", order.ID),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("grand_total", q.GrandTotal),
	)
	return order, nil
}
