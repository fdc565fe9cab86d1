package firestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nrfta/catalog-go/cart"
)

// Default document ids for the singleton configuration documents.
const (
	SaleDocument     = "current"
	DeliveryDocument = "rates"
)

// SaleRepository reads the storewide sale document. It implements cart.SaleSource.
type SaleRepository struct {
	Client *firestore.Client
	DocID  string
}

// NewSaleRepository creates a SaleRepository for the default document.
func NewSaleRepository(client *firestore.Client) *SaleRepository {
	return &SaleRepository{Client: client, DocID: SaleDocument}
}

func (r *SaleRepository) ref() *firestore.DocumentRef {
	return r.Client.Collection(SalesCollection).Doc(r.DocID)
}

// ActiveSale implements cart.SaleSource. A missing document means no sale.
func (r *SaleRepository) ActiveSale(ctx context.Context) (cart.Sale, error) {
	if r == nil || r.Client == nil {
		return cart.Sale{}, errNilClient
	}
	snap, err := r.ref().Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return cart.Sale{}, nil
		}
		return cart.Sale{}, fmt.Errorf("load sale: %w", err)
	}
	return decodeSale(snap)
}

// Watch streams sale changes to fn until ctx is done. The first call to fn
// carries the current state.
func (r *SaleRepository) Watch(ctx context.Context, fn func(cart.Sale)) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	it := r.ref().Snapshots(ctx)
	defer it.Stop()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("watch sale: %w", err)
		}
		if !snap.Exists() {
			fn(cart.Sale{})
			continue
		}
		sale, err := decodeSale(snap)
		if err != nil {
			return err
		}
		fn(sale)
	}
}

func decodeSale(snap *firestore.DocumentSnapshot) (cart.Sale, error) {
	var sale cart.Sale
	if err := snap.DataTo(&sale); err != nil {
		return cart.Sale{}, fmt.Errorf("decode sale: %w", err)
	}
	return sale, nil
}

// LiveSale serves the latest sale seen by a SaleRepository watch, so checkout
// does not read the sale document on every quote.
type LiveSale struct {
	repo   *SaleRepository
	logger *zap.Logger

	mu    sync.RWMutex
	sale  cart.Sale
	ready bool
}

// NewLiveSale creates a LiveSale. Call Run to start watching.
func NewLiveSale(repo *SaleRepository, logger *zap.Logger) *LiveSale {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LiveSale{repo: repo, logger: logger}
}

// Run watches the sale document until ctx is done.
func (l *LiveSale) Run(ctx context.Context) error {
	return l.repo.Watch(ctx, func(s cart.Sale) {
		l.mu.Lock()
		l.sale, l.ready = s, true
		l.mu.Unlock()
		l.logger.Info("sale updated",
			zap.Bool("active", s.Active),
			zap.Int("discount", s.DiscountPercent),
			zap.Int("products", len(s.ProductIDs)),
		)
	})
}

// ActiveSale implements cart.SaleSource, reading through until the first
// snapshot arrives.
func (l *LiveSale) ActiveSale(ctx context.Context) (cart.Sale, error) {
	l.mu.RLock()
	sale, ready := l.sale, l.ready
	l.mu.RUnlock()
	if ready {
		return sale, nil
	}
	return l.repo.ActiveSale(ctx)
}

// DeliveryRepository reads delivery rates. It implements cart.DeliverySource.
type DeliveryRepository struct {
	Client *firestore.Client
	DocID  string
}

// NewDeliveryRepository creates a DeliveryRepository for the default document.
func NewDeliveryRepository(client *firestore.Client) *DeliveryRepository {
	return &DeliveryRepository{Client: client, DocID: DeliveryDocument}
}

// DeliveryRates implements cart.DeliverySource.
func (r *DeliveryRepository) DeliveryRates(ctx context.Context) (cart.DeliveryRates, error) {
	if r == nil || r.Client == nil {
		return cart.DeliveryRates{}, errNilClient
	}
	snap, err := r.Client.Collection(DeliveryCollection).Doc(r.DocID).Get(ctx)
	if err != nil {
		return cart.DeliveryRates{}, notFound(err, "delivery rates")
	}
	var rates cart.DeliveryRates
	if err := snap.DataTo(&rates); err != nil {
		return cart.DeliveryRates{}, fmt.Errorf("decode delivery rates: %w", err)
	}
	return rates, nil
}

// OrderRepository writes placed orders. It implements cart.OrderRepository.
type OrderRepository struct {
	Client *firestore.Client
}

// NewOrderRepository creates an OrderRepository.
func NewOrderRepository(client *firestore.Client) *OrderRepository {
	return &OrderRepository{Client: client}
}

// CreateOrder stores the order and links it to the user in one transaction.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *cart.Order) error {
	if r == nil || r.Client == nil {
		return errNilClient
	}
	if o == nil || o.ID == "" {
		return errors.New("firestore: order id is required")
	}

	orderRef := r.Client.Collection(OrdersCollection).Doc(o.ID)
	userRef := r.Client.Collection(UsersCollection).Doc(o.UserID)
	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(orderRef, orderToDoc(o)); err != nil {
			return fmt.Errorf("create order %s: %w", o.ID, err)
		}
		return tx.Set(userRef, map[string]any{
			"orders": firestore.ArrayUnion(o.ID),
		}, firestore.MergeAll)
	})
}

func orderToDoc(o *cart.Order) map[string]any {
	lines := make([]map[string]any, 0, len(o.Quote.Lines))
	for _, l := range o.Quote.Lines {
		lines = append(lines, map[string]any{
			"product_id":   l.Item.ProductID,
			"product_name": l.ProductName,
			"size":         l.Item.Size,
			"color":        l.Item.Color,
			"quantity":     l.Item.Quantity,
			"unit_price":   l.UnitPrice,
			"sale_price":   l.SalePrice,
			"total":        l.Total,
		})
	}
	return map[string]any{
		"user_id":     o.UserID,
		"status":      o.Status,
		"created_at":  o.CreatedAt.UTC(),
		"address":     o.Address,
		"lines":       lines,
		"subtotal":    o.Quote.Subtotal,
		"discount":    o.Quote.Discount,
		"delivery":    o.Quote.Delivery,
		"grand_total": o.Quote.GrandTotal,
		"country":     o.Quote.Country,
	}
}
