package memory

import (
	"context"
	"fmt"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
)

// PutGenre stores a genre's product ids.
func (s *Store) PutGenre(id string, productIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genres[id] = append([]string(nil), productIDs...)
}

// GenreProductIDs implements catalog.GenreSource.
func (s *Store) GenreProductIDs(_ context.Context, genreID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.genres[genreID]
	if !ok {
		return nil, fmt.Errorf("genre %s: %w", genreID, catalog.ErrNotFound)
	}
	return append([]string(nil), ids...), nil
}

// Load implements cart.Repository.
func (s *Store) Load(_ context.Context, userID string) (*cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[userID]
	if !ok {
		return &cart.Cart{UserID: userID}, nil
	}
	return &cart.Cart{UserID: userID, Items: append([]cart.Item(nil), c.Items...)}, nil
}

// Save implements cart.Repository.
func (s *Store) Save(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.UserID] = &cart.Cart{UserID: c.UserID, Items: append([]cart.Item(nil), c.Items...)}
	return nil
}

// SetSale replaces the sale configuration.
func (s *Store) SetSale(sale cart.Sale) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sale = sale
}

// ActiveSale implements cart.SaleSource.
func (s *Store) ActiveSale(context.Context) (cart.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sale, nil
}

// SetDeliveryRates replaces the delivery rates.
func (s *Store) SetDeliveryRates(r cart.DeliveryRates) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = r
}

// DeliveryRates implements cart.DeliverySource.
func (s *Store) DeliveryRates(context.Context) (cart.DeliveryRates, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rates, nil
}

// CreateOrder implements cart.OrderRepository.
func (s *Store) CreateOrder(_ context.Context, o *cart.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

// Order returns a placed order.
func (s *Store) Order(_ context.Context, id string) (*cart.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, catalog.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}
