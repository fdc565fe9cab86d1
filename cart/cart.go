// Package cart holds the shopping cart, its pricing arithmetic and checkout.
//
// All money amounts are integer rupees. Discounts are floored.
package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrItemNotFound is returned when a cart operation targets a line that
	// is not in the cart.
	ErrItemNotFound = errors.New("cart: item not found")

	// ErrInsufficientStock is returned when a line asks for more units than
	// its combination has in stock.
	ErrInsufficientStock = errors.New("cart: insufficient stock")

	// ErrProductUnavailable is returned when a line refers to a product or
	// combination that no longer exists.
	ErrProductUnavailable = errors.New("cart: product unavailable")

	// ErrEmptyCart is returned when checking out an empty cart.
	ErrEmptyCart = errors.New("cart: cart is empty")
)

// ValidationError reports a cart line that cannot be accepted.
type ValidationError struct {
	ProductID string
	Size      string
	Color     string
	Reason    string
	Err       error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cart: %s (%s/%s): %s", e.ProductID, e.Size, e.Color, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Item is one cart line. A cart holds at most one item per
// (ProductID, Size, Color).
type Item struct {
	ProductID string    `json:"product_id" firestore:"product_id"`
	Size      string    `json:"size" firestore:"size"`
	Color     string    `json:"color" firestore:"color"`
	Quantity  int       `json:"quantity" firestore:"quantity"`
	Price     *int64    `json:"price,omitempty" firestore:"price,omitempty"`
	CreatedAt time.Time `json:"created_at" firestore:"created_at"`
}

func (i Item) matches(productID, size, color string) bool {
	return i.ProductID == productID &&
		strings.EqualFold(i.Size, size) &&
		strings.EqualFold(i.Color, color)
}

// Cart is a user's cart.
type Cart struct {
	UserID string `json:"user_id"`
	Items  []Item `json:"items"`
}

// Add inserts item, or merges it into the existing line for the same
// product, size and color by adding quantities. A price on item replaces
// the stored one.
func (c *Cart) Add(item Item, now time.Time) error {
	item.ProductID = strings.TrimSpace(item.ProductID)
	item.Size = strings.TrimSpace(item.Size)
	item.Color = strings.TrimSpace(item.Color)
	if item.ProductID == "" {
		return &ValidationError{Reason: "product id is required"}
	}
	if item.Quantity <= 0 {
		return &ValidationError{ProductID: item.ProductID, Size: item.Size, Color: item.Color, Reason: "quantity must be positive"}
	}

	for i := range c.Items {
		if c.Items[i].matches(item.ProductID, item.Size, item.Color) {
			c.Items[i].Quantity += item.Quantity
			if item.Price != nil {
				c.Items[i].Price = item.Price
			}
			return nil
		}
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity sets the quantity of an existing line. A quantity of zero or
// less removes it.
func (c *Cart) SetQuantity(productID, size, color string, qty int) error {
	for i := range c.Items {
		if c.Items[i].matches(productID, size, color) {
			if qty <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
			c.Items[i].Quantity = qty
			return nil
		}
	}
	return ErrItemNotFound
}

// Remove deletes a line and reports whether it was present.
func (c *Cart) Remove(productID, size, color string) bool {
	for i := range c.Items {
		if c.Items[i].matches(productID, size, color) {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Find returns the line for product, size and color.
func (c *Cart) Find(productID, size, color string) (Item, bool) {
	for _, it := range c.Items {
		if it.matches(productID, size, color) {
			return it, true
		}
	}
	return Item{}, false
}

// ProductIDs returns the distinct product ids in the cart, in line order.
func (c *Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.Items))
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	return ids
}
