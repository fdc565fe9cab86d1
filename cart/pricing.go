package cart

import (
	"fmt"
	"strings"

	"github.com/nrfta/catalog-go"
)

// Sale is the storewide sale configuration.
type Sale struct {
	Active          bool     `json:"active" firestore:"active"`
	DiscountPercent int      `json:"discount" firestore:"discount"`
	ProductIDs      []string `json:"product_ids" firestore:"product_ids"`
}

// Applies reports whether the sale discounts productID.
func (s Sale) Applies(productID string) bool {
	if !s.Active || s.DiscountPercent <= 0 {
		return false
	}
	for _, id := range s.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// DiscountedPrice applies a percentage discount with integer floor:
// price × (100 − pct) / 100. pct is clamped to [0, 100].
func DiscountedPrice(price int64, pct int) int64 {
	if pct <= 0 {
		return price
	}
	if pct >= 100 {
		return 0
	}
	return price * int64(100-pct) / 100
}

// UnitPrice resolves the price of one unit of item: the price stored on the
// line, else the matching combination's price, else the product base price.
func UnitPrice(item Item, p *catalog.Product) int64 {
	if item.Price != nil {
		return *item.Price
	}
	if c, ok := p.Combination(item.Size, item.Color); ok && c.Price != nil {
		return *c.Price
	}
	return p.Price
}

// DeliveryRates are flat delivery charges by destination.
type DeliveryRates struct {
	Domestic      int64 `json:"india" firestore:"india"`
	International int64 `json:"international" firestore:"international"`
}

// DomesticCountry is the country charged the domestic rate.
const DomesticCountry = "India"

// Cost returns the charge for delivering to country.
func (r DeliveryRates) Cost(country string) int64 {
	if strings.EqualFold(strings.TrimSpace(country), DomesticCountry) {
		return r.Domestic
	}
	return r.International
}

// Line is a priced cart line.
type Line struct {
	Item        Item   `json:"item"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	SalePrice   int64  `json:"sale_price"`
	Discounted  bool   `json:"discounted"`
	Total       int64  `json:"total"`
}

// Quote is a priced cart.
type Quote struct {
	Lines      []Line `json:"lines"`
	Subtotal   int64  `json:"subtotal"`
	Discount   int64  `json:"discount"`
	Total      int64  `json:"total"`
	Delivery   int64  `json:"delivery"`
	GrandTotal int64  `json:"grand_total"`
	Country    string `json:"country"`
}

// NewQuote prices items. Every item's product must be present in products.
func NewQuote(items []Item, products map[string]*catalog.Product, sale Sale, rates DeliveryRates, country string) (Quote, error) {
	q := Quote{Lines: make([]Line, 0, len(items)), Country: country}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return Quote{}, &ValidationError{
				ProductID: it.ProductID, Size: it.Size, Color: it.Color,
				Reason: "product no longer exists", Err: ErrProductUnavailable,
			}
		}

		unit := UnitPrice(it, p)
		line := Line{Item: it, ProductName: p.Name, UnitPrice: unit, SalePrice: unit}
		if sale.Applies(it.ProductID) {
			line.SalePrice = DiscountedPrice(unit, sale.DiscountPercent)
			line.Discounted = true
		}
		qty := int64(it.Quantity)
		line.Total = line.SalePrice * qty

		q.Subtotal += unit * qty
		q.Total += line.Total
		q.Lines = append(q.Lines, line)
	}
	q.Discount = q.Subtotal - q.Total
	if len(q.Lines) > 0 {
		q.Delivery = rates.Cost(country)
	}
	q.GrandTotal = q.Total + q.Delivery
	return q, nil
}

// CheckStock verifies every item against its combination stock.
func CheckStock(items []Item, products map[string]*catalog.Product) error {
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return &ValidationError{
				ProductID: it.ProductID, Size: it.Size, Color: it.Color,
				Reason: "product no longer exists", Err: ErrProductUnavailable,
			}
		}
		if err := checkItem(it, p); err != nil {
			return err
		}
	}
	return nil
}

func checkItem(it Item, p *catalog.Product) error {
	if len(p.Combinations) == 0 {
		return nil
	}
	c, ok := p.Combination(it.Size, it.Color)
	if !ok {
		return &ValidationError{
			ProductID: it.ProductID, Size: it.Size, Color: it.Color,
			Reason: "combination not offered", Err: ErrProductUnavailable,
		}
	}
	if it.Quantity > c.Quantity {
		return &ValidationError{
			ProductID: it.ProductID, Size: it.Size, Color: it.Color,
			Reason: fmt.Sprintf("only %d left in stock", c.Quantity), Err: ErrInsufficientStock,
		}
	}
	return nil
}
