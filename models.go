package catalog

import (
	"strings"
	"time"
)

// Product is a catalog document. Products are created and edited out of band
// by admin tooling; the storefront only reads them.
type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
	CategoryID string    `json:"category_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Tags holds the two-character prefixes of the words in Name. The backing
	// store cannot do substring search, so a search term is first matched
	// against these prefixes and refined client-side.
	Tags []string `json:"tag,omitempty"`

	Combinations []Combination `json:"combinations,omitempty"`
}

// Combination is a purchasable size/color variant with its own stock and an
// optional price override.
type Combination struct {
	Size     string `json:"size"`
	Color    string `json:"color"`
	Quantity int    `json:"quantity"`
	Price    *int64 `json:"price,omitempty"`
}

// Combination returns the variant matching size and color.
// Matching ignores case and surrounding whitespace.
func (p *Product) Combination(size, color string) (Combination, bool) {
	if p == nil {
		return Combination{}, false
	}
	size = strings.TrimSpace(size)
	color = strings.TrimSpace(color)
	for _, c := range p.Combinations {
		if strings.EqualFold(strings.TrimSpace(c.Size), size) &&
			strings.EqualFold(strings.TrimSpace(c.Color), color) {
			return c, true
		}
	}
	return Combination{}, false
}

// Clone returns a deep copy of the product.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	if p.Combinations != nil {
		cp.Combinations = make([]Combination, len(p.Combinations))
		for i, c := range p.Combinations {
			cp.Combinations[i] = c
			if c.Price != nil {
				price := *c.Price
				cp.Combinations[i].Price = &price
			}
		}
	}
	return &cp
}

// Review is a customer review appended to a product document.
type Review struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
