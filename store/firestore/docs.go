package firestore

import (
	"time"

	"cloud.google.com/go/firestore"

	"github.com/nrfta/catalog-go"
)

// fieldPaths maps catalog fields to document field paths.
var fieldPaths = map[string]string{
	catalog.FieldID:        firestore.DocumentID,
	catalog.FieldName:      "name",
	catalog.FieldPrice:     "price",
	catalog.FieldCategory:  "category",
	catalog.FieldCreatedAt: "created_at",
	catalog.FieldTag:       "tag",
}

type productDoc struct {
	Name         string           `firestore:"name"`
	Price        int64            `firestore:"price"`
	Category     string           `firestore:"category,omitempty"`
	CreatedAt    time.Time        `firestore:"created_at"`
	Tag          []string         `firestore:"tag"`
	Combinations []combinationDoc `firestore:"combinations,omitempty"`
}

type combinationDoc struct {
	Size     string `firestore:"size"`
	Color    string `firestore:"color"`
	Quantity int    `firestore:"quantity"`
	Price    *int64 `firestore:"price,omitempty"`
}

type reviewDoc struct {
	UserID    string    `firestore:"user_id"`
	Name      string    `firestore:"name"`
	Rating    int       `firestore:"rating"`
	Comment   string    `firestore:"comment"`
	CreatedAt time.Time `firestore:"created_at"`
}

type genreDoc struct {
	Name       string   `firestore:"name"`
	ProductIDs []string `firestore:"product_ids"`
}

func docToProduct(snap *firestore.DocumentSnapshot) (*catalog.Product, error) {
	var d productDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return productFromDoc(snap.Ref.ID, d), nil
}

func productFromDoc(id string, d productDoc) *catalog.Product {
	p := &catalog.Product{
		ID:         id,
		Name:       d.Name,
		Price:      d.Price,
		CategoryID: d.Category,
		CreatedAt:  d.CreatedAt.UTC(),
		Tags:       d.Tag,
	}
	for _, c := range d.Combinations {
		p.Combinations = append(p.Combinations, catalog.Combination{
			Size:     c.Size,
			Color:    c.Color,
			Quantity: c.Quantity,
			Price:    c.Price,
		})
	}
	return p
}

func productToDoc(p *catalog.Product) productDoc {
	d := productDoc{
		Name:      p.Name,
		Price:     p.Price,
		Category:  p.CategoryID,
		CreatedAt: p.CreatedAt.UTC(),
		Tag:       p.Tags,
	}
	for _, c := range p.Combinations {
		d.Combinations = append(d.Combinations, combinationDoc{
			Size:     c.Size,
			Color:    c.Color,
			Quantity: c.Quantity,
			Price:    c.Price,
		})
	}
	return d
}

func reviewToDoc(r catalog.Review) reviewDoc {
	return reviewDoc{
		UserID:    r.UserID,
		Name:      r.Name,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// cursorValues converts a cursor into StartAfter arguments, turning the id
// into a document reference.
func cursorValues(col *firestore.CollectionRef, pos *catalog.CursorPosition, orderBy []catalog.OrderBy) ([]any, error) {
	values, err := pos.Ordered(orderBy)
	if err != nil {
		return nil, err
	}
	for i, ob := range orderBy {
		if ob.Field == catalog.FieldID {
			id, _ := values[i].(string)
			values[i] = col.Doc(id)
		}
	}
	return values, nil
}

// constraintValue converts a constraint value into what the Firestore client
// expects for its field: document references for id membership.
func constraintValue(col *firestore.CollectionRef, c catalog.Constraint) any {
	if c.Field != catalog.FieldID {
		return c.Value
	}
	switch v := c.Value.(type) {
	case []string:
		refs := make([]*firestore.DocumentRef, len(v))
		for i, id := range v {
			refs[i] = col.Doc(id)
		}
		return refs
	case string:
		return col.Doc(v)
	}
	return c.Value
}
