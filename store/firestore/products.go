package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"

	"github.com/nrfta/catalog-go"
)

const countAlias = "all"

// ProductStore implements catalog.Store and catalog.GenreSource.
type ProductStore struct {
	Client *firestore.Client
}

// NewProductStore creates a ProductStore.
func NewProductStore(client *firestore.Client) *ProductStore {
	return &ProductStore{Client: client}
}

func (s *ProductStore) col() *firestore.CollectionRef {
	return s.Client.Collection(ProductsCollection)
}

// Fetch implements catalog.Store.
func (s *ProductStore) Fetch(ctx context.Context, q catalog.Query) ([]*catalog.Product, error) {
	if s == nil || s.Client == nil {
		return nil, errNilClient
	}
	fq, err := s.build(q)
	if err != nil {
		return nil, err
	}

	it := fq.Documents(ctx)
	defer it.Stop()

	var out []*catalog.Product
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query products: %w", err)
		}
		p, err := docToProduct(snap)
		if err != nil {
			return nil, fmt.Errorf("decode product %s: %w", snap.Ref.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Count implements catalog.Store with a server-side count aggregation.
func (s *ProductStore) Count(ctx context.Context, q catalog.Query) (int64, error) {
	if s == nil || s.Client == nil {
		return 0, errNilClient
	}
	fq, err := s.build(q.Unpaged())
	if err != nil {
		return 0, err
	}

	res, err := fq.NewAggregationQuery().WithCount(countAlias).Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	v, ok := res[countAlias].(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("count products: unexpected aggregation result %T", res[countAlias])
	}
	return v.GetIntegerValue(), nil
}

func (s *ProductStore) build(q catalog.Query) (firestore.Query, error) {
	if err := q.Validate(); err != nil {
		return firestore.Query{}, err
	}

	col := s.col()
	fq := col.Query
	for _, c := range q.Constraints {
		path, ok := fieldPaths[c.Field]
		if !ok {
			return firestore.Query{}, &catalog.ValidationError{Field: c.Field, Reason: "unknown field"}
		}
		fq = fq.Where(path, string(c.Op), constraintValue(col, c))
	}
	for _, ob := range q.OrderBy {
		path, ok := fieldPaths[ob.Field]
		if !ok {
			return firestore.Query{}, &catalog.ValidationError{Field: ob.Field, Reason: "unknown field"}
		}
		dir := firestore.Asc
		if ob.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(path, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}
	if q.StartAfter != nil {
		values, err := cursorValues(col, q.StartAfter, q.OrderBy)
		if err != nil {
			return firestore.Query{}, err
		}
		fq = fq.StartAfter(values...)
	}
	return fq, nil
}

// Put writes a product document. Tags are stored as given.
func (s *ProductStore) Put(ctx context.Context, p *catalog.Product) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	if strings.TrimSpace(p.ID) == "" {
		return &catalog.ValidationError{Field: "id", Reason: "is required"}
	}
	if _, err := s.col().Doc(p.ID).Set(ctx, productToDoc(p)); err != nil {
		return fmt.Errorf("put product %s: %w", p.ID, err)
	}
	return nil
}

// AddReview appends a review to a product atomically.
func (s *ProductStore) AddReview(ctx context.Context, productID string, r catalog.Review) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	_, err := s.col().Doc(productID).Update(ctx, []firestore.Update{
		{Path: "reviews", Value: firestore.ArrayUnion(reviewToDoc(r))},
	})
	if err != nil {
		return notFound(err, "add review to product "+productID)
	}
	return nil
}

// RemoveReview removes an identical review from a product atomically.
func (s *ProductStore) RemoveReview(ctx context.Context, productID string, r catalog.Review) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	_, err := s.col().Doc(productID).Update(ctx, []firestore.Update{
		{Path: "reviews", Value: firestore.ArrayRemove(reviewToDoc(r))},
	})
	if err != nil {
		return notFound(err, "remove review from product "+productID)
	}
	return nil
}

// GenreProductIDs implements catalog.GenreSource.
func (s *ProductStore) GenreProductIDs(ctx context.Context, genreID string) ([]string, error) {
	if s == nil || s.Client == nil {
		return nil, errNilClient
	}
	snap, err := s.Client.Collection(GenresCollection).Doc(genreID).Get(ctx)
	if err != nil {
		return nil, notFound(err, "genre "+genreID)
	}
	var d genreDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode genre %s: %w", genreID, err)
	}
	return d.ProductIDs, nil
}
