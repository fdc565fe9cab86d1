// Package firestore implements the catalog and commerce stores on Cloud
// Firestore.
//
// Collections:
//
//	products/{id}   name, price, category, created_at, tag[], combinations[], reviews[]
//	genres/{id}     name, product_ids[]
//	users/{uid}     cart[], addresses[], orders[]
//	sales/{doc}     active, discount, product_ids[]
//	delivery/{doc}  india, international
//	orders/{id}     placed orders
package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nrfta/catalog-go"
)

// Collection names.
const (
	ProductsCollection = "products"
	GenresCollection   = "genres"
	UsersCollection    = "users"
	SalesCollection    = "sales"
	DeliveryCollection = "delivery"
	OrdersCollection   = "orders"
)

// NewClient creates a Firestore client. An empty credentialsFile uses
// Application Default Credentials.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}

var errNilClient = errors.New("firestore: client is nil")

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// notFound maps a Firestore NotFound to catalog.ErrNotFound.
func notFound(err error, what string) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", what, catalog.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
