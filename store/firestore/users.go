package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
)

// UserStore keeps the per-user documents: cart, saved addresses and the
// ids of placed orders. It implements cart.Repository.
type UserStore struct {
	Client *firestore.Client
}

// NewUserStore creates a UserStore.
func NewUserStore(client *firestore.Client) *UserStore {
	return &UserStore{Client: client}
}

func (s *UserStore) col() *firestore.CollectionRef {
	return s.Client.Collection(UsersCollection)
}

type userDoc struct {
	Cart      []cart.Item    `firestore:"cart"`
	Addresses []cart.Address `firestore:"addresses"`
	Orders    []string       `firestore:"orders"`
}

// Load implements cart.Repository. A user without a document has an empty cart.
func (s *UserStore) Load(ctx context.Context, userID string) (*cart.Cart, error) {
	d, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &cart.Cart{UserID: userID, Items: d.Cart}, nil
}

// Save implements cart.Repository, replacing only the cart field.
func (s *UserStore) Save(ctx context.Context, c *cart.Cart) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	if strings.TrimSpace(c.UserID) == "" {
		return &catalog.ValidationError{Field: "user_id", Reason: "is required"}
	}
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	_, err := s.col().Doc(c.UserID).Set(ctx, map[string]any{"cart": items}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("save cart of %s: %w", c.UserID, err)
	}
	return nil
}

// Addresses returns the user's saved addresses.
func (s *UserStore) Addresses(ctx context.Context, userID string) ([]cart.Address, error) {
	d, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d.Addresses, nil
}

// AddAddress appends an address atomically; identical addresses are stored once.
func (s *UserStore) AddAddress(ctx context.Context, userID string, a cart.Address) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.col().Doc(userID).Set(ctx, map[string]any{
		"addresses": firestore.ArrayUnion(a),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("add address for %s: %w", userID, err)
	}
	return nil
}

// RemoveAddress removes an address atomically.
func (s *UserStore) RemoveAddress(ctx context.Context, userID string, a cart.Address) error {
	if s == nil || s.Client == nil {
		return errNilClient
	}
	_, err := s.col().Doc(userID).Update(ctx, []firestore.Update{
		{Path: "addresses", Value: firestore.ArrayRemove(a)},
	})
	if err != nil {
		return notFound(err, "remove address for "+userID)
	}
	return nil
}

func (s *UserStore) get(ctx context.Context, userID string) (userDoc, error) {
	if s == nil || s.Client == nil {
		return userDoc{}, errNilClient
	}
	snap, err := s.col().Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return userDoc{}, nil
		}
		return userDoc{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return userDoc{}, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return d, nil
}
