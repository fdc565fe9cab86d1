// Package postgres implements catalog.Store and catalog.GenreSource on
// PostgreSQL using sqlboiler query mods. Queries go through the same
// validation as the document store, so a catalog running on either backend
// accepts and rejects the same filters.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"strings"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/friendsofgo/errors"
	"github.com/lib/pq"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/search"
)

const productColumns = `"id", "name", "price", "category_id", "created_at", "tags", "combinations"`

//go:embed schema.sql
var schema string

// productRow is a row of the products table.
type productRow struct {
	ID           string            `boil:"id"`
	Name         string            `boil:"name"`
	Price        int64             `boil:"price"`
	CategoryID   null.String       `boil:"category_id"`
	CreatedAt    time.Time         `boil:"created_at"`
	Tags         types.StringArray `boil:"tags"`
	Combinations types.JSON        `boil:"combinations"`
}

func (r *productRow) product() (*catalog.Product, error) {
	p := &catalog.Product{
		ID:         r.ID,
		Name:       r.Name,
		Price:      r.Price,
		CategoryID: r.CategoryID.String,
		CreatedAt:  r.CreatedAt.UTC(),
		Tags:       []string(r.Tags),
	}
	if len(r.Combinations) > 0 {
		if err := r.Combinations.Unmarshal(&p.Combinations); err != nil {
			return nil, errors.Wrapf(err, "postgres: unable to decode combinations of %s", r.ID)
		}
	}
	return p, nil
}

// Store reads and writes products and genres.
type Store struct {
	db boil.ContextExecutor
}

// New creates a Store on db.
func New(db boil.ContextExecutor) *Store {
	return &Store{db: db}
}

// Open connects to dsn with the lib/pq driver and pings it.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "postgres: failed to ping database")
	}
	return db, nil
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, db boil.ContextExecutor) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "postgres: failed to migrate schema")
	}
	return nil
}

// Fetch implements catalog.Store.
func (s *Store) Fetch(ctx context.Context, q catalog.Query) ([]*catalog.Product, error) {
	mods, err := QueryMods(q)
	if err != nil {
		return nil, err
	}
	mods = append([]qm.QueryMod{qm.Select(productColumns), qm.From(`"products"`)}, mods...)

	var rows []*productRow
	if err := newQuery(mods...).Bind(ctx, s.db, &rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "postgres: failed to fetch products")
	}

	out := make([]*catalog.Product, 0, len(rows))
	for _, r := range rows {
		p, err := r.product()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Count implements catalog.Store.
func (s *Store) Count(ctx context.Context, q catalog.Query) (int64, error) {
	mods, err := QueryMods(q.Unpaged())
	if err != nil {
		return 0, err
	}
	query := newQuery(append([]qm.QueryMod{qm.From(`"products"`)}, mods...)...)
	queries.SetSelect(query, nil)
	queries.SetCount(query)

	var count int64
	if err := query.QueryRowContext(ctx, s.db).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "postgres: failed to count products")
	}
	return count, nil
}

// Upsert inserts or replaces a product. Missing tags are derived from the name.
func (s *Store) Upsert(ctx context.Context, p *catalog.Product) error {
	if strings.TrimSpace(p.ID) == "" {
		return &catalog.ValidationError{Field: "id", Reason: "is required"}
	}
	tags := p.Tags
	if len(tags) == 0 {
		tags = search.Tags(p.Name)
	}
	combos := p.Combinations
	if combos == nil {
		combos = []catalog.Combination{}
	}
	combosJSON, err := json.Marshal(combos)
	if err != nil {
		return errors.Wrap(err, "postgres: unable to encode combinations")
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, category_id, created_at, tags, combinations)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category_id = EXCLUDED.category_id,
			created_at = EXCLUDED.created_at,
			tags = EXCLUDED.tags,
			combinations = EXCLUDED.combinations`,
		p.ID, p.Name, p.Price, null.NewString(p.CategoryID, p.CategoryID != ""),
		createdAt.UTC(), pq.Array(tags), string(combosJSON),
	)
	if err != nil {
		return errors.Wrapf(err, "postgres: unable to upsert product %s", p.ID)
	}
	return nil
}

// Delete removes a product.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id); err != nil {
		return errors.Wrapf(err, "postgres: unable to delete product %s", id)
	}
	return nil
}

// PutGenre inserts or replaces a genre and its product ids.
func (s *Store) PutGenre(ctx context.Context, id, name string, productIDs []string) error {
	if productIDs == nil {
		productIDs = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO genres (id, name, product_ids) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, product_ids = EXCLUDED.product_ids`,
		id, name, pq.Array(productIDs),
	)
	if err != nil {
		return errors.Wrapf(err, "postgres: unable to upsert genre %s", id)
	}
	return nil
}

// GenreProductIDs implements catalog.GenreSource.
func (s *Store) GenreProductIDs(ctx context.Context, genreID string) ([]string, error) {
	var ids types.StringArray
	err := queries.Raw(`SELECT "product_ids" FROM "genres" WHERE "id" = $1`, genreID).
		QueryRowContext(ctx, s.db).Scan(&ids)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(catalog.ErrNotFound, "genre %s", genreID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "postgres: unable to load genre %s", genreID)
	}
	return []string(ids), nil
}
