package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/internal/app"
	"github.com/nrfta/catalog-go/search"
	fsstore "github.com/nrfta/catalog-go/store/firestore"
	"github.com/nrfta/catalog-go/store/memory"
	"github.com/nrfta/catalog-go/store/postgres"
)

// catalogFile is the import format.
type catalogFile struct {
	Products []*catalog.Product `json:"products"`
	Genres   []struct {
		ID         string   `json:"id"`
		Name       string   `json:"name"`
		ProductIDs []string `json:"product_ids"`
	} `json:"genres"`
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load products and genres from a JSON file",
	Long: `Upserts every product of FILE, deriving search tags from names when
absent, then invalidates the Redis cache. Genres are written to the
postgres and memory drivers; Firestore genres are managed by the admin
tooling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var file catalogFile
		if err := json.Unmarshal(raw, &file); err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
			put, putGenre := writers(a)
			for _, p := range file.Products {
				if len(p.Tags) == 0 {
					p.Tags = search.Tags(p.Name)
				}
				if err := put(ctx, p); err != nil {
					return err
				}
			}
			for _, g := range file.Genres {
				if putGenre == nil {
					a.Logger.Warn("skipping genre, driver does not write genres", zap.String("genre", g.ID))
					continue
				}
				if err := putGenre(ctx, g.ID, g.Name, g.ProductIDs); err != nil {
					return err
				}
			}
			if a.Cache != nil {
				if _, err := a.Cache.Invalidate(ctx); err != nil {
					return err
				}
			}
			a.Logger.Info("catalog imported",
				zap.Int("products", len(file.Products)),
				zap.Int("genres", len(file.Genres)),
			)
			return nil
		})
	},
}

type putFunc func(context.Context, *catalog.Product) error
type putGenreFunc func(ctx context.Context, id, name string, productIDs []string) error

// writers returns the product and genre writers of the configured driver.
func writers(a *app.App) (putFunc, putGenreFunc) {
	switch s := a.Genres.(type) {
	case *postgres.Store:
		return s.Upsert, s.PutGenre
	case *fsstore.ProductStore:
		return s.Put, nil
	case *memory.Store:
		return func(_ context.Context, p *catalog.Product) error {
				s.Put(p)
				return nil
			}, func(_ context.Context, id, _ string, ids []string) error {
				s.PutGenre(id, ids)
				return nil
			}
	}
	return func(context.Context, *catalog.Product) error {
		return fmt.Errorf("import: driver %s is read-only", a.Config.StoreDriver)
	}, nil
}
