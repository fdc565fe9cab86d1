// Package app wires configuration, stores and services into a runnable
// catalog service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
	"github.com/nrfta/catalog-go/internal/auth"
	"github.com/nrfta/catalog-go/internal/config"
	"github.com/nrfta/catalog-go/internal/httpapi"
	"github.com/nrfta/catalog-go/listing"
	fsstore "github.com/nrfta/catalog-go/store/firestore"
	"github.com/nrfta/catalog-go/store/memory"
	"github.com/nrfta/catalog-go/store/postgres"
	"github.com/nrfta/catalog-go/store/rediscache"
)

// App holds the wired service.
type App struct {
	Config config.Config
	Logger *zap.Logger

	// Store is the catalog store, behind the Redis cache when configured.
	Store  catalog.Store
	Genres catalog.GenreSource
	Carts  *cart.Service

	// Cache is nil unless REDIS_ADDR is set.
	Cache *rediscache.Store

	commerce commerce
	runners  []func(context.Context) error
	closers  []func() error
}

type commerce struct {
	carts    cart.Repository
	sales    cart.SaleSource
	delivery cart.DeliverySource
	orders   cart.OrderRepository
}

// New connects the configured backends.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}

	carts, err := cart.NewService(cart.Deps{
		Carts:    a.commerce.carts,
		Products: a.Lister(),
		Sales:    a.commerce.sales,
		Delivery: a.commerce.delivery,
		Orders:   a.commerce.orders,
		Logger:   logger.Named("cart"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Carts = carts
	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	cfg := a.Config

	var fs *firestore.Client
	if cfg.FirestoreProjectID != "" && cfg.StoreDriver != config.DriverMemory {
		client, err := fsstore.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return err
		}
		fs = client
		a.closers = append(a.closers, client.Close)
	}

	switch cfg.StoreDriver {
	case config.DriverFirestore:
		products := fsstore.NewProductStore(fs)
		a.Store, a.Genres = products, products
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		products := postgres.New(db)
		a.Store, a.Genres = products, products
	default:
		mem := memory.New()
		a.Store, a.Genres = mem, mem
		a.commerce = commerce{carts: mem, sales: mem, delivery: mem, orders: mem}
	}

	if fs != nil {
		live := fsstore.NewLiveSale(fsstore.NewSaleRepository(fs), a.Logger.Named("sale"))
		a.runners = append(a.runners, live.Run)
		a.commerce = commerce{
			carts:    fsstore.NewUserStore(fs),
			sales:    live,
			delivery: fsstore.NewDeliveryRepository(fs),
			orders:   fsstore.NewOrderRepository(fs),
		}
	} else if a.commerce.carts == nil {
		a.Logger.Warn("no firestore project configured, carts and orders are kept in memory")
		mem := memory.New()
		a.commerce = commerce{carts: mem, sales: mem, delivery: mem, orders: mem}
	}

	if cfg.RedisAddr != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.Cache = rediscache.New(a.Store, client,
			rediscache.WithTTL(cfg.RedisTTL),
			rediscache.WithLogger(a.Logger.Named("cache")),
		)
		a.Store = a.Cache
	}

	a.Logger.Info("stores connected",
		zap.String("driver", cfg.StoreDriver),
		zap.Bool("firestore", fs != nil),
		zap.Bool("redis", a.Cache != nil),
	)
	return nil
}

// Lister returns a new Lister configured from the settings.
func (a *App) Lister() *listing.Lister {
	return listing.New(a.Store, listing.Config{
		PageSize:         a.Config.PageSize,
		SearchMatchRate:  a.Config.SearchMatchRate,
		BatchConcurrency: a.Config.BatchConcurrency,
		Logger:           a.Logger.Named("listing"),
	})
}

// Handler builds the HTTP handler, verifying Firebase tokens when auth is
// enabled.
func (a *App) Handler(ctx context.Context) (http.Handler, error) {
	authn := auth.Header
	if a.Config.AuthEnabled {
		client, err := auth.NewClient(ctx, a.Config.FirestoreProjectID, a.Config.FirestoreCredentialsFile)
		if err != nil {
			return nil, err
		}
		authn = auth.Middleware(client, a.Logger.Named("auth"))
	}

	srv, err := httpapi.New(httpapi.Deps{
		Store:  a.Store,
		Genres: a.Genres,
		Carts:  a.Carts,
		Auth:   authn,
		Logger: a.Logger.Named("http"),
	}, httpapi.Config{
		PageSize:         a.Config.PageSize,
		MaxPageSize:      a.Config.MaxPageSize,
		SearchMatchRate:  a.Config.SearchMatchRate,
		BatchConcurrency: a.Config.BatchConcurrency,
		AllowedOrigins:   a.Config.AllowedOrigins,
	})
	if err != nil {
		return nil, err
	}
	return srv.Routes(), nil
}

// Serve runs the HTTP server and background watchers until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	handler, err := a.Handler(ctx)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              a.Config.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, run := range a.runners {
		g.Go(func() error { return run(ctx) })
	}
	g.Go(func() error {
		a.Logger.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Close releases every connection in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
