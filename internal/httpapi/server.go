// Package httpapi exposes the catalog listing and the cart over HTTP.
//
// Routes (all under /v1):
//
//	GET    /products              list products (page or after mode)
//	GET    /products/count        exact or estimated total
//	GET    /products/{id}         single product
//	GET    /cart                  current cart          (auth)
//	PUT    /cart/items            add or set a line     (auth)
//	DELETE /cart/items            remove a line         (auth)
//	POST   /cart/quote            price the cart        (auth)
//	POST   /checkout              place an order        (auth)
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
	"github.com/nrfta/catalog-go/listing"
)

// Config tunes the listing endpoints.
type Config struct {
	PageSize         int
	MaxPageSize      int
	SearchMatchRate  float64
	BatchConcurrency int
	AllowedOrigins   []string
}

// Deps are the collaborators of a Server.
type Deps struct {
	Store  catalog.Store
	Genres catalog.GenreSource
	Carts  *cart.Service

	// Auth authenticates cart and checkout routes and must put the uid in
	// the request context (see package auth).
	Auth   func(http.Handler) http.Handler
	Logger *zap.Logger
}

// Server serves the HTTP API.
type Server struct {
	store  catalog.Store
	genres catalog.GenreSource
	carts  *cart.Service
	auth   func(http.Handler) http.Handler
	logger *zap.Logger
	cfg    Config
	pages  *catalog.PageConfig
}

// New creates a Server.
func New(deps Deps, cfg Config) (*Server, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("httpapi: store is required")
	case deps.Carts == nil:
		return nil, errors.New("httpapi: cart service is required")
	case deps.Auth == nil:
		return nil, errors.New("httpapi: auth middleware is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:  deps.Store,
		genres: deps.Genres,
		carts:  deps.Carts,
		auth:   deps.Auth,
		logger: logger,
		cfg:    cfg,
		pages:  catalog.NewPageConfig().WithDefaultSize(cfg.PageSize).WithMaxSize(cfg.MaxPageSize),
	}, nil
}

// Routes returns the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/products", s.listProducts)
		r.Get("/products/count", s.countProducts)
		r.Get("/products/{id}", s.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(s.auth)
			r.Get("/cart", s.getCart)
			r.Put("/cart/items", s.putCartItem)
			r.Delete("/cart/items", s.deleteCartItem)
			r.Post("/cart/quote", s.quoteCart)
			r.Post("/checkout", s.checkout)
		})
	})
	return r
}

// lister returns a Lister for one request. Cursor caches live only as long
// as the request; clients page with the opaque cursors instead.
func (s *Server) lister(pageSize int) *listing.Lister {
	return listing.New(s.store, listing.Config{
		PageSize:         pageSize,
		SearchMatchRate:  s.cfg.SearchMatchRate,
		BatchConcurrency: s.cfg.BatchConcurrency,
		Logger:           s.logger,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
