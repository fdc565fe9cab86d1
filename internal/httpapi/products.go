package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nrfta/catalog-go"
)

// ProductView is the JSON form of a product in listings.
type ProductView struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Price        int64                 `json:"price"`
	CategoryID   string                `json:"category_id,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	Combinations []catalog.Combination `json:"combinations,omitempty"`
	InStock      bool                  `json:"in_stock"`
}

func toView(p *catalog.Product) ProductView {
	v := ProductView{
		ID:           p.ID,
		Name:         p.Name,
		Price:        p.Price,
		CategoryID:   p.CategoryID,
		CreatedAt:    p.CreatedAt,
		Combinations: p.Combinations,
		InStock:      len(p.Combinations) == 0,
	}
	for _, c := range p.Combinations {
		if c.Quantity > 0 {
			v.InStock = true
			break
		}
	}
	return v
}

// listProducts serves GET /v1/products.
//
// Query parameters: category, min_price, max_price, sort, q, genre, view,
// page (numbered mode) or after (keyset mode), limit, total.
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	qs := r.URL.Query()

	f, err := s.parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	args, err := parsePageArgs(qs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := args.ValidateWith(s.pages); err != nil {
		s.writeError(w, r, err)
		return
	}

	limit := s.pages.EffectiveLimit(args)
	l := s.lister(limit)

	var page *catalog.Page[*catalog.Product]
	if args.After != nil {
		page, err = l.After(ctx, f, *args.After, limit)
	} else {
		page, err = l.Page(ctx, f, args.PageNumber(), true)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	withTotal := qs.Get("total") == "true"
	conn, err := catalog.BuildConnection(ctx, page, catalog.NewPageInfoResolver(withTotal), l.EdgeCursor(f, page),
		func(p *catalog.Product) (ProductView, error) { return toView(p), nil },
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conn)
}

// countProducts serves GET /v1/products/count with the same filter
// parameters as listProducts.
func (s *Server) countProducts(w http.ResponseWriter, r *http.Request) {
	f, err := s.parseFilter(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	args, err := parsePageArgs(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := args.ValidateWith(s.pages); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.lister(s.pages.EffectiveLimit(args)).Count(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// getProduct serves GET /v1/products/{id}.
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.lister(s.cfg.PageSize).Product(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(p))
}

func (s *Server) parseFilter(r *http.Request) (catalog.Filter, error) {
	qs := r.URL.Query()
	f := catalog.NewFilter()

	if c := qs.Get("category"); c != "" {
		f.SetCategory(c)
	}
	lo, err := optionalInt64(qs, "min_price")
	if err != nil {
		return f, err
	}
	hi, err := optionalInt64(qs, "max_price")
	if err != nil {
		return f, err
	}
	if lo != nil || hi != nil {
		f.SetPriceRange(lo, hi)
	}
	if err := f.SetSort(qs.Get("sort")); err != nil {
		return f, err
	}
	f.SetSearch(qs.Get("q"))
	if v := qs.Get("view"); v != "" {
		f.SetView(catalog.ViewMode(v))
	}

	if genre := qs.Get("genre"); genre != "" {
		if s.genres == nil {
			return f, fmt.Errorf("genre %s: %w", genre, catalog.ErrNotFound)
		}
		ids, err := s.genres.GenreProductIDs(r.Context(), genre)
		if err != nil {
			return f, err
		}
		f.SetGenre(genre, ids)
	}
	return f, f.Validate()
}

func parsePageArgs(qs url.Values) (*catalog.PageArgs, error) {
	args := &catalog.PageArgs{}
	if v := qs.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, &catalog.ValidationError{Field: "page", Reason: "must be a number"}
		}
		args.Page = &n
	}
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, &catalog.ValidationError{Field: "limit", Reason: "must be a non-negative number"}
		}
		args.First = &n
	}
	if v := qs.Get("after"); v != "" {
		args.After = &v
	}
	return args, nil
}

func optionalInt64(qs url.Values, key string) (*int64, error) {
	v := qs.Get(key)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, &catalog.ValidationError{Field: key, Reason: "must be a whole number"}
	}
	return &n, nil
}
