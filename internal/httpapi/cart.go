package httpapi

import (
	"errors"
	"net/http"

	"github.com/nrfta/catalog-go/cart"
	"github.com/nrfta/catalog-go/internal/auth"
)

var errNoUser = errors.New("httpapi: no authenticated user")

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`

	// Set replaces the line's quantity instead of adding to it.
	Set bool `json:"set,omitempty"`
}

type lineRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type quoteRequest struct {
	Country string `json:"country"`
}

type checkoutRequest struct {
	Address cart.Address `json:"address"`
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	uid, ok := auth.UserID(r.Context())
	if !ok {
		s.logger.Error(errNoUser.Error())
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return uid, ok
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userID(w, r)
	if !ok {
		return
	}
	c, err := s.carts.Get(r.Context(), uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) putCartItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		c   *cart.Cart
		err error
	)
	if req.Set {
		c, err = s.carts.SetQuantity(r.Context(), uid, req.ProductID, req.Size, req.Color, req.Quantity)
	} else {
		c, err = s.carts.AddItem(r.Context(), uid, cart.Item{
			ProductID: req.ProductID,
			Size:      req.Size,
			Color:     req.Color,
			Quantity:  req.Quantity,
		})
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCartItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req lineRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.carts.RemoveItem(r.Context(), uid, req.ProductID, req.Size, req.Color)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) quoteCart(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	q, err := s.carts.Quote(r.Context(), uid, req.Country)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.userID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	order, err := s.carts.PlaceOrder(r.Context(), uid, req.Address)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}
