package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nrfta/catalog-go"
	"github.com/nrfta/catalog-go/cart"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	var cartErr *cart.ValidationError
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.As(err, &cartErr), errors.Is(err, cart.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case catalog.IsInvalid(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusBadGateway
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, status, errorBody{Error: "backing store unavailable"})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &catalog.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}
