package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/josko3567/oby-server/internal/api"
	"github.com/josko3567/oby-server/internal/money"
	"github.com/josko3567/oby-server/internal/repository"
	"github.com/josko3567/oby-server/internal/service"
)

// MaxRequestBodySize caps JSON request bodies.
const MaxRequestBodySize = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, api.ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleServiceError maps domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		httpStatus int
		code       string
	)

	switch {
	case errors.Is(err, repository.ErrOfferNotFound):
		httpStatus, code = http.StatusNotFound, "offer_not_found"
	case errors.Is(err, repository.ErrTableNotFound):
		httpStatus, code = http.StatusNotFound, "table_not_found"
	case errors.Is(err, repository.ErrOrderNotFound):
		httpStatus, code = http.StatusNotFound, "order_not_found"
	case errors.Is(err, service.ErrUnknownOffer):
		httpStatus, code = http.StatusUnprocessableEntity, "unknown_offer"
	case errors.Is(err, service.ErrEmptyOrder):
		httpStatus, code = http.StatusBadRequest, "empty_order"
	case errors.Is(err, service.ErrInvalidQuantity):
		httpStatus, code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, service.ErrInvalidName):
		httpStatus, code = http.StatusBadRequest, "invalid_name"
	case errors.Is(err, service.ErrInvalidOrderCount):
		httpStatus, code = http.StatusBadRequest, "invalid_order_count"
	case errors.Is(err, service.ErrInvalidStatus):
		httpStatus, code = http.StatusBadRequest, "invalid_status"
	case errors.Is(err, money.ErrInvalidPrice):
		httpStatus, code = http.StatusBadRequest, "invalid_price"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// pathParam returns a percent-decoded chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
