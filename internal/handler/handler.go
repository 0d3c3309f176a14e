// Package handler provides the HTTP handlers for the pantry page, the REST
// API and the change feed.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/inventory"
	"github.com/vyrodovalexey/pantry-tracker/internal/model"
	"github.com/vyrodovalexey/pantry-tracker/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// DefaultTimeout bounds the store calls made on behalf of one request when
// no timeout is configured.
const DefaultTimeout = 5 * time.Second

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status string `json:"status"`
}

// requestContext derives the context used for store calls of one request.
func requestContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(r.Context(), timeout)
}

// statusFor maps an inventory error to an HTTP status and a client-safe
// message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "item not found"
	case errors.Is(err, model.ErrEmptyName),
		errors.Is(err, model.ErrNameTooLong),
		errors.Is(err, model.ErrReservedName),
		errors.Is(err, model.ErrNegativeQuantity),
		errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrFormClosed):
		return http.StatusBadRequest, rootMessage(err)
	case errors.Is(err, store.ErrInvalidName):
		return http.StatusBadRequest, "invalid item name"
	case errors.Is(err, inventory.ErrClosed):
		return http.StatusServiceUnavailable, "service is shutting down"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// rootMessage returns the message of the innermost wrapped error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	writeJSON(w, logger, status, model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
