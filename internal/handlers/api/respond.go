// Package api exposes the quote editor, its exports and the payment step
// over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/quotify/api/internal/branding"
	"github.com/quotify/api/internal/checkout"
	"github.com/quotify/api/internal/editor"
	"github.com/quotify/api/internal/quote"
)

// maxJSONBody bounds every JSON request body.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// writeJSON marshals v as JSON and writes it to the response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// At this point headers are already sent; just log the error.
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a bounded JSON body into dst and rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, quote.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrUnknownRole),
		errors.Is(err, branding.ErrInvalidContentType),
		errors.Is(err, branding.ErrInvalidMagicBytes):
		return http.StatusBadRequest
	case errors.Is(err, branding.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, checkout.ErrInFlight), errors.Is(err, checkout.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrNotPayable), errors.Is(err, checkout.ErrMissingSession):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and sends the mapped status. Messages
// of 5xx errors are not echoed to the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "error", err)
		errorJSON(w, status, msg)
		return
	}
	errorJSON(w, status, err.Error())
}
