package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"audioshelf/internal/api"
	"audioshelf/internal/logging"
	"audioshelf/internal/providers"
)

const maxBodyBytes = 1 << 20

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}

func writeError(logger *slog.Logger, w http.ResponseWriter, status int, message string) {
	writeJSON(logger, w, status, map[string]string{"error": message})
}

// writeServiceError maps service and provider errors onto status codes.
func writeServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), logger), "request failed", "http_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	writeError(logger, w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, api.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrConflict):
		return http.StatusConflict
	case providers.IsProviderNotFound(err):
		return http.StatusBadRequest
	case errors.Is(err, providers.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode body: %w", api.ErrInvalid, err)
	}
	return nil
}
