package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vestra-ai/vestra/internal/adapter/http/dto"
	"github.com/vestra-ai/vestra/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes. Insufficient
// credits is 402 so clients can distinguish "top up" from "bad request".
func mapDomainError(err error) int {
	var validationErr *domain.ValidationError
	var providerErr *domain.ProviderError
	var timeoutErr *domain.TimeoutError
	var storageErr *domain.StorageError

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrMalformedPayload):
		return http.StatusBadRequest
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.As(err, &storageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
