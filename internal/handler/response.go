package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // Write error intentionally ignored in response helper
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v.
// It validates that the Content-Type header is application/json and
// returns an error for missing/incorrect content type or malformed JSON.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// WriteDomainError maps a service error to its HTTP status. Specific
// domain errors keep their code; anything unclassified is a 500 with a
// generic message.
func WriteDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	code := "internal_error"
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}

	switch {
	case errors.Is(err, domain.ErrMissingCaller), errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, code, "A valid bearer token is required")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusForbidden, code, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, code, err.Error())
	case errors.Is(err, domain.ErrConflict):
		WriteError(w, http.StatusConflict, code, err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		WriteError(w, http.StatusUnprocessableEntity, code, err.Error())
	case errors.Is(err, domain.ErrPaymentMismatch):
		WriteError(w, http.StatusPaymentRequired, code, err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// uintParam parses a positive path parameter.
func uintParam(raw, name string) (uint64, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, &domain.ValidationError{Message: name + " must be a positive integer"}
	}
	return v, nil
}
