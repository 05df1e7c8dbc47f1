package controlplane

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/store"
	"github.com/fentz26/nextask/internal/taskfile"
)

// Sentinel errors for control plane operations.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
)

type errorResponse struct {
	Error string      `json:"error"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, selector.ErrValidation),
		errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidDependency),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, taskfile.ErrTagNotFound),
		errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	if ve, ok := selector.IsValidationError(err); ok {
		resp.Field = ve.Field
		resp.Value = ve.Value
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
