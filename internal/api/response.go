package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gyaneshwarpardhi/scenegraph/internal/engine"
	"github.com/gyaneshwarpardhi/scenegraph/internal/registry"
	"github.com/gyaneshwarpardhi/scenegraph/internal/scene"
	"github.com/gyaneshwarpardhi/scenegraph/internal/store"
)

// errInvalid marks request content the scene rejected.
var errInvalid = errors.New("invalid request")

func invalid(err error) error { return fmt.Errorf("%w: %w", errInvalid, err) }

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeOpError maps an engine or scene error to a status code.
func writeOpError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, store.ErrNodeNotPresent):
		return http.StatusNotFound
	case errors.Is(err, errInvalid),
		errors.Is(err, registry.ErrUnknownType),
		errors.Is(err, scene.ErrParseFailure):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrAlreadyLive),
		errors.Is(err, store.ErrRemoved),
		errors.Is(err, store.ErrReentrant):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
