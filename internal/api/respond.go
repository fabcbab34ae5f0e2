package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/giantswarm/prompt-trainer/internal/challenge"
	"github.com/giantswarm/prompt-trainer/internal/provider"
	"github.com/giantswarm/prompt-trainer/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var unsupported *provider.UnsupportedModelError
	switch {
	case errors.Is(err, challenge.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Challenge not found")
	case errors.As(err, &unsupported):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
