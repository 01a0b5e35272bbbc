package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Collector/internal/auth"
	"github.com/MikeSquared-Agency/Collector/internal/broker"
	"github.com/MikeSquared-Agency/Collector/internal/ingest"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors to HTTP status codes. Size limits are
// checked first since an oversized body also surfaces as a malformed read.
func errorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	var verr *ingest.ValidationError
	switch {
	case errors.Is(err, ingest.ErrTooManyRows), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidStatus),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, ingest.ErrMalformed),
		errors.Is(err, auth.ErrValidation),
		errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, broker.ErrForbidden), errors.Is(err, auth.ErrInactive):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrUserExists), errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeErr writes err with its mapped status. Internal errors are logged and
// not echoed to the client.
func writeErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
