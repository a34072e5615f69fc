// Package render holds the response helpers shared by the API handlers.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/condo/internal/actor"
	"github.com/MrJamesThe3rd/condo/internal/importer"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
	"github.com/MrJamesThe3rd/condo/internal/lifecycle"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Status maps a service error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalid), errors.Is(err, importer.ErrUnknownFormat),
		errors.Is(err, importer.ErrMalformedRow):
		return http.StatusBadRequest
	case errors.Is(err, actor.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, actor.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidTransition), errors.Is(err, ledger.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrRecipientRequired):
		return http.StatusUnprocessableEntity
	}

	return http.StatusInternalServerError
}

// Error writes err with its mapped status. Internal errors are logged, not echoed.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", status)

		return
	}

	http.Error(w, err.Error(), status)
}

// ID parses a uuid URL parameter. It writes a 400 and returns false when it is malformed.
func ID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		http.Error(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}

// Decode reads a JSON body into v. It writes a 400 and returns false on failure.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}

	return true
}

// Actor returns the caller identity attached by the authentication middleware.
func Actor(w http.ResponseWriter, r *http.Request) (actor.Actor, bool) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		http.Error(w, actor.ErrUnauthenticated.Error(), http.StatusUnauthorized)
	}

	return a, ok
}

// QueryID parses an optional uuid query parameter.
func QueryID(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return nil, errors.Join(ledger.ErrInvalid, errors.New("bad "+name))
	}

	return &id, nil
}
