package api

import (
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"

	"github.com/erazemk/donacije/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// storeError maps the store error taxonomy onto HTTP statuses. Typed errors
// are terminal for the request and returned verbatim; anything else is an
// internal failure whose details stay in the log.
func storeError(w http.ResponseWriter, err error) {
	var verr *store.ValidationError
	var qerr *store.InsufficientQuantityError
	var terr *store.InvalidStatusTransitionError

	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		jsonError(w, http.StatusBadRequest, verr.Error())
	case errors.As(err, &qerr):
		jsonError(w, http.StatusConflict, qerr.Error())
	case errors.As(err, &terr):
		jsonError(w, http.StatusConflict, terr.Error())
	case errors.Is(err, store.ErrConcurrencyConflict):
		jsonError(w, http.StatusConflict, "allocation conflict, please retry")
	default:
		slog.Error("internal error", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
