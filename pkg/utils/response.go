package utils

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"threadora-backend/internal/domain"
)

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteDomainError maps the domain error taxonomy onto HTTP statuses and
// keeps the structured per-item detail in the body. Unknown errors are
// surfaced as a generic 500; the caller logs them with full context.
func WriteDomainError(w http.ResponseWriter, err error) {
	var availErr *domain.AvailabilityError
	if errors.As(err, &availErr) {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":        "some items are unavailable",
			"invalidLines": availErr.Lines,
		})
		return
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  valErr.Msg,
			"fields": valErr.Fields,
		})
		return
	}

	var stateErr *domain.StateError
	if errors.As(err, &stateErr) {
		WriteJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     stateErr.Error(),
			"current":   stateErr.Current,
			"requested": stateErr.Requested,
		})
		return
	}

	var nfErr *domain.NotFoundError
	if errors.As(err, &nfErr) {
		WriteError(w, http.StatusNotFound, nfErr.Error())
		return
	}

	if errors.Is(err, domain.ErrInsufficientStock) {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteError(w, http.StatusInternalServerError, "internal error")
}
