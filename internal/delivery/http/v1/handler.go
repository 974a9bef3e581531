package v1

import (
	"net/http"

	"threadora-backend/internal/domain"
)

// currentUser pulls the authenticated user placed in context by the auth
// middleware.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := r.Context().Value(domain.UserContextKey).(*domain.User)
	if !ok || user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return user, true
}
