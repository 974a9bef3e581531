package domain

type ContextKey string

const UserContextKey ContextKey = "user"

// User is the authenticated principal reconstructed from token claims.
// Account management itself lives outside this service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == "admin"
}
