// Package identity supplies the authenticated user for each request.
// The core trusts the configured provider and does not re-authenticate;
// it only needs the user id for owner scoping and the role for admin
// exemptions.
package identity

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// Roles recognized by the core. Any other role value is treated as a
// regular user.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the authenticated principal attached to a request.
type User struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

// IsAdmin reports whether the user may act on documents of any owner.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// System verifies request credentials and injects the User into the
// request context.
type System interface {
	Authenticate(next http.Handler) http.Handler
}

// ErrUnauthenticated is returned when no valid credential accompanies
// a request.
var ErrUnauthenticated = errors.New("unauthenticated request")

// MapHTTPStatus maps identity errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnauthenticated) {
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
