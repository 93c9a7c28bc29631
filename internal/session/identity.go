package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the console can tell about the signed-in administrator
// from the credential alone. Every field may be empty.
type Identity struct {
	Name      string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Label is the navbar caption.
func (i Identity) Label() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return "Admin"
	}
}

type credentialClaims struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// PeekIdentity reads claims from a JWT credential without verifying it. The
// backend remains the only authority; the result is used for display and
// storage hygiene only. Opaque credentials yield a zero Identity and false.
func PeekIdentity(credential string) (Identity, bool) {
	var c credentialClaims
	if _, _, err := jwt.NewParser().ParseUnverified(credential, &c); err != nil {
		return Identity{}, false
	}
	id := Identity{Name: c.Name, Email: c.Email, Role: c.Role}
	if id.Name == "" {
		id.Name = c.FullName
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id, true
}
