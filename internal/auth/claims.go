package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Collector/internal/scoring"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

// Claims is the session token payload.
type Claims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID      `json:"user_id"`
	Username string         `json:"username"`
	Role     store.Role     `json:"role"`
	Agency   scoring.Agency `json:"agency,omitempty"`
}

// Actor is who is acting on a request, as far as case visibility goes.
type Actor struct {
	Username string
	Role     store.Role
	Agency   scoring.Agency
}

func (c *Claims) Actor() Actor {
	return Actor{Username: c.Username, Role: c.Role, Agency: c.Agency}
}

func (a Actor) IsAdmin() bool { return a.Role == store.RoleAdmin }

// CanAccess reports whether the actor may see or change the case. Agency
// users are limited to cases routed to their own agency.
func (a Actor) CanAccess(c *store.Case) bool {
	if a.IsAdmin() {
		return true
	}
	return a.Role == store.RoleAgency && a.Agency != "" && c.AssignedTo == a.Agency
}
