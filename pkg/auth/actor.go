package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Actor is the authenticated caller, passed explicitly to operations that
// need identity instead of being read from ambient state.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   enums.Role
}

// ActorFromClaims builds the caller identity from verified token claims.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
}

// IsZero reports whether no identity was established.
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil
}

// CanManageCatalog reports whether the actor may use back-office operations.
func (a Actor) CanManageCatalog() bool {
	return !a.IsZero() && a.Role.IsBackOffice()
}
