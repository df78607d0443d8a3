package auth

import (
	"github.com/google/uuid"

	"github.com/hourtrack/backend/internal/models"
)

// Actor is the resolved identity of an authenticated request:
// who is acting, in what role and within which scopes.
type Actor struct {
	UserID         uuid.UUID
	Email          string
	Role           models.Role
	OrganizationID *uuid.UUID
	SchoolID       *uuid.UUID
	ClassroomID    *uuid.UUID
}

// ActorFromClaims builds the actor context from validated JWT claims.
func ActorFromClaims(claims *Claims) Actor {
	return Actor{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           claims.Role,
		OrganizationID: claims.OrganizationID,
		SchoolID:       claims.SchoolID,
		ClassroomID:    claims.ClassroomID,
	}
}
