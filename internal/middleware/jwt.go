package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hourtrack/backend/internal/auth"
	"github.com/hourtrack/backend/pkg/response"
)

const (
	// ContextActor is the key for the resolved auth.Actor in gin context.
	ContextActor = "actor"
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
)

// JWT returns a middleware that validates JWT and sets the actor in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		actor := auth.ActorFromClaims(claims)
		c.Set(ContextActor, actor)
		c.Set(ContextUserID, actor.UserID)
		c.Set(ContextUserRole, string(actor.Role))
		c.Next()
	}
}

// Actor returns the resolved actor from gin context. Must be called after JWT.
func Actor(c *gin.Context) auth.Actor {
	return c.MustGet(ContextActor).(auth.Actor)
}
