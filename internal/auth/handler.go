package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/pkg/response"
	"github.com/hourtrack/backend/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email          string     `json:"email" binding:"required,email"`
	Password       string     `json:"password" binding:"required,min=6"`
	FullName       string     `json:"full_name" binding:"required"`
	Role           string     `json:"role"` // optional, defaults to STUDENT
	SchoolID       *uuid.UUID `json:"school_id"`
	ClassroomID    *uuid.UUID `json:"classroom_id"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role := models.RoleStudent
	if req.Role != "" {
		role = models.Role(req.Role)
		if !role.Valid() {
			response.BadRequest(c, "invalid role")
			return
		}
	}
	switch role {
	case models.RoleStudent:
		if req.SchoolID == nil {
			response.BadRequest(c, "students must belong to a school")
			return
		}
	case models.RoleOrgAdmin:
		if req.OrganizationID == nil {
			response.BadRequest(c, "org admins must belong to an organization")
			return
		}
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), CreateUserParams{
		Email:          req.Email,
		PasswordHash:   hash,
		FullName:       req.FullName,
		Role:           role,
		SchoolID:       req.SchoolID,
		ClassroomID:    req.ClassroomID,
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	actor := c.MustGet("actor").(Actor)
	user, err := h.repo.GetByID(c.Request.Context(), actor.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// UpdatePreferencesRequest is the body for PATCH /me/preferences.
type UpdatePreferencesRequest struct {
	EmailOptOut *bool `json:"email_opt_out" binding:"required"`
}

// UpdatePreferences handles PATCH /me/preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	actor := c.MustGet("actor").(Actor)
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.SetEmailOptOut(c.Request.Context(), actor.UserID, *req.EmailOptOut); err != nil {
		response.Internal(c, "failed to update preferences")
		return
	}
	response.OK(c, gin.H{"email_opt_out": *req.EmailOptOut})
}

// DeleteAccount handles DELETE /me. The cascade is all-or-nothing.
func (h *Handler) DeleteAccount(c *gin.Context) {
	actor := c.MustGet("actor").(Actor)
	if err := h.repo.DeleteAccount(c.Request.Context(), actor.UserID); err != nil {
		h.logger.Error("account deletion failed", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		response.Internal(c, "failed to delete account")
		return
	}
	response.NoContent(c)
}
