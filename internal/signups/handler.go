package signups

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/internal/notifications"
	"github.com/hourtrack/backend/pkg/response"
)

// SignUpRequest is the body for POST /signups.
type SignUpRequest struct {
	OpportunityID uuid.UUID `json:"opportunity_id" binding:"required"`
}

// Handler handles signup HTTP endpoints.
type Handler struct {
	service  *Service
	repo     *Repository
	notifier *notifications.Service
	logger   *zap.Logger
}

// NewHandler creates a signups handler.
func NewHandler(service *Service, repo *Repository, notifier *notifications.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, notifier: notifier, logger: logger}
}

// SignUp handles POST /signups (students only).
func (h *Handler) SignUp(c *gin.Context) {
	actor := middleware.Actor(c)
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	res, err := h.service.SignUp(c.Request.Context(), actor.UserID, req.OpportunityID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "opportunity not found")
		case errors.Is(err, ErrOpportunityInactive):
			response.Conflict(c, "opportunity is not active")
		case errors.Is(err, ErrAlreadySignedUp):
			response.Conflict(c, "already signed up for this opportunity")
		default:
			h.logger.Error("signup failed", zap.Error(err), zap.String("opportunity_id", req.OpportunityID.String()))
			response.Internal(c, "failed to sign up")
		}
		return
	}

	title := res.Opportunity.Title
	if res.Signup.Status == models.SignupConfirmed {
		h.notifier.Notify(c.Request.Context(), actor.UserID, models.NotificationSignupConfirmed,
			"Signup confirmed", fmt.Sprintf("Your spot for %q is confirmed.", title))
	} else {
		h.notifier.Notify(c.Request.Context(), actor.UserID, models.NotificationSignupWaitlisted,
			"Added to waitlist", fmt.Sprintf("%q is full; you are on the waitlist.", title))
	}

	response.Created(c, gin.H{
		"signup":  res.Signup,
		"session": res.Session,
	})
}

// Cancel handles POST /signups/:id/cancel (owner or ORG_ADMIN of the org).
func (h *Handler) Cancel(c *gin.Context) {
	actor := middleware.Actor(c)
	signupID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid signup id")
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), actor, signupID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(c, "signup not found")
		case errors.Is(err, ErrForbidden):
			response.Forbidden(c, "not allowed to cancel this signup")
		case errors.Is(err, ErrAlreadyCancelled):
			response.Conflict(c, "signup already cancelled")
		default:
			h.logger.Error("cancel failed", zap.Error(err), zap.String("signup_id", signupID.String()))
			response.Internal(c, "failed to cancel signup")
		}
		return
	}

	if res.Promoted != nil {
		h.notifier.Notify(c.Request.Context(), res.Promoted.UserID, models.NotificationWaitlistPromoted,
			"You're in", "A spot opened up and your waitlisted signup is now confirmed.")
	}

	response.OK(c, gin.H{
		"signup":   res.Signup,
		"promoted": res.Promoted,
	})
}

// ListMine handles GET /signups/mine.
func (h *Handler) ListMine(c *gin.Context) {
	actor := middleware.Actor(c)
	list, err := h.repo.ListByUser(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Internal(c, "failed to list signups")
		return
	}
	response.OK(c, list)
}

// ListByOpportunity handles GET /opportunities/:id/signups (org staff).
func (h *Handler) ListByOpportunity(c *gin.Context) {
	opportunityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	list, err := h.repo.ListByOpportunity(c.Request.Context(), opportunityID)
	if err != nil {
		response.Internal(c, "failed to list signups")
		return
	}
	response.OK(c, list)
}
