package verification

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

// Handler handles verification HTTP endpoints.
type Handler struct {
	service  *Service
	repo     *Repository
	notifier *notifications.Service
	logger   *zap.Logger
}

// NewHandler creates a verification handler.
func NewHandler(service *Service, repo *Repository, notifier *notifications.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, notifier: notifier, logger: logger}
}

type approveRequest struct {
	ApprovedHours *float64 `json:"approved_hours"`
}

// Approve handles POST /verification/:sessionId/approve.
func (h *Handler) Approve(c *gin.Context) {
	actor := middleware.Actor(c)
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.ApprovedHours != nil && *req.ApprovedHours < 0 {
		response.BadRequest(c, "approved_hours must not be negative")
		return
	}

	session, err := h.service.Approve(c.Request.Context(), actor, sessionID, req.ApprovedHours)
	if err != nil {
		h.respondError(c, err, "approve")
		return
	}

	h.notifier.Notify(c.Request.Context(), session.UserID, models.NotificationHoursApproved,
		"Hours approved",
		fmt.Sprintf("%.2f service hours have been verified.", session.TotalHours))
	response.OK(c, session)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject handles POST /verification/:sessionId/reject.
func (h *Handler) Reject(c *gin.Context) {
	actor := middleware.Actor(c)
	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	session, err := h.service.Reject(c.Request.Context(), actor, sessionID, req.Reason)
	if err != nil {
		h.respondError(c, err, "reject")
		return
	}

	h.notifier.Notify(c.Request.Context(), session.UserID, models.NotificationHoursRejected,
		"Hours rejected",
		"Your service hours were rejected: "+session.RejectionReason)
	response.OK(c, session)
}

type overrideRequest struct {
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	Reason    string    `json:"reason"`
}

// Override handles POST /schools/:id/remove-hours. The route school must be
// the actor's own school; per-student scoping happens in the service.
func (h *Handler) Override(c *gin.Context) {
	actor := middleware.Actor(c)
	schoolID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid school id")
		return
	}
	if actor.SchoolID == nil || *actor.SchoolID != schoolID {
		response.Forbidden(c, "not a staff member of this school")
		return
	}
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "session_id is required")
		return
	}

	session, err := h.service.Override(c.Request.Context(), actor, req.SessionID, req.Reason)
	if err != nil {
		h.respondError(c, err, "remove hours")
		return
	}

	h.notifier.NotifyWithEmail(c.Request.Context(), session.UserID, models.NotificationHoursRemoved,
		"Hours removed",
		"Previously credited service hours were removed: "+session.RejectionReason)
	response.OK(c, session)
}

// Pending handles GET /verification/pending (org admins).
func (h *Handler) Pending(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor.OrganizationID == nil {
		response.Forbidden(c, "no organization scope")
		return
	}
	list, err := h.repo.ListPendingByOrg(c.Request.Context(), *actor.OrganizationID)
	if err != nil {
		response.Internal(c, "failed to list pending sessions")
		return
	}
	response.OK(c, list)
}

func (h *Handler) respondError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "session is outside your verification scope")
	case errors.Is(err, ErrAlreadyApproved):
		response.Conflict(c, "session hours are already approved")
	case errors.Is(err, ErrReasonRequired):
		response.BadRequest(c, "reason is required")
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "failed to "+op)
	}
}
