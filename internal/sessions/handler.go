package sessions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/audit"
	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/pkg/response"
)

// Handler handles session HTTP endpoints.
type Handler struct {
	service  *Service
	repo     *Repository
	auditLog *audit.Repository
	logger   *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(service *Service, repo *Repository, auditLog *audit.Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, repo: repo, auditLog: auditLog, logger: logger}
}

// CheckIn handles POST /sessions/:id/checkin (owning student).
func (h *Handler) CheckIn(c *gin.Context) {
	actor := middleware.Actor(c)
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	session, err := h.service.CheckIn(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.respondTransitionError(c, err, "check in")
		return
	}
	response.OK(c, session)
}

// CheckOut handles POST /sessions/:id/checkout (owning student).
func (h *Handler) CheckOut(c *gin.Context) {
	actor := middleware.Actor(c)
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	session, err := h.service.CheckOut(c.Request.Context(), actor, sessionID)
	if err != nil {
		h.respondTransitionError(c, err, "check out")
		return
	}
	response.OK(c, session)
}

func (h *Handler) respondTransitionError(c *gin.Context, err error, op string) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "only the session owner may "+op)
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, "session is not in a state that allows "+op)
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		response.Internal(c, "failed to "+op)
	}
}

// ListMine handles GET /sessions/mine, including the verified-hours total.
func (h *Handler) ListMine(c *gin.Context) {
	actor := middleware.Actor(c)
	list, err := h.repo.ListByUser(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	total, err := h.repo.VerifiedHoursTotal(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Internal(c, "failed to total hours")
		return
	}
	response.OK(c, gin.H{
		"sessions":             list,
		"verified_hours_total": total,
	})
}

// Audit handles GET /sessions/:id/audit. The owning student sees their own
// trail; staff roles see any session's.
func (h *Handler) Audit(c *gin.Context) {
	actor := middleware.Actor(c)
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	session, err := h.repo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if session == nil {
		response.NotFound(c, "session not found")
		return
	}
	if actor.Role == models.RoleStudent && actor.UserID != session.UserID {
		response.Forbidden(c, "session belongs to another student")
		return
	}
	entries, err := h.auditLog.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list audit entries")
		return
	}
	response.OK(c, entries)
}

// ListByOpportunity handles GET /opportunities/:id/sessions (org staff).
func (h *Handler) ListByOpportunity(c *gin.Context) {
	opportunityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	list, err := h.repo.ListByOpportunity(c.Request.Context(), opportunityID)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}
