package notifications

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /notifications?unread=true.
func (h *Handler) List(c *gin.Context) {
	actor := middleware.Actor(c)
	unreadOnly := c.Query("unread") == "true"
	list, err := h.repo.ListByUser(c.Request.Context(), actor.UserID, unreadOnly)
	if err != nil {
		response.Internal(c, "failed to list notifications")
		return
	}
	response.OK(c, list)
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	actor := middleware.Actor(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	ok, err := h.repo.MarkRead(c.Request.Context(), id, actor.UserID)
	if err != nil {
		response.Internal(c, "failed to mark notification read")
		return
	}
	if !ok {
		response.NotFound(c, "notification not found")
		return
	}
	response.NoContent(c)
}

// MarkAllRead handles POST /notifications/read-all.
func (h *Handler) MarkAllRead(c *gin.Context) {
	actor := middleware.Actor(c)
	if err := h.repo.MarkAllRead(c.Request.Context(), actor.UserID); err != nil {
		response.Internal(c, "failed to mark notifications read")
		return
	}
	response.NoContent(c)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *Handler) UnreadCount(c *gin.Context) {
	actor := middleware.Actor(c)
	n, err := h.repo.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Internal(c, "failed to count notifications")
		return
	}
	response.OK(c, gin.H{"unread": n})
}
