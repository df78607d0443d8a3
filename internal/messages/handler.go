package messages

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/internal/notifications"
	"github.com/hourtrack/backend/pkg/response"
)

// Handler handles direct-message HTTP endpoints.
type Handler struct {
	repo     *Repository
	notifier *notifications.Service
	logger   *zap.Logger
}

// NewHandler creates a messages handler.
func NewHandler(repo *Repository, notifier *notifications.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, notifier: notifier, logger: logger}
}

type sendRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	Body        string    `json:"body" binding:"required"`
}

// Send handles POST /messages.
func (h *Handler) Send(c *gin.Context) {
	actor := middleware.Actor(c)
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "recipient_id and body are required")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		response.BadRequest(c, "body must not be empty")
		return
	}
	if req.RecipientID == actor.UserID {
		response.BadRequest(c, "cannot message yourself")
		return
	}

	m := &models.Message{
		SenderID:    actor.UserID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}
	if err := h.repo.Insert(c.Request.Context(), m); err != nil {
		h.logger.Error("send message failed", zap.Error(err))
		response.Internal(c, "failed to send message")
		return
	}

	h.notifier.Notify(c.Request.Context(), m.RecipientID, models.NotificationNewMessage,
		"New message", "You have a new message.")
	response.Created(c, m)
}

// Thread handles GET /messages/:userId: the conversation with one user,
// marking incoming messages read.
func (h *Handler) Thread(c *gin.Context) {
	actor := middleware.Actor(c)
	otherID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	list, err := h.repo.Thread(c.Request.Context(), actor.UserID, otherID)
	if err != nil {
		response.Internal(c, "failed to load conversation")
		return
	}
	response.OK(c, list)
}

// Conversations handles GET /messages.
func (h *Handler) Conversations(c *gin.Context) {
	actor := middleware.Actor(c)
	list, err := h.repo.Conversations(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Internal(c, "failed to list conversations")
		return
	}
	response.OK(c, list)
}

// UnreadCount handles GET /messages/unread-count.
func (h *Handler) UnreadCount(c *gin.Context) {
	actor := middleware.Actor(c)
	count, err := h.repo.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		response.Internal(c, "failed to count unread messages")
		return
	}
	response.OK(c, gin.H{"unread": count})
}
