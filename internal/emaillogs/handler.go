package emaillogs

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/pkg/response"
)

const listLimit = 200

// Handler handles email-log HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an email-logs handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /email-logs (school staff): recent outbound email
// attempts for the school's users.
func (h *Handler) List(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor.SchoolID == nil {
		response.Forbidden(c, "no school scope")
		return
	}
	list, err := h.repo.ListBySchool(c.Request.Context(), *actor.SchoolID, listLimit)
	if err != nil {
		h.logger.Error("list email logs failed", zap.Error(err))
		response.Internal(c, "failed to list email logs")
		return
	}
	response.OK(c, list)
}
