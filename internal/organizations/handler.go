package organizations

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/geocode"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo     *Repository
	resolver *geocode.Resolver
	logger   *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, resolver *geocode.Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, resolver: resolver, logger: logger}
}

type createRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Address     string `json:"address"`
	PostalCode  string `json:"postal_code"`
}

// Create handles POST /organizations. Unauthenticated so an org admin can
// register the organization before their own account.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}

	o := &models.Organization{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Address:     req.Address,
		PostalCode:  req.PostalCode,
	}
	if err := h.repo.Create(c.Request.Context(), o); err != nil {
		h.logger.Error("create organization failed", zap.Error(err))
		response.Internal(c, "failed to create organization")
		return
	}

	if h.resolver != nil {
		address := strings.TrimSpace(strings.Join([]string{o.Address, o.PostalCode}, " "))
		id := o.ID
		h.resolver.ResolveAsync(address, func(ctx context.Context, coords geocode.Coordinates) error {
			return h.repo.SetCoordinates(ctx, id, coords.Lat, coords.Lng)
		})
	}
	response.Created(c, o)
}

// Get handles GET /organizations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load organization")
		return
	}
	if o == nil {
		response.NotFound(c, "organization not found")
		return
	}
	response.OK(c, o)
}

// List handles GET /organizations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list organizations")
		return
	}
	response.OK(c, list)
}
