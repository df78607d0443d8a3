package opportunities

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/audit"
	"github.com/hourtrack/backend/internal/geocode"
	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/internal/notifications"
	"github.com/hourtrack/backend/pkg/response"
)

// SignupLookup gives the handler the user ids holding live signups, for
// cancellation notices.
type SignupLookup interface {
	ActiveUserIDsByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]uuid.UUID, error)
}

// Handler handles opportunity HTTP endpoints.
type Handler struct {
	repo     *Repository
	signups  SignupLookup
	notifier *notifications.Service
	auditLog *audit.Repository
	resolver *geocode.Resolver
	logger   *zap.Logger
}

// NewHandler creates an opportunities handler.
func NewHandler(repo *Repository, signups SignupLookup, notifier *notifications.Service, auditLog *audit.Repository, resolver *geocode.Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, signups: signups, notifier: notifier, auditLog: auditLog, resolver: resolver, logger: logger}
}

type createRequest struct {
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	Date          string   `json:"date" binding:"required"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	DurationHours float64  `json:"duration_hours"`
	Capacity      int      `json:"capacity" binding:"required"`
	Address       string   `json:"address"`
	PostalCode    string   `json:"postal_code"`
	Tags          []string `json:"tags"`
}

// Create handles POST /opportunities (org admins).
func (h *Handler) Create(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor.OrganizationID == nil {
		response.Forbidden(c, "no organization scope")
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "title, date and capacity are required")
		return
	}
	if req.Capacity <= 0 {
		response.BadRequest(c, "capacity must be positive")
		return
	}
	if req.DurationHours < 0 {
		response.BadRequest(c, "duration_hours must not be negative")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	o := &models.Opportunity{
		OrganizationID: *actor.OrganizationID,
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Date:           date,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		DurationHours:  req.DurationHours,
		Capacity:       req.Capacity,
		Status:         models.OpportunityActive,
		Address:        req.Address,
		PostalCode:     req.PostalCode,
		Tags:           req.Tags,
	}
	if o.Tags == nil {
		o.Tags = []string{}
	}
	if err := h.repo.Create(c.Request.Context(), o); err != nil {
		h.logger.Error("create opportunity failed", zap.Error(err))
		response.Internal(c, "failed to create opportunity")
		return
	}

	h.resolveLocation(o)
	response.Created(c, o)
}

// resolveLocation kicks off a background geocode of the posting's address.
func (h *Handler) resolveLocation(o *models.Opportunity) {
	if h.resolver == nil {
		return
	}
	address := strings.TrimSpace(strings.Join([]string{o.Address, o.PostalCode}, " "))
	id := o.ID
	h.resolver.ResolveAsync(address, func(ctx context.Context, coords geocode.Coordinates) error {
		return h.repo.SetCoordinates(ctx, id, coords.Lat, coords.Lng)
	})
}

// Get handles GET /opportunities/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return
	}
	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load opportunity")
		return
	}
	if o == nil {
		response.NotFound(c, "opportunity not found")
		return
	}
	response.OK(c, o)
}

// List handles GET /opportunities. When the caller belongs to a school the
// result is ranked: approved-org postings first, then by distance from the
// school.
func (h *Handler) List(c *gin.Context) {
	actor := middleware.Actor(c)

	var f Filters
	f.Query = c.Query("q")
	f.Tag = c.Query("tag")
	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(c, "date must be YYYY-MM-DD")
			return
		}
		f.Date = &d
	}
	if raw := c.Query("organization_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid organization_id")
			return
		}
		f.OrganizationID = &id
	}
	if raw := c.Query("status"); raw != "" {
		f.Status = models.OpportunityStatus(raw)
	}

	list, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to list opportunities")
		return
	}

	if actor.SchoolID != nil {
		approved, err := h.repo.ApprovedOrgIDs(c.Request.Context(), *actor.SchoolID)
		if err != nil {
			response.Internal(c, "failed to list opportunities")
			return
		}
		lat, lng, err := h.repo.SchoolCoordinates(c.Request.Context(), *actor.SchoolID)
		if err != nil {
			response.Internal(c, "failed to list opportunities")
			return
		}
		list = RankForSchool(list, approved, lat, lng)
	}
	response.OK(c, list)
}

// Cancel handles POST /opportunities/:id/cancel (org admin of the owning
// org). Terminal; every student with a live signup is notified.
func (h *Handler) Cancel(c *gin.Context) {
	o, ok := h.ownedOpportunity(c)
	if !ok {
		return
	}
	moved, err := h.repo.SetStatus(c.Request.Context(), o.ID, models.OpportunityActive, models.OpportunityCancelled)
	if err != nil {
		response.Internal(c, "failed to cancel opportunity")
		return
	}
	if !moved {
		response.Conflict(c, "opportunity is not active")
		return
	}

	h.recordLifecycle(c, models.AuditActionOpportunityCancel, o.ID)

	userIDs, err := h.signups.ActiveUserIDsByOpportunity(c.Request.Context(), o.ID)
	if err != nil {
		h.logger.Warn("cancel notice lookup failed", zap.String("opportunity_id", o.ID.String()), zap.Error(err))
	}
	for _, userID := range userIDs {
		h.notifier.Notify(c.Request.Context(), userID, models.NotificationOpportunityCancelled,
			"Opportunity cancelled", o.Title+" has been cancelled by the organization.")
	}

	o.Status = models.OpportunityCancelled
	response.OK(c, o)
}

// Complete handles POST /opportunities/:id/complete (org admin of the owning org).
func (h *Handler) Complete(c *gin.Context) {
	o, ok := h.ownedOpportunity(c)
	if !ok {
		return
	}
	moved, err := h.repo.SetStatus(c.Request.Context(), o.ID, models.OpportunityActive, models.OpportunityCompleted)
	if err != nil {
		response.Internal(c, "failed to complete opportunity")
		return
	}
	if !moved {
		response.Conflict(c, "opportunity is not active")
		return
	}
	h.recordLifecycle(c, models.AuditActionOpportunityComplete, o.ID)
	o.Status = models.OpportunityCompleted
	response.OK(c, o)
}

// recordLifecycle appends a standalone audit entry for an opportunity status
// change. The change has already committed, so a failure is logged only.
func (h *Handler) recordLifecycle(c *gin.Context, action string, opportunityID uuid.UUID) {
	actor := middleware.Actor(c)
	if err := h.auditLog.Insert(c.Request.Context(), action, actor.UserID, nil,
		map[string]interface{}{"opportunity_id": opportunityID}); err != nil {
		h.logger.Warn("audit insert failed", zap.String("action", action), zap.Error(err))
	}
}

func (h *Handler) ownedOpportunity(c *gin.Context) (*models.Opportunity, bool) {
	actor := middleware.Actor(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid opportunity id")
		return nil, false
	}
	o, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load opportunity")
		return nil, false
	}
	if o == nil {
		response.NotFound(c, "opportunity not found")
		return nil, false
	}
	if actor.OrganizationID == nil || *actor.OrganizationID != o.OrganizationID {
		response.Forbidden(c, "opportunity belongs to another organization")
		return nil, false
	}
	return o, true
}
