package schools

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/audit"
	"github.com/hourtrack/backend/internal/geocode"
	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/pkg/response"
)

const auditListLimit = 200

// Handler handles school HTTP endpoints.
type Handler struct {
	repo     *Repository
	auditLog *audit.Repository
	resolver *geocode.Resolver
	logger   *zap.Logger
}

// NewHandler creates a schools handler.
func NewHandler(repo *Repository, auditLog *audit.Repository, resolver *geocode.Resolver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, auditLog: auditLog, resolver: resolver, logger: logger}
}

type createSchoolRequest struct {
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
}

// Create handles POST /schools. Unauthenticated so a school admin can
// register the school before their own account.
func (h *Handler) Create(c *gin.Context) {
	var req createSchoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}

	s := &models.School{
		Name:       strings.TrimSpace(req.Name),
		Address:    req.Address,
		PostalCode: req.PostalCode,
	}
	if err := h.repo.CreateSchool(c.Request.Context(), s); err != nil {
		h.logger.Error("create school failed", zap.Error(err))
		response.Internal(c, "failed to create school")
		return
	}

	if h.resolver != nil {
		address := strings.TrimSpace(strings.Join([]string{s.Address, s.PostalCode}, " "))
		id := s.ID
		h.resolver.ResolveAsync(address, func(ctx context.Context, coords geocode.Coordinates) error {
			return h.repo.SetCoordinates(ctx, id, coords.Lat, coords.Lng)
		})
	}
	response.Created(c, s)
}

// Get handles GET /schools/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid school id")
		return
	}
	s, err := h.repo.GetSchool(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load school")
		return
	}
	if s == nil {
		response.NotFound(c, "school not found")
		return
	}
	response.OK(c, s)
}

// ownSchool resolves the :id param and requires it to be the actor's school.
func (h *Handler) ownSchool(c *gin.Context) (uuid.UUID, bool) {
	actor := middleware.Actor(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid school id")
		return uuid.Nil, false
	}
	if actor.SchoolID == nil || *actor.SchoolID != id {
		response.Forbidden(c, "not a staff member of this school")
		return uuid.Nil, false
	}
	return id, true
}

type createClassroomRequest struct {
	Name      string     `json:"name" binding:"required"`
	TeacherID *uuid.UUID `json:"teacher_id"`
}

// CreateClassroom handles POST /schools/:id/classrooms (school admins).
func (h *Handler) CreateClassroom(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	var req createClassroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	cr := &models.Classroom{
		SchoolID:  schoolID,
		Name:      strings.TrimSpace(req.Name),
		TeacherID: req.TeacherID,
	}
	if err := h.repo.CreateClassroom(c.Request.Context(), cr); err != nil {
		h.logger.Error("create classroom failed", zap.Error(err))
		response.Internal(c, "failed to create classroom")
		return
	}
	response.Created(c, cr)
}

// ListClassrooms handles GET /schools/:id/classrooms (school staff).
func (h *Handler) ListClassrooms(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	list, err := h.repo.ListClassrooms(c.Request.Context(), schoolID)
	if err != nil {
		response.Internal(c, "failed to list classrooms")
		return
	}
	response.OK(c, list)
}

type assignTeacherRequest struct {
	TeacherID uuid.UUID `json:"teacher_id" binding:"required"`
}

// AssignTeacher handles POST /schools/:id/classrooms/:classroomId/teacher.
func (h *Handler) AssignTeacher(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	classroomID, err := uuid.Parse(c.Param("classroomId"))
	if err != nil {
		response.BadRequest(c, "invalid classroom id")
		return
	}
	var req assignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "teacher_id is required")
		return
	}
	found, err := h.repo.AssignTeacher(c.Request.Context(), schoolID, classroomID, req.TeacherID)
	if err != nil {
		h.logger.Error("assign teacher failed", zap.Error(err))
		response.Internal(c, "failed to assign teacher")
		return
	}
	if !found {
		response.NotFound(c, "classroom not found")
		return
	}
	response.OK(c, gin.H{"classroom_id": classroomID, "teacher_id": req.TeacherID})
}

// DeleteClassroom handles DELETE /schools/:id/classrooms/:classroomId.
func (h *Handler) DeleteClassroom(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	classroomID, err := uuid.Parse(c.Param("classroomId"))
	if err != nil {
		response.BadRequest(c, "invalid classroom id")
		return
	}
	found, err := h.repo.DeleteClassroom(c.Request.Context(), schoolID, classroomID)
	if err != nil {
		response.Internal(c, "failed to delete classroom")
		return
	}
	if !found {
		response.NotFound(c, "classroom not found")
		return
	}
	response.NoContent(c)
}

// Roster handles GET /schools/:id/roster (school staff). Teachers see only
// their own classroom; an optional classroom_id query narrows further.
func (h *Handler) Roster(c *gin.Context) {
	actor := middleware.Actor(c)
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}

	var classroomID *uuid.UUID
	if raw := c.Query("classroom_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid classroom_id")
			return
		}
		classroomID = &id
	}
	if actor.Role == models.RoleTeacher {
		if actor.ClassroomID == nil || (classroomID != nil && *classroomID != *actor.ClassroomID) {
			response.Forbidden(c, "teachers may only view their own classroom")
			return
		}
		classroomID = actor.ClassroomID
	}

	list, err := h.repo.Roster(c.Request.Context(), schoolID, classroomID)
	if err != nil {
		response.Internal(c, "failed to list roster")
		return
	}
	response.OK(c, list)
}

type approveOrgRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
}

// ApproveOrg handles POST /schools/:id/approved-orgs (school admins).
func (h *Handler) ApproveOrg(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	var req approveOrgRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "organization_id is required")
		return
	}
	if err := h.repo.ApproveOrg(c.Request.Context(), schoolID, req.OrganizationID); err != nil {
		if errors.Is(err, ErrDuplicate) {
			response.Conflict(c, "organization is already approved")
			return
		}
		h.logger.Error("approve org failed", zap.Error(err))
		response.Internal(c, "failed to approve organization")
		return
	}
	response.Created(c, gin.H{"school_id": schoolID, "organization_id": req.OrganizationID})
}

// RemoveApprovedOrg handles DELETE /schools/:id/approved-orgs/:orgId.
func (h *Handler) RemoveApprovedOrg(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	orgID, err := uuid.Parse(c.Param("orgId"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}
	found, err := h.repo.RemoveApprovedOrg(c.Request.Context(), schoolID, orgID)
	if err != nil {
		response.Internal(c, "failed to remove organization")
		return
	}
	if !found {
		response.NotFound(c, "organization is not on the approved list")
		return
	}
	response.NoContent(c)
}

// ListApprovedOrgs handles GET /schools/:id/approved-orgs (school staff).
func (h *Handler) ListApprovedOrgs(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	list, err := h.repo.ListApprovedOrgs(c.Request.Context(), schoolID)
	if err != nil {
		response.Internal(c, "failed to list approved organizations")
		return
	}
	response.OK(c, list)
}

// AuditLog handles GET /schools/:id/audit (school staff): recent audit
// entries for the school's students.
func (h *Handler) AuditLog(c *gin.Context) {
	schoolID, ok := h.ownSchool(c)
	if !ok {
		return
	}
	entries, err := h.auditLog.ListBySchool(c.Request.Context(), schoolID, auditListLimit)
	if err != nil {
		response.Internal(c, "failed to list audit entries")
		return
	}
	response.OK(c, entries)
}
