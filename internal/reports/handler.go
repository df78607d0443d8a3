package reports

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/middleware"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/pkg/queue"
	"github.com/hourtrack/backend/pkg/response"
	"github.com/hourtrack/backend/pkg/storage"
)

// Handler handles hour-report HTTP endpoints.
type Handler struct {
	repo   *Repository
	jobs   *queue.Queue
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a reports handler. A nil s3 disables downloads.
func NewHandler(repo *Repository, jobs *queue.Queue, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jobs: jobs, s3: s3, logger: logger}
}

type requestReport struct {
	ClassroomID *uuid.UUID `json:"classroom_id"`
	FromDate    string     `json:"from_date"`
	ToDate      string     `json:"to_date"`
}

// Request handles POST /reports (school staff): creates a pending report and
// queues the export job.
func (h *Handler) Request(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor.SchoolID == nil {
		response.Forbidden(c, "no school scope")
		return
	}

	var req requestReport
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.BadRequest(c, "invalid request body")
		return
	}

	rep := &models.HourReport{
		SchoolID:    *actor.SchoolID,
		ClassroomID: req.ClassroomID,
		RequestedBy: actor.UserID,
		Status:      models.ReportPending,
	}
	if req.FromDate != "" {
		d, err := time.Parse("2006-01-02", req.FromDate)
		if err != nil {
			response.BadRequest(c, "from_date must be YYYY-MM-DD")
			return
		}
		rep.FromDate = &d
	}
	if req.ToDate != "" {
		d, err := time.Parse("2006-01-02", req.ToDate)
		if err != nil {
			response.BadRequest(c, "to_date must be YYYY-MM-DD")
			return
		}
		rep.ToDate = &d
	}

	if err := h.repo.Create(c.Request.Context(), rep); err != nil {
		h.logger.Error("create report failed", zap.Error(err))
		response.Internal(c, "failed to create report")
		return
	}
	if err := h.jobs.EnqueueReportExport(c.Request.Context(), queue.ReportExportPayload{
		ReportID: rep.ID,
		SchoolID: rep.SchoolID,
	}); err != nil {
		h.logger.Error("enqueue report export failed", zap.Error(err))
		if markErr := h.repo.MarkFailed(c.Request.Context(), rep.ID, "enqueue failed"); markErr != nil {
			h.logger.Error("mark report failed", zap.Error(markErr))
		}
		response.Internal(c, "failed to queue report export")
		return
	}
	response.Created(c, rep)
}

// List handles GET /reports (school staff).
func (h *Handler) List(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor.SchoolID == nil {
		response.Forbidden(c, "no school scope")
		return
	}
	list, err := h.repo.ListBySchool(c.Request.Context(), *actor.SchoolID)
	if err != nil {
		response.Internal(c, "failed to list reports")
		return
	}
	response.OK(c, list)
}

// Get handles GET /reports/:id (school staff, own school).
func (h *Handler) Get(c *gin.Context) {
	rep, ok := h.ownReport(c)
	if !ok {
		return
	}
	response.OK(c, rep)
}

// Download handles GET /reports/:id/download: a presigned S3 URL for a
// completed export.
func (h *Handler) Download(c *gin.Context) {
	rep, ok := h.ownReport(c)
	if !ok {
		return
	}
	if rep.Status != models.ReportCompleted || rep.S3Key == "" {
		response.Conflict(c, "report is not ready for download")
		return
	}
	if h.s3 == nil {
		response.Internal(c, "report storage is not configured")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.ReportsBucket(), rep.S3Key, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign report failed", zap.Error(err))
		response.Internal(c, "failed to generate download link")
		return
	}
	response.OK(c, gin.H{"url": url, "expires_in_seconds": int(h.s3.PresignExpire().Seconds())})
}

// Delete handles DELETE /reports/:id (school staff): removes the report row
// and, for completed exports, the stored CSV object.
func (h *Handler) Delete(c *gin.Context) {
	rep, ok := h.ownReport(c)
	if !ok {
		return
	}
	if rep.S3Key != "" && h.s3 != nil {
		if err := h.s3.DeleteObject(c.Request.Context(), h.s3.ReportsBucket(), rep.S3Key); err != nil {
			h.logger.Warn("delete report object failed",
				zap.String("s3_key", rep.S3Key), zap.Error(err))
		}
	}
	if err := h.repo.Delete(c.Request.Context(), rep.ID); err != nil {
		h.logger.Error("delete report failed", zap.Error(err))
		response.Internal(c, "failed to delete report")
		return
	}
	response.NoContent(c)
}

func (h *Handler) ownReport(c *gin.Context) (*models.HourReport, bool) {
	actor := middleware.Actor(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid report id")
		return nil, false
	}
	rep, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load report")
		return nil, false
	}
	if rep == nil {
		response.NotFound(c, "report not found")
		return nil, false
	}
	if actor.SchoolID == nil || *actor.SchoolID != rep.SchoolID {
		response.Forbidden(c, "report belongs to another school")
		return nil, false
	}
	return rep, true
}
