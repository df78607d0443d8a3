package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/emaillogs"
	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/internal/reports"
	"github.com/hourtrack/backend/pkg/mailer"
	"github.com/hourtrack/backend/pkg/queue"
	"github.com/hourtrack/backend/pkg/storage"
)

// Worker pulls email-dispatch and report-export jobs off the Redis queues.
type Worker struct {
	queue     *queue.Queue
	mail      mailer.Mailer
	emailLogs *emaillogs.Repository
	reports   *reports.Repository
	s3        *storage.S3
	logger    *zap.Logger
}

// New creates a worker. A nil s3 fails report jobs at process time.
func New(q *queue.Queue, mail mailer.Mailer, emailLogs *emaillogs.Repository, repRepo *reports.Repository, s3 *storage.S3, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: q, mail: mail, emailLogs: emailLogs, reports: repRepo, s3: s3, logger: logger}
}

// Process executes one job.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		return w.processEmail(ctx, job)
	case queue.JobTypeReportExport:
		return w.processReport(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processEmail(ctx context.Context, job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	sendErr := w.mail.Send(ctx, payload.RecipientEmail, payload.Subject, payload.BodyHTML)

	log := &models.EmailLog{
		UserID:    &payload.UserID,
		Recipient: payload.RecipientEmail,
		EmailType: payload.EmailType,
		Subject:   payload.Subject,
		Status:    "sent",
	}
	if sendErr != nil {
		log.Status = "failed"
		log.Error = sendErr.Error()
	}
	if err := w.emailLogs.Insert(ctx, log); err != nil {
		w.logger.Error("email log insert failed", zap.Error(err))
	}

	if sendErr != nil {
		return fmt.Errorf("send email: %w", sendErr)
	}
	w.logger.Info("email sent",
		zap.String("recipient", payload.RecipientEmail),
		zap.String("email_type", payload.EmailType))
	return nil
}

func (w *Worker) processReport(ctx context.Context, job *queue.Job) error {
	var payload queue.ReportExportPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	rep, err := w.reports.GetByID(ctx, payload.ReportID)
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	if rep == nil {
		return fmt.Errorf("report not found: %s", payload.ReportID)
	}
	if rep.Status == models.ReportCompleted {
		w.logger.Info("report already completed", zap.String("report_id", rep.ID.String()))
		return nil
	}

	if err := w.buildAndUpload(ctx, rep); err != nil {
		if markErr := w.reports.MarkFailed(ctx, rep.ID, err.Error()); markErr != nil {
			w.logger.Error("mark report failed", zap.Error(markErr))
		}
		return err
	}
	return nil
}

func (w *Worker) buildAndUpload(ctx context.Context, rep *models.HourReport) error {
	if w.s3 == nil {
		return fmt.Errorf("report storage not configured")
	}

	rows, err := w.reports.ExportRows(ctx, rep)
	if err != nil {
		return fmt.Errorf("export rows: %w", err)
	}
	doc, err := reports.BuildCSV(rows)
	if err != nil {
		return fmt.Errorf("build csv: %w", err)
	}

	key := storage.ReportKey(rep.SchoolID.String(), rep.ID.String())
	if err := w.s3.Upload(ctx, w.s3.ReportsBucket(), key, "text/csv", bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	if err := w.reports.MarkCompleted(ctx, rep.ID, key, len(rows)); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	w.logger.Info("report export completed",
		zap.String("report_id", rep.ID.String()),
		zap.String("s3_key", key),
		zap.Int("rows", len(rows)))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		job, key, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job, key); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
