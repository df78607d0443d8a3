package notifications

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hourtrack/backend/internal/models"
	"github.com/hourtrack/backend/pkg/queue"
)

// Publisher pushes a realtime event to a connected user, if any.
type Publisher interface {
	PublishToUser(userID uuid.UUID, event string, payload interface{})
}

// EmailQueue enqueues outbound email jobs.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// UserLookup resolves a recipient's address and preferences.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service is the best-effort side channel for user-facing notifications.
// Every failure here is logged and swallowed: a state transition that already
// persisted is successful regardless of delivery outcome.
type Service struct {
	repo   *Repository
	pub    Publisher
	emails EmailQueue
	users  UserLookup
	logger *zap.Logger
}

// NewService creates a notification service.
func NewService(repo *Repository, pub Publisher, emails EmailQueue, users UserLookup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, pub: pub, emails: emails, users: users, logger: logger}
}

// Notify stores an in-app notification and pushes it over the realtime channel.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, typ, title, body string) {
	n := &models.Notification{UserID: userID, Type: typ, Title: title, Body: body}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.logger.Warn("notification insert failed", zap.Error(err),
			zap.String("user_id", userID.String()), zap.String("type", typ))
		return
	}
	if s.pub != nil {
		s.pub.PublishToUser(userID, "notification", n)
	}
}

// NotifyWithEmail notifies in-app and additionally queues an email unless the
// recipient has opted out of email notifications.
func (s *Service) NotifyWithEmail(ctx context.Context, userID uuid.UUID, typ, title, body string) {
	s.Notify(ctx, userID, typ, title, body)

	if s.emails == nil || s.users == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("email recipient lookup failed", zap.Error(err), zap.String("user_id", userID.String()))
		return
	}
	if u.EmailOptOut {
		return
	}
	err = s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      typ,
		UserID:         userID,
		RecipientEmail: u.Email,
		Subject:        title,
		BodyHTML:       "<p>" + body + "</p>",
	})
	if err != nil {
		s.logger.Warn("email enqueue failed", zap.Error(err), zap.String("user_id", userID.String()))
	}
}
