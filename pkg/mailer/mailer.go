package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends a single HTML email. Implementations must not block callers
// beyond the request itself; delivery failures are reported via the error.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SendGrid sends email through the SendGrid v3 API.
type SendGrid struct {
	client   *sendgrid.Client
	fromName string
	fromAddr string
}

// NewSendGrid creates a SendGrid mailer.
func NewSendGrid(apiKey, fromName, fromAddr string) *SendGrid {
	return &SendGrid{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// Send delivers one email via SendGrid.
func (m *SendGrid) Send(ctx context.Context, to, subject, html string) error {
	from := sgmail.NewEmail(m.fromName, m.fromAddr)
	msg := sgmail.NewSingleEmail(from, subject, sgmail.NewEmail("", to), "", html)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d", resp.StatusCode)
	}
	return nil
}

// Console logs emails instead of sending them. Used when no API key is configured.
type Console struct {
	logger *zap.Logger
}

// NewConsole creates a console mailer.
func NewConsole(logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{logger: logger}
}

// Send logs the email to the console.
func (m *Console) Send(_ context.Context, to, subject, html string) error {
	m.logger.Info("email (console)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(html)),
	)
	return nil
}

// New returns a SendGrid mailer when apiKey is set, else a console mailer.
func New(apiKey, fromName, fromAddr string, logger *zap.Logger) Mailer {
	if apiKey == "" {
		return NewConsole(logger)
	}
	return NewSendGrid(apiKey, fromName, fromAddr)
}
