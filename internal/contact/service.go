package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

type Service interface {
	Submit(ctx context.Context, userID int, fromEmail string, req SubmitRequest) (*Message, error)
	List(ctx context.Context) ([]Message, error)
}

type service struct {
	repo       Repository
	mailer     email.Mailer
	templates  *email.Templates
	adminEmail string
}

func NewService(repo Repository, mailer email.Mailer, templates *email.Templates, adminEmail string) Service {
	return &service{repo: repo, mailer: mailer, templates: templates, adminEmail: adminEmail}
}

// Submit stores the message first. The admin email is best-effort and
// never fails a stored submission.
func (s *service) Submit(ctx context.Context, userID int, fromEmail string, req SubmitRequest) (*Message, error) {
	m, err := s.repo.Create(ctx, userID, strings.TrimSpace(req.Subject), strings.TrimSpace(req.Message))
	if err != nil {
		return nil, fmt.Errorf("store contact message: %w", err)
	}
	logger.Info("contact message stored", "message_id", m.ID, "user_id", userID)

	if s.adminEmail == "" {
		return m, nil
	}
	msg, err := s.templates.ContactMessage(s.adminEmail, fromEmail, m.Subject, m.Message)
	if err == nil {
		err = s.mailer.Enqueue(context.WithoutCancel(ctx), email.KindContact, msg)
	}
	if err != nil {
		logger.Warn("contact notification not queued", "message_id", m.ID, "error", err)
	}
	return m, nil
}

func (s *service) List(ctx context.Context) ([]Message, error) {
	return s.repo.List(ctx)
}
