package consultation

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/SyncSphere7/smartwin-official/internal/alert"
	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/events"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/metrics"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidMethod     = errors.New("payment method is required")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

type UserFinder interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
}

type Settings struct {
	AdminEmail string
	Currency   string
}

type Service interface {
	ClaimManualPayment(ctx context.Context, userID int, method string, amount float64) (int, error)
	OpenForPayment(ctx context.Context, userID, paymentID int, amount float64) (int, error)
	List(ctx context.Context) ([]Request, error)
	UpdateStatus(ctx context.Context, id int, status string) (*Request, error)
}

type service struct {
	repo      Repository
	users     UserFinder
	mailer    email.Mailer
	templates *email.Templates
	alerts    alert.Notifier
	events    events.Publisher
	settings  Settings
}

func NewService(
	repo Repository,
	users UserFinder,
	mailer email.Mailer,
	templates *email.Templates,
	alerts alert.Notifier,
	publisher events.Publisher,
	settings Settings,
) Service {
	return &service{
		repo:      repo,
		users:     users,
		mailer:    mailer,
		templates: templates,
		alerts:    alerts,
		events:    publisher,
		settings:  settings,
	}
}

// ClaimManualPayment records an out-of-band payment for human follow-up.
// A repeated claim returns the existing request id and notifies nobody.
func (s *service) ClaimManualPayment(ctx context.Context, userID int, method string, amount float64) (int, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return 0, ErrInvalidMethod
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	req, created, err := s.open(ctx, u, nil, method, amount)
	if err != nil {
		return 0, err
	}
	if !created {
		logger.Info("manual payment already claimed", "user_id", userID, "consultation_id", req.ID)
		return req.ID, nil
	}

	metrics.RecordConsultation(method)
	logger.Info("manual payment claimed", "user_id", userID, "consultation_id", req.ID, "method", method)

	s.notifyClaim(context.WithoutCancel(ctx), u, req)
	return req.ID, nil
}

// OpenForPayment links a completed gateway payment to a consultation
// request. Notifications are left to the payment workflow.
func (s *service) OpenForPayment(ctx context.Context, userID, paymentID int, amount float64) (int, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	req, created, err := s.open(ctx, u, &paymentID, MethodGateway, amount)
	if err != nil {
		return 0, err
	}
	if created {
		metrics.RecordConsultation(MethodGateway)
		s.publish(context.WithoutCancel(ctx), req)
	}
	return req.ID, nil
}

func (s *service) open(ctx context.Context, u *user.User, paymentID *int, method string, amount float64) (*Request, bool, error) {
	existing, err := s.repo.FindByUser(ctx, u.ID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("find consultation request: %w", err)
	}

	created, err := s.repo.Create(ctx, Request{
		UserID:        u.ID,
		PaymentID:     paymentID,
		UserEmail:     u.Email,
		PaymentAmount: amount,
		PaymentMethod: method,
	})
	if errors.Is(err, ErrAlreadyExists) {
		existing, err := s.repo.FindByUser(ctx, u.ID)
		if err != nil {
			return nil, false, fmt.Errorf("find consultation request after conflict: %w", err)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("create consultation request: %w", err)
	}
	return created, true, nil
}

func (s *service) notifyClaim(ctx context.Context, u *user.User, req *Request) {
	currency := s.settings.Currency

	if s.settings.AdminEmail != "" {
		msg, err := s.templates.AdminConsultationAlert(s.settings.AdminEmail, u.Email, u.ID, req.PaymentAmount, currency, req.PaymentMethod)
		if err == nil {
			err = s.mailer.Enqueue(ctx, email.KindAdminAlert, msg)
		}
		if err != nil {
			logger.Warn("admin consultation alert not queued", "consultation_id", req.ID, "error", err)
		}
	}

	msg, err := s.templates.ConsultationConfirmation(u.Email, req.PaymentAmount, currency)
	if err == nil {
		err = s.mailer.Enqueue(ctx, email.KindConsultation, msg)
	}
	if err != nil {
		logger.Warn("consultation confirmation not queued", "consultation_id", req.ID, "error", err)
	}

	text := fmt.Sprintf("<b>Manual payment claim</b>\nUser: %s (#%d)\nMethod: %s\nAmount: %s",
		html.EscapeString(u.Email), u.ID, html.EscapeString(req.PaymentMethod), email.FormatAmount(req.PaymentAmount, currency))
	if err := s.alerts.Notify(ctx, text); err != nil {
		logger.Warn("operator alert failed", "consultation_id", req.ID, "error", err)
	}

	s.publish(ctx, req)
}

func (s *service) publish(ctx context.Context, req *Request) {
	ev := events.New(events.TypeConsultationRequested, map[string]interface{}{
		"consultation_id": req.ID,
		"user_id":         req.UserID,
		"payment_id":      req.PaymentID,
		"payment_method":  req.PaymentMethod,
		"amount":          req.PaymentAmount,
	})
	if err := s.events.Publish(ctx, fmt.Sprint(req.UserID), ev); err != nil {
		logger.Warn("consultation event not published", "consultation_id", req.ID, "error", err)
	}
}

func (s *service) List(ctx context.Context) ([]Request, error) {
	return s.repo.List(ctx)
}

func (s *service) UpdateStatus(ctx context.Context, id int, status string) (*Request, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}
	if !canTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, status)
	if err != nil {
		return nil, err
	}
	logger.Info("consultation status updated", "consultation_id", id, "from", current.Status, "to", status)
	return updated, nil
}
