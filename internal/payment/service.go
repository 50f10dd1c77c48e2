package payment

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/SyncSphere7/smartwin-official/internal/alert"
	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/events"
	"github.com/SyncSphere7/smartwin-official/internal/gateway"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/metrics"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

var (
	ErrInvalidAmount   = errors.New("amount must be at least 0.01")
	ErrInvalidCurrency = errors.New("currency must be a three letter code")
	// ErrPersistence wraps ledger failures. Details stay in the logs.
	ErrPersistence = errors.New("payment ledger unavailable")
)

type UserFinder interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
}

// ConsultationOpener records the follow-up request for a completed payment.
type ConsultationOpener interface {
	OpenForPayment(ctx context.Context, userID, paymentID int, amount float64) (int, error)
}

type Dependencies struct {
	Repo          Repository
	Users         UserFinder
	Gateway       gateway.Client
	Consultations ConsultationOpener
	Mailer        email.Mailer
	Templates     *email.Templates
	Alerts        alert.Notifier
	Events        events.Publisher
}

type Settings struct {
	CallbackURL string
	WebhookURL  string
	// IPNID is a pre-registered notification id. Empty means register lazily.
	IPNID           string
	DefaultCurrency string
	AdminEmail      string
	Description     string
}

type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Reconcile(ctx context.Context, trackingID, source string) (*ReconcileResult, error)
	Lookup(ctx context.Context, trackingID string) (*Payment, error)
	ListForUser(ctx context.Context, userID int) ([]Payment, error)
	ListAll(ctx context.Context) ([]WithUser, error)
}

type service struct {
	Dependencies
	settings Settings
}

func NewService(deps Dependencies, settings Settings) Service {
	if settings.Description == "" {
		settings.Description = "Smart-Win dashboard access"
	}
	return &service{Dependencies: deps, settings: settings}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

func (s *service) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	// The ledger stores cents; the gateway must be charged the stored value.
	req.Amount = roundCents(req.Amount)
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.settings.DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}

	token, err := s.Gateway.GetToken(ctx)
	if err != nil {
		metrics.RecordPaymentInitiated("auth_error")
		logger.Error("gateway token request failed", "user_id", req.UserID, "error", err)
		return nil, err
	}

	ipnID, err := s.notificationID(ctx, token)
	if err != nil {
		metrics.RecordPaymentInitiated("registration_error")
		logger.Error("ipn registration failed", "user_id", req.UserID, "error", err)
		return nil, err
	}

	// The row and its reference exist before the gateway hears of the order.
	reference := uuid.NewString()
	p, err := s.Repo.Create(ctx, req.UserID, req.Amount, currency, reference)
	if err != nil {
		metrics.RecordPaymentInitiated("persistence_error")
		logger.Error("create pending payment failed", "user_id", req.UserID, "error", err)
		return nil, persistence("create payment", err)
	}

	order, err := s.Gateway.SubmitOrder(ctx, token, gateway.Order{
		MerchantReference: reference,
		Currency:          currency,
		Amount:            req.Amount,
		Description:       s.settings.Description,
		CallbackURL:       s.settings.CallbackURL,
		NotificationID:    ipnID,
		BillingAddress:    gateway.BillingAddress{EmailAddress: req.Email},
	})
	if err != nil {
		metrics.RecordPaymentInitiated("submission_error")
		logger.Error("order submission failed",
			"payment_id", p.ID, "merchant_reference", reference, "error", err)
		if ferr := s.Repo.MarkFailed(context.WithoutCancel(ctx), p.ID); ferr != nil {
			logger.Error("mark payment failed", "payment_id", p.ID, "error", ferr)
		}
		return nil, err
	}

	if err := s.Repo.SetTrackingID(ctx, p.ID, order.TrackingID); err != nil {
		metrics.RecordPaymentInitiated("persistence_error")
		logger.Error("store tracking id failed",
			"payment_id", p.ID, "merchant_reference", reference, "tracking_id", order.TrackingID, "error", err)
		return nil, persistence("store tracking id", err)
	}

	metrics.RecordPaymentInitiated("submitted")
	logger.Info("payment initiated",
		"payment_id", p.ID, "user_id", req.UserID, "tracking_id", order.TrackingID, "amount", req.Amount, "currency", currency)

	return &InitiateResult{
		PaymentID:   p.ID,
		TrackingID:  order.TrackingID,
		RedirectURL: order.RedirectURL,
	}, nil
}

func (s *service) notificationID(ctx context.Context, token string) (string, error) {
	if s.settings.IPNID != "" {
		return s.settings.IPNID, nil
	}
	return s.Gateway.RegisterCallback(ctx, token, s.settings.WebhookURL)
}

// Reconcile asks the gateway for the authoritative status of an order and
// applies it to the ledger. It is safe to call repeatedly and concurrently
// for the same tracking id.
func (s *service) Reconcile(ctx context.Context, trackingID, source string) (*ReconcileResult, error) {
	p, err := s.Repo.FindByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordReconciliation(source, "not_found")
			return nil, ErrNotFound
		}
		metrics.RecordReconciliation(source, "error")
		return nil, persistence("find payment", err)
	}

	token, err := s.Gateway.GetToken(ctx)
	if err != nil {
		metrics.RecordReconciliation(source, "error")
		return nil, err
	}

	st, err := s.Gateway.GetStatus(ctx, token, trackingID)
	if err != nil {
		metrics.RecordReconciliation(source, "error")
		return nil, err
	}

	if !st.Completed() {
		status := st.Normalized()
		metrics.RecordReconciliation(source, status)
		logger.Info("payment not completed upstream",
			"payment_id", p.ID, "tracking_id", trackingID, "upstream_status", status, "source", source)
		return &ReconcileResult{Status: status, Payment: p}, nil
	}

	if p.Status == StatusCompleted {
		metrics.RecordReconciliation(source, "already_completed")
		return &ReconcileResult{Status: StatusCompleted, Payment: p}, nil
	}

	won, err := s.Repo.Complete(ctx, p.ID, p.UserID)
	if err != nil {
		metrics.RecordReconciliation(source, "error")
		logger.Error("complete payment failed", "payment_id", p.ID, "tracking_id", trackingID, "error", err)
		return nil, persistence("complete payment", err)
	}

	p.Status = StatusCompleted
	if !won {
		metrics.RecordReconciliation(source, "already_completed")
		logger.Info("payment completed by a concurrent reconcile", "payment_id", p.ID, "tracking_id", trackingID)
		return &ReconcileResult{Status: StatusCompleted, Payment: p}, nil
	}

	metrics.RecordReconciliation(source, StatusCompleted)
	metrics.RecordAccessGranted()
	logger.Info("payment completed, access granted",
		"payment_id", p.ID, "user_id", p.UserID, "tracking_id", trackingID, "source", source)

	s.afterCompletion(context.WithoutCancel(ctx), p, trackingID)

	return &ReconcileResult{Status: StatusCompleted, Payment: p}, nil
}

// afterCompletion runs once per payment, for the reconcile that won the
// transition. Every step is best-effort.
func (s *service) afterCompletion(ctx context.Context, p *Payment, trackingID string) {
	u, err := s.Users.FindByID(ctx, p.UserID)
	if err != nil {
		logger.Error("load user for confirmation failed", "payment_id", p.ID, "user_id", p.UserID, "error", err)
		u = &user.User{ID: p.UserID, Locale: "en"}
	}

	if u.Email != "" {
		msg, err := s.Templates.PaymentConfirmation(u.Email, u.FullName, u.Locale, p.Amount, p.Currency)
		if err == nil {
			err = s.Mailer.Enqueue(ctx, email.KindPaymentConfirmation, msg)
		}
		if err != nil {
			logger.Warn("payment confirmation not queued", "payment_id", p.ID, "error", err)
		}
	}

	if s.settings.AdminEmail != "" {
		msg, err := s.Templates.AdminPaymentAlert(s.settings.AdminEmail, u.Email, u.ID, p.Amount, p.Currency, trackingID)
		if err == nil {
			err = s.Mailer.Enqueue(ctx, email.KindAdminAlert, msg)
		}
		if err != nil {
			logger.Warn("admin payment alert not queued", "payment_id", p.ID, "error", err)
		}
	}

	text := fmt.Sprintf("<b>Payment completed</b>\nUser: %s (#%d)\nAmount: %s\nTracking: %s",
		html.EscapeString(u.Email), u.ID, email.FormatAmount(p.Amount, p.Currency), html.EscapeString(trackingID))
	if err := s.Alerts.Notify(ctx, text); err != nil {
		logger.Warn("operator alert failed", "payment_id", p.ID, "error", err)
	}

	ev := events.New(events.TypePaymentCompleted, map[string]interface{}{
		"payment_id":         p.ID,
		"user_id":            p.UserID,
		"amount":             p.Amount,
		"currency":           p.Currency,
		"merchant_reference": p.MerchantReference,
		"tracking_id":        trackingID,
	})
	if err := s.Events.Publish(ctx, trackingID, ev); err != nil {
		logger.Warn("payment event not published", "payment_id", p.ID, "error", err)
	}

	if _, err := s.Consultations.OpenForPayment(ctx, p.UserID, p.ID, p.Amount); err != nil {
		logger.Warn("consultation request not opened", "payment_id", p.ID, "error", err)
	}
}

func (s *service) Lookup(ctx context.Context, trackingID string) (*Payment, error) {
	p, err := s.Repo.FindByTrackingID(ctx, trackingID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistence("find payment", err)
	}
	return p, nil
}

func (s *service) ListForUser(ctx context.Context, userID int) ([]Payment, error) {
	payments, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list payments", err)
	}
	return payments, nil
}

func (s *service) ListAll(ctx context.Context) ([]WithUser, error) {
	payments, err := s.Repo.List(ctx)
	if err != nil {
		return nil, persistence("list payments", err)
	}
	return payments, nil
}
