package user

import (
	"context"
	"errors"
	"strings"

	"github.com/SyncSphere7/smartwin-official/internal/auth"
	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
	Access(ctx context.Context, userID int) (*Access, error)
	List(ctx context.Context) ([]User, error)
	SetPaid(ctx context.Context, userID int, paid bool) (*User, error)
}

type service struct {
	repo      Repository
	jwtSecret string
	mailer    email.Mailer
	templates *email.Templates
	pricing   Pricing
}

func NewService(repo Repository, jwtSecret string, mailer email.Mailer, templates *email.Templates, pricing Pricing) Service {
	return &service{
		repo:      repo,
		jwtSecret: jwtSecret,
		mailer:    mailer,
		templates: templates,
		pricing:   pricing,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	locale := req.Locale
	if locale == "" {
		locale = "en"
	}

	user, err := s.repo.Create(ctx, strings.TrimSpace(req.FullName), email, passwordHash, auth.RoleUser, locale)
	if err != nil {
		return nil, "", "", err
	}

	accessToken, refreshToken, err := auth.GenerateTokens(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	s.sendWelcome(ctx, user)

	logger.Info("user registered", "user_id", user.ID, "locale", user.Locale)
	return user, accessToken, refreshToken, nil
}

func (s *service) sendWelcome(ctx context.Context, user *User) {
	msg, err := s.templates.Welcome(user.Email, user.FullName, user.Locale, s.pricing.Price, s.pricing.Currency)
	if err != nil {
		logger.Error("render welcome email", "user_id", user.ID, "error", err)
		return
	}
	if err := s.mailer.Enqueue(ctx, email.KindWelcome, msg); err != nil {
		logger.Warn("welcome email not queued", "user_id", user.ID, "error", err)
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := auth.GenerateTokens(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	claims, err := auth.ParseRefreshToken(refreshToken, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, ErrUserNotFound
	}

	newAccessToken, err := auth.GenerateAccessToken(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	return newAccessToken, user, nil
}

// Access reads the paid flag from the ledger, never from the token, so an
// unlock is visible on the very next request.
func (s *service) Access(ctx context.Context, userID int) (*Access, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	access := &Access{Paid: user.Paid || user.Role == auth.RoleAdmin}
	if !access.Paid {
		access.Price = s.pricing.Price
		access.Currency = s.pricing.Currency
		access.BitcoinAddress = s.pricing.BitcoinAddress
	}
	return access, nil
}

func (s *service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

func (s *service) SetPaid(ctx context.Context, userID int, paid bool) (*User, error) {
	user, err := s.repo.SetPaid(ctx, userID, paid)
	if err != nil {
		return nil, err
	}
	logger.Info("access flag overridden by admin", "user_id", userID, "paid", paid)
	return user, nil
}
