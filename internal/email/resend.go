package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

var (
	ErrNotification  = errors.New("notification failed")
	ErrNotConfigured = errors.New("email sender not configured")
)

type Message struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
}

// Sender delivers a message immediately and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// ResendSender delivers through the Resend transactional email API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(baseURL, apiKey, from string) *ResendSender {
	s := &ResendSender{from: from}
	if apiKey == "" {
		return s
	}

	client := resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey)
	if baseURL != "" {
		if u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/"); err == nil {
			client.BaseURL = u
		}
	}
	s.client = client
	return s
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}

	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("%w: resend: %v", ErrNotification, err)
	}
	if sent == nil || sent.Id == "" {
		return "", fmt.Errorf("%w: resend returned no message id", ErrNotification)
	}

	return sent.Id, nil
}
