package ticket

import (
	"context"
	"fmt"
	"strings"

	"github.com/SyncSphere7/smartwin-official/internal/assistant"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
)

type Summarizer interface {
	Summarize(ctx context.Context, text string) (*assistant.Reply, error)
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Ticket, error)
	List(ctx context.Context) ([]Ticket, error)
	ToggleVisibility(ctx context.Context, id int) (*Ticket, error)
	Dashboard(ctx context.Context) (*Dashboard, error)
}

type service struct {
	repo       Repository
	summarizer Summarizer
}

func NewService(repo Repository, summarizer Summarizer) Service {
	return &service{repo: repo, summarizer: summarizer}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Ticket, error) {
	t := Ticket{
		ImageURL:         req.ImageURL,
		ThumbnailURL:     req.ThumbnailURL,
		MatchDescription: strings.TrimSpace(req.MatchDescription),
		PayoutAmount:     req.PayoutAmount,
		Verified:         req.Verified,
		Visibility:       VisibilityPublic,
	}
	if t.ThumbnailURL == "" {
		t.ThumbnailURL = t.ImageURL
	}

	// A missing summary never blocks the upload.
	if req.Summarize && s.summarizer != nil {
		reply, err := s.summarizer.Summarize(ctx, summaryPrompt(t))
		if err != nil {
			logger.Warn("ticket summary skipped", "error", err)
		} else {
			t.AISummary = reply.Response
		}
	}

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	logger.Info("ticket created", "ticket_id", created.ID, "verified", created.Verified, "payout", created.PayoutAmount)
	return created, nil
}

func summaryPrompt(t Ticket) string {
	return fmt.Sprintf("Match: %s. Payout: %.2f. Verified: %t.", t.MatchDescription, t.PayoutAmount, t.Verified)
}

func (s *service) List(ctx context.Context) ([]Ticket, error) {
	return s.repo.List(ctx)
}

func (s *service) ToggleVisibility(ctx context.Context, id int) (*Ticket, error) {
	t, err := s.repo.ToggleVisibility(ctx, id)
	if err != nil {
		return nil, err
	}
	logger.Info("ticket visibility changed", "ticket_id", id, "visibility", t.Visibility)
	return t, nil
}

func (s *service) Dashboard(ctx context.Context) (*Dashboard, error) {
	tickets, err := s.repo.ListPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public tickets: %w", err)
	}
	return &Dashboard{Tickets: tickets, Stats: ComputeStats(tickets)}, nil
}
