package ticket

import "time"

const (
	VisibilityPublic = "public"
	VisibilityHidden = "hidden"
)

// Ticket is a winning-ticket proof shown on the paid dashboard.
type Ticket struct {
	ID               int       `db:"id" json:"id"`
	ImageURL         string    `db:"image_url" json:"image_url"`
	ThumbnailURL     string    `db:"thumbnail_url" json:"thumbnail_url"`
	MatchDescription string    `db:"match_description" json:"match_description"`
	PayoutAmount     float64   `db:"payout_amount" json:"payout_amount"`
	Verified         bool      `db:"verified" json:"verified"`
	AISummary        string    `db:"ai_summary" json:"ai_summary"`
	Visibility       string    `db:"visibility" json:"visibility"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

type CreateRequest struct {
	ImageURL         string  `json:"image_url" validate:"required,url"`
	ThumbnailURL     string  `json:"thumbnail_url" validate:"omitempty,url"`
	MatchDescription string  `json:"match_description" validate:"required,max=500"`
	PayoutAmount     float64 `json:"payout_amount" validate:"gte=0"`
	Verified         bool    `json:"verified"`
	// Summarize asks the assistant for an analyst summary on creation.
	Summarize bool `json:"summarize"`
}

type Stats struct {
	TotalWins   int     `json:"totalWins"`
	TotalPayout float64 `json:"totalPayout"`
	SuccessRate float64 `json:"successRate"`
}

type Dashboard struct {
	Tickets []Ticket `json:"tickets"`
	Stats   Stats    `json:"stats"`
}

// ComputeStats counts verified tickets as wins and sums every payout.
func ComputeStats(tickets []Ticket) Stats {
	var s Stats
	for _, t := range tickets {
		if t.Verified {
			s.TotalWins++
		}
		s.TotalPayout += t.PayoutAmount
	}
	if len(tickets) > 0 {
		s.SuccessRate = float64(s.TotalWins) / float64(len(tickets)) * 100
	}
	return s
}
