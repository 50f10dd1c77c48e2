package consultation

import "time"

const (
	StatusPending     = "pending"
	StatusContacted   = "contacted"
	StatusNegotiating = "negotiating"
	StatusCompleted   = "completed"
	StatusDeclined    = "declined"
)

// MethodGateway labels requests opened by a completed gateway payment.
const MethodGateway = "pesapal"

// transitions lists the operator moves allowed from each status.
var transitions = map[string][]string{
	StatusPending:     {StatusContacted, StatusDeclined},
	StatusContacted:   {StatusNegotiating, StatusCompleted, StatusDeclined},
	StatusNegotiating: {StatusCompleted, StatusDeclined},
}

func canTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Request struct {
	ID            int       `db:"id" json:"id"`
	UserID        int       `db:"user_id" json:"user_id"`
	PaymentID     *int      `db:"payment_id" json:"payment_id,omitempty"`
	UserEmail     string    `db:"user_email" json:"user_email"`
	PaymentAmount float64   `db:"payment_amount" json:"payment_amount"`
	PaymentMethod string    `db:"payment_method" json:"payment_method"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending contacted negotiating completed declined"`
}
