package payment

import "time"

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Reconcile trigger sources, used as a metrics label.
const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
	SourceCLI     = "cli"
)

type Payment struct {
	ID                int       `db:"id" json:"id"`
	UserID            int       `db:"user_id" json:"user_id"`
	Amount            float64   `db:"amount" json:"amount"`
	Currency          string    `db:"currency" json:"currency"`
	Status            string    `db:"status" json:"status"`
	MerchantReference string    `db:"merchant_reference" json:"merchant_reference"`
	TrackingID        *string   `db:"tracking_id" json:"tracking_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// WithUser is the admin listing row.
type WithUser struct {
	Payment
	UserEmail string `db:"user_email" json:"user_email"`
}

type InitiateRequest struct {
	UserID   int
	Email    string
	Amount   float64
	Currency string
}

type InitiateResult struct {
	PaymentID   int    `json:"paymentId"`
	TrackingID  string `json:"trackingId"`
	RedirectURL string `json:"redirectUrl"`
}

type ReconcileResult struct {
	Status  string   `json:"status"`
	Payment *Payment `json:"payment"`
}

type CheckoutRequest struct {
	UserID   int      `json:"userId"`
	Email    string   `json:"email" binding:"omitempty,email"`
	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency" binding:"omitempty,len=3,alpha"`
}

// VerifyRequest accepts both verification shapes: a gateway tracking id,
// or a manual claim of an out-of-band payment.
type VerifyRequest struct {
	TrackingID    string  `json:"trackingId"`
	UserID        int     `json:"userId"`
	PaymentMethod string  `json:"paymentMethod" binding:"max=50"`
	Amount        float64 `json:"amount"`
}

// Notification is the IPN payload, delivered either as query parameters
// or as a JSON body.
type Notification struct {
	OrderTrackingID        string `json:"OrderTrackingId" form:"OrderTrackingId"`
	OrderNotificationType  string `json:"OrderNotificationType" form:"OrderNotificationType"`
	OrderMerchantReference string `json:"OrderMerchantReference" form:"OrderMerchantReference"`
}
