package user

import "time"

type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Paid         bool      `db:"paid" json:"paid"`
	Locale       string    `db:"locale" json:"locale"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type RegisterRequest struct {
	FullName string `json:"full_name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Locale   string `json:"locale" binding:"omitempty,oneof=en es fr"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Access is what the paywall needs to decide between the dashboard and
// the payment options.
type Access struct {
	Paid           bool    `json:"paid"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	BitcoinAddress string  `json:"bitcoinAddress,omitempty"`
}

type Pricing struct {
	Price          float64
	Currency       string
	BitcoinAddress string
}

type SetPaidRequest struct {
	Paid *bool `json:"paid" binding:"required"`
}
