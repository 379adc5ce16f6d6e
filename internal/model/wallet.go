package model

import "time"

// PendingRequest is a credit top-up submitted to the backend but not yet
// resolved. The server-assigned ID doubles as the idempotence key.
type PendingRequest struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Pending request status values. Only StatusPending entries are held in the
// live list; approved/rejected requests are removed on resolution.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Profile is the authoritative customer profile returned by the backend.
type Profile struct {
	UserID  int64   `json:"user_id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Locale  string  `json:"locale"`
	Balance float64 `json:"balance"`
}

// Order is a storefront order history entry (pass-through from the backend).
type Order struct {
	ID        int64   `json:"id"`
	Number    string  `json:"number"`
	Status    string  `json:"status"`
	Total     float64 `json:"total"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at"`
}

// Payment is a payment history entry (pass-through from the backend).
type Payment struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"order_id"`
	Method    string  `json:"method"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at"`
}
