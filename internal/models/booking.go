package models

import "time"

// Booking is a player's claim on one dated occurrence of a session.
// SessionTime is stored canonically as "start-end"; the bare start form
// is still accepted on input because historical rows carry both.
type Booking struct {
	ID               string    `json:"id"`
	PlayerID         string    `json:"player_id"`
	SessionDate      string    `json:"session_date"` // YYYY-MM-DD
	SessionTime      string    `json:"session_time"`
	Status           string    `json:"status"` // pending, confirmed, cancelled
	PaymentConfirmed bool      `json:"payment_confirmed"`
	Fee              float64   `json:"fee"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int64     `json:"version"`
}

// Active reports whether the booking holds its slot against duplicates.
func (b Booking) Active() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}
