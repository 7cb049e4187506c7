package models

import "time"

// Payment is the reconciliation record matching an off-band bank
// transfer to a booking via the free-text reference string.
type Payment struct {
	ID               string     `json:"id"`
	BookingID        string     `json:"booking_id"`
	PlayerID         string     `json:"player_id"`
	Amount           float64    `json:"amount"`
	PaymentReference string     `json:"payment_reference"`
	Status           string     `json:"status"` // pending, completed, failed, refunded
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
