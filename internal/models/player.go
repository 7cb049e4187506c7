package models

import "time"

// Player holds a club member's registration record. The ID is a short
// human-enterable code (e.g. "MB7QK"), not a UUID, so it survives being
// copied by hand onto a bank transfer.
type Player struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	RegisteredAt time.Time `json:"registered_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName returns "First Last" for roster and report display.
func (p Player) FullName() string {
	return p.FirstName + " " + p.LastName
}
