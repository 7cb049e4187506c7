package database

import "errors"

// Sentinel errors returned by the store. Callers branch on these with
// errors.Is; the HTTP layer maps each one to its own status code.
var (
	ErrPlayerNotFound         = errors.New("player not found")
	ErrEmailTaken             = errors.New("email already registered")
	ErrPlayerIDTaken          = errors.New("player id already taken")
	ErrUnknownSession         = errors.New("no session at that date and time")
	ErrDuplicateBooking       = errors.New("player already booked for this session")
	ErrSessionFull            = errors.New("session is full")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPastDate               = errors.New("cannot book a past date")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
)
