package models

// SessionAvailability is one row of the availability projection for a
// specific date: the session plus how many spots remain.
type SessionAvailability struct {
	Session        Session `json:"session"`
	Date           string  `json:"date"`
	BookedCount    int     `json:"booked_count"`
	AvailableSpots int     `json:"available_spots"`
}

// NextSession describes the nearest upcoming occurrence and its roster.
type NextSession struct {
	Date           string   `json:"date"`
	Session        Session  `json:"session"`
	Players        []string `json:"players"`
	AvailableSpots int      `json:"available_spots"`
}

// PaymentReportRow is one line of the operator reconciliation report.
type PaymentReportRow struct {
	BookingID        string  `json:"booking_id"`
	PlayerName       string  `json:"player_name"`
	SessionDate      string  `json:"session_date"`
	SessionTime      string  `json:"session_time"`
	Amount           float64 `json:"amount"`
	Status           string  `json:"status"`
	PaymentReference string  `json:"payment_reference"`
}
