package models

// SheetBookingRow is the flattened booking shape written to the club
// spreadsheet. Strings only, since that is what the sheet stores.
type SheetBookingRow struct {
	BookingID   string  `json:"booking_id"`
	PlayerID    string  `json:"player_id"`
	PlayerName  string  `json:"player_name"`
	SessionDate string  `json:"session_date"`
	SessionTime string  `json:"session_time"`
	Status      string  `json:"status"`
	Fee         float64 `json:"fee"`
	Reference   string  `json:"payment_reference"`
}

// SheetPaymentRow is the payment line appended on confirmation.
type SheetPaymentRow struct {
	PaymentID  string  `json:"payment_id"`
	BookingID  string  `json:"booking_id"`
	PlayerName string  `json:"player_name"`
	Reference  string  `json:"payment_reference"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
	PaidAt     string  `json:"paid_at"`
}
