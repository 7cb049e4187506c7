package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mareeba/internal/database"
	"mareeba/internal/models"
	"mareeba/internal/service"
)

func (s *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.bookings.Sessions()})
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	rows, err := s.bookings.GetAvailability(r.Context(), dateStr)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Bookers only see sessions with spots left; the admin endpoint
	// returns the full list.
	open := make([]models.SessionAvailability, 0, len(rows))
	for _, row := range rows {
		if row.AvailableSpots > 0 {
			open = append(open, row)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": dateStr, "sessions": open})
}

func (s *HTTPServer) handleAdminAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	rows, err := s.bookings.GetAvailability(r.Context(), dateStr)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": dateStr, "sessions": rows})
}

func (s *HTTPServer) handleNextSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	next, err := s.bookings.NextSession(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if next == nil {
		writeError(w, http.StatusNotFound, "no upcoming session")
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (s *HTTPServer) handlePlayers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var body struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Email     string `json:"email"`
			Phone     string `json:"phone"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		player, err := s.players.RegisterPlayer(r.Context(), body.FirstName, body.LastName, body.Email, body.Phone)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, player)

	case http.MethodGet:
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}
		player, err := s.players.LookupByEmail(r.Context(), email)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, player)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handlePlayerByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/players/")
	playerID, tail, _ := strings.Cut(rest, "/")
	if playerID == "" {
		writeError(w, http.StatusBadRequest, "player id is required")
		return
	}

	switch {
	case tail == "" && r.Method == http.MethodGet:
		player, err := s.players.GetPlayer(r.Context(), playerID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, player)

	case tail == "" && r.Method == http.MethodPut:
		var body struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Email     string `json:"email"`
			Phone     string `json:"phone"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		player, err := s.players.UpdateProfile(r.Context(), playerID, body.FirstName, body.LastName, body.Email, body.Phone)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, player)

	case tail == "bookings" && r.Method == http.MethodGet:
		bookings, err := s.players.GetPlayerBookings(r.Context(), playerID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type bookingRequest struct {
	PlayerID    string `json:"player_id"`
	SessionDate string `json:"session_date"`
	SessionTime string `json:"session_time"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.createBooking(w, r, false)
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request, operator bool) {
	var body bookingRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, payment, err := s.bookings.CreateBooking(r.Context(), body.PlayerID, body.SessionDate, body.SessionTime, operator)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"booking": booking, "payment": payment})
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	bookingID, tail, _ := strings.Cut(rest, "/")
	if bookingID == "" {
		writeError(w, http.StatusBadRequest, "booking id is required")
		return
	}

	switch {
	case tail == "" && r.Method == http.MethodGet:
		booking, err := s.bookings.GetBooking(r.Context(), bookingID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)

	case tail == "cancel" && r.Method == http.MethodPost:
		var body struct {
			Version int64 `json:"version"`
		}
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.bookings.CancelBooking(r.Context(), bookingID, body.Version); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
		if dateStr == "" {
			writeError(w, http.StatusBadRequest, "date is required")
			return
		}
		bookings, err := s.bookings.GetBookingsByDate(r.Context(), dateStr)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"date": dateStr, "bookings": bookings})

	case http.MethodPost:
		// Operator bookings bypass the capacity gate.
		s.createBooking(w, r, true)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Reference string `json:"reference"`
		PaymentID string `json:"payment_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	var payment, booking any
	switch {
	case body.Reference != "":
		payment, booking, err = s.payments.ConfirmByReference(r.Context(), body.Reference)
	case body.PaymentID != "":
		payment, booking, err = s.payments.ConfirmByID(r.Context(), body.PaymentID)
	default:
		writeError(w, http.StatusBadRequest, "reference or payment_id is required")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": payment, "booking": booking})
}

func (s *HTTPServer) handlePaymentsReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	fromDate := strings.TrimSpace(r.URL.Query().Get("from"))
	toDate := strings.TrimSpace(r.URL.Query().Get("to"))
	if fromDate == "" || toDate == "" {
		writeError(w, http.StatusBadRequest, "from and to are required")
		return
	}

	rows, err := s.payments.Report(r.Context(), fromDate, toDate)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		if s.exporter == nil {
			writeError(w, http.StatusNotImplemented, "export is not configured")
			return
		}
		filePath, err := s.exporter.WritePaymentsReport(rows, fromDate, toDate)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		http.ServeFile(w, r, filePath)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"from": fromDate, "to": toDate, "payments": rows})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// writeServiceError maps the service and store sentinels onto HTTP
// statuses; anything unrecognized is a 500 with a generic message.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidTime),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrPlayerNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrPaymentNotFound),
		errors.Is(err, database.ErrUnknownSession):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrDuplicateBooking),
		errors.Is(err, database.ErrEmailTaken),
		errors.Is(err, database.ErrConcurrentModification):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrSessionFull),
		errors.Is(err, database.ErrPastDate):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// Store I/O failures and anything else unrecognized land here.
		s.logger.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}
