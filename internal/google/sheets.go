package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"mareeba/internal/config"
	"mareeba/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var errRowNotFound = errors.New("booking row not found")

// SheetsService mirrors bookings and payments into the club spreadsheet.
// It only ever writes; the database stays the source of truth.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	bookingsSheet string
	paymentsSheet string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewSheetsService(cfg config.GoogleConfig) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	service := &SheetsService{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		bookingsSheet: cfg.BookingsSheet,
		paymentsSheet: cfg.PaymentsSheet,
		rowCache:      make(map[string]int),
	}

	// Warm up the row cache in the background and refresh it hourly;
	// stale entries only cost an extra column scan.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = service.WarmUpCache(ctx)
	}()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_ = service.WarmUpCache(ctx)
			cancel()
		}
	}()

	return service, nil
}

// TestConnection reads one cell to verify credentials and sharing.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail extracts the account the spreadsheet must be
// shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// WarmUpCache populates the row index cache from the booking ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id != "" {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// AppendBooking adds a new booking row.
func (s *SheetsService) AppendBooking(ctx context.Context, row models.SheetBookingRow) error {
	values := []interface{}{
		row.BookingID,
		row.PlayerID,
		row.PlayerName,
		row.SessionDate,
		row.SessionTime,
		row.Status,
		row.Fee,
		row.Reference,
		time.Now().Format("2006-01-02 15:04:05"),
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.bookingsSheet+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// UpdateBookingStatus rewrites the status cell of an exported booking.
// A booking that never made it to the sheet gets appended as a stub so
// the status is not lost.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, bookingID, status string) error {
	rowIdx, err := s.findBookingRow(ctx, bookingID)
	if errors.Is(err, errRowNotFound) {
		return s.AppendBooking(ctx, models.SheetBookingRow{BookingID: bookingID, Status: status})
	}
	if err != nil {
		return err
	}

	statusRange := fmt.Sprintf("%s!F%d:F%d", s.bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("%s!I%d:I%d", s.bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{time.Now().Format("2006-01-02 15:04:05")}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// AppendPayment adds a payment line to the payments sheet.
func (s *SheetsService) AppendPayment(ctx context.Context, row models.SheetPaymentRow) error {
	values := []interface{}{
		row.PaymentID,
		row.BookingID,
		row.PlayerName,
		row.Reference,
		row.Amount,
		row.Status,
		row.PaidAt,
		time.Now().Format("2006-01-02 15:04:05"),
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.paymentsSheet+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// findBookingRow locates the 1-based row for a booking ID in column A,
// consulting the cache before scanning the column.
func (s *SheetsService) findBookingRow(ctx context.Context, bookingID string) (int, error) {
	if bookingID == "" {
		return 0, fmt.Errorf("booking id is required")
	}

	if row, ok := s.getCachedRow(bookingID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.bookingsSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id == bookingID {
			rowIdx := i + 1
			s.setCachedRow(bookingID, rowIdx)
			return rowIdx, nil
		}
	}

	return 0, errRowNotFound
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}
