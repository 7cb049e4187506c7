package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mareeba/internal/models"
)

const bookingColumns = `id, player_id, session_date, session_time, status, payment_confirmed, fee, created_at, updated_at, version`

// timeKeys carries both stored spellings of a session time ("19:30-21:30"
// and "19:30"); every lookup below must match either one.
func inClause(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func timeArgs(date string, timeKeys []string) []interface{} {
	args := make([]interface{}, 0, len(timeKeys)+1)
	args = append(args, date)
	for _, k := range timeKeys {
		args = append(args, k)
	}
	return args
}

// ConfirmedCount returns how many confirmed bookings hold spots for the
// session occurrence. This is the number capacity and availability use.
func (db *DB) ConfirmedCount(ctx context.Context, date string, timeKeys []string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM bookings
              WHERE session_date = ? AND session_time IN (%s) AND status = ?`, inClause(len(timeKeys)))
	args := append(timeArgs(date, timeKeys), models.StatusConfirmed)

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get confirmed count: %w", err)
	}
	return count, nil
}

// HasActiveBooking reports whether the player already holds a pending or
// confirmed booking for the occurrence.
func (db *DB) HasActiveBooking(ctx context.Context, playerID, date string, timeKeys []string) (bool, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM bookings
              WHERE player_id = ? AND session_date = ? AND session_time IN (%s)
              AND status IN (?, ?)`, inClause(len(timeKeys)))
	args := append([]interface{}{playerID}, timeArgs(date, timeKeys)...)
	args = append(args, models.StatusPending, models.StatusConfirmed)

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check active booking: %w", err)
	}
	return count > 0, nil
}

// CreateBookingWithLock re-checks the duplicate and capacity rules inside
// one transaction and inserts the booking together with its pending
// payment record. Either both rows land or neither does.
//
// enforceCapacity is false on the operator path, which may overbook.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking, payment *models.Payment, maxPlayers int, timeKeys []string, enforceCapacity bool) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	queryDup := fmt.Sprintf(`SELECT COUNT(*) FROM bookings
              WHERE player_id = ? AND session_date = ? AND session_time IN (%s)
              AND status IN (?, ?)`, inClause(len(timeKeys)))
	argsDup := append([]interface{}{booking.PlayerID}, timeArgs(booking.SessionDate, timeKeys)...)
	argsDup = append(argsDup, models.StatusPending, models.StatusConfirmed)

	var dupCount int
	if err := tx.QueryRowContext(ctx, queryDup, argsDup...).Scan(&dupCount); err != nil {
		return fmt.Errorf("failed to check duplicate in tx: %w", err)
	}
	if dupCount > 0 {
		return ErrDuplicateBooking
	}

	if enforceCapacity {
		queryCount := fmt.Sprintf(`SELECT COUNT(*) FROM bookings
              WHERE session_date = ? AND session_time IN (%s) AND status = ?`, inClause(len(timeKeys)))
		argsCount := append(timeArgs(booking.SessionDate, timeKeys), models.StatusConfirmed)

		var bookedCount int
		if err := tx.QueryRowContext(ctx, queryCount, argsCount...).Scan(&bookedCount); err != nil {
			return fmt.Errorf("failed to check capacity in tx: %w", err)
		}
		if bookedCount >= maxPlayers {
			return ErrSessionFull
		}
	}

	now := time.Now()
	queryInsert := `INSERT INTO bookings (
                id, player_id, session_date, session_time, status,
                payment_confirmed, fee, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		booking.ID,
		booking.PlayerID,
		booking.SessionDate,
		booking.SessionTime,
		booking.Status,
		booking.PaymentConfirmed,
		booking.Fee,
		now,
		now,
		1,
	)
	if err != nil {
		// The partial unique index backstops a race between the check
		// above and the insert.
		if strings.Contains(err.Error(), "ux_bookings_active") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed: bookings") {
			return ErrDuplicateBooking
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	queryPayment := `INSERT INTO payments (
                id, booking_id, player_id, amount, payment_reference,
                status, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryPayment,
		payment.ID,
		booking.ID,
		booking.PlayerID,
		payment.Amount,
		payment.PaymentReference,
		models.PaymentPending,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	payment.BookingID = booking.ID
	payment.PlayerID = booking.PlayerID
	payment.Status = models.PaymentPending
	payment.CreatedAt = now
	payment.UpdatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetBookingsByDate(ctx context.Context, date string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE session_date = ? ORDER BY session_time, created_at`
	return db.queryBookings(ctx, query, date)
}

// GetPlayerBookings returns the player's bookings from two weeks back
// onward, newest first.
func (db *DB) GetPlayerBookings(ctx context.Context, playerID string) ([]models.Booking, error) {
	twoWeeksAgo := time.Now().AddDate(0, 0, -14).Format(models.DateFormat)
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE player_id = ? AND session_date >= ? ORDER BY session_date DESC, created_at DESC`
	return db.queryBookings(ctx, query, playerID, twoWeeksAgo)
}

func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// ConfirmedCountsByTime returns confirmed booking counts for a date
// grouped by the stored session_time string. Callers fold the two
// spellings of the same session together.
func (db *DB) ConfirmedCountsByTime(ctx context.Context, date string) (map[string]int, error) {
	query := `SELECT session_time, COUNT(*) FROM bookings
              WHERE session_date = ? AND status = ? GROUP BY session_time`
	rows, err := db.QueryContext(ctx, query, date, models.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmed counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var timeStr string
		var count int
		if err := rows.Scan(&timeStr, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[timeStr] = count
	}
	return counts, rows.Err()
}

// RosterNames returns the names of confirmed, paid players for a session
// occurrence in booking order.
func (db *DB) RosterNames(ctx context.Context, date string, timeKeys []string) ([]string, error) {
	query := fmt.Sprintf(`SELECT p.first_name, p.last_name FROM bookings b
              JOIN players p ON p.id = b.player_id
              WHERE b.session_date = ? AND b.session_time IN (%s)
              AND b.status = ? AND b.payment_confirmed = 1
              ORDER BY b.created_at`, inClause(len(timeKeys)))
	args := append(timeArgs(date, timeKeys), models.StatusConfirmed)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get roster: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var first, last string
		if err := rows.Scan(&first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		name := first
		if last != "" {
			name = first + " " + last
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...interface{}) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.PlayerID, &b.SessionDate, &b.SessionTime, &b.Status,
		&b.PaymentConfirmed, &b.Fee, &b.CreatedAt, &b.UpdatedAt, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
