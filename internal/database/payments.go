package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mareeba/internal/models"
)

const paymentColumns = `id, booking_id, player_id, amount, payment_reference, status, payment_date, created_at, updated_at`

func (db *DB) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	p, err := scanPayment(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (db *DB) GetPaymentByBooking(ctx context.Context, bookingID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = ? ORDER BY created_at DESC LIMIT 1`
	p, err := scanPayment(db.QueryRowContext(ctx, query, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by booking: %w", err)
	}
	return p, nil
}

func (db *DB) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_reference = ? ORDER BY created_at DESC LIMIT 1`
	p, err := scanPayment(db.QueryRowContext(ctx, query, reference))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment by reference: %w", err)
	}
	return p, nil
}

// ConfirmPayment marks the payment completed and flips its booking to
// confirmed-and-paid in one transaction. Matching a bank line to a
// reference happens outside; this just records the outcome.
func (db *DB) ConfirmPayment(ctx context.Context, paymentID string, paidAt time.Time) (*models.Payment, *models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	payment, err := scanPayment(tx.QueryRowContext(ctx, query, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get payment in tx: %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, payment_date = ?, updated_at = ? WHERE id = ?`,
		models.PaymentCompleted, paidAt, now, paymentID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update payment in tx: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, payment_confirmed = 1, version = version + 1, updated_at = ? WHERE id = ?`,
		models.StatusConfirmed, now, payment.BookingID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to confirm booking in tx: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, nil, ErrBookingNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit payment confirmation: %w", err)
	}

	payment.Status = models.PaymentCompleted
	payment.PaymentDate = &paidAt
	payment.UpdatedAt = now

	booking, err := db.GetBooking(ctx, payment.BookingID)
	if err != nil {
		return nil, nil, err
	}
	return payment, booking, nil
}

func (db *DB) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// PaymentsReport returns one row per payment in the date range, joined
// with booking and player data for the reconciliation report.
func (db *DB) PaymentsReport(ctx context.Context, fromDate, toDate string) ([]models.PaymentReportRow, error) {
	query := `SELECT b.id, p.first_name, p.last_name, b.session_date, b.session_time,
                     pay.amount, pay.status, pay.payment_reference
              FROM payments pay
              JOIN bookings b ON b.id = pay.booking_id
              JOIN players p ON p.id = pay.player_id
              WHERE b.session_date >= ? AND b.session_date <= ?
              ORDER BY b.session_date, b.session_time, pay.created_at`
	rows, err := db.QueryContext(ctx, query, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get payments report: %w", err)
	}
	defer rows.Close()

	var report []models.PaymentReportRow
	for rows.Next() {
		var row models.PaymentReportRow
		var first, last string
		err := rows.Scan(
			&row.BookingID, &first, &last, &row.SessionDate, &row.SessionTime,
			&row.Amount, &row.Status, &row.PaymentReference,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		row.PlayerName = first
		if last != "" {
			row.PlayerName = first + " " + last
		}
		report = append(report, row)
	}
	return report, rows.Err()
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var p models.Payment
	var paidAt sql.NullTime
	err := row.Scan(
		&p.ID, &p.BookingID, &p.PlayerID, &p.Amount, &p.PaymentReference,
		&p.Status, &paidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		p.PaymentDate = &paidAt.Time
	}
	return &p, nil
}
