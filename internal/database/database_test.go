package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mareeba/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestPlayer(t *testing.T, db *DB, id, email string) *models.Player {
	t.Helper()
	p := &models.Player{
		ID:        id,
		FirstName: "Alex",
		LastName:  "Nguyen",
		Email:     email,
	}
	require.NoError(t, db.CreatePlayer(context.Background(), p))
	return p
}

func TestCreateAndGetPlayer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := createTestPlayer(t, db, "MB7QK", "alex@example.com")
	assert.False(t, created.RegisteredAt.IsZero())

	got, err := db.GetPlayer(ctx, "MB7QK")
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.FirstName)
	assert.Equal(t, "alex@example.com", got.Email)

	_, err = db.GetPlayer(ctx, "MB000")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestCreatePlayerEmailTaken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")

	err := db.CreatePlayer(ctx, &models.Player{
		ID: "MB8ZZ", FirstName: "Sam", Email: "ALEX@EXAMPLE.COM",
	})
	assert.ErrorIs(t, err, ErrEmailTaken, "email uniqueness is case-insensitive")

	err = db.CreatePlayer(ctx, &models.Player{
		ID: "MB7QK", FirstName: "Sam", Email: "sam@example.com",
	})
	assert.ErrorIs(t, err, ErrPlayerIDTaken)
}

func TestGetPlayerByEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")

	got, err := db.GetPlayerByEmail(ctx, "Alex@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "MB7QK", got.ID)

	_, err = db.GetPlayerByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func newTestBooking(playerID string) (*models.Booking, *models.Payment) {
	b := &models.Booking{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		SessionDate: "2026-09-04",
		SessionTime: "19:30-21:30",
		Status:      models.StatusPending,
		Fee:         8,
	}
	pay := &models.Payment{
		ID:               uuid.NewString(),
		Amount:           8,
		PaymentReference: playerID + "20260409",
	}
	return b, pay
}

var fridayKeys = []string{"19:30-21:30", "19:30"}

func TestCreateBookingWithLock(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")
	booking, payment := newTestBooking("MB7QK")

	err := db.CreateBookingWithLock(ctx, booking, payment, 20, fridayKeys, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), booking.Version)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, booking.ID, payment.BookingID)

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.False(t, got.PaymentConfirmed)

	gotPay, err := db.GetPaymentByBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, gotPay.ID)
	assert.Nil(t, gotPay.PaymentDate)
}

func TestCreateBookingDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")

	first, firstPay := newTestBooking("MB7QK")
	require.NoError(t, db.CreateBookingWithLock(ctx, first, firstPay, 20, fridayKeys, true))

	second, secondPay := newTestBooking("MB7QK")
	err := db.CreateBookingWithLock(ctx, second, secondPay, 20, fridayKeys, true)
	assert.ErrorIs(t, err, ErrDuplicateBooking)
}

func TestCreateBookingDuplicateAcrossTimeForms(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")

	// Legacy row stored with the bare start time.
	_, err := db.ExecContext(ctx, `INSERT INTO bookings
        (id, player_id, session_date, session_time, status, fee, created_at, updated_at, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		uuid.NewString(), "MB7QK", "2026-09-04", "19:30", models.StatusConfirmed, 8.0, time.Now(), time.Now())
	require.NoError(t, err)

	booking, payment := newTestBooking("MB7QK")
	err = db.CreateBookingWithLock(ctx, booking, payment, 20, fridayKeys, true)
	assert.ErrorIs(t, err, ErrDuplicateBooking)
}

func TestCreateBookingSessionFull(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Two confirmed bookings fill a two-spot session.
	for i, id := range []string{"MB001", "MB002"} {
		createTestPlayer(t, db, id, id+"@example.com")
		b, pay := newTestBooking(id)
		b.Status = models.StatusConfirmed
		require.NoError(t, db.CreateBookingWithLock(ctx, b, pay, 2, fridayKeys, true), "booking %d", i)
	}

	createTestPlayer(t, db, "MB003", "mb003@example.com")
	booking, payment := newTestBooking("MB003")
	err := db.CreateBookingWithLock(ctx, booking, payment, 2, fridayKeys, true)
	assert.ErrorIs(t, err, ErrSessionFull)

	// The operator path skips the capacity gate.
	err = db.CreateBookingWithLock(ctx, booking, payment, 2, fridayKeys, false)
	assert.NoError(t, err)
}

func TestPendingBookingsDoNotHoldSpots(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB001", "mb001@example.com")
	b, pay := newTestBooking("MB001")
	require.NoError(t, db.CreateBookingWithLock(ctx, b, pay, 1, fridayKeys, true))

	// The pending booking above does not consume the single spot.
	createTestPlayer(t, db, "MB002", "mb002@example.com")
	b2, pay2 := newTestBooking("MB002")
	require.NoError(t, db.CreateBookingWithLock(ctx, b2, pay2, 1, fridayKeys, true))

	count, err := db.ConfirmedCount(ctx, "2026-09-04", fridayKeys)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestConfirmedCountMergesTimeForms(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB001", "mb001@example.com")
	createTestPlayer(t, db, "MB002", "mb002@example.com")

	b, pay := newTestBooking("MB001")
	b.Status = models.StatusConfirmed
	require.NoError(t, db.CreateBookingWithLock(ctx, b, pay, 20, fridayKeys, true))

	_, err := db.ExecContext(ctx, `INSERT INTO bookings
        (id, player_id, session_date, session_time, status, fee, created_at, updated_at, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		uuid.NewString(), "MB002", "2026-09-04", "19:30", models.StatusConfirmed, 8.0, time.Now(), time.Now())
	require.NoError(t, err)

	count, err := db.ConfirmedCount(ctx, "2026-09-04", fridayKeys)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpdateBookingStatusWithVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")
	booking, payment := newTestBooking("MB7QK")
	require.NoError(t, db.CreateBookingWithLock(ctx, booking, payment, 20, fridayKeys, true))

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, booking.ID, 1, models.StatusCancelled))

	err := db.UpdateBookingStatusWithVersion(ctx, booking.ID, 1, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")
	booking, payment := newTestBooking("MB7QK")
	require.NoError(t, db.CreateBookingWithLock(ctx, booking, payment, 20, fridayKeys, true))
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, booking.ID, 1, models.StatusCancelled))

	again, againPay := newTestBooking("MB7QK")
	assert.NoError(t, db.CreateBookingWithLock(ctx, again, againPay, 20, fridayKeys, true))
}

func TestConfirmPayment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")
	booking, payment := newTestBooking("MB7QK")
	require.NoError(t, db.CreateBookingWithLock(ctx, booking, payment, 20, fridayKeys, true))

	paidAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	gotPay, gotBooking, err := db.ConfirmPayment(ctx, payment.ID, paidAt)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentCompleted, gotPay.Status)
	require.NotNil(t, gotPay.PaymentDate)
	assert.Equal(t, models.StatusConfirmed, gotBooking.Status)
	assert.True(t, gotBooking.PaymentConfirmed)
	assert.Equal(t, int64(2), gotBooking.Version)

	_, _, err = db.ConfirmPayment(ctx, uuid.NewString(), paidAt)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestRosterNames(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB001", "mb001@example.com")
	createTestPlayer(t, db, "MB002", "mb002@example.com")

	// MB001 confirmed and paid, MB002 confirmed but unpaid.
	b1, pay1 := newTestBooking("MB001")
	require.NoError(t, db.CreateBookingWithLock(ctx, b1, pay1, 20, fridayKeys, true))
	_, _, err := db.ConfirmPayment(ctx, pay1.ID, time.Now())
	require.NoError(t, err)

	b2, pay2 := newTestBooking("MB002")
	b2.Status = models.StatusConfirmed
	require.NoError(t, db.CreateBookingWithLock(ctx, b2, pay2, 20, fridayKeys, true))

	names, err := db.RosterNames(ctx, "2026-09-04", fridayKeys)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alex Nguyen"}, names)
}

func TestGetPlayerBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")
	booking, payment := newTestBooking("MB7QK")
	booking.SessionDate = time.Now().AddDate(0, 0, 3).Format(models.DateFormat)
	require.NoError(t, db.CreateBookingWithLock(ctx, booking, payment, 20, fridayKeys, true))

	// A booking older than two weeks stays out of the listing.
	_, err := db.ExecContext(ctx, `INSERT INTO bookings
        (id, player_id, session_date, session_time, status, fee, created_at, updated_at, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		uuid.NewString(), "MB7QK", time.Now().AddDate(0, 0, -30).Format(models.DateFormat),
		"19:30-21:30", models.StatusConfirmed, 8.0, time.Now(), time.Now())
	require.NoError(t, err)

	bookings, err := db.GetPlayerBookings(ctx, "MB7QK")
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, booking.ID, bookings[0].ID)
}

func TestPaymentsReport(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestPlayer(t, db, "MB7QK", "alex@example.com")
	booking, payment := newTestBooking("MB7QK")
	require.NoError(t, db.CreateBookingWithLock(ctx, booking, payment, 20, fridayKeys, true))

	report, err := db.PaymentsReport(ctx, "2026-09-01", "2026-09-30")
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "Alex Nguyen", report[0].PlayerName)
	assert.Equal(t, payment.PaymentReference, report[0].PaymentReference)
	assert.Equal(t, models.PaymentPending, report[0].Status)

	report, err = db.PaymentsReport(ctx, "2026-10-01", "2026-10-31")
	require.NoError(t, err)
	assert.Empty(t, report)
}
