package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mareeba/internal/clock"
	"mareeba/internal/database"
	"mareeba/internal/events"
	"mareeba/internal/logging"
	"mareeba/internal/models"
	"mareeba/internal/repository"
	"mareeba/internal/schedule"
)

type testEnv struct {
	db       *database.DB
	bookings *BookingService
	players  *PlayerService
	payments *PaymentService
	cache    *repository.MemoryAvailabilityCache
	bus      *events.EventBus
}

// Tuesday 2026-09-01 noon; the nearest friday-evening is 2026-09-04.
var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func testCatalog(t *testing.T) *schedule.Catalog {
	t.Helper()
	catalog, err := schedule.NewCatalog([]models.Session{
		{ID: "friday-evening", DayOfWeek: "friday", StartTime: "19:30", EndTime: "21:30", MaxPlayers: 20, Fee: 8},
		{ID: "sunday-afternoon", DayOfWeek: "sunday", StartTime: "14:30", EndTime: "16:30", MaxPlayers: 20, Fee: 8},
		{ID: "monday-evening", DayOfWeek: "monday", StartTime: "20:00", EndTime: "22:00", MaxPlayers: 2, Fee: 8},
	})
	require.NoError(t, err)
	return catalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	catalog := testCatalog(t)
	cache := repository.NewMemoryAvailabilityCache(5 * time.Second)
	bus := events.NewEventBus()
	clk := clock.Fixed(testNow)
	logger := logging.Nop()

	return &testEnv{
		db:       db,
		bookings: NewBookingService(db, catalog, cache, bus, nil, clk, logger),
		players:  NewPlayerService(db, bus, clk, logger),
		payments: NewPaymentService(db, cache, bus, nil, clk, logger),
		cache:    cache,
		bus:      bus,
	}
}

func registerPlayer(t *testing.T, env *testEnv, email string) *models.Player {
	t.Helper()
	p, err := env.players.RegisterPlayer(context.Background(), "Alex", "Nguyen", email, "0400000000")
	require.NoError(t, err)
	return p
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := registerPlayer(t, env, "alex@example.com")

	booking, payment, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30-21:30", false)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, booking.Status)
	assert.Equal(t, "19:30-21:30", booking.SessionTime)
	assert.Equal(t, 8.0, booking.Fee)
	assert.Equal(t, player.ID+"20260409", payment.PaymentReference, "reference is id, year, day, month")
	assert.Equal(t, models.PaymentPending, payment.Status)
}

func TestCreateBookingAcceptsBareStartTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := registerPlayer(t, env, "alex@example.com")

	booking, _, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30", false)
	require.NoError(t, err)
	assert.Equal(t, "19:30-21:30", booking.SessionTime, "stored form is always the range")
}

func TestCreateBookingFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := registerPlayer(t, env, "alex@example.com")

	t.Run("invalid date", func(t *testing.T) {
		_, _, err := env.bookings.CreateBooking(ctx, player.ID, "04/09/2026", "19:30", false)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("invalid time", func(t *testing.T) {
		_, _, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "7:30pm", false)
		assert.ErrorIs(t, err, ErrInvalidTime)
	})

	t.Run("player not found", func(t *testing.T) {
		_, _, err := env.bookings.CreateBooking(ctx, "MB000", "2026-09-04", "19:30", false)
		assert.ErrorIs(t, err, database.ErrPlayerNotFound)
	})

	t.Run("unknown session", func(t *testing.T) {
		// Valid time, wrong day: no session saturday evening.
		_, _, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-05", "19:30", false)
		assert.ErrorIs(t, err, database.ErrUnknownSession)
	})

	t.Run("past date", func(t *testing.T) {
		_, _, err := env.bookings.CreateBooking(ctx, player.ID, "2026-08-28", "19:30", false)
		assert.ErrorIs(t, err, database.ErrPastDate)
	})

	t.Run("duplicate", func(t *testing.T) {
		_, _, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30", false)
		require.NoError(t, err)
		_, _, err = env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30-21:30", false)
		assert.ErrorIs(t, err, database.ErrDuplicateBooking)
	})
}

func TestCreateBookingSessionFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// monday-evening holds two players; fill it with confirmed bookings.
	for _, email := range []string{"a@example.com", "b@example.com"} {
		p := registerPlayer(t, env, email)
		_, pay, err := env.bookings.CreateBooking(ctx, p.ID, "2026-09-07", "20:00", false)
		require.NoError(t, err)
		_, _, err = env.payments.ConfirmByID(ctx, pay.ID)
		require.NoError(t, err)
	}

	third := registerPlayer(t, env, "c@example.com")
	_, _, err := env.bookings.CreateBooking(ctx, third.ID, "2026-09-07", "20:00", false)
	assert.ErrorIs(t, err, database.ErrSessionFull)

	// The operator path may overbook.
	booking, _, err := env.bookings.CreateBooking(ctx, third.ID, "2026-09-07", "20:00", true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, booking.Status)
}

func TestCancelBooking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := registerPlayer(t, env, "alex@example.com")

	booking, _, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30", false)
	require.NoError(t, err)

	require.NoError(t, env.bookings.CancelBooking(ctx, booking.ID, booking.Version))

	got, err := env.bookings.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	// Cancelling again is a no-op, not an error.
	assert.NoError(t, env.bookings.CancelBooking(ctx, booking.ID, got.Version))

	// The slot is free to rebook.
	_, _, err = env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30", false)
	assert.NoError(t, err)
}

func TestCancelBookingVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := registerPlayer(t, env, "alex@example.com")

	booking, _, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30", false)
	require.NoError(t, err)

	err = env.bookings.CancelBooking(ctx, booking.ID, booking.Version+5)
	assert.ErrorIs(t, err, database.ErrConcurrentModification)
}

func TestGetAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rows, err := env.bookings.GetAvailability(ctx, "2026-09-04")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "friday-evening", rows[0].Session.ID)
	assert.Equal(t, 0, rows[0].BookedCount)
	assert.Equal(t, 20, rows[0].AvailableSpots)

	// Saturday has no sessions.
	rows, err = env.bookings.GetAvailability(ctx, "2026-09-05")
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = env.bookings.GetAvailability(ctx, "not-a-date")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestGetAvailabilityCountsConfirmedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := registerPlayer(t, env, "alex@example.com")

	_, pay, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30", false)
	require.NoError(t, err)

	rows, err := env.bookings.GetAvailability(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.Equal(t, 0, rows[0].BookedCount, "pending bookings hold no spot")

	_, _, err = env.payments.ConfirmByID(ctx, pay.ID)
	require.NoError(t, err)

	rows, err = env.bookings.GetAvailability(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.Equal(t, 1, rows[0].BookedCount)
	assert.Equal(t, 19, rows[0].AvailableSpots)
}

func TestGetAvailabilityUsesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stale := []models.SessionAvailability{{
		Session: models.Session{ID: "friday-evening"}, Date: "2026-09-04", BookedCount: 7, AvailableSpots: 13,
	}}
	require.NoError(t, env.cache.Set(ctx, "2026-09-04", stale))

	rows, err := env.bookings.GetAvailability(ctx, "2026-09-04")
	require.NoError(t, err)
	assert.Equal(t, 7, rows[0].BookedCount, "fresh cache entry is served as-is")
}

func TestNextSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	player := registerPlayer(t, env, "alex@example.com")

	_, pay, err := env.bookings.CreateBooking(ctx, player.ID, "2026-09-04", "19:30", false)
	require.NoError(t, err)
	_, _, err = env.payments.ConfirmByID(ctx, pay.ID)
	require.NoError(t, err)

	next, err := env.bookings.NextSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2026-09-04", next.Date)
	assert.Equal(t, "friday-evening", next.Session.ID)
	assert.Equal(t, []string{"Alex Nguyen"}, next.Players)
	assert.Equal(t, 19, next.AvailableSpots)
}

func TestNextSessionSkipsEndedToday(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Friday 22:00, after the evening session ended.
	clk := clock.Fixed(time.Date(2026, 9, 4, 22, 0, 0, 0, time.UTC))
	svc := NewBookingService(db, testCatalog(t), repository.NewMemoryAvailabilityCache(time.Second), nil, nil, clk, logging.Nop())

	next, err := svc.NextSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "sunday-afternoon", next.Session.ID)
	assert.Equal(t, "2026-09-06", next.Date)
}
