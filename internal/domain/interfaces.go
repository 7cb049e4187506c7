package domain

import (
	"context"
	"time"

	"mareeba/internal/models"
)

type Repository interface {
	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	GetPlayerByEmail(ctx context.Context, email string) (*models.Player, error)
	UpdatePlayer(ctx context.Context, player *models.Player) error
	ListPlayers(ctx context.Context) ([]models.Player, error)

	CreateBookingWithLock(ctx context.Context, booking *models.Booking, payment *models.Payment, maxPlayers int, timeKeys []string, enforceCapacity bool) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookingsByDate(ctx context.Context, date string) ([]models.Booking, error)
	GetPlayerBookings(ctx context.Context, playerID string) ([]models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error
	ConfirmedCount(ctx context.Context, date string, timeKeys []string) (int, error)
	ConfirmedCountsByTime(ctx context.Context, date string) (map[string]int, error)
	HasActiveBooking(ctx context.Context, playerID, date string, timeKeys []string) (bool, error)
	RosterNames(ctx context.Context, date string, timeKeys []string) ([]string, error)

	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	GetPaymentByBooking(ctx context.Context, bookingID string) (*models.Payment, error)
	GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error)
	ConfirmPayment(ctx context.Context, paymentID string, paidAt time.Time) (*models.Payment, *models.Booking, error)
	UpdatePaymentStatus(ctx context.Context, id, status string) error
	PaymentsReport(ctx context.Context, fromDate, toDate string) ([]models.PaymentReportRow, error)

	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
}

// AvailabilityCache keeps the computed availability projection for a
// date. Misses are not errors; the caller recomputes and calls Set.
type AvailabilityCache interface {
	Get(ctx context.Context, date string) ([]models.SessionAvailability, bool, error)
	Set(ctx context.Context, date string, rows []models.SessionAvailability) error
	Invalidate(ctx context.Context, date string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	AppendBooking(ctx context.Context, row models.SheetBookingRow) error
	UpdateBookingStatus(ctx context.Context, bookingID, status string) error
	AppendPayment(ctx context.Context, row models.SheetPaymentRow) error
}

type SyncWorker interface {
	EnqueueBooking(ctx context.Context, booking *models.Booking, playerName, reference string) error
	EnqueueStatusChange(ctx context.Context, bookingID, status string) error
	EnqueuePayment(ctx context.Context, row models.SheetPaymentRow) error
}
