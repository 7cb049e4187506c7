package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mareeba/internal/database"
	"mareeba/internal/logging"
	"mareeba/internal/models"
)

type fakeSheets struct {
	mu       sync.Mutex
	bookings []models.SheetBookingRow
	payments []models.SheetPaymentRow
	statuses map[string]string
	failures int
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{statuses: make(map[string]string)}
}

func (f *fakeSheets) AppendBooking(ctx context.Context, row models.SheetBookingRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sheets unavailable")
	}
	f.bookings = append(f.bookings, row)
	return nil
}

func (f *fakeSheets) UpdateBookingStatus(ctx context.Context, bookingID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sheets unavailable")
	}
	f.statuses[bookingID] = status
	return nil
}

func (f *fakeSheets) AppendPayment(ctx context.Context, row models.SheetPaymentRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sheets unavailable")
	}
	f.payments = append(f.payments, row)
	return nil
}

func newTestWorker(t *testing.T, sheets *fakeSheets, retry RetryPolicy) (*SheetsWorker, *database.DB) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSheetsWorker(db, sheets, nil, retry, logging.Nop()), db
}

func testBooking() *models.Booking {
	return &models.Booking{
		ID:          "b-1",
		PlayerID:    "MB7QK",
		SessionDate: "2026-09-04",
		SessionTime: "19:30-21:30",
		Status:      models.StatusPending,
		Fee:         8,
	}
}

func TestEnqueueBookingPersistsTask(t *testing.T) {
	sheets := newFakeSheets()
	w, db := newTestWorker(t, sheets, RetryPolicy{})
	ctx := context.Background()

	if err := w.EnqueueBooking(ctx, testBooking(), "Alex Nguyen", "MB7QK20260409"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 pending task, got %d", len(tasks))
	}
	if tasks[0].TaskType != TaskAppendBooking {
		t.Errorf("task type = %q, want %q", tasks[0].TaskType, TaskAppendBooking)
	}
	if tasks[0].BookingID != "b-1" {
		t.Errorf("booking id = %q, want b-1", tasks[0].BookingID)
	}
}

func TestProcessTaskAppendsBooking(t *testing.T) {
	sheets := newFakeSheets()
	w, db := newTestWorker(t, sheets, RetryPolicy{})
	ctx := context.Background()

	if err := w.EnqueueBooking(ctx, testBooking(), "Alex Nguyen", "MB7QK20260409"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	tasks, _ := db.GetPendingSyncTasks(ctx, 10)
	w.processTask(ctx, &tasks[0])

	if len(sheets.bookings) != 1 {
		t.Fatalf("expected 1 exported booking, got %d", len(sheets.bookings))
	}
	if sheets.bookings[0].PlayerName != "Alex Nguyen" {
		t.Errorf("player name = %q", sheets.bookings[0].PlayerName)
	}

	remaining, _ := db.GetPendingSyncTasks(ctx, 10)
	if len(remaining) != 0 {
		t.Errorf("task not marked completed, %d still pending", len(remaining))
	}
}

func TestProcessTaskStatusAndPayment(t *testing.T) {
	sheets := newFakeSheets()
	w, db := newTestWorker(t, sheets, RetryPolicy{})
	ctx := context.Background()

	if err := w.EnqueueStatusChange(ctx, "b-1", models.StatusConfirmed); err != nil {
		t.Fatalf("enqueue status: %v", err)
	}
	if err := w.EnqueuePayment(ctx, models.SheetPaymentRow{
		PaymentID: "p-1", BookingID: "b-1", Reference: "MB7QK20260409", Amount: 8, Status: models.PaymentCompleted,
	}); err != nil {
		t.Fatalf("enqueue payment: %v", err)
	}

	tasks, _ := db.GetPendingSyncTasks(ctx, 10)
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}

	if sheets.statuses["b-1"] != models.StatusConfirmed {
		t.Errorf("status not exported: %v", sheets.statuses)
	}
	if len(sheets.payments) != 1 {
		t.Fatalf("expected 1 exported payment, got %d", len(sheets.payments))
	}
}

func TestProcessTaskSchedulesRetry(t *testing.T) {
	sheets := newFakeSheets()
	sheets.failures = 1
	w, db := newTestWorker(t, sheets, RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond})
	ctx := context.Background()

	if err := w.EnqueueStatusChange(ctx, "b-1", models.StatusConfirmed); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	tasks, _ := db.GetPendingSyncTasks(ctx, 10)
	w.processTask(ctx, &tasks[0])

	// First attempt failed; the task is scheduled for retry.
	time.Sleep(5 * time.Millisecond)
	tasks, _ = db.GetPendingSyncTasks(ctx, 10)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 retry task, got %d", len(tasks))
	}
	if tasks[0].RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", tasks[0].RetryCount)
	}

	w.processTask(ctx, &tasks[0])
	if sheets.statuses["b-1"] != models.StatusConfirmed {
		t.Errorf("status not exported after retry")
	}
}

func TestProcessTaskDeadLettersAfterMaxRetries(t *testing.T) {
	sheets := newFakeSheets()
	sheets.failures = 100
	w, db := newTestWorker(t, sheets, RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond})
	ctx := context.Background()

	if err := w.EnqueueStatusChange(ctx, "b-1", models.StatusConfirmed); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	tasks, _ := db.GetPendingSyncTasks(ctx, 10)
	w.processTask(ctx, &tasks[0]) // retry 1
	time.Sleep(5 * time.Millisecond)
	tasks, _ = db.GetPendingSyncTasks(ctx, 10)
	if len(tasks) != 1 {
		t.Fatalf("expected retry task, got %d", len(tasks))
	}
	w.processTask(ctx, &tasks[0]) // attempt 2 exceeds MaxRetries

	failed, err := db.GetFailedSyncTasks(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed task, got %d", len(failed))
	}

	pending, _ := db.GetPendingSyncTasks(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("failed task still pending")
	}
}

func TestProcessTaskUnknownType(t *testing.T) {
	sheets := newFakeSheets()
	w, db := newTestWorker(t, sheets, RetryPolicy{MaxRetries: 1})
	ctx := context.Background()

	task := &models.SyncTask{TaskType: "bogus", BookingID: "b-1", Payload: `{}`, Status: "pending"}
	if err := db.CreateSyncTask(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	w.processTask(ctx, task)

	failed, _ := db.GetFailedSyncTasks(ctx)
	if len(failed) != 1 {
		t.Fatalf("expected unknown type to fail, got %d failed", len(failed))
	}
}
