package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"mareeba/internal/clock"
	"mareeba/internal/domain"
	"mareeba/internal/events"
	"mareeba/internal/metrics"
	"mareeba/internal/models"

	"github.com/rs/zerolog"
)

var referenceRe = regexp.MustCompile(`^MB[A-Z0-9]{3}\d{8}$`)

type PaymentService struct {
	repo         domain.Repository
	cache        domain.AvailabilityCache
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	clk          clock.Clock
	logger       *zerolog.Logger
}

func NewPaymentService(repo domain.Repository, cache domain.AvailabilityCache, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, clk clock.Clock, logger *zerolog.Logger) *PaymentService {
	return &PaymentService{
		repo:         repo,
		cache:        cache,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		clk:          clk,
		logger:       logger,
	}
}

// ConfirmByReference matches an operator-entered bank reference to its
// payment and confirms both the payment and the booking it pays for.
func (s *PaymentService) ConfirmByReference(ctx context.Context, reference string) (*models.Payment, *models.Booking, error) {
	reference = strings.ToUpper(strings.TrimSpace(reference))
	if !referenceRe.MatchString(reference) {
		return nil, nil, ErrInvalidReference
	}

	payment, err := s.repo.GetPaymentByReference(ctx, reference)
	if err != nil {
		return nil, nil, err
	}
	return s.confirm(ctx, payment.ID)
}

// ConfirmByID confirms a payment the operator already located.
func (s *PaymentService) ConfirmByID(ctx context.Context, paymentID string) (*models.Payment, *models.Booking, error) {
	return s.confirm(ctx, paymentID)
}

func (s *PaymentService) confirm(ctx context.Context, paymentID string) (*models.Payment, *models.Booking, error) {
	payment, booking, err := s.repo.ConfirmPayment(ctx, paymentID, s.clk.Now())
	if err != nil {
		return nil, nil, err
	}

	metrics.IncPaymentConfirmed()
	s.invalidateAvailability(ctx, booking.SessionDate)

	if s.eventBus != nil {
		payload := events.BookingEventPayload{
			BookingID:   booking.ID,
			PlayerID:    booking.PlayerID,
			SessionDate: booking.SessionDate,
			SessionTime: booking.SessionTime,
			Status:      booking.Status,
			Fee:         booking.Fee,
			Reference:   payment.PaymentReference,
		}
		if err := s.eventBus.PublishJSON(events.EventPaymentConfirmed, payload); err != nil {
			s.logger.Error().Err(err).Str("payment_id", payment.ID).Msg("publish event error")
		}
	}

	if s.sheetsWorker != nil {
		if err := s.sheetsWorker.EnqueueStatusChange(ctx, booking.ID, booking.Status); err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("sheets enqueue error")
		}

		playerName := ""
		if player, perr := s.repo.GetPlayer(ctx, payment.PlayerID); perr == nil {
			playerName = player.FullName()
		}
		row := models.SheetPaymentRow{
			PaymentID:  payment.ID,
			BookingID:  booking.ID,
			PlayerName: playerName,
			Reference:  payment.PaymentReference,
			Amount:     payment.Amount,
			Status:     payment.Status,
			PaidAt:     payment.PaymentDate.Format(models.DateFormat),
		}
		if err := s.sheetsWorker.EnqueuePayment(ctx, row); err != nil {
			s.logger.Error().Err(err).Str("payment_id", payment.ID).Msg("sheets enqueue error")
		}
	}

	s.logger.Info().
		Str("payment_id", payment.ID).
		Str("booking_id", booking.ID).
		Str("reference", payment.PaymentReference).
		Msg("payment confirmed")
	return payment, booking, nil
}

// MarkFailed flags a payment that bounced or was charged back.
func (s *PaymentService) MarkFailed(ctx context.Context, paymentID string) error {
	return s.repo.UpdatePaymentStatus(ctx, paymentID, models.PaymentFailed)
}

// MarkRefunded records a refund without touching the booking; cancelling
// the spot is a separate operator action.
func (s *PaymentService) MarkRefunded(ctx context.Context, paymentID string) error {
	return s.repo.UpdatePaymentStatus(ctx, paymentID, models.PaymentRefunded)
}

func (s *PaymentService) GetByBooking(ctx context.Context, bookingID string) (*models.Payment, error) {
	return s.repo.GetPaymentByBooking(ctx, bookingID)
}

// Report returns the reconciliation rows for sessions in the inclusive
// date range.
func (s *PaymentService) Report(ctx context.Context, fromDate, toDate string) ([]models.PaymentReportRow, error) {
	for _, d := range []string{fromDate, toDate} {
		if _, err := time.Parse(models.DateFormat, d); err != nil {
			return nil, ErrInvalidDate
		}
	}
	if toDate < fromDate {
		return nil, ErrInvalidDate
	}
	return s.repo.PaymentsReport(ctx, fromDate, toDate)
}

func (s *PaymentService) invalidateAvailability(ctx context.Context, date string) {
	if err := s.cache.Invalidate(ctx, date); err != nil {
		s.logger.Warn().Err(err).Str("date", date).Msg("availability cache invalidate failed")
	}
}
