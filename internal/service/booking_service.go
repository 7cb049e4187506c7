package service

import (
	"context"
	"strings"
	"time"

	"mareeba/internal/clock"
	"mareeba/internal/database"
	"mareeba/internal/domain"
	"mareeba/internal/events"
	"mareeba/internal/metrics"
	"mareeba/internal/models"
	"mareeba/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingService struct {
	repo         domain.Repository
	catalog      *schedule.Catalog
	cache        domain.AvailabilityCache
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	clk          clock.Clock
	logger       *zerolog.Logger
}

func NewBookingService(repo domain.Repository, catalog *schedule.Catalog, cache domain.AvailabilityCache, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, clk clock.Clock, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:         repo,
		catalog:      catalog,
		cache:        cache,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		clk:          clk,
		logger:       logger,
	}
}

// CreateBooking books a spot and opens its pending payment in one step.
// The operator flag skips the capacity gate; duplicates are rejected on
// both paths.
func (s *BookingService) CreateBooking(ctx context.Context, playerID, dateStr, timeStr string, operator bool) (*models.Booking, *models.Payment, error) {
	date, err := s.parseDate(dateStr)
	if err != nil {
		metrics.IncBookingRejected("invalid_date")
		return nil, nil, err
	}
	if _, _, ok := schedule.NormalizeTime(timeStr); !ok {
		metrics.IncBookingRejected("invalid_time")
		return nil, nil, ErrInvalidTime
	}

	playerID = strings.ToUpper(strings.TrimSpace(playerID))
	player, err := s.repo.GetPlayer(ctx, playerID)
	if err != nil {
		metrics.IncBookingRejected("player_not_found")
		return nil, nil, err
	}

	session, ok := s.catalog.Match(date, timeStr)
	if !ok {
		metrics.IncBookingRejected("unknown_session")
		return nil, nil, database.ErrUnknownSession
	}

	now := s.clk.Now()
	today := now.Format(models.DateFormat)
	if dateStr < today || (dateStr == today && schedule.Ended(session, now)) {
		metrics.IncBookingRejected("past_date")
		return nil, nil, database.ErrPastDate
	}

	timeKeys := schedule.TimeKeys(session)
	dup, err := s.repo.HasActiveBooking(ctx, playerID, dateStr, timeKeys)
	if err != nil {
		return nil, nil, err
	}
	if dup {
		metrics.IncBookingRejected("duplicate")
		return nil, nil, database.ErrDuplicateBooking
	}

	booking := &models.Booking{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		SessionDate: dateStr,
		SessionTime: session.TimeRange(),
		Status:      models.StatusPending,
		Fee:         session.Fee,
	}
	payment := &models.Payment{
		ID:               uuid.NewString(),
		Amount:           session.Fee,
		PaymentReference: paymentReference(playerID, date),
	}

	err = s.repo.CreateBookingWithLock(ctx, booking, payment, session.MaxPlayers, timeKeys, !operator)
	if err != nil {
		switch err {
		case database.ErrDuplicateBooking:
			metrics.IncBookingRejected("duplicate")
		case database.ErrSessionFull:
			metrics.IncBookingRejected("session_full")
		}
		return nil, nil, err
	}

	metrics.IncBookingCreated()
	s.invalidateAvailability(ctx, dateStr)
	s.publishEvent(events.EventBookingCreated, booking, player.FullName(), payment.PaymentReference)

	if s.sheetsWorker != nil {
		if err := s.sheetsWorker.EnqueueBooking(ctx, booking, player.FullName(), payment.PaymentReference); err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("sheets enqueue error")
		}
	}

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("player_id", playerID).
		Str("session_date", dateStr).
		Str("session_time", booking.SessionTime).
		Msg("booking created")
	return booking, payment, nil
}

// CancelBooking releases the player's spot. The version guard keeps a
// concurrent confirmation from being silently overwritten.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID string, version int64) error {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status == models.StatusCancelled {
		return nil
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, version, models.StatusCancelled); err != nil {
		return err
	}

	booking.Status = models.StatusCancelled
	s.invalidateAvailability(ctx, booking.SessionDate)
	s.publishEvent(events.EventBookingCancelled, booking, "", "")

	if s.sheetsWorker != nil {
		if err := s.sheetsWorker.EnqueueStatusChange(ctx, bookingID, models.StatusCancelled); err != nil {
			s.logger.Error().Err(err).Str("booking_id", bookingID).Msg("sheets enqueue error")
		}
	}
	return nil
}

// GetAvailability returns the per-session availability for a date,
// served from the cache when a fresh entry exists.
func (s *BookingService) GetAvailability(ctx context.Context, dateStr string) ([]models.SessionAvailability, error) {
	date, err := s.parseDate(dateStr)
	if err != nil {
		return nil, err
	}

	if rows, ok, cacheErr := s.cache.Get(ctx, dateStr); cacheErr == nil && ok {
		metrics.IncCache("hit")
		return rows, nil
	}
	metrics.IncCache("miss")

	counts, err := s.repo.ConfirmedCountsByTime(ctx, dateStr)
	if err != nil {
		return nil, err
	}

	rows := make([]models.SessionAvailability, 0)
	for _, session := range s.catalog.ForDate(date) {
		booked := 0
		for _, key := range schedule.TimeKeys(session) {
			booked += counts[key]
		}
		rows = append(rows, models.SessionAvailability{
			Session:        session,
			Date:           dateStr,
			BookedCount:    booked,
			AvailableSpots: schedule.Available(session, booked),
		})
	}

	if err := s.cache.Set(ctx, dateStr, rows); err != nil {
		s.logger.Warn().Err(err).Str("date", dateStr).Msg("availability cache set failed")
	}
	return rows, nil
}

// NextSession resolves the nearest upcoming occurrence with its paid
// roster. Returns nil when nothing runs inside the horizon.
func (s *BookingService) NextSession(ctx context.Context) (*models.NextSession, error) {
	session, dateStr, ok := s.catalog.NextOccurrence(s.clk.Now())
	if !ok {
		return nil, nil
	}

	timeKeys := schedule.TimeKeys(session)
	players, err := s.repo.RosterNames(ctx, dateStr, timeKeys)
	if err != nil {
		return nil, err
	}
	booked, err := s.repo.ConfirmedCount(ctx, dateStr, timeKeys)
	if err != nil {
		return nil, err
	}

	return &models.NextSession{
		Date:           dateStr,
		Session:        session,
		Players:        players,
		AvailableSpots: schedule.Available(session, booked),
	}, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetBookingsByDate(ctx context.Context, dateStr string) ([]models.Booking, error) {
	if _, err := s.parseDate(dateStr); err != nil {
		return nil, err
	}
	return s.repo.GetBookingsByDate(ctx, dateStr)
}

func (s *BookingService) Sessions() []models.Session {
	return s.catalog.Sessions()
}

func (s *BookingService) parseDate(dateStr string) (time.Time, error) {
	date, err := time.ParseInLocation(models.DateFormat, dateStr, s.clk.Location())
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func (s *BookingService) invalidateAvailability(ctx context.Context, date string) {
	if err := s.cache.Invalidate(ctx, date); err != nil {
		s.logger.Warn().Err(err).Str("date", date).Msg("availability cache invalidate failed")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, playerName, reference string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		PlayerID:    booking.PlayerID,
		PlayerName:  playerName,
		SessionDate: booking.SessionDate,
		SessionTime: booking.SessionTime,
		Status:      booking.Status,
		Fee:         booking.Fee,
		Reference:   reference,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

// paymentReference builds the string players put on their bank transfer:
// player code, then year, day, month of the session date.
func paymentReference(playerID string, date time.Time) string {
	return playerID + date.Format("2006") + date.Format("02") + date.Format("01")
}
