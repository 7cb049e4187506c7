package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mareeba/internal/clock"
	"mareeba/internal/database"
	"mareeba/internal/domain"
	"mareeba/internal/events"
	"mareeba/internal/models"

	"github.com/rs/zerolog"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// idCharset deliberately drops I, L, O, 0 and 1: the code ends up
// handwritten on bank transfers.
const idCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

type PlayerService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	clk      clock.Clock
	logger   *zerolog.Logger
}

func NewPlayerService(repo domain.Repository, eventBus domain.EventPublisher, clk clock.Clock, logger *zerolog.Logger) *PlayerService {
	return &PlayerService{
		repo:     repo,
		eventBus: eventBus,
		clk:      clk,
		logger:   logger,
	}
}

// RegisterPlayer creates a player with a fresh short ID. Email is
// normalized to lower case and must be unique across the club.
func (s *PlayerService) RegisterPlayer(ctx context.Context, firstName, lastName, email, phone string) (*models.Player, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.ToLower(strings.TrimSpace(email))

	if firstName == "" {
		return nil, ErrMissingName
	}
	if !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	player := &models.Player{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Phone:        strings.TrimSpace(phone),
		RegisteredAt: s.clk.Now(),
	}

	// ID collisions are rare but possible in a 5-character space, so
	// retry with a fresh code a few times before giving up.
	for attempt := 0; attempt < 5; attempt++ {
		id, err := newPlayerID()
		if err != nil {
			return nil, err
		}
		player.ID = id

		err = s.repo.CreatePlayer(ctx, player)
		if errors.Is(err, database.ErrPlayerIDTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if s.eventBus != nil {
			if pubErr := s.eventBus.PublishJSON(events.EventPlayerRegistered, player); pubErr != nil {
				s.logger.Error().Err(pubErr).Str("player_id", player.ID).Msg("publish event error")
			}
		}
		s.logger.Info().Str("player_id", player.ID).Msg("player registered")
		return player, nil
	}
	return nil, fmt.Errorf("failed to allocate player id after retries")
}

func (s *PlayerService) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	return s.repo.GetPlayer(ctx, strings.ToUpper(strings.TrimSpace(id)))
}

func (s *PlayerService) LookupByEmail(ctx context.Context, email string) (*models.Player, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRe.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	return s.repo.GetPlayerByEmail(ctx, email)
}

// UpdateProfile changes a player's contact details. Empty fields keep
// their current value; a new email must still be unique.
func (s *PlayerService) UpdateProfile(ctx context.Context, playerID, firstName, lastName, email, phone string) (*models.Player, error) {
	player, err := s.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(firstName); v != "" {
		player.FirstName = v
	}
	if v := strings.TrimSpace(lastName); v != "" {
		player.LastName = v
	}
	if v := strings.ToLower(strings.TrimSpace(email)); v != "" {
		if !emailRe.MatchString(v) {
			return nil, ErrInvalidEmail
		}
		player.Email = v
	}
	if v := strings.TrimSpace(phone); v != "" {
		player.Phone = v
	}

	if err := s.repo.UpdatePlayer(ctx, player); err != nil {
		return nil, err
	}
	s.logger.Info().Str("player_id", player.ID).Msg("player profile updated")
	return player, nil
}

func (s *PlayerService) ListPlayers(ctx context.Context) ([]models.Player, error) {
	return s.repo.ListPlayers(ctx)
}

func (s *PlayerService) GetPlayerBookings(ctx context.Context, playerID string) ([]models.Booking, error) {
	playerID = strings.ToUpper(strings.TrimSpace(playerID))
	if _, err := s.repo.GetPlayer(ctx, playerID); err != nil {
		return nil, err
	}
	return s.repo.GetPlayerBookings(ctx, playerID)
}

func newPlayerID() (string, error) {
	buf := make([]byte, models.PlayerIDSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate player id: %w", err)
	}
	id := make([]byte, 0, len(models.PlayerIDPrefix)+models.PlayerIDSuffixLen)
	id = append(id, models.PlayerIDPrefix...)
	for _, b := range buf {
		id = append(id, idCharset[int(b)%len(idCharset)])
	}
	return string(id), nil
}
