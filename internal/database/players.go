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

func (db *DB) CreatePlayer(ctx context.Context, player *models.Player) error {
	query := `INSERT INTO players (id, first_name, last_name, email, phone, registered_at, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if player.RegisteredAt.IsZero() {
		player.RegisteredAt = now
	}
	_, err := db.ExecContext(ctx, query,
		player.ID,
		player.FirstName,
		player.LastName,
		player.Email,
		player.Phone,
		player.RegisteredAt,
		now,
		now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "players.email") {
			return ErrEmailTaken
		}
		if strings.Contains(err.Error(), "players.id") {
			return ErrPlayerIDTaken
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	player.CreatedAt = now
	player.UpdatedAt = now
	return nil
}

func (db *DB) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	query := `SELECT id, first_name, last_name, email, phone, registered_at, created_at, updated_at
              FROM players WHERE id = ?`
	var p models.Player
	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&p.RegisteredAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (db *DB) GetPlayerByEmail(ctx context.Context, email string) (*models.Player, error) {
	query := `SELECT id, first_name, last_name, email, phone, registered_at, created_at, updated_at
              FROM players WHERE email = ? COLLATE NOCASE`
	var p models.Player
	err := db.QueryRowContext(ctx, query, email).Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&p.RegisteredAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player by email: %w", err)
	}
	return &p, nil
}

func (db *DB) UpdatePlayer(ctx context.Context, player *models.Player) error {
	query := `UPDATE players SET first_name = ?, last_name = ?, email = ?, phone = ?, updated_at = ?
              WHERE id = ?`
	res, err := db.ExecContext(ctx, query,
		player.FirstName,
		player.LastName,
		player.Email,
		player.Phone,
		time.Now(),
		player.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "players.email") {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to update player: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update player: %w", err)
	}
	if affected == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

func (db *DB) ListPlayers(ctx context.Context) ([]models.Player, error) {
	query := `SELECT id, first_name, last_name, email, phone, registered_at, created_at, updated_at
              FROM players ORDER BY registered_at DESC`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var p models.Player
		err := rows.Scan(
			&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
			&p.RegisteredAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
