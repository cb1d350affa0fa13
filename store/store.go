// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielhkuo/votechess/auth"
	"github.com/danielhkuo/votechess/models"
)

var ErrNotFound = errors.New("game record not found")

// DefaultLimit caps RecentGames when no limit is given
const DefaultLimit = 20

// Store persists game records
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// StartGame inserts a record for a new game. Reattaching to a game already
// recorded (after a restart) leaves the existing row alone.
func (s *Store) StartGame(ctx context.Context, rec models.GameRecord) error {
	if rec.ID == "" {
		id, err := auth.GenerateID(16)
		if err != nil {
			return err
		}
		rec.ID = id
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = models.GameStatusPlaying
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO game_record (id, game_id, opponent, color, variant, status, plies, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (game_id) DO NOTHING
	`, rec.ID, rec.GameID, rec.Opponent, rec.Color, rec.Variant, rec.Status, rec.Plies, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to record game start: %w", err)
	}
	return nil
}

// FinishGame stores the final status of a game
func (s *Store) FinishGame(ctx context.Context, gameID, status string, winner *string, plies int, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE game_record
		SET status = $1, winner = $2, plies = $3, ended_at = $4
		WHERE game_id = $5
	`, status, winner, plies, endedAt, gameID)
	if err != nil {
		return fmt.Errorf("failed to record game end: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Game returns the record for a game id
func (s *Store) Game(ctx context.Context, gameID string) (models.GameRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, game_id, opponent, color, variant, status, winner, plies, started_at, ended_at
		FROM game_record
		WHERE game_id = $1
	`, gameID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return models.GameRecord{}, ErrNotFound
	}
	if err != nil {
		return models.GameRecord{}, fmt.Errorf("failed to load game %s: %w", gameID, err)
	}
	return rec, nil
}

// RecentGames lists the newest games first
func (s *Store) RecentGames(ctx context.Context, limit int) ([]models.GameRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game_id, opponent, color, variant, status, winner, plies, started_at, ended_at
		FROM game_record
		ORDER BY started_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	games := []models.GameRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, rec)
	}
	return games, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.GameRecord, error) {
	var rec models.GameRecord
	var winner sql.NullString
	var endedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.GameID, &rec.Opponent, &rec.Color, &rec.Variant,
		&rec.Status, &winner, &rec.Plies, &rec.StartedAt, &endedAt)
	if err != nil {
		return models.GameRecord{}, err
	}
	if winner.Valid {
		rec.Winner = &winner.String
	}
	if endedAt.Valid {
		rec.EndedAt = &endedAt.Time
	}
	return rec, nil
}
