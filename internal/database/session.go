// internal/database/session.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/playcrit/critical/internal/models"
)

// ErrStaleVersion is returned when a save loses the optimistic
// concurrency check: someone persisted a newer version of the session
// since it was loaded.
var ErrStaleVersion = errors.New("session version is stale")

// SessionRepository persists GameSession records in the game_sessions
// table with a JSONB state column and a version stamp.
type SessionRepository struct{}

// CreateSession inserts a fresh session record at version 1.
func (SessionRepository) CreateSession(ctx context.Context, s *models.GameSession) error {
	q := `
		INSERT INTO game_sessions
			(id, room_id, game_id, status, player_ids, state, passcode_hash, version, action_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, 0, $8, $8)
	`
	if _, err := DB.Exec(ctx, q, s.ID, s.RoomID, s.GameID, s.Status, s.PlayerIDs, s.State, s.PasscodeHash, s.CreatedAt); err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	s.Version = 1
	return nil
}

// SaveSession persists the post-action state, bumping the version and
// failing with ErrStaleVersion if the stored version no longer matches
// the one the caller loaded.
func (SessionRepository) SaveSession(ctx context.Context, s *models.GameSession) error {
	q := `
		UPDATE game_sessions
		SET status = $2, state = $3, action_count = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $6
	`
	tag, err := DB.Exec(ctx, q, s.ID, s.Status, s.State, s.ActionCount, s.UpdatedAt, s.Version)
	if err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleVersion
	}
	s.Version++
	return nil
}

// GetSession loads one session record by id.
func (SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	q := `
		SELECT id, room_id, game_id, status, player_ids, state, passcode_hash, version, action_count, created_at, updated_at
		FROM game_sessions
		WHERE id = $1
	`
	var s models.GameSession
	err := DB.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.RoomID, &s.GameID, &s.Status, &s.PlayerIDs, &s.State,
		&s.PasscodeHash, &s.Version, &s.ActionCount, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	return &s, nil
}

// GetActiveSessionByRoom returns the non-completed session bound to a
// room, or nil when the room is free.
func (SessionRepository) GetActiveSessionByRoom(ctx context.Context, roomID string) (*models.GameSession, error) {
	q := `
		SELECT id, room_id, game_id, status, player_ids, state, passcode_hash, version, action_count, created_at, updated_at
		FROM game_sessions
		WHERE room_id = $1 AND status != 'completed'
		ORDER BY created_at DESC
		LIMIT 1
	`
	var s models.GameSession
	err := DB.QueryRow(ctx, q, roomID).Scan(
		&s.ID, &s.RoomID, &s.GameID, &s.Status, &s.PlayerIDs, &s.State,
		&s.PasscodeHash, &s.Version, &s.ActionCount, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session for room %s: %w", roomID, err)
	}
	return &s, nil
}
