// internal/models/session.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks the session lifecycle.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
)

// GameSession is the persisted record wrapping one engine state
// document. One session per room at a time.
type GameSession struct {
	ID        uuid.UUID       `json:"id"`
	RoomID    string          `json:"roomId"`
	GameID    string          `json:"gameId"`
	Status    SessionStatus   `json:"status"`
	PlayerIDs []string        `json:"playerIds"`
	State     json.RawMessage `json:"state"`

	// Version is the optimistic-concurrency stamp checked on save.
	Version int `json:"version"`

	// ActionCount sequences the historian queue.
	ActionCount int `json:"actionCount"`

	// PasscodeHash gates spectators on private sessions. Never
	// serialized to clients.
	PasscodeHash string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPlayer reports whether id holds a seat in this session.
func (s *GameSession) HasPlayer(id string) bool {
	for _, pid := range s.PlayerIDs {
		if pid == id {
			return true
		}
	}
	return false
}

// Summary is the boundary-facing shape returned to HTTP callers.
type Summary struct {
	ID        uuid.UUID       `json:"id"`
	RoomID    string          `json:"roomId"`
	GameID    string          `json:"gameId"`
	Status    SessionStatus   `json:"status"`
	State     json.RawMessage `json:"state,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Summarize projects the record down to its summary, optionally with a
// (pre-sanitized) state document attached.
func (s *GameSession) Summarize(state json.RawMessage) Summary {
	return Summary{
		ID:        s.ID,
		RoomID:    s.RoomID,
		GameID:    s.GameID,
		Status:    s.Status,
		State:     state,
		UpdatedAt: s.UpdatedAt,
	}
}
