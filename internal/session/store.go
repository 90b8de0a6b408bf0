package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/playcrit/critical/internal/models"
)

// Store keeps live sessions in memory. A room hosts at most one
// non-completed session at a time.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.GameSession
	byRoom   map[string]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[uuid.UUID]*models.GameSession),
		byRoom:   make(map[string]uuid.UUID),
	}
}

func (s *Store) Add(sess *models.GameSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	if sess.Status != models.StatusCompleted {
		s.byRoom[sess.RoomID] = sess.ID
	}
}

func (s *Store) Get(id uuid.UUID) (*models.GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// GetByRoom returns the live session occupying a room, or nil if the
// room is free.
func (s *Store) GetByRoom(roomID string) *models.GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRoom[roomID]
	if !ok {
		return nil
	}
	return s.sessions[id]
}

// Release frees the room binding once a session completes. The session
// record itself stays addressable for late snapshot reads.
func (s *Store) Release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return
	}
	if cur, bound := s.byRoom[sess.RoomID]; bound && cur == id {
		delete(s.byRoom, sess.RoomID)
	}
}

func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		if cur, bound := s.byRoom[sess.RoomID]; bound && cur == id {
			delete(s.byRoom, sess.RoomID)
		}
	}
	delete(s.sessions, id)
}
