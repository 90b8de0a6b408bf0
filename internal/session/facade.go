// Package session orchestrates game sessions end to end: it owns the
// engine registry lookup, action dispatch, persistence, the action
// history queue, and per-viewer state fanout.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcrit/critical/internal/auth"
	"github.com/playcrit/critical/internal/cache"
	"github.com/playcrit/critical/internal/engine"
	"github.com/playcrit/critical/internal/models"
)

var (
	// ErrRoomBusy is returned when a room already hosts a live session.
	ErrRoomBusy = errors.New("room already has an active session")

	// ErrSessionNotFound is returned when no session matches the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNotInSession is returned when the actor is not seated in the session.
	ErrNotInSession = errors.New("player is not part of this session")

	// ErrSessionOver is returned when an action targets a completed session.
	ErrSessionOver = errors.New("session is already completed")
)

// BotIDPrefix marks player ids that are served by the in-process agent
// rather than a live connection.
const BotIDPrefix = "bot-"

// IsBotID reports whether the given player id belongs to a bot seat.
func IsBotID(playerID string) bool {
	return strings.HasPrefix(playerID, BotIDPrefix)
}

// Repository persists session records. database.SessionRepository
// satisfies it; a nil Repository keeps sessions in memory only.
type Repository interface {
	CreateSession(ctx context.Context, s *models.GameSession) error
	SaveSession(ctx context.Context, s *models.GameSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
}

// Broadcaster delivers sanitized state to connected viewers. The
// transport layer implements it; tests plug in a mock.
type Broadcaster interface {
	ToPlayer(sessionID uuid.UUID, playerID string, payload interface{})
	ToSpectators(sessionID uuid.UUID, payload interface{})
}

// PostActionHook runs after every successfully applied action. Hooks
// must not block; the facade invokes them on a fresh goroutine.
type PostActionHook func(sessionID uuid.UUID, actorID string, res *engine.Result)

// CreateRequest carries everything needed to open a session.
type CreateRequest struct {
	RoomID           string
	GameID           string
	PlayerIDs        []string
	Config           map[string]interface{}
	SpectatePasscode string
}

// Facade is the single entry point for session lifecycle and gameplay.
// All mutations of one session are serialized through its mutex, so
// engines stay free of locking concerns.
type Facade struct {
	registry    *engine.Registry
	store       *Store
	repo        Repository
	broadcaster Broadcaster
	log         *logrus.Logger

	publishActions bool

	hookMu sync.RWMutex
	hooks  []PostActionHook

	lockMu sync.Mutex
	locks  map[uuid.UUID]*sync.Mutex
}

func NewFacade(registry *engine.Registry, store *Store, repo Repository, b Broadcaster, log *logrus.Logger) *Facade {
	if log == nil {
		log = logrus.New()
	}
	return &Facade{
		registry:    registry,
		store:       store,
		repo:        repo,
		broadcaster: b,
		log:         log,
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

// EnableActionQueue turns on pushing per-action records to the Redis
// history queue. Leave it off when Redis is not connected.
func (f *Facade) EnableActionQueue() {
	f.publishActions = true
}

// AddPostActionHook registers a hook invoked after each applied action.
func (f *Facade) AddPostActionHook(h PostActionHook) {
	f.hookMu.Lock()
	defer f.hookMu.Unlock()
	f.hooks = append(f.hooks, h)
}

func (f *Facade) sessionLock(id uuid.UUID) *sync.Mutex {
	f.lockMu.Lock()
	defer f.lockMu.Unlock()
	l, ok := f.locks[id]
	if !ok {
		l = &sync.Mutex{}
		f.locks[id] = l
	}
	return l
}

// Create opens a new session in the given room, initializes engine
// state, persists the record, and fans out each player's first view.
func (f *Facade) Create(ctx context.Context, req CreateRequest) (*models.GameSession, error) {
	if existing := f.store.GetByRoom(req.RoomID); existing != nil {
		return nil, ErrRoomBusy
	}

	eng, ok := f.registry.Get(req.GameID)
	if !ok {
		return nil, fmt.Errorf("unknown game %q", req.GameID)
	}

	state, err := eng.InitializeState(req.PlayerIDs, req.Config)
	if err != nil {
		return nil, fmt.Errorf("initialize %s: %w", req.GameID, err)
	}

	now := time.Now()
	sess := &models.GameSession{
		ID:        uuid.New(),
		RoomID:    req.RoomID,
		GameID:    req.GameID,
		Status:    models.StatusActive,
		PlayerIDs: append([]string(nil), req.PlayerIDs...),
		State:     state,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.SpectatePasscode != "" {
		hash, err := auth.CreatePasscodeHash(req.SpectatePasscode, auth.Params)
		if err != nil {
			return nil, fmt.Errorf("hash spectate passcode: %w", err)
		}
		sess.PasscodeHash = hash
	}

	f.store.Add(sess)
	if f.repo != nil {
		if err := f.repo.CreateSession(ctx, sess); err != nil {
			f.store.Delete(sess.ID)
			return nil, err
		}
	}

	f.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"room_id":    sess.RoomID,
		"game_id":    sess.GameID,
		"players":    len(sess.PlayerIDs),
	}).Info("session created")

	f.fanout(sess, eng)
	return sess, nil
}

// Dispatch validates and applies one player action, persists the new
// state, queues the action record, runs post-action hooks, and fans
// out fresh sanitized views. It returns the engine result so the
// transport can relay action-specific data to the actor.
func (f *Facade) Dispatch(ctx context.Context, sessionID uuid.UUID, actorID string, action engine.Action) (*engine.Result, error) {
	lock := f.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, ok := f.store.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Status == models.StatusCompleted {
		return nil, ErrSessionOver
	}
	if !sess.HasPlayer(actorID) {
		return nil, ErrNotInSession
	}

	eng, ok := f.registry.Get(sess.GameID)
	if !ok {
		return nil, fmt.Errorf("unknown game %q", sess.GameID)
	}

	res, err := eng.ExecuteAction(sess.State, actorID, action)
	if err != nil {
		return nil, err
	}

	sess.State = res.State
	sess.ActionCount++
	sess.UpdatedAt = time.Now()
	if res.GameOver {
		sess.Status = models.StatusCompleted
		f.store.Release(sess.ID)
	}

	if f.repo != nil {
		if err := f.repo.SaveSession(ctx, sess); err != nil {
			f.log.WithError(err).WithField("session_id", sess.ID).Error("failed to persist session state")
		}
	}

	if f.publishActions {
		record := cache.ActionRecord{
			SessionID:   sess.ID,
			ActionIndex: int64(sess.ActionCount),
			ActorID:     actorID,
			ActionName:  action.Name,
			Payload:     action.Payload,
			Timestamp:   time.Now().UnixMilli(),
		}
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := cache.PublishAction(pubCtx, record); err != nil {
				f.log.WithError(err).Warn("failed to publish action record")
			}
		}()
	}

	f.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"actor_id":   actorID,
		"action":     action.Name,
		"game_over":  res.GameOver,
	}).Debug("action applied")

	f.fanout(sess, eng)

	if !res.GameOver {
		f.runHooks(sess.ID, actorID, res)
	}

	return res, nil
}

// View returns the session state sanitized for one viewer. An empty
// viewerID yields the spectator projection. It takes the session lock
// so the state document is never read mid-dispatch.
func (f *Facade) View(sessionID uuid.UUID, viewerID string) ([]byte, error) {
	lock := f.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return f.viewLocked(sessionID, viewerID)
}

// viewLocked is View's body; the caller holds the session lock.
func (f *Facade) viewLocked(sessionID uuid.UUID, viewerID string) ([]byte, error) {
	sess, ok := f.store.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	eng, ok := f.registry.Get(sess.GameID)
	if !ok {
		return nil, fmt.Errorf("unknown game %q", sess.GameID)
	}
	view, err := eng.SanitizeState(sess.State, viewerID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Snapshot returns the public summary of a session, with the state
// document already run through the spectator sanitizer.
func (f *Facade) Snapshot(sessionID uuid.UUID) (*models.Summary, error) {
	lock := f.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	sess, ok := f.store.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	view, err := f.viewLocked(sessionID, "")
	if err != nil {
		return nil, err
	}
	summary := sess.Summarize(view)
	return &summary, nil
}

// Session exposes the raw session record for transports that need the
// player roster or passcode hash. Those fields are fixed at creation;
// anything Dispatch rewrites (State, Status, ActionCount, UpdatedAt)
// must be read through View or Snapshot instead, which serialize
// against live dispatches.
func (f *Facade) Session(sessionID uuid.UUID) (*models.GameSession, bool) {
	return f.store.Get(sessionID)
}

func (f *Facade) runHooks(sessionID uuid.UUID, actorID string, res *engine.Result) {
	f.hookMu.RLock()
	hooks := append([]PostActionHook(nil), f.hooks...)
	f.hookMu.RUnlock()
	for _, h := range hooks {
		go h(sessionID, actorID, res)
	}
}

// fanout sends each seated player their own sanitized view, and
// spectators the fully redacted one.
func (f *Facade) fanout(sess *models.GameSession, eng engine.Engine) {
	if f.broadcaster == nil {
		return
	}
	for _, pid := range sess.PlayerIDs {
		if IsBotID(pid) {
			continue
		}
		view, err := eng.SanitizeState(sess.State, pid)
		if err != nil {
			f.log.WithError(err).WithField("player_id", pid).Error("failed to sanitize state for player")
			continue
		}
		f.broadcaster.ToPlayer(sess.ID, pid, view)
	}
	view, err := eng.SanitizeState(sess.State, "")
	if err != nil {
		f.log.WithError(err).Error("failed to sanitize spectator state")
		return
	}
	f.broadcaster.ToSpectators(sess.ID, view)
}
