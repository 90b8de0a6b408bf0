// internal/critical/engine.go
//
// Engine bridges the registry's opaque-document contract onto the
// typed State resolver. All rule logic below the bridge is pure and
// synchronous: no I/O, no logging, no shared mutation.
package critical

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/playcrit/critical/internal/engine"
)

// Action names accepted by the resolver.
const (
	ActionDraw        = "draw_card"
	ActionPlay        = "play_card"
	ActionCatCombo    = "play_cat_combo"
	ActionGiveFavor   = "give_favor_card"
	ActionDefuse      = "defuse"
	ActionCommitAlter = "commit_alter_future"
	ActionCancel      = "play_cancel"
)

// Engine implements engine.Engine for the Critical family. One Engine
// value serves every session of its variant; it holds no per-session
// state.
type Engine struct {
	id   string
	name string
	cfg  Config

	// rng hook, replaced in tests for determinism.
	newRand func() *rand.Rand
}

// New builds an engine for cfg registered under id.
func New(id, name string, cfg Config) *Engine {
	return &Engine{id: id, name: name, cfg: cfg, newRand: newRand}
}

// NewCritical is the full-expansion variant.
func NewCritical() *Engine {
	return New("critical", "Critical", CriticalConfig())
}

// NewExplodingCats is the core-vocabulary variant.
func NewExplodingCats() *Engine {
	return New("exploding-cats", "Exploding Cats", ExplodingCatsConfig())
}

func (e *Engine) Info() engine.Info {
	return engine.Info{
		ID:         e.id,
		Name:       e.name,
		MinPlayers: e.cfg.MinPlayers,
		MaxPlayers: e.cfg.MaxPlayers,
	}
}

// InitializeState deals a new game for the roster.
func (e *Engine) InitializeState(playerIDs []string, config map[string]interface{}) (json.RawMessage, error) {
	cfg := e.cfg
	if v, ok := config["manualDefuse"].(bool); ok {
		cfg.ManualDefuse = v
	}
	s, err := newState(e.newRand(), playerIDs, cfg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

// ExecuteAction resolves one action against a deep copy of the
// snapshot. On any error the input document is untouched and no result
// is produced.
func (e *Engine) ExecuteAction(state json.RawMessage, actorID string, action engine.Action) (*engine.Result, error) {
	s, err := e.decode(state)
	if err != nil {
		return nil, err
	}
	next, data, err := e.resolve(s, actorID, action)
	if err != nil {
		return nil, err
	}
	next.checkInvariants()
	raw, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return &engine.Result{
		State:    raw,
		Data:     data,
		GameOver: gameOver(next),
		Winners:  winners(next),
	}, nil
}

// ValidateAction reports whether the action would be accepted. It runs
// the same resolution path on a throwaway copy, so validity can never
// drift from execution.
func (e *Engine) ValidateAction(state json.RawMessage, actorID string, action engine.Action) error {
	s, err := e.decode(state)
	if err != nil {
		return err
	}
	_, _, err = e.resolve(s, actorID, action)
	return err
}

func (e *Engine) IsGameOver(state json.RawMessage) bool {
	s, err := e.decode(state)
	if err != nil {
		return false
	}
	return gameOver(s)
}

func (e *Engine) Winners(state json.RawMessage) []string {
	s, err := e.decode(state)
	if err != nil {
		return nil
	}
	return winners(s)
}

func (e *Engine) decode(state json.RawMessage) (*State, error) {
	var s State
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &s, nil
}

// resolve clones, gates and dispatches. The returned state is always a
// new value; the input is never mutated.
func (e *Engine) resolve(prev *State, actorID string, action engine.Action) (*State, map[string]interface{}, error) {
	s := prev.Clone()
	r := e.newRand()

	actor := s.player(actorID)
	if actor == nil {
		return nil, nil, engine.NewRuleError(engine.KindNotFound, "player %s is not in this game", actorID)
	}
	if !actor.Alive {
		return nil, nil, engine.NewRuleError(engine.KindIllegalAction, "you have been eliminated")
	}
	if gameOver(s) {
		return nil, nil, engine.NewRuleError(engine.KindIllegalAction, "the game is over")
	}

	if action.Name == ActionCancel {
		data, err := e.resolveCancel(s, actor)
		if err != nil {
			return nil, nil, err
		}
		return s, data, nil
	}

	// Any other accepted action closes the cancellation window on the
	// previous play. Rejections roll this back with the rest of the
	// clone.
	s.PendingAction = nil

	var (
		data map[string]interface{}
		err  error
	)
	switch action.Name {
	case ActionDraw:
		data, err = e.resolveDraw(s, r, actor)
	case ActionPlay:
		data, err = e.resolvePlay(s, r, actor, action.Payload)
	case ActionCatCombo:
		data, err = e.resolveCatCombo(s, r, actor, action.Payload)
	case ActionGiveFavor:
		data, err = e.resolveGiveFavor(s, actor, action.Payload)
	case ActionDefuse:
		data, err = e.resolveDefuse(s, actor, action.Payload)
	case ActionCommitAlter:
		data, err = e.resolveCommitAlter(s, actor, action.Payload)
	default:
		err = engine.NewRuleError(engine.KindValidation, "unknown action %q", action.Name)
	}
	if err != nil {
		return nil, nil, err
	}
	return s, data, nil
}

// requireIdleTurn gates actions that are only legal for the turn
// holder with no pending sub-protocol.
func (s *State) requireIdleTurn(actor *PlayerState) error {
	switch {
	case s.PendingFavor != nil:
		return engine.NewRuleError(engine.KindIllegalAction, "waiting on %s to give a card", s.PendingFavor.TargetID)
	case s.PendingDefuse:
		return engine.NewRuleError(engine.KindIllegalAction, "waiting on a neutralizer placement")
	case s.PendingAlter != nil:
		return engine.NewRuleError(engine.KindIllegalAction, "waiting on a future reorder")
	}
	if s.currentPlayerID() != actor.PlayerID {
		return engine.NewRuleError(engine.KindIllegalAction, "it is not your turn")
	}
	return nil
}

// payload helpers. The transport delivers payloads as decoded JSON, so
// numbers arrive as float64.

func payloadString(payload map[string]interface{}, key string) (string, bool) {
	if payload == nil {
		return "", false
	}
	v, ok := payload[key].(string)
	return v, ok && v != ""
}

func payloadInt(payload map[string]interface{}, key string) (int, bool) {
	if payload == nil {
		return 0, false
	}
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func payloadCards(payload map[string]interface{}, key string) ([]Card, bool) {
	if payload == nil {
		return nil, false
	}
	raw, ok := payload[key].([]interface{})
	if !ok {
		return nil, false
	}
	cards := make([]Card, 0, len(raw))
	for _, v := range raw {
		sv, ok := v.(string)
		if !ok {
			return nil, false
		}
		cards = append(cards, Card(sv))
	}
	return cards, true
}

func cardList(cards []Card) string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
