// internal/engine/engine.go
package engine

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Info describes a registered game engine for session creation.
type Info struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MinPlayers int    `json:"minPlayers"`
	MaxPlayers int    `json:"maxPlayers"`
}

// Action is one player move as delivered by the transport layer.
type Action struct {
	Name    string                 `json:"name"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Result is the outcome of a successfully resolved action.
//
// State is the full post-action snapshot to persist. Data carries
// synchronous response values that must never enter the persisted
// snapshot (e.g. the cards revealed by an insight play).
type Result struct {
	State    json.RawMessage        `json:"state"`
	Data     map[string]interface{} `json:"data,omitempty"`
	GameOver bool                   `json:"gameOver"`
	Winners  []string               `json:"winners,omitempty"`
}

// Engine is the capability contract every game variant implements.
// State flows through as an opaque JSON document so the registry and
// facade never depend on the concrete state type; each engine owns its
// own struct and unmarshals at the boundary.
//
// ExecuteAction must be pure over its inputs: it operates on its own
// deep copy, performs no I/O, and a rejected action leaves the input
// document untouched.
type Engine interface {
	Info() Info
	InitializeState(playerIDs []string, config map[string]interface{}) (json.RawMessage, error)
	ValidateAction(state json.RawMessage, actorID string, action Action) error
	ExecuteAction(state json.RawMessage, actorID string, action Action) (*Result, error)
	SanitizeState(state json.RawMessage, viewerID string) (json.RawMessage, error)
	IsGameOver(state json.RawMessage) bool
	Winners(state json.RawMessage) []string
}

// Registry maps gameId -> Engine.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine. Panics on duplicate ids; registration is a
// startup-time wiring error, not a runtime condition.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := e.Info().ID
	if _, exists := r.engines[id]; exists {
		panic(fmt.Sprintf("engine %q already registered", id))
	}
	r.engines[id] = e
}

// Get returns the engine registered under id.
func (r *Registry) Get(id string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[id]
	return e, ok
}

// List returns info for all registered engines.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.engines))
	for _, e := range r.engines {
		infos = append(infos, e.Info())
	}
	return infos
}
