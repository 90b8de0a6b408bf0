// Package seabattle is a small two-player naval gunnery game. It
// exists alongside the critical engine to keep the engine contract
// honest: everything session-facing goes through the same interface.
package seabattle

import (
	"encoding/json"

	"github.com/playcrit/critical/internal/engine"
)

const (
	GridSize = 10

	ActionPlaceFleet = "place_fleet"
	ActionFire       = "fire"
)

// FleetSizes is the fixed fleet each player must place: one ship of
// each listed length.
var FleetSizes = []int{5, 4, 3, 3, 2}

type Ship struct {
	Row        int  `json:"row"`
	Col        int  `json:"col"`
	Length     int  `json:"length"`
	Horizontal bool `json:"horizontal"`
	Hits       int  `json:"hits"`
}

func (sh *Ship) cells() [][2]int {
	out := make([][2]int, sh.Length)
	for i := 0; i < sh.Length; i++ {
		if sh.Horizontal {
			out[i] = [2]int{sh.Row, sh.Col + i}
		} else {
			out[i] = [2]int{sh.Row + i, sh.Col}
		}
	}
	return out
}

func (sh *Ship) covers(row, col int) bool {
	for _, c := range sh.cells() {
		if c[0] == row && c[1] == col {
			return true
		}
	}
	return false
}

func (sh *Ship) sunk() bool { return sh.Hits >= sh.Length }

// PlayerState holds one side's fleet and the shots taken against it.
// Shots is indexed [row][col]: 0 untouched, 1 miss, 2 hit.
type PlayerState struct {
	PlayerID string  `json:"playerId"`
	Ships    []*Ship `json:"ships,omitempty"`
	Shots    [][]int `json:"shots"`
	Placed   bool    `json:"placed"`

	// ShipsLeft is populated on sanitized projections where the ships
	// themselves are withheld.
	ShipsLeft int `json:"shipsLeft,omitempty"`
}

type State struct {
	Players          []*PlayerState `json:"players"`
	PlayerOrder      []string       `json:"playerOrder"`
	CurrentTurnIndex int            `json:"currentTurnIndex"`
	Started          bool           `json:"started"`
	WinnerID         string         `json:"winnerId,omitempty"`
}

func (s *State) player(id string) *PlayerState {
	for _, p := range s.Players {
		if p.PlayerID == id {
			return p
		}
	}
	return nil
}

func (s *State) opponent(id string) *PlayerState {
	for _, p := range s.Players {
		if p.PlayerID != id {
			return p
		}
	}
	return nil
}

func (s *State) clone() *State {
	c := *s
	c.Players = make([]*PlayerState, len(s.Players))
	for i, p := range s.Players {
		pc := *p
		pc.Ships = make([]*Ship, len(p.Ships))
		for j, sh := range p.Ships {
			shc := *sh
			pc.Ships[j] = &shc
		}
		pc.Shots = make([][]int, len(p.Shots))
		for j, row := range p.Shots {
			pc.Shots[j] = append([]int(nil), row...)
		}
		c.Players[i] = &pc
	}
	c.PlayerOrder = append([]string(nil), s.PlayerOrder...)
	return &c
}

// Engine implements engine.Engine for seabattle sessions. It holds no
// per-session state.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Info() engine.Info {
	return engine.Info{
		ID:         "seabattle",
		Name:       "Sea Battle",
		MinPlayers: 2,
		MaxPlayers: 2,
	}
}

func (e *Engine) InitializeState(playerIDs []string, config map[string]interface{}) (json.RawMessage, error) {
	if len(playerIDs) != 2 {
		return nil, engine.NewRuleError(engine.KindConfiguration, "seabattle needs exactly 2 players, got %d", len(playerIDs))
	}
	s := &State{PlayerOrder: append([]string(nil), playerIDs...)}
	for _, id := range playerIDs {
		shots := make([][]int, GridSize)
		for i := range shots {
			shots[i] = make([]int, GridSize)
		}
		s.Players = append(s.Players, &PlayerState{PlayerID: id, Shots: shots})
	}
	return json.Marshal(s)
}

func (e *Engine) ExecuteAction(state json.RawMessage, playerID string, action engine.Action) (*engine.Result, error) {
	s, err := decode(state)
	if err != nil {
		return nil, err
	}
	next := s.clone()
	data, err := e.resolve(next, playerID, action)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return nil, err
	}
	res := &engine.Result{State: raw, Data: data}
	if next.WinnerID != "" {
		res.GameOver = true
		res.Winners = []string{next.WinnerID}
	}
	return res, nil
}

func (e *Engine) ValidateAction(state json.RawMessage, playerID string, action engine.Action) error {
	s, err := decode(state)
	if err != nil {
		return err
	}
	_, err = e.resolve(s.clone(), playerID, action)
	return err
}

func (e *Engine) resolve(s *State, playerID string, action engine.Action) (map[string]interface{}, error) {
	p := s.player(playerID)
	if p == nil {
		return nil, engine.NewRuleError(engine.KindNotFound, "player %s is not in this game", playerID)
	}
	if s.WinnerID != "" {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "the game is over")
	}

	switch action.Name {
	case ActionPlaceFleet:
		return e.placeFleet(s, p, action.Payload)
	case ActionFire:
		return e.fire(s, p, action.Payload)
	default:
		return nil, engine.NewRuleError(engine.KindValidation, "unknown action %q", action.Name)
	}
}

// placeFleet accepts the player's full fleet in one action. Payload:
// {"ships": [{"row":r,"col":c,"length":n,"horizontal":b}, ...]},
// lengths matching FleetSizes in order.
func (e *Engine) placeFleet(s *State, p *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	if s.Started {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "fleets are locked once the game starts")
	}
	if p.Placed {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "your fleet is already placed")
	}

	ships, err := decodeShips(payload)
	if err != nil {
		return nil, err
	}
	if len(ships) != len(FleetSizes) {
		return nil, engine.NewRuleError(engine.KindValidation, "expected %d ships, got %d", len(FleetSizes), len(ships))
	}
	occupied := map[[2]int]bool{}
	for i, sh := range ships {
		if sh.Length != FleetSizes[i] {
			return nil, engine.NewRuleError(engine.KindValidation, "ship %d must have length %d", i, FleetSizes[i])
		}
		for _, cell := range sh.cells() {
			if cell[0] < 0 || cell[0] >= GridSize || cell[1] < 0 || cell[1] >= GridSize {
				return nil, engine.NewRuleError(engine.KindValidation, "ship %d leaves the grid", i)
			}
			if occupied[cell] {
				return nil, engine.NewRuleError(engine.KindValidation, "ships overlap at %d,%d", cell[0], cell[1])
			}
			occupied[cell] = true
		}
	}

	p.Ships = ships
	p.Placed = true

	allPlaced := true
	for _, other := range s.Players {
		if !other.Placed {
			allPlaced = false
		}
	}
	if allPlaced {
		s.Started = true
	}
	return nil, nil
}

// fire resolves one shot at the opponent's grid. Payload:
// {"row": r, "col": c}.
func (e *Engine) fire(s *State, p *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	if !s.Started {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "both fleets must be placed first")
	}
	if s.PlayerOrder[s.CurrentTurnIndex] != p.PlayerID {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "it is not your turn")
	}
	row, okR := payloadInt(payload, "row")
	col, okC := payloadInt(payload, "col")
	if !okR || !okC {
		return nil, engine.NewRuleError(engine.KindValidation, "fire requires row and col")
	}
	if row < 0 || row >= GridSize || col < 0 || col >= GridSize {
		return nil, engine.NewRuleError(engine.KindValidation, "shot at %d,%d is off the grid", row, col)
	}

	target := s.opponent(p.PlayerID)
	if target.Shots[row][col] != 0 {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "cell %d,%d was already fired on", row, col)
	}

	hit := false
	var struck *Ship
	for _, sh := range target.Ships {
		if sh.covers(row, col) {
			sh.Hits++
			struck = sh
			hit = true
			break
		}
	}

	if hit {
		target.Shots[row][col] = 2
	} else {
		target.Shots[row][col] = 1
		s.CurrentTurnIndex = (s.CurrentTurnIndex + 1) % len(s.PlayerOrder)
	}

	data := map[string]interface{}{"hit": hit}
	if struck != nil && struck.sunk() {
		data["sunk"] = struck.Length
	}

	if hit && fleetSunk(target) {
		s.WinnerID = p.PlayerID
	}
	return data, nil
}

func fleetSunk(p *PlayerState) bool {
	for _, sh := range p.Ships {
		if !sh.sunk() {
			return false
		}
	}
	return len(p.Ships) > 0
}

// SanitizeState fogs the opponent's fleet: a viewer sees their own
// ships, plus only hits and misses on the other grid.
func (e *Engine) SanitizeState(state json.RawMessage, viewerID string) (json.RawMessage, error) {
	s, err := decode(state)
	if err != nil {
		return nil, err
	}
	view := s.clone()
	for _, p := range view.Players {
		if p.PlayerID == viewerID {
			continue
		}
		if p.Ships != nil {
			left := 0
			for _, sh := range p.Ships {
				if !sh.sunk() {
					left++
				}
			}
			p.ShipsLeft = left
		}
		p.Ships = nil
	}
	return json.Marshal(view)
}

func (e *Engine) IsGameOver(state json.RawMessage) bool {
	s, err := decode(state)
	if err != nil {
		return false
	}
	return s.WinnerID != ""
}

func (e *Engine) Winners(state json.RawMessage) []string {
	s, err := decode(state)
	if err != nil || s.WinnerID == "" {
		return nil
	}
	return []string{s.WinnerID}
}

func decode(state json.RawMessage) (*State, error) {
	var s State
	if err := json.Unmarshal(state, &s); err != nil {
		return nil, engine.NewRuleError(engine.KindValidation, "malformed state document: %v", err)
	}
	return &s, nil
}

func decodeShips(payload map[string]interface{}) ([]*Ship, error) {
	raw, ok := payload["ships"]
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "place_fleet requires a ships list")
	}
	// Round-trip through JSON so both in-process and wire payloads
	// decode the same way.
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, engine.NewRuleError(engine.KindValidation, "malformed ships payload: %v", err)
	}
	var ships []*Ship
	if err := json.Unmarshal(buf, &ships); err != nil {
		return nil, engine.NewRuleError(engine.KindValidation, "malformed ships payload: %v", err)
	}
	for _, sh := range ships {
		sh.Hits = 0
	}
	return ships, nil
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
