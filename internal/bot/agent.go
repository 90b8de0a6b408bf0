// Package bot serves the in-process seats whose player ids carry the
// "bot-" prefix. The agent is wired into the session facade as a
// post-action hook: after every applied action it inspects its own
// sanitized view and answers any obligation the rules put on it.
package bot

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/playcrit/critical/internal/critical"
	"github.com/playcrit/critical/internal/engine"
	"github.com/playcrit/critical/internal/session"
)

// maxStepsPerWake bounds one wake-up so a misbehaving policy can never
// spin the session forever.
const maxStepsPerWake = 16

// Agent drives every bot seat in the sessions it is hooked into. It
// only understands the critical family of games and stays quiet for
// anything else.
type Agent struct {
	facade *session.Facade
	log    *logrus.Logger
	games  map[string]bool

	// ThinkDelay spaces out bot moves so humans can follow along.
	// Zero in tests.
	ThinkDelay time.Duration

	mu  sync.Mutex
	rng *rand.Rand

	// peekMu guards the top-of-deck cards a bot learned from its own
	// alter_future play, keyed by session. Needed to commit a valid
	// permutation.
	peekMu sync.Mutex
	peeks  map[uuid.UUID][]critical.Card
}

func NewAgent(facade *session.Facade, gameIDs []string, log *logrus.Logger) *Agent {
	if log == nil {
		log = logrus.New()
	}
	games := make(map[string]bool, len(gameIDs))
	for _, id := range gameIDs {
		games[id] = true
	}
	return &Agent{
		facade:     facade,
		log:        log,
		games:      games,
		ThinkDelay: 500 * time.Millisecond,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		peeks:      make(map[uuid.UUID][]critical.Card),
	}
}

// Hook is the facade post-action hook. It wakes the agent on a fresh
// goroutine, so returning immediately is fine.
func (a *Agent) Hook(sessionID uuid.UUID, actorID string, res *engine.Result) {
	a.Wake(sessionID)
}

// Wake makes the agent look at a session and play until no bot seat
// has an obligation left.
func (a *Agent) Wake(sessionID uuid.UUID) {
	sess, ok := a.facade.Session(sessionID)
	if !ok || !a.games[sess.GameID] {
		return
	}

	bots := []string{}
	for _, pid := range sess.PlayerIDs {
		if session.IsBotID(pid) {
			bots = append(bots, pid)
		}
	}
	if len(bots) == 0 {
		return
	}

	for step := 0; step < maxStepsPerWake; step++ {
		acted := false
		for _, botID := range bots {
			if a.step(sessionID, botID) {
				acted = true
				break
			}
		}
		if !acted {
			return
		}
	}
	a.log.WithField("session_id", sessionID).Warn("bot agent hit its per-wake step limit")
}

// step plays at most one action for the given bot seat. It reports
// whether an action was applied.
func (a *Agent) step(sessionID uuid.UUID, botID string) bool {
	view, err := a.facade.View(sessionID, botID)
	if err != nil {
		return false
	}
	var s critical.State
	if err := json.Unmarshal(view, &s); err != nil {
		return false
	}

	seat := a.seat(&s, botID)
	if seat == nil || !seat.Alive {
		return false
	}

	action, ok := a.choose(sessionID, &s, seat)
	if !ok {
		return false
	}

	if a.ThinkDelay > 0 {
		time.Sleep(a.ThinkDelay)
	}

	res, err := a.dispatch(sessionID, botID, action)
	if err != nil {
		// Anything the rules reject gets downgraded to the safe
		// default for whatever mode the session is in.
		fallback, ok := a.fallback(&s, seat)
		if !ok {
			return false
		}
		if res, err = a.dispatch(sessionID, botID, fallback); err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"session_id": sessionID,
				"bot_id":     botID,
			}).Warn("bot fallback action rejected")
			return false
		}
		action = fallback
	}

	a.recordPeek(sessionID, action, res)
	return true
}

func (a *Agent) dispatch(sessionID uuid.UUID, botID string, action engine.Action) (*engine.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.facade.Dispatch(ctx, sessionID, botID, action)
}

// choose picks the bot's next action, or reports that this seat has
// nothing to do right now.
func (a *Agent) choose(sessionID uuid.UUID, s *critical.State, seat *critical.PlayerState) (engine.Action, bool) {
	botID := seat.PlayerID

	// Obligations come first: they block the whole session.
	if s.PendingFavor != nil && s.PendingFavor.TargetID == botID {
		if len(seat.Hand) == 0 {
			return engine.Action{}, false
		}
		card := seat.Hand[a.intn(len(seat.Hand))]
		return engine.Action{Name: critical.ActionGiveFavor, Payload: map[string]interface{}{
			"card": string(card),
		}}, true
	}

	if s.PendingDefuse && a.isCurrent(s, botID) {
		return engine.Action{Name: critical.ActionDefuse, Payload: map[string]interface{}{
			"position": a.intn(s.DeckCount + 1),
		}}, true
	}

	if s.PendingAlter != nil && s.PendingAlter.PlayerID == botID {
		order, ok := a.takePeek(sessionID, s.PendingAlter.Count)
		if !ok {
			return engine.Action{}, false
		}
		return engine.Action{Name: critical.ActionCommitAlter, Payload: map[string]interface{}{
			"newOrder": cardNames(order),
		}}, true
	}

	// Cancel hostile plays aimed at this seat most of the time.
	if pa := s.PendingAction; pa != nil && pa.TargetID == botID && pa.PlayerID != botID {
		if a.holds(seat, critical.CardCancel) && a.intn(100) < 80 {
			return engine.Action{Name: critical.ActionCancel, Payload: nil}, true
		}
	}

	if !a.isCurrent(s, botID) || s.PendingFavor != nil || s.PendingAlter != nil || s.PendingDefuse {
		return engine.Action{}, false
	}

	// On its own idle turn: usually play something, otherwise draw.
	if a.intn(100) < 60 {
		if action, ok := a.pickPlay(s, seat); ok {
			return action, true
		}
	}
	return engine.Action{Name: critical.ActionDraw, Payload: nil}, true
}

// pickPlay selects a random playable card or pair combo from hand.
func (a *Agent) pickPlay(s *critical.State, seat *critical.PlayerState) (engine.Action, bool) {
	singles := []critical.Card{}
	pairs := []critical.Card{}
	counts := map[critical.Card]int{}
	for _, c := range seat.Hand {
		counts[c]++
	}
	for c, n := range counts {
		switch {
		case c == critical.CardCritical, c == critical.CardNeutralizer, c == critical.CardCancel:
		case critical.IsCollection(c):
			if n >= 2 {
				pairs = append(pairs, c)
			}
		default:
			singles = append(singles, c)
		}
	}

	if len(pairs) > 0 && a.intn(100) < 30 {
		target, ok := a.pickTarget(s, seat.PlayerID)
		if ok {
			return engine.Action{Name: critical.ActionCatCombo, Payload: map[string]interface{}{
				"mode":           critical.ComboPair,
				"card":           string(pairs[a.intn(len(pairs))]),
				"targetPlayerId": target,
			}}, true
		}
	}

	if len(singles) == 0 {
		return engine.Action{}, false
	}
	card := singles[a.intn(len(singles))]
	payload := map[string]interface{}{"card": string(card)}

	switch card {
	case critical.CardStrikeTargeted, critical.CardTrade, critical.CardMark:
		target, ok := a.pickTarget(s, seat.PlayerID)
		if !ok {
			return engine.Action{}, false
		}
		payload["targetPlayerId"] = target
	case critical.CardBury:
		payload["position"] = a.intn(s.DeckCount + 1)
	}

	return engine.Action{Name: critical.ActionPlay, Payload: payload}, true
}

// fallback is what the bot does when its first pick was rejected: meet
// the pending obligation with the cheapest legal answer, or draw.
func (a *Agent) fallback(s *critical.State, seat *critical.PlayerState) (engine.Action, bool) {
	botID := seat.PlayerID
	switch {
	case s.PendingFavor != nil && s.PendingFavor.TargetID == botID && len(seat.Hand) > 0:
		return engine.Action{Name: critical.ActionGiveFavor, Payload: map[string]interface{}{
			"card": string(seat.Hand[0]),
		}}, true
	case s.PendingDefuse && a.isCurrent(s, botID):
		return engine.Action{Name: critical.ActionDefuse, Payload: map[string]interface{}{
			"position": 0,
		}}, true
	case a.isCurrent(s, botID) && s.PendingFavor == nil && s.PendingAlter == nil && !s.PendingDefuse:
		return engine.Action{Name: critical.ActionDraw, Payload: nil}, true
	}
	return engine.Action{}, false
}

// recordPeek remembers the top-of-deck order an alter_future play just
// revealed so the follow-up commit can reproduce it. Only the alter
// family counts; an insight result also carries cards but opens no
// commit, and stashing it would poison a later commit's order.
func (a *Agent) recordPeek(sessionID uuid.UUID, action engine.Action, res *engine.Result) {
	if res == nil || action.Name != critical.ActionPlay {
		return
	}
	name, _ := action.Payload["card"].(string)
	switch critical.Card(name) {
	case critical.CardAlterFuture, critical.CardAlterFutureFive, critical.CardShareFuture:
	default:
		return
	}
	raw, ok := res.Data["cards"]
	if !ok {
		return
	}
	cards, ok := raw.([]critical.Card)
	if !ok {
		return
	}
	a.peekMu.Lock()
	a.peeks[sessionID] = append([]critical.Card(nil), cards...)
	a.peekMu.Unlock()
}

// takePeek consumes a remembered peek of at least n cards.
func (a *Agent) takePeek(sessionID uuid.UUID, n int) ([]critical.Card, bool) {
	a.peekMu.Lock()
	defer a.peekMu.Unlock()
	cards, ok := a.peeks[sessionID]
	if !ok || len(cards) < n {
		return nil, false
	}
	delete(a.peeks, sessionID)
	return cards[:n], true
}

func (a *Agent) pickTarget(s *critical.State, selfID string) (string, bool) {
	candidates := []string{}
	for _, pid := range s.PlayerOrder {
		if pid != selfID {
			candidates = append(candidates, pid)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[a.intn(len(candidates))], true
}

func (a *Agent) seat(s *critical.State, id string) *critical.PlayerState {
	for _, p := range s.Players {
		if p.PlayerID == id {
			return p
		}
	}
	return nil
}

func (a *Agent) isCurrent(s *critical.State, id string) bool {
	if len(s.PlayerOrder) == 0 {
		return false
	}
	return s.PlayerOrder[s.CurrentTurnIndex] == id
}

func (a *Agent) holds(seat *critical.PlayerState, card critical.Card) bool {
	for _, c := range seat.Hand {
		if c == card {
			return true
		}
	}
	return false
}

func (a *Agent) intn(n int) int {
	if n <= 0 {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rng.Intn(n)
}

// cardNames renders cards the way a decoded JSON payload would carry
// them, so the engine's payload helpers accept the list.
func cardNames(cards []critical.Card) []interface{} {
	out := make([]interface{}, len(cards))
	for i, c := range cards {
		out[i] = string(c)
	}
	return out
}
