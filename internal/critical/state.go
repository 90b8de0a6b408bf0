// internal/critical/state.go
package critical

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/playcrit/critical/internal/engine"
)

// maxLogEntries bounds the snapshot size; oldest entries are trimmed.
const maxLogEntries = 200

// Log entry types and visibility scopes.
const (
	LogSystem = "system"
	LogAction = "action"

	ScopeAll     = "all"     // visible to everyone including spectators
	ScopePlayers = "players" // visible to seated players only
	ScopePrivate = "private" // visible to sender and recipient only
)

// LogEntry is one append-only line in the session log. Scope controls
// redaction at broadcast time.
type LogEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Message     string `json:"message"`
	Scope       string `json:"scope"`
	SenderID    string `json:"senderId,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
}

// PlayerState is one seat. Hand and Stash are owned exclusively by the
// session and mutated only during action resolution. HandCount and
// StashCount are populated only on sanitized projections.
type PlayerState struct {
	PlayerID   string `json:"playerId"`
	Hand       []Card `json:"hand"`
	Stash      []Card `json:"stash,omitempty"`
	Alive      bool   `json:"alive"`
	HandCount  int    `json:"handCount,omitempty"`
	StashCount int    `json:"stashCount,omitempty"`
}

// PendingAction records the immediately preceding resolved play while
// it is still open to cancellation, together with what a cancel must
// restore. Never exposed unredacted to clients.
type PendingAction struct {
	Type             Card   `json:"type"`
	PlayerID         string `json:"playerId"`
	TargetID         string `json:"targetId,omitempty"`
	PrevTurnIndex    int    `json:"prevTurnIndex"`
	PrevPendingDraws int    `json:"prevPendingDraws"`
	StolenCard       Card   `json:"stolenCard,omitempty"`
	StolenFrom       string `json:"stolenFrom,omitempty"`
	ComboCards       []Card `json:"comboCards,omitempty"`
	TransferredCard  Card   `json:"transferredCard,omitempty"`
	BuriedCard       Card   `json:"buriedCard,omitempty"`
	BuriedAt         int    `json:"buriedAt,omitempty"`
}

// PendingFavor suspends the turn until the target hands over a card.
type PendingFavor struct {
	TargetID    string `json:"targetId"`
	RequesterID string `json:"requesterId"`
}

// PendingAlter suspends the turn until the player commits a new order
// for the top Count deck cards. Share reveals the committed order to
// the next player in turn.
type PendingAlter struct {
	PlayerID string `json:"playerId"`
	Count    int    `json:"count"`
	Share    bool   `json:"share"`
}

// State is the serializable snapshot of one in-progress game.
//
// Invariants (checked by checkInvariants, violated only by bugs):
//   - deck + discard + hands + stashes always total TotalCards;
//   - PlayerOrder holds only alive players and CurrentTurnIndex is a
//     valid index into it whenever it is non-empty;
//   - at most one of PendingAction/PendingFavor/PendingDefuse/
//     PendingAlter is active;
//   - PendingDraws >= 1.
type State struct {
	Variant          string         `json:"variant"`
	Players          []*PlayerState `json:"players"`
	Deck             []Card         `json:"deck"`
	DiscardPile      []Card         `json:"discardPile"`
	PlayerOrder      []string       `json:"playerOrder"`
	CurrentTurnIndex int            `json:"currentTurnIndex"`
	PendingDraws     int            `json:"pendingDraws"`
	PendingAction    *PendingAction `json:"pendingAction,omitempty"`
	PendingFavor     *PendingFavor  `json:"pendingFavor,omitempty"`
	PendingDefuse    bool           `json:"pendingDefuse"`
	// DefusePaysDraw remembers whether the draw suspended by
	// PendingDefuse was paying a turn obligation; bonus draws are not.
	DefusePaysDraw   bool           `json:"defusePaysDraw,omitempty"`
	PendingAlter     *PendingAlter  `json:"pendingAlter,omitempty"`
	Logs             []LogEntry     `json:"logs"`
	TotalCards       int            `json:"totalCards"`

	// DeckCount is populated only on sanitized projections, where Deck
	// itself is withheld.
	DeckCount int `json:"deckCount,omitempty"`
}

// newState deals a fresh game for the given roster: each player gets
// one neutralizer plus HandSize cards, then playerCount-1 criticals are
// shuffled into the remaining deck.
func newState(r *rand.Rand, playerIDs []string, cfg Config) (*State, error) {
	deck, err := buildDeck(len(playerIDs), cfg)
	if err != nil {
		return nil, err
	}
	deck = shuffled(r, deck)

	s := &State{
		Variant:          cfg.Variant,
		PlayerOrder:      append([]string(nil), playerIDs...),
		CurrentTurnIndex: 0,
		PendingDraws:     1,
		DiscardPile:      []Card{},
	}
	for _, id := range playerIDs {
		p := &PlayerState{PlayerID: id, Alive: true, Hand: []Card{CardNeutralizer}}
		for i := 0; i < cfg.HandSize; i++ {
			if len(deck) == 0 {
				return nil, engine.NewRuleError(engine.KindConfiguration, "deck too small to deal %d cards to %d players", cfg.HandSize, len(playerIDs))
			}
			p.Hand = append(p.Hand, deck[0])
			deck = deck[1:]
		}
		s.Players = append(s.Players, p)
	}

	for i := 0; i < len(playerIDs)-1; i++ {
		deck = append(deck, CardCritical)
	}
	s.Deck = shuffled(r, deck)

	s.TotalCards = s.cardCount()
	s.appendLog(LogEntry{
		Type:    LogSystem,
		Scope:   ScopeAll,
		Message: fmt.Sprintf("Game started with %d players.", len(playerIDs)),
	})
	return s, nil
}

// cardCount sums every card currently tracked by the session.
func (s *State) cardCount() int {
	n := len(s.Deck) + len(s.DiscardPile)
	for _, p := range s.Players {
		n += len(p.Hand) + len(p.Stash)
	}
	return n
}

// checkInvariants panics on corruption: these conditions indicate a
// resolver bug, not a rule violation, and must fail loudly.
func (s *State) checkInvariants() {
	if got := s.cardCount(); got != s.TotalCards {
		panic(fmt.Sprintf("critical: card conservation broken: have %d, want %d", got, s.TotalCards))
	}
	if len(s.PlayerOrder) > 0 && (s.CurrentTurnIndex < 0 || s.CurrentTurnIndex >= len(s.PlayerOrder)) {
		panic(fmt.Sprintf("critical: turn index %d out of range for %d players", s.CurrentTurnIndex, len(s.PlayerOrder)))
	}
	if s.PendingDraws < 1 {
		panic(fmt.Sprintf("critical: pendingDraws %d < 1", s.PendingDraws))
	}
	active := 0
	if s.PendingAction != nil {
		active++
	}
	if s.PendingFavor != nil {
		active++
	}
	if s.PendingDefuse {
		active++
	}
	if s.PendingAlter != nil {
		active++
	}
	if active > 1 {
		panic(fmt.Sprintf("critical: %d pending sub-protocols active at once", active))
	}
}

// Clone returns a deep copy. All resolution happens on a clone so a
// rejected action can never leave partial mutation behind.
func (s *State) Clone() *State {
	c := *s
	c.Deck = append([]Card(nil), s.Deck...)
	c.DiscardPile = append([]Card(nil), s.DiscardPile...)
	c.PlayerOrder = append([]string(nil), s.PlayerOrder...)
	c.Logs = append([]LogEntry(nil), s.Logs...)
	c.Players = make([]*PlayerState, len(s.Players))
	for i, p := range s.Players {
		pc := *p
		pc.Hand = append([]Card(nil), p.Hand...)
		pc.Stash = append([]Card(nil), p.Stash...)
		c.Players[i] = &pc
	}
	if s.PendingAction != nil {
		pa := *s.PendingAction
		pa.ComboCards = append([]Card(nil), s.PendingAction.ComboCards...)
		c.PendingAction = &pa
	}
	if s.PendingFavor != nil {
		pf := *s.PendingFavor
		c.PendingFavor = &pf
	}
	if s.PendingAlter != nil {
		al := *s.PendingAlter
		c.PendingAlter = &al
	}
	return &c
}

// player returns the seat for id, or nil.
func (s *State) player(id string) *PlayerState {
	for _, p := range s.Players {
		if p.PlayerID == id {
			return p
		}
	}
	return nil
}

// currentPlayerID returns the turn holder's id, or "" when the order
// is empty.
func (s *State) currentPlayerID() string {
	if len(s.PlayerOrder) == 0 {
		return ""
	}
	return s.PlayerOrder[s.CurrentTurnIndex]
}

// appendLog stamps and appends an entry, trimming to the retention cap.
func (s *State) appendLog(e LogEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UTC().UnixMilli()
	}
	s.Logs = append(s.Logs, e)
	if len(s.Logs) > maxLogEntries {
		s.Logs = s.Logs[len(s.Logs)-maxLogEntries:]
	}
}

// logActionf appends a player-visible action entry.
func (s *State) logActionf(senderID, format string, args ...interface{}) {
	s.appendLog(LogEntry{
		Type:     LogAction,
		Scope:    ScopePlayers,
		SenderID: senderID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// drawTop pops the top card (index 0). An empty deck first reshuffles
// the discard pile; only an empty deck AND discard is an error.
func (s *State) drawTop(r *rand.Rand) (Card, error) {
	if len(s.Deck) == 0 {
		if len(s.DiscardPile) == 0 {
			return "", engine.NewRuleError(engine.KindDeckExhausted, "draw pile and discard pile are both empty")
		}
		s.Deck = shuffled(r, s.DiscardPile)
		s.DiscardPile = []Card{}
		s.appendLog(LogEntry{
			Type:    LogSystem,
			Scope:   ScopeAll,
			Message: fmt.Sprintf("Discard pile reshuffled into a fresh deck of %d cards.", len(s.Deck)),
		})
	}
	card := s.Deck[0]
	s.Deck = s.Deck[1:]
	return card, nil
}

// removeFromHand removes one copy of card from p's hand. Reports
// whether a copy was present.
func (p *PlayerState) removeFromHand(card Card) bool {
	for i, c := range p.Hand {
		if c == card {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// holds reports whether p's hand contains at least one copy of card.
func (p *PlayerState) holds(card Card) bool {
	for _, c := range p.Hand {
		if c == card {
			return true
		}
	}
	return false
}
