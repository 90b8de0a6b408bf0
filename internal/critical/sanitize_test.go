package critical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sanitized(t *testing.T, e *Engine, raw json.RawMessage, viewerID string) (*State, json.RawMessage) {
	t.Helper()
	view, err := e.SanitizeState(raw, viewerID)
	require.NoError(t, err)
	var s State
	require.NoError(t, json.Unmarshal(view, &s))
	return &s, view
}

func TestSanitizeHidesOtherHandsAndDeck(t *testing.T) {
	e := testEngine(CriticalConfig())
	s := testState([]string{"alice", "bob"}, map[string][]Card{
		"alice": {CardEvade, CardInsight},
		"bob":   {CardTrade, CardReorder, CardCancel},
	}, []Card{CardStrike, CardNeutralizer})
	raw := marshalState(t, s)

	view, _ := sanitized(t, e, raw, "alice")

	own := view.player("alice")
	assert.Equal(t, []Card{CardEvade, CardInsight}, own.Hand)
	assert.Equal(t, 2, own.HandCount)

	other := view.player("bob")
	assert.Nil(t, other.Hand)
	assert.Equal(t, 3, other.HandCount)

	assert.Nil(t, view.Deck)
	assert.Equal(t, 2, view.DeckCount)
}

func TestSanitizeSpectatorSeesNoHands(t *testing.T) {
	e := testEngine(CriticalConfig())
	s := testState([]string{"alice", "bob"}, map[string][]Card{
		"alice": {CardEvade},
		"bob":   {CardTrade},
	}, []Card{CardStrike})
	raw := marshalState(t, s)

	view, _ := sanitized(t, e, raw, "")
	for _, p := range view.Players {
		assert.Nil(t, p.Hand)
		assert.Equal(t, 1, p.HandCount)
	}
	assert.Nil(t, view.Deck)
}

func TestSanitizeIsStable(t *testing.T) {
	e := testEngine(CriticalConfig())
	s := testState([]string{"alice", "bob", "carol"}, map[string][]Card{
		"alice": {CardEvade, CardInsight},
		"bob":   {CardTrade},
		"carol": {CardCancel, CardStrike, CardReorder},
	}, []Card{CardNeutralizer, CardBury})
	s.PendingAction = &PendingAction{
		Type:       CardStrike,
		PlayerID:   "alice",
		TargetID:   "bob",
		StolenCard: CardInsight,
	}
	raw := marshalState(t, s)

	_, once := sanitized(t, e, raw, "bob")
	_, twice := sanitized(t, e, once, "bob")
	assert.JSONEq(t, string(once), string(twice))
}

func TestSanitizeRedactsPendingActionDetails(t *testing.T) {
	e := testEngine(CriticalConfig())
	s := testState([]string{"alice", "bob"}, map[string][]Card{
		"alice": {CardInsight},
		"bob":   {CardCancel},
	}, []Card{CardTrade})
	s.PendingAction = &PendingAction{
		Type:             CardBury,
		PlayerID:         "alice",
		PrevTurnIndex:    0,
		PrevPendingDraws: 2,
		BuriedCard:       CardCritical,
		BuriedAt:         3,
	}
	raw := marshalState(t, s)

	view, _ := sanitized(t, e, raw, "bob")
	require.NotNil(t, view.PendingAction)
	assert.Equal(t, CardBury, view.PendingAction.Type)
	assert.Equal(t, "alice", view.PendingAction.PlayerID)
	assert.Empty(t, view.PendingAction.BuriedCard, "hidden information never reaches viewers")
	assert.Zero(t, view.PendingAction.BuriedAt)
	assert.Zero(t, view.PendingAction.PrevPendingDraws)
}

func TestLogScopes(t *testing.T) {
	e := testEngine(CriticalConfig())
	s := testState([]string{"alice", "bob"}, map[string][]Card{
		"alice": {CardInsight},
		"bob":   {CardTrade},
	}, []Card{CardStrike})
	s.appendLog(LogEntry{Type: LogSystem, Scope: ScopeAll, Message: "public"})
	s.appendLog(LogEntry{Type: LogAction, Scope: ScopePlayers, SenderID: "alice", Message: "seated"})
	s.appendLog(LogEntry{Type: LogAction, Scope: ScopePrivate, SenderID: "alice", RecipientID: "bob", Message: "secret"})
	raw := marshalState(t, s)

	messages := func(view *State) []string {
		out := []string{}
		for _, entry := range view.Logs {
			out = append(out, entry.Message)
		}
		return out
	}

	aliceView, _ := sanitized(t, e, raw, "alice")
	assert.Equal(t, []string{"public", "seated", "secret"}, messages(aliceView))

	bobView, _ := sanitized(t, e, raw, "bob")
	assert.Equal(t, []string{"public", "seated", "secret"}, messages(bobView))

	spectatorView, _ := sanitized(t, e, raw, "")
	assert.Equal(t, []string{"public"}, messages(spectatorView))
}

func TestStashRedactedLikeHand(t *testing.T) {
	e := testEngine(CriticalConfig())
	s := testState([]string{"alice", "bob"}, map[string][]Card{
		"alice": {CardMark},
		"bob":   {},
	}, []Card{CardStrike})
	s.Players[1].Stash = []Card{CardTrade, CardEvade}
	s.TotalCards = s.cardCount()
	raw := marshalState(t, s)

	view, _ := sanitized(t, e, raw, "alice")
	bob := view.player("bob")
	assert.Nil(t, bob.Stash)
	assert.Equal(t, 2, bob.StashCount)

	ownView, _ := sanitized(t, e, raw, "bob")
	assert.Equal(t, []Card{CardTrade, CardEvade}, ownView.player("bob").Stash)
}
