package bot

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcrit/critical/internal/critical"
	"github.com/playcrit/critical/internal/engine"
	"github.com/playcrit/critical/internal/seabattle"
	"github.com/playcrit/critical/internal/session"
)

func testAgent(t *testing.T) (*Agent, *session.Facade) {
	t.Helper()
	registry := engine.NewRegistry()
	registry.Register(critical.NewCritical())
	registry.Register(seabattle.New())
	f := session.NewFacade(registry, session.NewStore(), nil, nil, nil)
	a := NewAgent(f, []string{"critical"}, nil)
	a.ThinkDelay = 0
	return a, f
}

func openSession(t *testing.T, f *session.Facade, gameID string, players []string) uuid.UUID {
	t.Helper()
	sess, err := f.Create(context.Background(), session.CreateRequest{
		RoomID:    "room-" + uuid.NewString(),
		GameID:    gameID,
		PlayerIDs: players,
	})
	require.NoError(t, err)
	return sess.ID
}

// buildState hand-builds a critical snapshot the way the engine would
// have produced it mid-game.
func buildState(order []string, hands map[string][]critical.Card, deck []critical.Card) *critical.State {
	s := &critical.State{
		Variant:      "critical",
		Deck:         append([]critical.Card{}, deck...),
		DiscardPile:  []critical.Card{},
		PlayerOrder:  append([]string{}, order...),
		PendingDraws: 1,
	}
	for _, id := range order {
		s.Players = append(s.Players, &critical.PlayerState{
			PlayerID: id,
			Alive:    true,
			Hand:     append([]critical.Card{}, hands[id]...),
		})
	}
	return s
}

func setState(t *testing.T, f *session.Facade, id uuid.UUID, s *critical.State) {
	t.Helper()
	total := len(s.Deck) + len(s.DiscardPile)
	for _, p := range s.Players {
		total += len(p.Hand) + len(p.Stash)
	}
	s.TotalCards = total
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	sess, ok := f.Session(id)
	require.True(t, ok)
	sess.State = raw
}

func currentState(t *testing.T, f *session.Facade, id uuid.UUID) (*critical.State, int) {
	t.Helper()
	sess, ok := f.Session(id)
	require.True(t, ok)
	var s critical.State
	require.NoError(t, json.Unmarshal(sess.State, &s))
	return &s, sess.ActionCount
}

func TestWakeIgnoresForeignGamesAndBotlessSessions(t *testing.T) {
	a, f := testAgent(t)

	other := openSession(t, f, "seabattle", []string{"alice", "bot-rex"})
	a.Wake(other)
	sess, _ := f.Session(other)
	assert.Equal(t, 0, sess.ActionCount)

	humans := openSession(t, f, "critical", []string{"alice", "bob"})
	a.Wake(humans)
	sess, _ = f.Session(humans)
	assert.Equal(t, 0, sess.ActionCount)
}

func TestBotAnswersFavor(t *testing.T) {
	a, f := testAgent(t)
	id := openSession(t, f, "critical", []string{"alice", "bot-rex"})

	s := buildState([]string{"alice", "bot-rex"}, map[string][]critical.Card{
		"alice":   {critical.CardInsight},
		"bot-rex": {critical.CardTrade},
	}, []critical.Card{critical.CardEvade, critical.CardEvade})
	s.PendingFavor = &critical.PendingFavor{TargetID: "bot-rex", RequesterID: "alice"}
	setState(t, f, id, s)

	a.Wake(id)

	got, acted := currentState(t, f, id)
	assert.Equal(t, 1, acted)
	assert.Nil(t, got.PendingFavor)
	alice := got.Players[0]
	assert.Contains(t, alice.Hand, critical.CardTrade)
	assert.Empty(t, got.Players[1].Hand)
}

func TestBotPlacesNeutralizerWhenDefusePending(t *testing.T) {
	a, f := testAgent(t)
	id := openSession(t, f, "critical", []string{"alice", "bot-rex"})

	s := buildState([]string{"alice", "bot-rex"}, map[string][]critical.Card{
		"alice":   {critical.CardInsight},
		"bot-rex": {critical.CardCritical, critical.CardNeutralizer},
	}, []critical.Card{critical.CardTrade, critical.CardTrade})
	s.CurrentTurnIndex = 1
	s.PendingDefuse = true
	s.DefusePaysDraw = true
	setState(t, f, id, s)

	a.Wake(id)

	got, acted := currentState(t, f, id)
	assert.Equal(t, 1, acted)
	assert.False(t, got.PendingDefuse)
	assert.Empty(t, got.Players[1].Hand)
	assert.True(t, got.Players[1].Alive)
	assert.Contains(t, got.Deck, critical.CardCritical)
	assert.Contains(t, got.DiscardPile, critical.CardNeutralizer)
	assert.Equal(t, "alice", got.PlayerOrder[got.CurrentTurnIndex])
}

func TestBotDrawsWhenNothingIsPlayable(t *testing.T) {
	a, f := testAgent(t)
	id := openSession(t, f, "critical", []string{"alice", "bot-rex"})

	s := buildState([]string{"alice", "bot-rex"}, map[string][]critical.Card{
		"alice":   {critical.CardInsight},
		"bot-rex": {critical.CardNeutralizer},
	}, []critical.Card{critical.CardTrade, critical.CardTrade, critical.CardTrade})
	s.CurrentTurnIndex = 1
	setState(t, f, id, s)

	a.Wake(id)

	got, acted := currentState(t, f, id)
	assert.Equal(t, 1, acted)
	assert.Len(t, got.Players[1].Hand, 2)
	assert.Len(t, got.Deck, 2)
	assert.Equal(t, "alice", got.PlayerOrder[got.CurrentTurnIndex])
}

func TestBotSurvivesCriticalDraw(t *testing.T) {
	a, f := testAgent(t)
	id := openSession(t, f, "critical", []string{"alice", "bot-rex"})

	s := buildState([]string{"alice", "bot-rex"}, map[string][]critical.Card{
		"alice":   {critical.CardInsight},
		"bot-rex": {critical.CardNeutralizer},
	}, []critical.Card{critical.CardCritical, critical.CardTrade, critical.CardTrade})
	s.CurrentTurnIndex = 1
	setState(t, f, id, s)

	a.Wake(id)

	got, acted := currentState(t, f, id)
	assert.Equal(t, 1, acted)
	assert.True(t, got.Players[1].Alive)
	assert.Empty(t, got.Players[1].Hand)
	assert.Contains(t, got.Deck, critical.CardCritical)
	assert.Contains(t, got.DiscardPile, critical.CardNeutralizer)
}

func TestBotCommitsRememberedAlterFuture(t *testing.T) {
	a, f := testAgent(t)
	id := openSession(t, f, "critical", []string{"alice", "bot-rex"})

	deck := []critical.Card{critical.CardTrade, critical.CardEvade, critical.CardInsight, critical.CardCatTaco}
	s := buildState([]string{"alice", "bot-rex"}, map[string][]critical.Card{
		"alice":   {critical.CardInsight},
		"bot-rex": {critical.CardNeutralizer},
	}, deck)
	s.CurrentTurnIndex = 1
	s.PendingAlter = &critical.PendingAlter{PlayerID: "bot-rex", Count: 3}
	setState(t, f, id, s)

	a.peekMu.Lock()
	a.peeks[id] = append([]critical.Card(nil), deck[:3]...)
	a.peekMu.Unlock()

	a.Wake(id)

	// The commit keeps the turn, so the bot follows up with its draw.
	got, acted := currentState(t, f, id)
	assert.Equal(t, 2, acted)
	assert.Nil(t, got.PendingAlter)
	assert.Equal(t, []critical.Card{critical.CardEvade, critical.CardInsight, critical.CardCatTaco}, got.Deck)
	assert.Contains(t, got.Players[1].Hand, critical.CardTrade)
	assert.Equal(t, "alice", got.PlayerOrder[got.CurrentTurnIndex])
}

func TestBotWithoutPeekStaysPut(t *testing.T) {
	a, f := testAgent(t)
	id := openSession(t, f, "critical", []string{"alice", "bot-rex"})

	s := buildState([]string{"alice", "bot-rex"}, map[string][]critical.Card{
		"alice":   {critical.CardInsight},
		"bot-rex": {critical.CardNeutralizer},
	}, []critical.Card{critical.CardTrade, critical.CardEvade, critical.CardInsight})
	s.CurrentTurnIndex = 1
	s.PendingAlter = &critical.PendingAlter{PlayerID: "bot-rex", Count: 3}
	setState(t, f, id, s)

	a.Wake(id)

	_, acted := currentState(t, f, id)
	assert.Equal(t, 0, acted)
}

func TestBotCancelsComboAimedAtIt(t *testing.T) {
	a, f := testAgent(t)
	id := openSession(t, f, "critical", []string{"alice", "bot-rex"})

	build := func() *critical.State {
		s := buildState([]string{"alice", "bot-rex"}, map[string][]critical.Card{
			"alice":   {critical.CardTrade},
			"bot-rex": {critical.CardCancel},
		}, []critical.Card{critical.CardEvade, critical.CardEvade})
		s.DiscardPile = []critical.Card{critical.CardCatTaco, critical.CardCatTaco}
		s.PendingAction = &critical.PendingAction{
			Type:             critical.CardCatTaco,
			PlayerID:         "alice",
			TargetID:         "bot-rex",
			PrevTurnIndex:    0,
			PrevPendingDraws: 1,
			StolenCard:       critical.CardTrade,
			StolenFrom:       "bot-rex",
			ComboCards:       []critical.Card{critical.CardCatTaco, critical.CardCatTaco},
		}
		return s
	}

	// The cancel policy is probabilistic; any seed that declines leaves
	// the state untouched, so reseed until one fires.
	canceled := false
	for seed := int64(0); seed < 20 && !canceled; seed++ {
		setState(t, f, id, build())
		a.mu.Lock()
		a.rng = rand.New(rand.NewSource(seed))
		a.mu.Unlock()

		a.Wake(id)

		got, acted := currentState(t, f, id)
		if acted == 0 {
			continue
		}
		canceled = true
		assert.Contains(t, got.Players[1].Hand, critical.CardTrade)
		assert.NotContains(t, got.Players[0].Hand, critical.CardTrade)
		assert.Nil(t, got.PendingAction)
	}
	assert.True(t, canceled, "bot never exercised its cancel within 20 seeds")
}

func TestPeekMemoryRoundTrip(t *testing.T) {
	a, _ := testAgent(t)
	id := uuid.New()
	cards := []critical.Card{critical.CardTrade, critical.CardEvade, critical.CardInsight}

	alterPlay := func(card critical.Card, revealed []critical.Card) {
		a.recordPeek(id, engine.Action{
			Name:    critical.ActionPlay,
			Payload: map[string]interface{}{"card": string(card)},
		}, &engine.Result{Data: map[string]interface{}{"cards": revealed}})
	}

	// Only an alter-family play carrying revealed cards is worth
	// remembering.
	a.recordPeek(id, engine.Action{Name: critical.ActionDraw}, &engine.Result{
		Data: map[string]interface{}{"cards": cards},
	})
	_, ok := a.takePeek(id, 3)
	assert.False(t, ok)

	alterPlay(critical.CardAlterFuture, cards)
	got, ok := a.takePeek(id, 3)
	require.True(t, ok)
	assert.Equal(t, cards, got)

	// The peek is consumed on use.
	_, ok = a.takePeek(id, 3)
	assert.False(t, ok)

	alterPlay(critical.CardAlterFuture, cards[:2])
	_, ok = a.takePeek(id, 3)
	assert.False(t, ok, "a short peek cannot back a larger commit")
}

func TestPeekMemoryIgnoresInsight(t *testing.T) {
	a, _ := testAgent(t)
	id := uuid.New()
	remembered := []critical.Card{critical.CardTrade, critical.CardEvade, critical.CardReorder}

	a.recordPeek(id, engine.Action{
		Name:    critical.ActionPlay,
		Payload: map[string]interface{}{"card": string(critical.CardAlterFuture)},
	}, &engine.Result{Data: map[string]interface{}{"cards": remembered}})

	// An insight also reveals cards but opens no commit; it must not
	// overwrite the order the pending commit depends on.
	a.recordPeek(id, engine.Action{
		Name:    critical.ActionPlay,
		Payload: map[string]interface{}{"card": string(critical.CardInsight)},
	}, &engine.Result{Data: map[string]interface{}{"cards": []critical.Card{critical.CardCancel, critical.CardBury, critical.CardMark}}})

	got, ok := a.takePeek(id, 3)
	require.True(t, ok)
	assert.Equal(t, remembered, got)
}
