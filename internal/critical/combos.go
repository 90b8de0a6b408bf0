// internal/critical/combos.go
package critical

import (
	"math/rand"

	"github.com/playcrit/critical/internal/engine"
)

// Combo modes for play_cat_combo.
const (
	ComboPair  = "pair"  // two matching collection cards: blind steal
	ComboTrio  = "trio"  // three matching: demand a named card
	ComboFiver = "fiver" // five distinct: retrieve from the discard pile
)

// resolveCatCombo handles play_cat_combo. Combos never end the
// actor's turn.
func (e *Engine) resolveCatCombo(s *State, r *rand.Rand, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	if err := s.requireIdleTurn(actor); err != nil {
		return nil, err
	}
	mode, ok := payloadString(payload, "mode")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "play_cat_combo requires a mode")
	}
	switch mode {
	case ComboPair:
		return e.comboPair(s, r, actor, payload)
	case ComboTrio:
		return e.comboTrio(s, actor, payload)
	case ComboFiver:
		return e.comboFiver(s, actor, payload)
	}
	return nil, engine.NewRuleError(engine.KindValidation, "unknown combo mode %q", mode)
}

// comboPair discards two matching collection cards and steals a card
// at a blind random index from the target's hand.
func (e *Engine) comboPair(s *State, r *rand.Rand, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	card, target, err := s.comboTargetAndCard(actor, payload)
	if err != nil {
		return nil, err
	}
	if err := s.discardComboCards(actor, []Card{card, card}); err != nil {
		return nil, err
	}

	pa := &PendingAction{
		Type:       card,
		PlayerID:   actor.PlayerID,
		TargetID:   target.PlayerID,
		ComboCards: []Card{card, card},
	}
	if len(target.Hand) == 0 {
		s.logActionf(actor.PlayerID, "%s played a pair at %s, but there were no cards to steal.", actor.PlayerID, target.PlayerID)
		s.PendingAction = pa
		return nil, nil
	}
	idx := r.Intn(len(target.Hand))
	stolen := target.Hand[idx]
	target.Hand = append(target.Hand[:idx], target.Hand[idx+1:]...)
	actor.Hand = append(actor.Hand, stolen)

	pa.StolenCard = stolen
	pa.StolenFrom = target.PlayerID
	s.PendingAction = pa
	s.logActionf(actor.PlayerID, "%s played a pair and stole a card from %s.", actor.PlayerID, target.PlayerID)
	return map[string]interface{}{"card": stolen}, nil
}

// comboTrio discards three matching collection cards and demands a
// named card; the target only hands it over if they actually hold it.
func (e *Engine) comboTrio(s *State, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	card, target, err := s.comboTargetAndCard(actor, payload)
	if err != nil {
		return nil, err
	}
	requestedName, ok := payloadString(payload, "requestedCard")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "trio combo requires a requestedCard")
	}
	requested := Card(requestedName)
	if err := s.discardComboCards(actor, []Card{card, card, card}); err != nil {
		return nil, err
	}

	pa := &PendingAction{
		Type:       card,
		PlayerID:   actor.PlayerID,
		TargetID:   target.PlayerID,
		ComboCards: []Card{card, card, card},
	}
	if !target.removeFromHand(requested) {
		s.logActionf(actor.PlayerID, "%s demanded a %s from %s, who did not have one.", actor.PlayerID, requested, target.PlayerID)
		s.PendingAction = pa
		return map[string]interface{}{"received": false}, nil
	}
	actor.Hand = append(actor.Hand, requested)
	pa.StolenCard = requested
	pa.StolenFrom = target.PlayerID
	s.PendingAction = pa
	s.logActionf(actor.PlayerID, "%s demanded a %s from %s and got it.", actor.PlayerID, requested, target.PlayerID)
	return map[string]interface{}{"received": true, "card": requested}, nil
}

// comboFiver discards five distinct collection cards and retrieves a
// named card from the discard pile.
func (e *Engine) comboFiver(s *State, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	cards, ok := payloadCards(payload, "cards")
	if !ok || len(cards) != 5 {
		return nil, engine.NewRuleError(engine.KindValidation, "fiver combo requires a list of 5 cards")
	}
	seen := make(map[Card]bool, 5)
	for _, c := range cards {
		if !IsCollection(c) {
			return nil, engine.NewRuleError(engine.KindIllegalAction, "%s is not a collection card", c)
		}
		if seen[c] {
			return nil, engine.NewRuleError(engine.KindIllegalAction, "fiver combo cards must all differ")
		}
		seen[c] = true
	}
	requestedName, ok := payloadString(payload, "requestedDiscardCard")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "fiver combo requires a requestedDiscardCard")
	}
	requested := Card(requestedName)

	// The requested card must be in the pile as it stood before this
	// combo's own cards hit it.
	found := -1
	for i, c := range s.DiscardPile {
		if c == requested {
			found = i
			break
		}
	}
	if found == -1 {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "card %s is not in the discard pile", requested)
	}
	if err := s.discardComboCards(actor, cards); err != nil {
		return nil, err
	}
	s.DiscardPile = append(s.DiscardPile[:found], s.DiscardPile[found+1:]...)
	actor.Hand = append(actor.Hand, requested)
	s.logActionf(actor.PlayerID, "%s played five collection cards and recovered a %s from the discard pile.", actor.PlayerID, requested)
	return map[string]interface{}{"card": requested}, nil
}

// comboTargetAndCard validates the shared pair/trio payload: a
// collection card held by the actor and a live target other than the
// actor.
func (s *State) comboTargetAndCard(actor *PlayerState, payload map[string]interface{}) (Card, *PlayerState, error) {
	name, ok := payloadString(payload, "card")
	if !ok {
		return "", nil, engine.NewRuleError(engine.KindValidation, "combo requires a card")
	}
	card := Card(name)
	if !IsCollection(card) {
		return "", nil, engine.NewRuleError(engine.KindIllegalAction, "%s is not a collection card", card)
	}
	targetID, ok := payloadString(payload, "targetPlayerId")
	if !ok {
		return "", nil, engine.NewRuleError(engine.KindIllegalAction, "combo requires a targetPlayerId")
	}
	if _, err := s.orderIndexOfOther(actor.PlayerID, targetID); err != nil {
		return "", nil, err
	}
	return card, s.player(targetID), nil
}

// discardComboCards verifies the actor holds every combo card, then
// moves them all to the discard pile.
func (s *State) discardComboCards(actor *PlayerState, cards []Card) error {
	need := make(map[Card]int)
	for _, c := range cards {
		need[c]++
	}
	have := make(map[Card]int)
	for _, c := range actor.Hand {
		have[c]++
	}
	for c, n := range need {
		if have[c] < n {
			return engine.NewRuleError(engine.KindIllegalAction, "you need %d copies of %s for this combo", n, c)
		}
	}
	for _, c := range cards {
		actor.removeFromHand(c)
		s.DiscardPile = append(s.DiscardPile, c)
	}
	return nil
}
