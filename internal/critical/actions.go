// internal/critical/actions.go
//
// Card-by-card resolution. Every resolver here runs on the clone made
// in resolve(); errors abandon the clone, so a rejection has zero
// observable side effects.
package critical

import (
	"fmt"
	"math/rand"

	"github.com/playcrit/critical/internal/engine"
)

// resolveDraw handles draw_card: the turn holder draws one card from
// the top of the deck, resolving a critical draw if needed, then pays
// down one forced-draw obligation.
func (e *Engine) resolveDraw(s *State, r *rand.Rand, actor *PlayerState) (map[string]interface{}, error) {
	if err := s.requireIdleTurn(actor); err != nil {
		return nil, err
	}
	s.returnStash(actor)

	card, err := s.drawTop(r)
	if err != nil {
		return nil, err
	}
	if card == CardCritical {
		return e.resolveCriticalDraw(s, r, actor, true)
	}
	actor.Hand = append(actor.Hand, card)
	s.logActionf(actor.PlayerID, "%s drew a card.", actor.PlayerID)
	s.consumeDrawObligation()
	return map[string]interface{}{"card": card}, nil
}

// resolveCriticalDraw handles pulling the critical card: neutralize
// (automatically, or via the awaiting-defuse sub-protocol under
// ManualDefuse) or eliminate. consume marks whether this draw pays a
// turn obligation; bonus draws (steal_draw) pass false.
func (e *Engine) resolveCriticalDraw(s *State, r *rand.Rand, actor *PlayerState, consume bool) (map[string]interface{}, error) {
	if actor.holds(CardNeutralizer) {
		if e.cfg.ManualDefuse {
			// The critical card sits in the drawer's hand until they
			// place it with defuse(position).
			actor.Hand = append(actor.Hand, CardCritical)
			s.PendingDefuse = true
			s.DefusePaysDraw = consume
			s.appendLog(LogEntry{
				Type:     LogAction,
				Scope:    ScopePlayers,
				SenderID: actor.PlayerID,
				Message:  actor.PlayerID + " drew a critical card and is placing a neutralizer.",
			})
			return map[string]interface{}{"drewCritical": true, "awaitingDefuse": true}, nil
		}

		actor.removeFromHand(CardNeutralizer)
		s.DiscardPile = append(s.DiscardPile, CardNeutralizer)
		pos := r.Intn(len(s.Deck) + 1)
		s.Deck = insertCard(s.Deck, CardCritical, pos)
		s.appendLog(LogEntry{
			Type:     LogAction,
			Scope:    ScopePlayers,
			SenderID: actor.PlayerID,
			Message:  actor.PlayerID + " drew a critical card and neutralized it.",
		})
		if consume {
			s.consumeDrawObligation()
		}
		return map[string]interface{}{"drewCritical": true, "defused": true}, nil
	}

	// No neutralizer: the drawer is out.
	actor.Alive = false
	s.DiscardPile = append(s.DiscardPile, CardCritical)
	s.removePlayer(actor.PlayerID)
	s.PendingDraws = 1
	s.appendLog(LogEntry{
		Type:    LogSystem,
		Scope:   ScopeAll,
		Message: actor.PlayerID + " drew a critical card and was eliminated.",
	})
	if ws := winners(s); len(ws) == 1 {
		s.appendLog(LogEntry{
			Type:    LogSystem,
			Scope:   ScopeAll,
			Message: ws[0] + " wins the game.",
		})
	}
	return map[string]interface{}{"drewCritical": true, "eliminated": true}, nil
}

// resolvePlay handles play_card for every single-card play.
func (e *Engine) resolvePlay(s *State, r *rand.Rand, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	if err := s.requireIdleTurn(actor); err != nil {
		return nil, err
	}
	name, ok := payloadString(payload, "card")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "play_card requires a card")
	}
	card := Card(name)
	if card == CardCritical || card == CardNeutralizer {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "%s cannot be played directly", card)
	}
	if card == CardCancel {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "use play_cancel to counter the last play")
	}
	if IsCollection(card) {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "collection cards are only playable as combos")
	}
	if _, known := e.cfg.DeckCounts[card]; !known {
		return nil, engine.NewRuleError(engine.KindValidation, "unknown card %q", card)
	}
	if !actor.holds(card) {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "card %s is not in your hand", card)
	}

	actor.removeFromHand(card)
	s.DiscardPile = append(s.DiscardPile, card)

	switch card {
	case CardEvade:
		return e.playEvade(s, actor)
	case CardStrike, CardStrikeTargeted, CardStrikePrivate, CardStrikeRecursive:
		return e.playStrike(s, actor, card, payload)
	case CardReorder:
		return e.playReorder(s, r, actor)
	case CardInsight, CardInsightFive:
		return e.playInsight(s, actor, card)
	case CardTrade:
		return e.playTrade(s, actor, payload)
	case CardAlterFuture, CardAlterFutureFive, CardShareFuture:
		return e.playAlterFuture(s, actor, card)
	case CardMark:
		return e.playMark(s, r, actor, payload)
	case CardStealDraw:
		return e.playStealDraw(s, r, actor)
	case CardDrawBottom:
		return e.playDrawBottom(s, r, actor)
	case CardSwapTopBottom:
		return e.playSwapTopBottom(s, actor)
	case CardBury:
		return e.playBury(s, actor, payload)
	}
	return nil, engine.NewRuleError(engine.KindValidation, "unhandled card %q", card)
}

// playEvade consumes one owed draw without drawing, or ends the turn
// outright when only the baseline draw is owed.
func (e *Engine) playEvade(s *State, actor *PlayerState) (map[string]interface{}, error) {
	pa := &PendingAction{
		Type:             CardEvade,
		PlayerID:         actor.PlayerID,
		PrevTurnIndex:    s.CurrentTurnIndex,
		PrevPendingDraws: s.PendingDraws,
	}
	s.logActionf(actor.PlayerID, "%s evaded a draw.", actor.PlayerID)
	s.consumeDrawObligation()
	s.PendingAction = pa
	return nil, nil
}

// playStrike ends the actor's turn and transfers their remaining
// obligation, stacked per the card's policy, onto the victim. The
// private strike instead piles extra draws onto the actor themself.
func (e *Engine) playStrike(s *State, actor *PlayerState, card Card, payload map[string]interface{}) (map[string]interface{}, error) {
	pa := &PendingAction{
		Type:             card,
		PlayerID:         actor.PlayerID,
		PrevTurnIndex:    s.CurrentTurnIndex,
		PrevPendingDraws: s.PendingDraws,
	}
	prevPending := s.PendingDraws

	switch card {
	case CardStrikePrivate:
		s.PendingDraws = prevPending + attackBonus[card]
		s.logActionf(actor.PlayerID, "%s played a private strike and now owes %d draws.", actor.PlayerID, s.PendingDraws)

	case CardStrikeTargeted:
		targetID, ok := payloadString(payload, "targetPlayerId")
		if !ok {
			return nil, engine.NewRuleError(engine.KindValidation, "%s requires a targetPlayerId", card)
		}
		idx, err := s.orderIndexOfOther(actor.PlayerID, targetID)
		if err != nil {
			return nil, err
		}
		pa.TargetID = targetID
		s.CurrentTurnIndex = idx
		s.PendingDraws = prevPending + attackBonus[card]
		s.logActionf(actor.PlayerID, "%s struck %s, who now owes %d draws.", actor.PlayerID, targetID, s.PendingDraws)

	default: // strike, strike_recursive
		s.advanceTurn()
		if card == CardStrikeRecursive {
			s.PendingDraws = prevPending * 2
			if s.PendingDraws < 2 {
				s.PendingDraws = 2
			}
		} else {
			s.PendingDraws = prevPending + attackBonus[card]
		}
		pa.TargetID = s.currentPlayerID()
		s.logActionf(actor.PlayerID, "%s struck %s, who now owes %d draws.", actor.PlayerID, s.currentPlayerID(), s.PendingDraws)
	}

	s.PendingAction = pa
	return nil, nil
}

// playReorder shuffles the deck in place. An empty deck is a logged
// no-op; the card is spent either way.
func (e *Engine) playReorder(s *State, r *rand.Rand, actor *PlayerState) (map[string]interface{}, error) {
	if len(s.Deck) > 0 {
		s.Deck = shuffled(r, s.Deck)
	}
	s.logActionf(actor.PlayerID, "%s shuffled the deck.", actor.PlayerID)
	return nil, nil
}

// playInsight returns the top N cards in the synchronous response only;
// the snapshot never carries them. Other players learn that a peek
// happened, not what was seen.
func (e *Engine) playInsight(s *State, actor *PlayerState, card Card) (map[string]interface{}, error) {
	n := 3
	if card == CardInsightFive {
		n = 5
	}
	if n > len(s.Deck) {
		n = len(s.Deck)
	}
	top := append([]Card(nil), s.Deck[:n]...)
	s.logActionf(actor.PlayerID, "%s peeked at the top of the deck.", actor.PlayerID)
	return map[string]interface{}{"cards": top}, nil
}

// playTrade opens the favor sub-protocol; the turn is suspended until
// the target answers with give_favor_card.
func (e *Engine) playTrade(s *State, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	targetID, ok := payloadString(payload, "targetPlayerId")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "trade requires a targetPlayerId")
	}
	if _, err := s.orderIndexOfOther(actor.PlayerID, targetID); err != nil {
		return nil, err
	}
	// An empty hand can never answer give_favor_card, so accepting the
	// trade would stall the session with no legal action left.
	if target := s.player(targetID); len(target.Hand) == 0 {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "%s has no cards to give", targetID)
	}
	s.PendingFavor = &PendingFavor{TargetID: targetID, RequesterID: actor.PlayerID}
	s.logActionf(actor.PlayerID, "%s asked %s for a card.", actor.PlayerID, targetID)
	return nil, nil
}

// playAlterFuture opens the alter sub-protocol over the top N cards and
// reveals them to the actor so they can choose the new order.
func (e *Engine) playAlterFuture(s *State, actor *PlayerState, card Card) (map[string]interface{}, error) {
	n := 3
	if card == CardAlterFutureFive {
		n = 5
	}
	if n > len(s.Deck) {
		n = len(s.Deck)
	}
	if n == 0 {
		s.logActionf(actor.PlayerID, "%s tried to alter an empty deck.", actor.PlayerID)
		return nil, nil
	}
	s.PendingAlter = &PendingAlter{
		PlayerID: actor.PlayerID,
		Count:    n,
		Share:    card == CardShareFuture,
	}
	s.logActionf(actor.PlayerID, "%s is rearranging the top of the deck.", actor.PlayerID)
	return map[string]interface{}{"cards": append([]Card(nil), s.Deck[:n]...)}, nil
}

// playMark hides the target's whole hand in their stash; it returns to
// their hand when they next draw.
func (e *Engine) playMark(s *State, r *rand.Rand, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	targetID, ok := payloadString(payload, "targetPlayerId")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "mark requires a targetPlayerId")
	}
	if _, err := s.orderIndexOfOther(actor.PlayerID, targetID); err != nil {
		return nil, err
	}
	target := s.player(targetID)
	if len(target.Hand) == 0 {
		s.logActionf(actor.PlayerID, "%s marked %s, but their hand was empty.", actor.PlayerID, targetID)
		return nil, nil
	}
	stashed := shuffled(r, target.Hand)
	target.Stash = append(target.Stash, stashed...)
	target.Hand = []Card{}
	s.logActionf(actor.PlayerID, "%s marked %s; their hand is stashed until their next draw.", actor.PlayerID, targetID)
	return nil, nil
}

// playStealDraw grants a bonus draw that pays no turn obligation. The
// critical card is just as dangerous on a bonus draw.
func (e *Engine) playStealDraw(s *State, r *rand.Rand, actor *PlayerState) (map[string]interface{}, error) {
	card, err := s.drawTop(r)
	if err != nil {
		return nil, err
	}
	if card == CardCritical {
		return e.resolveCriticalDraw(s, r, actor, false)
	}
	actor.Hand = append(actor.Hand, card)
	s.logActionf(actor.PlayerID, "%s took an extra draw.", actor.PlayerID)
	return map[string]interface{}{"card": card}, nil
}

// playDrawBottom draws from the bottom of the deck and counts as the
// forced draw for the turn.
func (e *Engine) playDrawBottom(s *State, r *rand.Rand, actor *PlayerState) (map[string]interface{}, error) {
	s.returnStash(actor)
	card, err := s.drawBottom(r)
	if err != nil {
		return nil, err
	}
	if card == CardCritical {
		return e.resolveCriticalDraw(s, r, actor, true)
	}
	actor.Hand = append(actor.Hand, card)
	s.logActionf(actor.PlayerID, "%s drew from the bottom of the deck.", actor.PlayerID)
	s.consumeDrawObligation()
	return map[string]interface{}{"card": card}, nil
}

// playSwapTopBottom swaps the top and bottom deck cards; no-op when
// fewer than two cards remain.
func (e *Engine) playSwapTopBottom(s *State, actor *PlayerState) (map[string]interface{}, error) {
	if len(s.Deck) >= 2 {
		last := len(s.Deck) - 1
		s.Deck[0], s.Deck[last] = s.Deck[last], s.Deck[0]
	}
	s.logActionf(actor.PlayerID, "%s swapped the top and bottom of the deck.", actor.PlayerID)
	return nil, nil
}

// playBury moves the top card to a chosen position, revealing it only
// to the actor, and consumes one draw obligation like an evade.
func (e *Engine) playBury(s *State, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	pos, ok := payloadInt(payload, "position")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "bury requires a position")
	}
	if len(s.Deck) == 0 {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "the deck is empty")
	}
	card := s.Deck[0]
	rest := append([]Card(nil), s.Deck[1:]...)
	pos = clamp(pos, 0, len(rest))
	s.Deck = insertCard(rest, card, pos)

	pa := &PendingAction{
		Type:             CardBury,
		PlayerID:         actor.PlayerID,
		PrevTurnIndex:    s.CurrentTurnIndex,
		PrevPendingDraws: s.PendingDraws,
		BuriedCard:       card,
		BuriedAt:         pos,
	}
	s.logActionf(actor.PlayerID, "%s buried the top card.", actor.PlayerID)
	s.consumeDrawObligation()
	s.PendingAction = pa
	return map[string]interface{}{"card": card}, nil
}

// resolveGiveFavor handles give_favor_card from the favor target. The
// named card must be in hand; there is no substitution.
func (e *Engine) resolveGiveFavor(s *State, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	if s.PendingFavor == nil {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "no favor is pending")
	}
	if s.PendingFavor.TargetID != actor.PlayerID {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "the favor was not asked of you")
	}
	name, ok := payloadString(payload, "card")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "give_favor_card requires a card")
	}
	card := Card(name)
	if !actor.removeFromHand(card) {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "card %s is not in your hand", card)
	}
	requester := s.player(s.PendingFavor.RequesterID)
	requester.Hand = append(requester.Hand, card)
	s.logActionf(actor.PlayerID, "%s gave a card to %s.", actor.PlayerID, requester.PlayerID)
	s.appendLog(LogEntry{
		Type:        LogAction,
		Scope:       ScopePrivate,
		SenderID:    actor.PlayerID,
		RecipientID: requester.PlayerID,
		Message:     actor.PlayerID + " gave you a " + string(card) + ".",
	})
	// Favor does not end the requester's turn.
	s.PendingFavor = nil
	return nil, nil
}

// resolveDefuse handles defuse(position) in the awaiting-defuse
// sub-protocol: the neutralizer is spent and the critical card goes
// back into the deck at the chosen position. Completes the draw for
// the turn only when the suspended draw was paying an obligation; a
// bonus draw that hit the critical card leaves the turn untouched.
func (e *Engine) resolveDefuse(s *State, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	if !s.PendingDefuse {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "no defuse is pending")
	}
	if s.currentPlayerID() != actor.PlayerID {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "you are not the one defusing")
	}
	pos, ok := payloadInt(payload, "position")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "defuse requires a position")
	}
	if !actor.holds(CardCritical) || !actor.holds(CardNeutralizer) {
		panic("critical: awaiting-defuse state without critical and neutralizer in hand")
	}
	actor.removeFromHand(CardNeutralizer)
	s.DiscardPile = append(s.DiscardPile, CardNeutralizer)
	actor.removeFromHand(CardCritical)
	s.Deck = insertCard(s.Deck, CardCritical, clamp(pos, 0, len(s.Deck)))
	s.PendingDefuse = false
	paysDraw := s.DefusePaysDraw
	s.DefusePaysDraw = false
	s.appendLog(LogEntry{
		Type:     LogAction,
		Scope:    ScopePlayers,
		SenderID: actor.PlayerID,
		Message:  actor.PlayerID + " neutralized the critical card.",
	})
	if paysDraw {
		s.consumeDrawObligation()
	}
	return nil, nil
}

// resolveCommitAlter handles commit_alter_future(newOrder): the new
// order must be a permutation of the current top cards.
func (e *Engine) resolveCommitAlter(s *State, actor *PlayerState, payload map[string]interface{}) (map[string]interface{}, error) {
	if s.PendingAlter == nil {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "no future alteration is pending")
	}
	if s.PendingAlter.PlayerID != actor.PlayerID {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "you are not the one altering the future")
	}
	newOrder, ok := payloadCards(payload, "newOrder")
	if !ok {
		return nil, engine.NewRuleError(engine.KindValidation, "commit_alter_future requires a newOrder card list")
	}
	n := s.PendingAlter.Count
	if !samePermutation(newOrder, s.Deck[:n]) {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "newOrder is not a permutation of the top %d cards", n)
	}
	copy(s.Deck[:n], newOrder)

	if s.PendingAlter.Share && len(s.PlayerOrder) > 1 {
		next := s.PlayerOrder[(s.CurrentTurnIndex+1)%len(s.PlayerOrder)]
		s.appendLog(LogEntry{
			Type:        LogAction,
			Scope:       ScopePrivate,
			SenderID:    actor.PlayerID,
			RecipientID: next,
			Message:     "The top of the deck is now: " + cardList(newOrder) + ".",
		})
	}
	s.logActionf(actor.PlayerID, "%s rearranged the top of the deck.", actor.PlayerID)
	s.PendingAlter = nil
	return nil, nil
}

// resolveCancel handles play_cancel: spend a cancel card to undo the
// pending sub-protocol or the immediately preceding recorded play.
// Single level: a cancel cannot itself be cancelled.
func (e *Engine) resolveCancel(s *State, actor *PlayerState) (map[string]interface{}, error) {
	if !actor.holds(CardCancel) {
		return nil, engine.NewRuleError(engine.KindIllegalAction, "you have no cancel card")
	}

	switch {
	case s.PendingFavor != nil:
		if s.PendingFavor.RequesterID == actor.PlayerID {
			return nil, engine.NewRuleError(engine.KindIllegalAction, "you cannot cancel your own play")
		}
		requester := s.PendingFavor.RequesterID
		s.PendingFavor = nil
		s.spendCancel(actor)
		s.appendLog(LogEntry{
			Type:    LogAction,
			Scope:   ScopeAll,
			Message: actor.PlayerID + " canceled " + requester + "'s trade.",
		})
		return nil, nil

	case s.PendingAlter != nil:
		if s.PendingAlter.PlayerID == actor.PlayerID {
			return nil, engine.NewRuleError(engine.KindIllegalAction, "you cannot cancel your own play")
		}
		origin := s.PendingAlter.PlayerID
		s.PendingAlter = nil
		s.spendCancel(actor)
		s.appendLog(LogEntry{
			Type:    LogAction,
			Scope:   ScopeAll,
			Message: actor.PlayerID + " canceled " + origin + "'s future alteration.",
		})
		return nil, nil

	case s.PendingAction != nil:
		pa := s.PendingAction
		if pa.PlayerID == actor.PlayerID {
			return nil, engine.NewRuleError(engine.KindIllegalAction, "you cannot cancel your own play")
		}
		s.undoPendingAction(pa)
		s.PendingAction = nil
		s.spendCancel(actor)
		s.appendLog(LogEntry{
			Type:    LogAction,
			Scope:   ScopeAll,
			Message: actor.PlayerID + " canceled " + pa.PlayerID + "'s " + string(pa.Type) + ".",
		})
		return nil, nil
	}
	return nil, engine.NewRuleError(engine.KindIllegalAction, "there is nothing to cancel")
}

// undoPendingAction mirrors the recorded effect in reverse.
func (s *State) undoPendingAction(pa *PendingAction) {
	switch pa.Type {
	case CardEvade, CardStrike, CardStrikeTargeted, CardStrikePrivate, CardStrikeRecursive:
		s.CurrentTurnIndex = pa.PrevTurnIndex
		s.PendingDraws = pa.PrevPendingDraws

	case CardBury:
		// Pull the buried card back to the top, then restore the turn.
		deck := append([]Card(nil), s.Deck[:pa.BuriedAt]...)
		deck = append(deck, s.Deck[pa.BuriedAt+1:]...)
		s.Deck = insertCard(deck, pa.BuriedCard, 0)
		s.CurrentTurnIndex = pa.PrevTurnIndex
		s.PendingDraws = pa.PrevPendingDraws

	default:
		// Cat combos: return the taken card. The combo cards stay
		// discarded.
		if pa.StolenCard != "" && pa.StolenFrom != "" {
			thief := s.player(pa.PlayerID)
			victim := s.player(pa.StolenFrom)
			if thief != nil && victim != nil && thief.removeFromHand(pa.StolenCard) {
				victim.Hand = append(victim.Hand, pa.StolenCard)
			}
		}
	}
}

// spendCancel discards the cancel card from the canceling player.
func (s *State) spendCancel(actor *PlayerState) {
	actor.removeFromHand(CardCancel)
	s.DiscardPile = append(s.DiscardPile, CardCancel)
}

// returnStash gives a marked player their stashed hand back at the
// start of their draw.
func (s *State) returnStash(p *PlayerState) {
	if len(p.Stash) == 0 {
		return
	}
	p.Hand = append(p.Hand, p.Stash...)
	p.Stash = nil
	s.appendLog(LogEntry{
		Type:    LogSystem,
		Scope:   ScopePlayers,
		Message: p.PlayerID + "'s stashed hand was returned.",
	})
}

// drawBottom pops the bottom card, reshuffling the discard pile first
// when the deck is empty.
func (s *State) drawBottom(r *rand.Rand) (Card, error) {
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
	last := len(s.Deck) - 1
	card := s.Deck[last]
	s.Deck = s.Deck[:last]
	return card, nil
}

// orderIndexOfOther validates a target for offensive plays: it must be
// a different, still-alive player, and returns their turn-order index.
func (s *State) orderIndexOfOther(actorID, targetID string) (int, error) {
	if targetID == actorID {
		return 0, engine.NewRuleError(engine.KindIllegalAction, "you cannot target yourself")
	}
	for i, id := range s.PlayerOrder {
		if id == targetID {
			return i, nil
		}
	}
	if s.player(targetID) != nil {
		return 0, engine.NewRuleError(engine.KindIllegalAction, "%s has been eliminated", targetID)
	}
	return 0, engine.NewRuleError(engine.KindNotFound, "player %s is not in this game", targetID)
}

func insertCard(deck []Card, card Card, pos int) []Card {
	deck = append(deck, "")
	copy(deck[pos+1:], deck[pos:])
	deck[pos] = card
	return deck
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// samePermutation reports whether a and b hold the same multiset.
func samePermutation(a, b []Card) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[Card]int, len(a))
	for _, c := range a {
		counts[c]++
	}
	for _, c := range b {
		counts[c]--
		if counts[c] < 0 {
			return false
		}
	}
	return true
}
