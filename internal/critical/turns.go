// internal/critical/turns.go
package critical

// consumeDrawObligation pays one forced draw. The last owed draw ends
// the turn and resets the obligation to the baseline single draw.
func (s *State) consumeDrawObligation() {
	if s.PendingDraws > 1 {
		s.PendingDraws--
		return
	}
	s.PendingDraws = 1
	s.advanceTurn()
}

// advanceTurn moves CurrentTurnIndex to the next player in PlayerOrder,
// wrapping around, and resets the draw obligation. PlayerOrder only
// holds alive players, so any occupied slot is valid; the clamp guards
// an index left pointing past a shrunk order.
func (s *State) advanceTurn() {
	if len(s.PlayerOrder) == 0 {
		s.CurrentTurnIndex = 0
		return
	}
	if s.CurrentTurnIndex >= len(s.PlayerOrder) {
		// The player at the old index was just removed; the slot now
		// holds the next player already (or wrapped).
		s.CurrentTurnIndex = 0
		s.PendingDraws = 1
		return
	}
	s.CurrentTurnIndex = (s.CurrentTurnIndex + 1) % len(s.PlayerOrder)
	s.PendingDraws = 1
}

// removePlayer takes id out of PlayerOrder, adjusting the turn pointer
// relative to the removed seat: decrement when the removed seat was
// before the current one, renormalize when it WAS the current one (the
// next player slides into the same index), leave alone otherwise.
func (s *State) removePlayer(id string) {
	idx := -1
	for i, pid := range s.PlayerOrder {
		if pid == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	s.PlayerOrder = append(s.PlayerOrder[:idx], s.PlayerOrder[idx+1:]...)
	switch {
	case len(s.PlayerOrder) == 0:
		s.CurrentTurnIndex = 0
	case idx < s.CurrentTurnIndex:
		s.CurrentTurnIndex--
	case idx == s.CurrentTurnIndex && s.CurrentTurnIndex >= len(s.PlayerOrder):
		s.CurrentTurnIndex = 0
	}
}

// gameOver holds when one or zero players remain in the turn order.
func gameOver(s *State) bool {
	return len(s.PlayerOrder) <= 1
}

// winners returns the single surviving id, or nothing for a drawn or
// still-running game.
func winners(s *State) []string {
	if len(s.PlayerOrder) == 1 {
		return []string{s.PlayerOrder[0]}
	}
	return nil
}
