// internal/critical/sanitize.go
package critical

import (
	"encoding/json"
	"fmt"
)

// SanitizeState projects the snapshot down to what viewerID may see
// and returns it as a JSON document. A viewer who holds a seat sees
// their own hand and stash plus counts for everyone else; any other
// viewer is a spectator and sees counts only. Deck contents are never
// included; peeked cards travel only in the synchronous action
// response.
//
// The projection is stable: sanitizing an already-sanitized document
// for the same viewer returns it unchanged.
func (e *Engine) SanitizeState(state json.RawMessage, viewerID string) (json.RawMessage, error) {
	s, err := e.decode(state)
	if err != nil {
		return nil, err
	}
	view := SanitizeForViewer(s, viewerID)
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("marshal view state: %w", err)
	}
	return raw, nil
}

// SanitizeForViewer is the typed projection behind SanitizeState.
func SanitizeForViewer(s *State, viewerID string) *State {
	view := s.Clone()
	isPlayer := view.player(viewerID) != nil

	for _, p := range view.Players {
		if p.PlayerID == viewerID {
			p.HandCount = len(p.Hand)
			p.StashCount = len(p.Stash)
			continue
		}
		// A nil hand marks an already-redacted seat; keep its count.
		if p.Hand != nil {
			p.HandCount = len(p.Hand)
		}
		if p.Stash != nil {
			p.StashCount = len(p.Stash)
		}
		p.Hand = nil
		p.Stash = nil
	}

	if view.Deck != nil {
		view.DeckCount = len(view.Deck)
	}
	view.Deck = nil

	// The cancellation record carries hidden information (what was
	// stolen, where a card was buried); expose only who played what.
	if view.PendingAction != nil {
		view.PendingAction = &PendingAction{
			Type:     view.PendingAction.Type,
			PlayerID: view.PendingAction.PlayerID,
			TargetID: view.PendingAction.TargetID,
		}
	}

	role := ScopeAll
	if isPlayer {
		role = ScopePlayers
	}
	view.Logs = FilterLogs(view.Logs, role, viewerID)
	return view
}

// FilterLogs keeps the entries visible to a viewer with the given
// role: spectators see scope "all" only; players additionally see
// scope "players"; private entries are visible only to their sender
// and recipient.
func FilterLogs(logs []LogEntry, role, viewerID string) []LogEntry {
	out := make([]LogEntry, 0, len(logs))
	for _, entry := range logs {
		switch entry.Scope {
		case ScopeAll:
			out = append(out, entry)
		case ScopePlayers:
			if role == ScopePlayers {
				out = append(out, entry)
			}
		case ScopePrivate:
			if viewerID != "" && (entry.SenderID == viewerID || entry.RecipientID == viewerID) {
				out = append(out, entry)
			}
		}
	}
	return out
}
