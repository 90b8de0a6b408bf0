// internal/engine/errors.go
package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies expected failures crossing the engine boundary.
type ErrorKind string

const (
	// KindValidation: malformed payload (missing field, wrong type).
	KindValidation ErrorKind = "validation"
	// KindIllegalAction: well-formed but illegal in the current state
	// (not your turn, wrong pending mode, card not in hand, ...).
	KindIllegalAction ErrorKind = "illegal_action"
	// KindNotFound: unknown session, room or player.
	KindNotFound ErrorKind = "not_found"
	// KindConfiguration: cannot build an initial state for the request.
	KindConfiguration ErrorKind = "configuration"
	// KindDeckExhausted: draw with nothing left to reshuffle. Should be
	// unreachable under the conservation invariant but stays guarded.
	KindDeckExhausted ErrorKind = "deck_exhausted"
)

// RuleError is the discriminated result for expected rule violations.
// Engines return it as a value; they never panic for player mistakes.
// Reason is short and human-readable, safe to forward to the acting
// client verbatim.
type RuleError struct {
	Kind   ErrorKind
	Reason string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// NewRuleError builds a RuleError with a formatted reason.
func NewRuleError(kind ErrorKind, format string, args ...interface{}) *RuleError {
	return &RuleError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// AsRuleError unwraps err into a *RuleError if it is one.
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
