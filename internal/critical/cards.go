// internal/critical/cards.go
package critical

import (
	"math/rand"
	"time"

	"github.com/playcrit/critical/internal/engine"
)

// Card is one card type. Cards carry no per-instance identity; a hand
// is a multiset represented as an ordered list.
type Card string

const (
	// The bomb and its answer.
	CardCritical    Card = "critical"
	CardNeutralizer Card = "neutralizer"

	// Core play cards.
	CardStrike  Card = "strike"
	CardEvade   Card = "evade"
	CardReorder Card = "reorder"
	CardTrade   Card = "trade"
	CardInsight Card = "insight"
	CardCancel  Card = "cancel"

	// Collection cards, only useful in combos.
	CardCatTaco       Card = "cat_taco"
	CardCatBeard      Card = "cat_beard"
	CardCatRainbow    Card = "cat_rainbow"
	CardCatPotato     Card = "cat_potato"
	CardCatWatermelon Card = "cat_watermelon"

	// Expansion cards.
	CardStrikeTargeted  Card = "strike_targeted"
	CardStrikePrivate   Card = "strike_private"
	CardStrikeRecursive Card = "strike_recursive"
	CardMark            Card = "mark"
	CardStealDraw       Card = "steal_draw"
	CardDrawBottom      Card = "draw_bottom"
	CardSwapTopBottom   Card = "swap_top_bottom"
	CardBury            Card = "bury"
	CardInsightFive     Card = "insight_five"
	CardAlterFuture     Card = "alter_future"
	CardAlterFutureFive Card = "alter_future_five"
	CardShareFuture     Card = "share_future"
)

// collectionCards are the five distinct cards usable in cat combos.
var collectionCards = []Card{
	CardCatTaco, CardCatBeard, CardCatRainbow, CardCatPotato, CardCatWatermelon,
}

// IsCollection reports whether c is one of the five collection cards.
func IsCollection(c Card) bool {
	for _, cc := range collectionCards {
		if cc == c {
			return true
		}
	}
	return false
}

// attackBonus maps attack-class cards to the number of extra forced
// draws one play adds on top of the transferred obligation. The
// recursive strike is handled separately (it doubles).
var attackBonus = map[Card]int{
	CardStrike:         1,
	CardStrikeTargeted: 1,
	CardStrikePrivate:  3,
}

// Config selects the card vocabulary and table rules for one variant.
type Config struct {
	Variant string `json:"variant"`

	// Copies of each non-special card in the base deck.
	DeckCounts map[Card]int `json:"deckCounts"`

	// HandSize is the number of cards dealt to each player on top of
	// their starting neutralizer.
	HandSize int `json:"handSize"`

	// NeutralizerBuffer is how many neutralizers go into the deck
	// beyond the one dealt to each player.
	NeutralizerBuffer int `json:"neutralizerBuffer"`

	// ManualDefuse makes drawing the critical card enter the
	// awaiting-defuse sub-protocol instead of auto-consuming a
	// neutralizer with a random reinsertion.
	ManualDefuse bool `json:"manualDefuse"`

	MinPlayers int `json:"minPlayers"`
	MaxPlayers int `json:"maxPlayers"`
}

// CriticalConfig is the full expansion vocabulary.
func CriticalConfig() Config {
	return Config{
		Variant:  "critical",
		HandSize: 4,
		DeckCounts: map[Card]int{
			CardStrike:          3,
			CardEvade:           4,
			CardReorder:         4,
			CardTrade:           4,
			CardInsight:         5,
			CardCancel:          5,
			CardCatTaco:         4,
			CardCatBeard:        4,
			CardCatRainbow:      4,
			CardCatPotato:       4,
			CardCatWatermelon:   4,
			CardStrikeTargeted:  2,
			CardStrikePrivate:   1,
			CardStrikeRecursive: 1,
			CardMark:            2,
			CardStealDraw:       2,
			CardDrawBottom:      3,
			CardSwapTopBottom:   2,
			CardBury:            2,
			CardInsightFive:     2,
			CardAlterFuture:     2,
			CardAlterFutureFive: 1,
			CardShareFuture:     2,
		},
		NeutralizerBuffer: 2,
		MinPlayers:        2,
		MaxPlayers:        8,
	}
}

// ExplodingCatsConfig is the core vocabulary without expansion cards.
func ExplodingCatsConfig() Config {
	return Config{
		Variant:  "exploding-cats",
		HandSize: 4,
		DeckCounts: map[Card]int{
			CardStrike:        4,
			CardEvade:         4,
			CardReorder:       4,
			CardTrade:         4,
			CardInsight:       5,
			CardCancel:        5,
			CardCatTaco:       4,
			CardCatBeard:      4,
			CardCatRainbow:    4,
			CardCatPotato:     4,
			CardCatWatermelon: 4,
		},
		NeutralizerBuffer: 2,
		MinPlayers:        2,
		MaxPlayers:        5,
	}
}

// buildDeck assembles the pre-deal draw pile for playerCount players:
// every configured copy of each play card, plus the extra neutralizers.
// Critical cards are NOT included; they are shuffled in after the deal
// (playerCount-1 of them), matching the reference game's setup.
func buildDeck(playerCount int, cfg Config) ([]Card, error) {
	if playerCount < 2 {
		return nil, engine.NewRuleError(engine.KindConfiguration, "need at least 2 players, got %d", playerCount)
	}
	if cfg.MaxPlayers > 0 && playerCount > cfg.MaxPlayers {
		return nil, engine.NewRuleError(engine.KindConfiguration, "variant %s supports at most %d players, got %d", cfg.Variant, cfg.MaxPlayers, playerCount)
	}
	var deck []Card
	for card, n := range cfg.DeckCounts {
		for i := 0; i < n; i++ {
			deck = append(deck, card)
		}
	}
	for i := 0; i < cfg.NeutralizerBuffer; i++ {
		deck = append(deck, CardNeutralizer)
	}
	return deck, nil
}

// shuffled returns a fresh uniformly shuffled copy of cards
// (Fisher-Yates via rand.Shuffle); the input is not mutated.
func shuffled(r *rand.Rand, cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// newRand builds a time-seeded source. Engines replace this hook in
// tests for deterministic shuffles.
func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
