package seabattle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playcrit/critical/internal/engine"
)

// defaultFleet lines the ships up in separate rows, one per fleet slot.
func defaultFleet() []map[string]interface{} {
	out := make([]map[string]interface{}, len(FleetSizes))
	for i, n := range FleetSizes {
		out[i] = map[string]interface{}{"row": i, "col": 0, "length": n, "horizontal": true}
	}
	return out
}

func placed(t *testing.T) (*Engine, json.RawMessage) {
	t.Helper()
	e := New()
	raw, err := e.InitializeState([]string{"alice", "bob"}, nil)
	require.NoError(t, err)
	for _, id := range []string{"alice", "bob"} {
		res, err := e.ExecuteAction(raw, id, engine.Action{
			Name:    ActionPlaceFleet,
			Payload: map[string]interface{}{"ships": defaultFleet()},
		})
		require.NoError(t, err)
		raw = res.State
	}
	return e, raw
}

func fire(t *testing.T, e *Engine, raw json.RawMessage, shooter string, row, col int) (*engine.Result, error) {
	t.Helper()
	return e.ExecuteAction(raw, shooter, engine.Action{
		Name:    ActionFire,
		Payload: map[string]interface{}{"row": row, "col": col},
	})
}

func decodeState(t *testing.T, raw json.RawMessage) *State {
	t.Helper()
	var s State
	require.NoError(t, json.Unmarshal(raw, &s))
	return &s
}

func TestInitializeStateRequiresTwoPlayers(t *testing.T) {
	e := New()
	_, err := e.InitializeState([]string{"alice"}, nil)
	re, ok := engine.AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, engine.KindConfiguration, re.Kind)
}

func TestPlaceFleetStartsGameWhenBothPlaced(t *testing.T) {
	e := New()
	raw, err := e.InitializeState([]string{"alice", "bob"}, nil)
	require.NoError(t, err)

	res, err := e.ExecuteAction(raw, "alice", engine.Action{
		Name:    ActionPlaceFleet,
		Payload: map[string]interface{}{"ships": defaultFleet()},
	})
	require.NoError(t, err)
	s := decodeState(t, res.State)
	assert.False(t, s.Started)
	assert.True(t, s.player("alice").Placed)

	res, err = e.ExecuteAction(res.State, "bob", engine.Action{
		Name:    ActionPlaceFleet,
		Payload: map[string]interface{}{"ships": defaultFleet()},
	})
	require.NoError(t, err)
	assert.True(t, decodeState(t, res.State).Started)
}

func TestPlaceFleetRejectsBadLayouts(t *testing.T) {
	e := New()
	raw, err := e.InitializeState([]string{"alice", "bob"}, nil)
	require.NoError(t, err)

	cases := []struct {
		name  string
		ships []map[string]interface{}
	}{
		{"wrong count", defaultFleet()[:3]},
		{"wrong lengths", func() []map[string]interface{} {
			f := defaultFleet()
			f[0]["length"] = 2
			return f
		}()},
		{"off the grid", func() []map[string]interface{} {
			f := defaultFleet()
			f[0]["col"] = 7
			return f
		}()},
		{"overlap", func() []map[string]interface{} {
			f := defaultFleet()
			f[1]["row"] = 0
			return f
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.ExecuteAction(raw, "alice", engine.Action{
				Name:    ActionPlaceFleet,
				Payload: map[string]interface{}{"ships": tc.ships},
			})
			re, ok := engine.AsRuleError(err)
			require.True(t, ok)
			assert.Equal(t, engine.KindValidation, re.Kind)
		})
	}
}

func TestCannotPlaceTwiceOrAfterStart(t *testing.T) {
	e := New()
	raw, err := e.InitializeState([]string{"alice", "bob"}, nil)
	require.NoError(t, err)

	res, err := e.ExecuteAction(raw, "alice", engine.Action{
		Name:    ActionPlaceFleet,
		Payload: map[string]interface{}{"ships": defaultFleet()},
	})
	require.NoError(t, err)

	_, err = e.ExecuteAction(res.State, "alice", engine.Action{
		Name:    ActionPlaceFleet,
		Payload: map[string]interface{}{"ships": defaultFleet()},
	})
	re, ok := engine.AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, engine.KindIllegalAction, re.Kind)
}

func TestFireRequiresStartAndTurn(t *testing.T) {
	e := New()
	raw, err := e.InitializeState([]string{"alice", "bob"}, nil)
	require.NoError(t, err)

	_, err = fire(t, e, raw, "alice", 0, 0)
	re, ok := engine.AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, engine.KindIllegalAction, re.Kind)

	e, raw = placed(t)
	_, err = fire(t, e, raw, "bob", 0, 0)
	re, ok = engine.AsRuleError(err)
	require.True(t, ok)
	assert.Contains(t, re.Reason, "not your turn")
}

func TestFireHitKeepsTurnMissPasses(t *testing.T) {
	e, raw := placed(t)

	// Row 0 holds bob's 5-ship; a hit keeps the turn with alice.
	res, err := fire(t, e, raw, "alice", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, true, res.Data["hit"])
	s := decodeState(t, res.State)
	assert.Equal(t, 0, s.CurrentTurnIndex)
	assert.Equal(t, 2, s.player("bob").Shots[0][0])

	// Row 9 is open water; the miss passes the turn to bob.
	res, err = fire(t, e, res.State, "alice", 9, 9)
	require.NoError(t, err)
	assert.Equal(t, false, res.Data["hit"])
	s = decodeState(t, res.State)
	assert.Equal(t, 1, s.CurrentTurnIndex)
	assert.Equal(t, 1, s.player("bob").Shots[9][9])
}

func TestFireRejectsRepeatAndOffGridShots(t *testing.T) {
	e, raw := placed(t)

	res, err := fire(t, e, raw, "alice", 0, 0)
	require.NoError(t, err)

	_, err = fire(t, e, res.State, "alice", 0, 0)
	re, ok := engine.AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, engine.KindIllegalAction, re.Kind)

	_, err = fire(t, e, res.State, "alice", 0, GridSize)
	re, ok = engine.AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, engine.KindValidation, re.Kind)
}

func TestSinkingReportsShipAndWinner(t *testing.T) {
	e, raw := placed(t)

	// Sink bob's 2-ship at row 4.
	res, err := fire(t, e, raw, "alice", 4, 0)
	require.NoError(t, err)
	_, hasSunk := res.Data["sunk"]
	assert.False(t, hasSunk)

	res, err = fire(t, e, res.State, "alice", 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Data["sunk"])
	assert.False(t, res.GameOver)

	// Finish off the rest of the fleet; hits keep the turn throughout.
	raw = res.State
	for row, length := range FleetSizes[:4] {
		for col := 0; col < length; col++ {
			res, err = fire(t, e, raw, "alice", row, col)
			require.NoError(t, err)
			raw = res.State
		}
	}
	assert.True(t, res.GameOver)
	assert.Equal(t, []string{"alice"}, res.Winners)
	assert.True(t, e.IsGameOver(raw))
	assert.Equal(t, []string{"alice"}, e.Winners(raw))

	_, err = fire(t, e, raw, "alice", 9, 0)
	re, ok := engine.AsRuleError(err)
	require.True(t, ok)
	assert.Equal(t, engine.KindIllegalAction, re.Kind)
}

func TestSanitizeFogsOpponentFleet(t *testing.T) {
	e, raw := placed(t)
	res, err := fire(t, e, raw, "alice", 4, 0)
	require.NoError(t, err)
	res, err = fire(t, e, res.State, "alice", 4, 1)
	require.NoError(t, err)

	view, err := e.SanitizeState(res.State, "alice")
	require.NoError(t, err)
	s := decodeState(t, view)

	require.Len(t, s.player("alice").Ships, len(FleetSizes))
	assert.Nil(t, s.player("bob").Ships)
	assert.Equal(t, len(FleetSizes)-1, s.player("bob").ShipsLeft)
	assert.Equal(t, 2, s.player("bob").Shots[4][0], "shot outcomes stay visible under fog")

	spectator, err := e.SanitizeState(res.State, "")
	require.NoError(t, err)
	sv := decodeState(t, spectator)
	assert.Nil(t, sv.player("alice").Ships)
	assert.Nil(t, sv.player("bob").Ships)
}

func TestValidateActionDoesNotMutate(t *testing.T) {
	e, raw := placed(t)
	before := string(raw)

	require.NoError(t, e.ValidateAction(raw, "alice", engine.Action{
		Name:    ActionFire,
		Payload: map[string]interface{}{"row": 0, "col": 0},
	}))
	assert.Equal(t, before, string(raw))

	res, err := fire(t, e, raw, "alice", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, decodeState(t, raw).player("bob").Shots[0][0])
	assert.Equal(t, 2, decodeState(t, res.State).player("bob").Shots[0][0])
}
