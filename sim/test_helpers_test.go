package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testPredator and testFood mirror the gather scenario's two agent types on a small scale.
func testPredator() AgentType {
	return AgentType{
		Name: "agent", Width: 1, Length: 1,
		MaxHP: 5, Speed: 3, ViewRange: CircleRange(7), AttackRange: CircleRange(1),
		Damage: 1, StepRecover: 0.1, StepReward: -0.01, DeadPenalty: -1, AttackPenalty: -0.1,
		AttackInGroup: true,
	}
}

func testFood() AgentType {
	return AgentType{
		Name: "food", Width: 1, Length: 1,
		MaxHP: 25, Speed: 0, ViewRange: CircleRange(1), AttackRange: CircleRange(0),
		KillReward: 5,
	}
}

// newTestWorld builds a predator+food world with the attack→0.5 rule.
func newTestWorld(t *testing.T, width, height int) (*GridWorld, GroupID, GroupID) {
	t.Helper()
	cfg := NewConfig(width, height)
	pt, err := cfg.RegisterAgentType(testPredator())
	require.NoError(t, err)
	ft, err := cfg.RegisterAgentType(testFood())
	require.NoError(t, err)
	agents, err := cfg.AddGroup(pt)
	require.NoError(t, err)
	food, err := cfg.AddGroup(ft)
	require.NoError(t, err)
	require.NoError(t, cfg.AddRewardRule(On(AnyAgent(agents), EventAttack, AnyAgent(food)), AnyAgent(agents), 0.5))
	w, err := NewGridWorld(cfg)
	require.NoError(t, err)
	w.SetSeed(42)
	w.Reset()
	return w, agents, food
}

// attackAction returns group g's action index that attacks the cell at off.
func attackAction(t *testing.T, w *GridWorld, g GroupID, off Pos) int {
	t.Helper()
	at, err := w.GroupType(g)
	require.NoError(t, err)
	_, cells := w.GetView2Attack(g)
	r := at.ViewRange.Radius
	width := at.ViewRange.Width()
	a := cells[(off.Y+r)*width+off.X+r]
	require.GreaterOrEqual(t, a, 0, "offset %v is not attackable", off)
	return a
}

// moveAction returns group g's action index that moves by off.
func moveAction(t *testing.T, w *GridWorld, g GroupID, off Pos) int {
	t.Helper()
	for i, m := range w.layouts[w.groups[g].Type].moves {
		if m == off {
			return i
		}
	}
	t.Fatalf("offset %v is not a move of group %d", off, g)
	return -1
}

// randomActions draws a uniformly random action for every agent of g.
func randomActions(w *GridWorld, g GroupID, draw func(n int) int) []int {
	n := w.GetNum(g)
	space := w.GetActionSpace(g)
	out := make([]int, n)
	for i := range out {
		out[i] = draw(space)
	}
	return out
}

// assertWorldInvariants checks occupancy and hp bounds of every agent.
func assertWorldInvariants(t *testing.T, w *GridWorld) {
	t.Helper()
	seen := make(map[Pos]AgentID)
	for _, a := range w.reg.agents {
		at := w.types[a.Type]
		require.GreaterOrEqual(t, a.HP, float32(0), "agent %d hp below zero", a.ID)
		require.LessOrEqual(t, a.HP, at.MaxHP, "agent %d hp above max", a.ID)
		if !a.Alive {
			continue
		}
		require.True(t, w.grid.InBounds(a.Pos), "agent %d off map at %v", a.ID, a.Pos)
		other, dup := seen[a.Pos]
		require.False(t, dup, "agents %d and %d share %v", other, a.ID, a.Pos)
		seen[a.Pos] = a.ID
		id, ok := w.grid.OccupantAt(a.Pos)
		require.True(t, ok)
		require.Equal(t, a.ID, id, "grid disagrees with agent %d position", a.ID)
	}
	require.Equal(t, len(seen), w.grid.Occupied(), "grid holds agents the registry does not")
}
