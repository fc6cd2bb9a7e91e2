package policy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// newForageWorld builds a 20x20 world with one forager group and one food group.
func newForageWorld(t *testing.T) (*sim.GridWorld, sim.GroupID, sim.GroupID) {
	t.Helper()
	cfg := sim.NewConfig(20, 20)
	at, err := cfg.RegisterAgentType(sim.AgentType{
		Name: "agent", Width: 1, Length: 1,
		MaxHP: 1, Speed: 3, ViewRange: sim.CircleRange(7), AttackRange: sim.CircleRange(1),
		Damage: 1, StepReward: -0.01, DeadPenalty: -1, AttackPenalty: -0.1,
	})
	require.NoError(t, err)
	ft, err := cfg.RegisterAgentType(sim.AgentType{
		Name: "food", Width: 1, Length: 1,
		MaxHP: 50, ViewRange: sim.CircleRange(1), AttackRange: sim.CircleRange(0), KillReward: 5,
	})
	require.NoError(t, err)
	agents, err := cfg.AddGroup(at)
	require.NoError(t, err)
	food, err := cfg.AddGroup(ft)
	require.NoError(t, err)
	w, err := sim.NewGridWorld(cfg)
	require.NoError(t, err)
	w.SetSeed(7)
	w.Reset()
	return w, agents, food
}

func place(t *testing.T, w *sim.GridWorld, g sim.GroupID, pos ...sim.Pos) {
	t.Helper()
	_, err := w.AddAgents(g, sim.PlaceCustom{Positions: pos, Strict: true})
	require.NoError(t, err)
}

func moveIndex(t *testing.T, w *sim.GridWorld, g sim.GroupID, off sim.Pos) int {
	t.Helper()
	for i, m := range w.GetMoveOffsets(g) {
		if m == off {
			return i
		}
	}
	t.Fatalf("offset %v is not a move", off)
	return -1
}

func TestGreedy_AttacksAdjacentFood(t *testing.T) {
	// GIVEN a forager with food directly south of it
	w, agents, food := newForageWorld(t)
	place(t, w, agents, sim.Pos{X: 5, Y: 5})
	place(t, w, food, sim.Pos{X: 5, Y: 6})
	p := NewGreedy(w, agents, rand.New(rand.NewSource(1)))

	// WHEN the greedy policy acts without exploration
	acts := p.Act(w.GetObservation(agents), w.GetAgentID(agents), 0)

	// THEN it attacks the food's cell
	_, v2a := w.GetView2Attack(agents)
	shape := w.GetViewSpace(agents)
	r := shape[1] / 2
	require.Len(t, acts, 1)
	assert.Equal(t, v2a[(1+r)*shape[1]+r], acts[0])
}

func TestGreedy_ApproachesVisibleFood(t *testing.T) {
	// GIVEN food four cells south of a forager with speed 3
	w, agents, food := newForageWorld(t)
	place(t, w, agents, sim.Pos{X: 5, Y: 5})
	place(t, w, food, sim.Pos{X: 5, Y: 9})
	p := NewGreedy(w, agents, rand.New(rand.NewSource(1)))

	// WHEN it acts
	acts := p.Act(w.GetObservation(agents), w.GetAgentID(agents), 0)

	// THEN it takes the longest straight step toward the food
	require.Len(t, acts, 1)
	assert.Equal(t, moveIndex(t, w, agents, sim.Pos{X: 0, Y: 3}), acts[0])

	// AND the step lands it next to the food, where the next greedy action is an attack
	w.SetAction(agents, acts)
	w.Step()
	pos := w.GetPos(agents)
	assert.Equal(t, sim.Pos{X: 5, Y: 8}, pos[0])
	next := p.Act(w.GetObservation(agents), w.GetAgentID(agents), 0)
	first, _ := w.GetView2Attack(agents)
	assert.GreaterOrEqual(t, next[0], first)
}

func TestGreedy_AvoidsOccupiedCells(t *testing.T) {
	// GIVEN the straight step toward the food is blocked by a wall
	w, agents, food := newForageWorld(t)
	_, err := w.AddWalls(sim.PlaceCustom{Positions: []sim.Pos{{X: 5, Y: 8}}, Strict: true})
	require.NoError(t, err)
	place(t, w, agents, sim.Pos{X: 5, Y: 5})
	place(t, w, food, sim.Pos{X: 5, Y: 9})
	p := NewGreedy(w, agents, rand.New(rand.NewSource(1)))

	// WHEN it acts
	acts := p.Act(w.GetObservation(agents), w.GetAgentID(agents), 0)

	// THEN it picks some other move that is not the blocked one
	require.Len(t, acts, 1)
	assert.NotEqual(t, moveIndex(t, w, agents, sim.Pos{X: 0, Y: 3}), acts[0])
	assert.Less(t, acts[0], len(w.GetMoveOffsets(agents)))
}

func TestGreedy_WandersWhenNothingVisible(t *testing.T) {
	// GIVEN food far outside the view radius
	w, agents, food := newForageWorld(t)
	place(t, w, agents, sim.Pos{X: 1, Y: 1})
	place(t, w, food, sim.Pos{X: 18, Y: 18})
	p := NewGreedy(w, agents, rand.New(rand.NewSource(1)))

	// WHEN it acts many times
	space := w.GetActionSpace(agents)
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		acts := p.Act(w.GetObservation(agents), w.GetAgentID(agents), 0)
		require.Len(t, acts, 1)
		require.GreaterOrEqual(t, acts[0], 0)
		require.Less(t, acts[0], space)
		seen[acts[0]] = true
	}

	// THEN the actions vary
	assert.Greater(t, len(seen), 1)
}

func TestRandom_StaysInActionSpace(t *testing.T) {
	w, agents, _ := newForageWorld(t)
	place(t, w, agents, sim.Pos{X: 2, Y: 2}, sim.Pos{X: 4, Y: 4}, sim.Pos{X: 6, Y: 6})
	p := NewRandom(rand.New(rand.NewSource(3)), w.GetActionSpace(agents))

	for i := 0; i < 50; i++ {
		acts := p.Act(w.GetObservation(agents), w.GetAgentID(agents), 0.5)
		require.Len(t, acts, 3)
		for _, a := range acts {
			assert.GreaterOrEqual(t, a, 0)
			assert.Less(t, a, w.GetActionSpace(agents))
		}
	}
}

func TestNewPolicy(t *testing.T) {
	w, agents, _ := newForageWorld(t)
	rng := rand.New(rand.NewSource(1))

	tests := []struct {
		name string
		want any
	}{
		{name: "random", want: &Random{}},
		{name: "greedy", want: &Greedy{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsValidPolicy(tt.name))
			assert.IsType(t, tt.want, NewPolicy(tt.name, w, agents, rng))
		})
	}

	t.Run("unknown name panics", func(t *testing.T) {
		assert.False(t, IsValidPolicy("dqn"))
		assert.Panics(t, func() { NewPolicy("dqn", w, agents, rng) })
	})
}
