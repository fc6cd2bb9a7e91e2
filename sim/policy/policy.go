// Package policy provides the action-selection side of the training loop: simple
// policies standing in for a learned model, the per-agent episode buffer a learner would
// consume, exploration schedules and evaluation-set sampling.
package policy

import (
	"fmt"
	"math/rand"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// Policy chooses one action per agent of a group.
// obs and ids are row-aligned, as returned by GetObservation and GetAgentID.
// With probability eps a policy explores with a uniformly random action.
type Policy interface {
	Act(obs sim.Observation, ids []sim.AgentID, eps float64) []int
}

// Random picks uniformly among all actions.
type Random struct {
	rng   *rand.Rand
	space int
}

// NewRandom creates a Random policy over an action space of the given size.
func NewRandom(rng *rand.Rand, actionSpace int) *Random {
	return &Random{rng: rng, space: actionSpace}
}

func (r *Random) Act(obs sim.Observation, _ []sim.AgentID, _ float64) []int {
	acts := make([]int, obs.N)
	for i := range acts {
		acts[i] = r.rng.Intn(r.space)
	}
	return acts
}

// Greedy is a hand-written forager. It attacks an adjacent agent of another group when
// one is in reach, otherwise steps toward the nearest visible one, otherwise wanders.
type Greedy struct {
	rng         *rand.Rand
	space       int
	stay        int
	moves       []sim.Pos
	view2attack []int
	viewWidth   int
	channels    int
	groups      int
}

// NewGreedy creates a Greedy policy for group g of env.
func NewGreedy(env *sim.GridWorld, g sim.GroupID, rng *rand.Rand) *Greedy {
	_, v2a := env.GetView2Attack(g)
	shape := env.GetViewSpace(g)
	return &Greedy{
		rng:         rng,
		space:       env.GetActionSpace(g),
		stay:        env.StayAction(g),
		moves:       env.GetMoveOffsets(g),
		view2attack: v2a,
		viewWidth:   shape[1],
		channels:    shape[2],
		groups:      len(env.GetHandles()),
	}
}

func (p *Greedy) Act(obs sim.Observation, _ []sim.AgentID, eps float64) []int {
	acts := make([]int, obs.N)
	for i := range acts {
		if eps > 0 && p.rng.Float64() < eps {
			acts[i] = p.rng.Intn(p.space)
			continue
		}
		acts[i] = p.choose(obs.AgentView(i))
	}
	return acts
}

func (p *Greedy) choose(view []float32) int {
	r := p.viewWidth / 2
	best, bestDist := -1, 0
	for cell := 0; cell < p.viewWidth*p.viewWidth; cell++ {
		if !p.hasPrey(view, cell) {
			continue
		}
		if a := p.view2attack[cell]; a >= 0 {
			return a
		}
		dx, dy := cell%p.viewWidth-r, cell/p.viewWidth-r
		if d := dx*dx + dy*dy; best < 0 || d < bestDist {
			best, bestDist = cell, d
		}
	}
	if best < 0 {
		return p.rng.Intn(p.space)
	}
	tx, ty := best%p.viewWidth-r, best/p.viewWidth-r
	act, actDist := p.stay, tx*tx+ty*ty
	for i, m := range p.moves {
		if m == (sim.Pos{}) || !p.walkable(view, m.X+r, m.Y+r) {
			continue
		}
		ex, ey := tx-m.X, ty-m.Y
		if d := ex*ex + ey*ey; d > 0 && d < actDist {
			act, actDist = i, d
		}
	}
	return act
}

// hasPrey reports whether cell holds an agent of any group other than the observer's.
// Own-group presence is channel 1; other groups follow in pairs.
func (p *Greedy) hasPrey(view []float32, cell int) bool {
	base := cell * p.channels
	for k := 1; k < p.groups; k++ {
		if view[base+1+2*k] > 0 {
			return true
		}
	}
	return false
}

func (p *Greedy) walkable(view []float32, vx, vy int) bool {
	if vx < 0 || vy < 0 || vx >= p.viewWidth || vy >= p.viewWidth {
		return false
	}
	base := (vy*p.viewWidth + vx) * p.channels
	if view[base] > 0 {
		return false
	}
	for k := 0; k < p.groups; k++ {
		if view[base+1+2*k] > 0 {
			return false
		}
	}
	return true
}

// ValidPolicyNames lists the names accepted by NewPolicy.
var ValidPolicyNames = []string{"random", "greedy"}

// NewPolicy creates a policy for group g of env by name.
// Valid names: "random", "greedy".
func NewPolicy(name string, env *sim.GridWorld, g sim.GroupID, rng *rand.Rand) Policy {
	switch name {
	case "random":
		return NewRandom(rng, env.GetActionSpace(g))
	case "greedy":
		return NewGreedy(env, g, rng)
	default:
		panic(fmt.Sprintf("unknown policy %q; valid policies: %v", name, ValidPolicyNames))
	}
}

// IsValidPolicy reports whether name is accepted by NewPolicy.
func IsValidPolicy(name string) bool {
	for _, n := range ValidPolicyNames {
		if n == name {
			return true
		}
	}
	return false
}
