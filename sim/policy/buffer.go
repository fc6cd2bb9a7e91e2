package policy

import (
	"math/rand"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// DefaultBufferCapacity is the number of agents an EpisodesBuffer tracks per round.
const DefaultBufferCapacity = 5000

// Episode is one agent's trajectory within a round.
type Episode struct {
	Views    [][]float32
	Features [][]float32
	Actions  []int
	Rewards  []float32
	Terminal bool // the agent died during the round
}

// Len returns the number of recorded steps.
func (e *Episode) Len() int { return len(e.Actions) }

func (e *Episode) append(view, feature []float32, action int, reward float32, alive bool) {
	e.Views = append(e.Views, append([]float32(nil), view...))
	e.Features = append(e.Features, append([]float32(nil), feature...))
	e.Actions = append(e.Actions, action)
	e.Rewards = append(e.Rewards, reward)
	if !alive {
		e.Terminal = true
	}
}

// EpisodesBuffer collects per-agent trajectories for up to capacity agents.
// Until it is full, agents are admitted in a random order each step so that no id range
// is favoured; once full, only agents already tracked keep recording.
type EpisodesBuffer struct {
	capacity int
	rng      *rand.Rand
	episodes map[sim.AgentID]*Episode
	order    []sim.AgentID
}

// NewEpisodesBuffer creates a buffer holding at most capacity agents.
func NewEpisodesBuffer(capacity int, rng *rand.Rand) *EpisodesBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &EpisodesBuffer{
		capacity: capacity,
		rng:      rng,
		episodes: make(map[sim.AgentID]*Episode),
	}
}

// Full reports whether the buffer tracks capacity agents.
func (b *EpisodesBuffer) Full() bool { return len(b.episodes) >= b.capacity }

// RecordStep appends one step for every agent of a group. ids, acts, rewards and alive are
// row-aligned with obs.
func (b *EpisodesBuffer) RecordStep(ids []sim.AgentID, obs sim.Observation, acts []int, rewards []float32, alive []bool) {
	rows := make([]int, len(ids))
	for i := range rows {
		rows[i] = i
	}
	if !b.Full() {
		b.rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	}
	for _, i := range rows {
		e, ok := b.episodes[ids[i]]
		if !ok {
			if b.Full() {
				continue
			}
			e = &Episode{}
			b.episodes[ids[i]] = e
			b.order = append(b.order, ids[i])
		}
		e.append(obs.AgentView(i), obs.AgentFeature(i), acts[i], rewards[i], alive[i])
	}
}

// Episodes returns the tracked trajectories in admission order.
func (b *EpisodesBuffer) Episodes() []*Episode {
	out := make([]*Episode, len(b.order))
	for i, id := range b.order {
		out[i] = b.episodes[id]
	}
	return out
}

// Get returns the trajectory of one agent.
func (b *EpisodesBuffer) Get(id sim.AgentID) (*Episode, bool) {
	e, ok := b.episodes[id]
	return e, ok
}

// Len returns the number of tracked agents.
func (b *EpisodesBuffer) Len() int { return len(b.episodes) }

// Steps returns the total number of recorded steps across all agents.
func (b *EpisodesBuffer) Steps() int {
	n := 0
	for _, e := range b.episodes {
		n += e.Len()
	}
	return n
}

// Reset drops every trajectory.
func (b *EpisodesBuffer) Reset() {
	b.episodes = make(map[sim.AgentID]*Episode)
	b.order = b.order[:0]
}
