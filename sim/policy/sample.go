package policy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// ObservationSet is a fixed set of (view, feature) rows of one group, used to track a
// value estimate across training rounds.
type ObservationSet struct {
	Group    sim.GroupID
	Views    [][]float32
	Features [][]float32
}

// Len returns the number of sampled rows.
func (s *ObservationSet) Len() int { return len(s.Views) }

// SampleObservation plays random actions for up to warmup ticks (or until the episode
// ends) and returns, per group, size observation rows drawn uniformly from everything
// seen. The world is reset and repopulated with populate first, and reset again after.
// All draws come from the world's SubsystemSample stream.
func SampleObservation(env *sim.GridWorld, groups []sim.GroupID, size, warmup int, populate func(*sim.GridWorld) error) ([]ObservationSet, error) {
	if size <= 0 {
		return nil, fmt.Errorf("sample size must be > 0, got %d", size)
	}
	rng := env.RNG().ForSubsystem(sim.SubsystemSample)
	env.Reset()
	if err := populate(env); err != nil {
		return nil, fmt.Errorf("populating sample world: %w", err)
	}
	defer env.Reset()

	sets := make([]ObservationSet, len(groups))
	seen := make([]int, len(groups))
	for i, g := range groups {
		sets[i].Group = g
	}

	for tick := 0; tick < warmup; tick++ {
		for i, g := range groups {
			obs := env.GetObservation(g)
			// Reservoir sampling: at most size rows are held per group.
			for row := 0; row < obs.N; row++ {
				seen[i]++
				slot := len(sets[i].Views)
				if slot >= size {
					slot = rng.Intn(seen[i])
					if slot >= size {
						continue
					}
				}
				view := append([]float32(nil), obs.AgentView(row)...)
				feature := append([]float32(nil), obs.AgentFeature(row)...)
				if slot == len(sets[i].Views) {
					sets[i].Views = append(sets[i].Views, view)
					sets[i].Features = append(sets[i].Features, feature)
				} else {
					sets[i].Views[slot], sets[i].Features[slot] = view, feature
				}
			}
			space := env.GetActionSpace(g)
			acts := make([]int, env.GetNum(g))
			for k := range acts {
				acts[k] = rng.Intn(space)
			}
			env.SetAction(g, acts)
		}
		done := env.Step()
		env.ClearDead()
		if done {
			logrus.Debugf("sample: episode ended after %d ticks", tick+1)
			break
		}
	}
	return sets, nil
}
