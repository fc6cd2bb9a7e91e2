package forager

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim"
	"github.com/gridworld-sim/gridworld-sim/sim/policy"
	"github.com/gridworld-sim/gridworld-sim/sim/scenario"
)

// =============================================================================
// H1: A Greedy Forager Out-Earns Random Play When Food Is In View
//
// Hypothesis: With the food ring inside the foragers' view radius, the greedy
// policy (attack adjacent food, else step toward the nearest visible food)
// earns more total reward over 60 ticks than uniform random actions, for
// every seed tried. Random play pays the attack penalty on most of its
// attacks and rarely lands on food.
//
// Refuted if: For any seed, random play's total reward is >= greedy's.
//
// Companion check (H1b): pheromone mode only adds an observation channel.
// A policy that ignores that channel must produce the identical trajectory
// and reward with pheromones on or off.
// =============================================================================

const (
	mapSize = 30
	ticks   = 60
)

// nearFoodMap puts the agent ring at the centre and the food ring 5 cells
// south-east, well inside the view radius of 7.
func nearFoodMap(w *sim.GridWorld, h scenario.GatherHandles) error {
	c := mapSize / 2
	var agents, food []sim.Pos
	for _, off := range []sim.Pos{{X: -2, Y: -2}, {X: 0, Y: -2}, {X: 2, Y: -2}, {X: -2, Y: 0}, {X: 2, Y: 0}, {X: -2, Y: 2}, {X: 0, Y: 2}, {X: 2, Y: 2}} {
		agents = append(agents, sim.Pos{X: c + off.X, Y: c + off.Y})
		food = append(food, sim.Pos{X: c + 5 + off.X, Y: c + 5 + off.Y})
	}
	if _, err := w.AddAgents(h.Agents, sim.PlaceCustom{Positions: agents, Strict: true}); err != nil {
		return err
	}
	_, err := w.AddAgents(h.Food, sim.PlaceCustom{Positions: food, Strict: true})
	return err
}

func playEpisode(t *testing.T, name string, seed int64, pheromones bool) float64 {
	t.Helper()
	w, h, err := scenario.Gather(scenario.GatherOptions{MapSize: mapSize, Seed: seed, PheromoneMode: pheromones})
	if err != nil {
		t.Fatalf("building world: %v", err)
	}
	w.Reset()
	if err := nearFoodMap(w, h); err != nil {
		t.Fatalf("placing: %v", err)
	}
	p := policy.NewPolicy(name, w, h.Agents, rand.New(rand.NewSource(seed)))
	m := sim.NewMetrics()
	for i := 0; i < ticks; i++ {
		w.SetAction(h.Agents, p.Act(w.GetObservation(h.Agents), w.GetAgentID(h.Agents), 0))
		done := w.Step()
		m.ObserveStep(w)
		w.ClearDead()
		if done {
			break
		}
	}
	return m.GroupReward[h.Agents]
}

// TestH1_GreedyBeatsRandom plays greedy and random foragers on the same map
// across several seeds and compares their total reward.
func TestH1_GreedyBeatsRandom(t *testing.T) {
	logrus.SetLevel(logrus.WarnLevel)
	seeds := []int64{1, 2, 3, 4, 5}

	fmt.Println("H1_REWARD_START")
	fmt.Printf("%-6s | %10s | %10s | %10s\n", "seed", "greedy", "random", "delta")
	fmt.Println("---")
	for _, seed := range seeds {
		g := playEpisode(t, "greedy", seed, false)
		r := playEpisode(t, "random", seed, false)
		fmt.Printf("%-6d | %10.2f | %10.2f | %10.2f\n", seed, g, r, g-r)
		if r >= g {
			t.Errorf("seed %d: random reward %.2f >= greedy reward %.2f", seed, r, g)
		}
	}
	fmt.Println("H1_REWARD_END")
}

// TestH1b_PheromonesAreInertForGreedy replays the greedy forager with and
// without pheromone mode and expects identical rewards.
func TestH1b_PheromonesAreInertForGreedy(t *testing.T) {
	logrus.SetLevel(logrus.WarnLevel)
	for _, seed := range []int64{1, 7} {
		off := playEpisode(t, "greedy", seed, false)
		on := playEpisode(t, "greedy", seed, true)
		if off != on {
			t.Errorf("seed %d: reward %.4f without pheromones, %.4f with", seed, off, on)
		}
	}
}
