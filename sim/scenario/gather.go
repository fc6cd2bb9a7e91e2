package scenario

import (
	"fmt"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// Gather scenario defaults.
const (
	DefaultGatherMapSize  = 40
	DefaultPheromoneDecay = 0.05

	gatherFoodOffset = 15
	gatherSquareSide = 4
	gatherSquareGap  = 2
)

// GatherOptions configures the built-in gather-food scenario.
type GatherOptions struct {
	MapSize        int
	MinimapMode    bool
	PheromoneMode  bool
	PheromoneDecay float32
	Seed           int64
}

// GatherHandles are the two groups of the gather scenario.
type GatherHandles struct {
	Food   sim.GroupID
	Agents sim.GroupID
}

// GatherSpec describes the gather-food scenario: fragile foragers that lose a little
// reward every tick, earn 0.5 for each bite of a 50-hp food block and 5 for finishing it.
// Agents lay pheromones only when pheromone mode is on.
func GatherSpec(opts GatherOptions) *Spec {
	if opts.MapSize <= 0 {
		opts.MapSize = DefaultGatherMapSize
	}
	return &Spec{
		Version: "1",
		Seed:    opts.Seed,
		Map:     MapSpec{Width: opts.MapSize, Height: opts.MapSize},
		Minimap: opts.MinimapMode,
		Pheromone: PheromoneSpec{
			Enabled: opts.PheromoneMode,
			Decay:   opts.PheromoneDecay,
		},
		AgentTypes: []AgentTypeSpec{
			{
				Name:            "agent",
				Width:           1,
				Length:          1,
				HP:              1,
				Speed:           3,
				ViewRange:       RangeSpec{Shape: "circle", Radius: 7},
				AttackRange:     RangeSpec{Shape: "circle", Radius: 1},
				Damage:          1,
				StepReward:      -0.01,
				DeadPenalty:     -1,
				AttackPenalty:   -0.1,
				CanLayPheromone: opts.PheromoneMode,
			},
			{
				Name:        "food",
				Width:       1,
				Length:      1,
				HP:          50,
				Speed:       0,
				ViewRange:   RangeSpec{Shape: "circle", Radius: 1},
				AttackRange: RangeSpec{Shape: "circle", Radius: 0},
				KillReward:  5,
			},
		},
		Groups: []GroupSpec{
			{Name: "food", Type: "food"},
			{Name: "agent", Type: "agent"},
		},
		RewardRules: []RuleSpec{
			{Actor: "agent", Event: "attack", Target: "food", Receiver: "agent", Value: 0.5},
		},
	}
}

// Gather builds the gather-food world.
func Gather(opts GatherOptions) (*sim.GridWorld, GatherHandles, error) {
	w, h, err := GatherSpec(opts).NewWorld()
	if err != nil {
		return nil, GatherHandles{}, err
	}
	return w, GatherHandles{Food: h.Groups["food"], Agents: h.Groups["agent"]}, nil
}

// GatherMap lays out one gather episode: a ring of agents around the map centre and a
// ring of food 15 cells away diagonally. With randomPlacement the food's quadrant is drawn
// from the world's map RNG.
func GatherMap(w *sim.GridWorld, h GatherHandles, randomPlacement bool) error {
	width, height := w.MapSize()
	cx, cy := width/2, height/2

	agents := addSquare(nil, cx, cy, gatherSquareSide, gatherSquareGap)
	if _, err := w.AddAgents(h.Agents, sim.PlaceCustom{Positions: agents}); err != nil {
		return fmt.Errorf("placing agents: %w", err)
	}

	ox, oy := gatherFoodOffset, gatherFoodOffset
	if randomPlacement {
		rng := w.RNG().ForSubsystem(sim.SubsystemMap)
		if rng.Float64() < 0.5 {
			ox = -ox
		}
		if rng.Float64() < 0.5 {
			oy = -oy
		}
	}
	food := addSquare(nil, cx+ox, cy+oy, gatherSquareSide, gatherSquareGap)
	if _, err := w.AddAgents(h.Food, sim.PlaceCustom{Positions: food}); err != nil {
		return fmt.Errorf("placing food: %w", err)
	}
	return nil
}

// addSquare appends the outline of a side×side square centred on (bx, by), sampled every
// gap cells. Corners are emitted once.
func addSquare(pos []sim.Pos, bx, by, side, gap int) []sim.Pos {
	seen := make(map[sim.Pos]bool, len(pos))
	for _, p := range pos {
		seen[p] = true
	}
	add := func(p sim.Pos) {
		if !seen[p] {
			seen[p] = true
			pos = append(pos, p)
		}
	}
	half := side / 2
	for x := bx - half; x <= bx+half; x += gap {
		add(sim.Pos{X: x, Y: by - half})
		add(sim.Pos{X: x, Y: by + half})
	}
	for y := by - half; y <= by+half; y += gap {
		add(sim.Pos{X: bx - half, Y: y})
		add(sim.Pos{X: bx + half, Y: y})
	}
	return pos
}
