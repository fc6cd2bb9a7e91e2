package sim

import (
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim/trace"
)

// GridView is the read-only face of the spatial grid handed to callers.
type GridView interface {
	Width() int
	Height() int
	InBounds(p Pos) bool
	IsWall(p Pos) bool
	IsFree(p Pos) bool
	OccupantAt(p Pos) (AgentID, bool)
	AgentsInRange(center Pos, r Range) []AgentID
	Walls() []Pos
}

// GridWorld is one simulation instance. It is single-threaded: all methods must be
// called from one goroutine, between ticks. GetObservation fans out internally over a
// read-only snapshot and returns before the next call can mutate state.
type GridWorld struct {
	width, height    int
	minimap          bool
	pheromoneMode    bool
	pheromoneDecay   float32
	pheromoneDeposit float32

	types   []AgentType
	layouts []typeLayout
	groups  []Group

	grid      *Grid
	reg       registry
	pheromone *PheromoneField
	rng       *PartitionedRNG

	tick        int
	episode     int
	startGroups int // groups populated when the episode's first tick ran; -1 before

	lastEvents   []Event
	lastStats    StepStats
	actionErrors int

	renderer   Renderer
	headerSent bool
	trace      *trace.SimulationTrace

	renderWorkers int
}

// NewGridWorld validates cfg and builds an empty world from a snapshot of it.
// Later changes to cfg do not affect the world.
func NewGridWorld(cfg *Config) (*GridWorld, error) {
	if cfg == nil {
		return nil, &ConfigError{Reason: "nil config"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &GridWorld{
		width:            cfg.MapWidth,
		height:           cfg.MapHeight,
		minimap:          cfg.MinimapMode,
		pheromoneMode:    cfg.PheromoneMode,
		pheromoneDecay:   cfg.PheromoneDecay,
		pheromoneDeposit: cfg.PheromoneDeposit,
		types:            append([]AgentType(nil), cfg.types...),
		groups:           cfg.Groups(),
		grid:             NewGrid(cfg.MapWidth, cfg.MapHeight),
		rng:              NewPartitionedRNG(NewSimulationKey(0)),
		startGroups:      -1,
		renderWorkers:    runtime.GOMAXPROCS(0),
	}
	w.layouts = make([]typeLayout, len(w.types))
	for i, t := range w.types {
		w.layouts[i] = newTypeLayout(t)
	}
	if w.pheromoneMode {
		w.pheromone = newPheromoneField(len(w.groups), w.width, w.height)
	}
	w.reg.reset(len(w.groups))
	logrus.Debugf("gridworld: %dx%d map, %d types, %d groups, minimap=%v pheromone=%v",
		w.width, w.height, len(w.types), len(w.groups), w.minimap, w.pheromoneMode)
	return w, nil
}

// SetSeed reseeds every random subsystem of the world.
func (w *GridWorld) SetSeed(seed int64) {
	w.rng = NewPartitionedRNG(NewSimulationKey(seed))
}

// RNG exposes the world's partitioned generator to collaborators such as map generators.
func (w *GridWorld) RNG() *PartitionedRNG {
	return w.rng
}

// Reset starts a new episode: agents, walls and pheromones are cleared and ids restart at 0.
// The RNG stream is not rewound.
func (w *GridWorld) Reset() {
	w.grid.clear()
	w.reg.reset(len(w.groups))
	if w.pheromone != nil {
		w.pheromone.reset()
	}
	w.tick = 0
	w.episode++
	w.startGroups = -1
	w.lastEvents = nil
	w.lastStats = StepStats{}
	w.actionErrors = 0
	w.headerSent = false
}

// SetTrace attaches (or, with nil, detaches) an event trace.
func (w *GridWorld) SetTrace(t *trace.SimulationTrace) {
	w.trace = t
}

// SetRenderWorkers bounds the goroutines used by GetObservation. Values < 1 mean 1.
func (w *GridWorld) SetRenderWorkers(n int) {
	w.renderWorkers = max(n, 1)
}

// MapSize returns the map width and height.
func (w *GridWorld) MapSize() (int, int) {
	return w.width, w.height
}

// Grid returns a read-only view of the occupancy grid.
func (w *GridWorld) Grid() GridView {
	return w.grid
}

// Tick returns the number of ticks stepped in the current episode.
func (w *GridWorld) Tick() int {
	return w.tick
}

// Episode returns the number of Reset calls so far.
func (w *GridWorld) Episode() int {
	return w.episode
}

// GetHandles returns every group handle in registration order.
func (w *GridWorld) GetHandles() []GroupID {
	out := make([]GroupID, len(w.groups))
	for i := range w.groups {
		out[i] = GroupID(i)
	}
	return out
}

// GroupType returns the agent type of group g.
func (w *GridWorld) GroupType(g GroupID) (AgentType, error) {
	if err := w.checkGroup(g); err != nil {
		return AgentType{}, err
	}
	return w.types[w.groups[g].Type], nil
}

// GetNum returns how many agents group g holds, counting agents that died this tick
// until ClearDead drops them.
func (w *GridWorld) GetNum(g GroupID) int {
	return len(w.reg.group(g))
}

// NumAlive returns how many live agents group g holds.
func (w *GridWorld) NumAlive(g GroupID) int {
	return w.reg.liveCount(g)
}

// GetAgentID returns group g's agent ids. Every other per-group array uses this order.
func (w *GridWorld) GetAgentID(g GroupID) []AgentID {
	return append([]AgentID(nil), w.reg.group(g)...)
}

// GetAlive returns the liveness of group g's agents.
func (w *GridWorld) GetAlive(g GroupID) []bool {
	ids := w.reg.group(g)
	out := make([]bool, len(ids))
	for i, id := range ids {
		out[i] = w.reg.agents[id].Alive
	}
	return out
}

// GetPos returns the positions of group g's agents.
func (w *GridWorld) GetPos(g GroupID) []Pos {
	ids := w.reg.group(g)
	out := make([]Pos, len(ids))
	for i, id := range ids {
		out[i] = w.reg.agents[id].Pos
	}
	return out
}

// GetHP returns the hit points of group g's agents.
func (w *GridWorld) GetHP(g GroupID) []float32 {
	ids := w.reg.group(g)
	out := make([]float32, len(ids))
	for i, id := range ids {
		out[i] = w.reg.agents[id].HP
	}
	return out
}

// GetReward returns the reward each of group g's agents earned in the last tick.
func (w *GridWorld) GetReward(g GroupID) []float32 {
	ids := w.reg.group(g)
	out := make([]float32, len(ids))
	for i, id := range ids {
		out[i] = w.reg.agents[id].LastReward
	}
	return out
}

// Agent returns a copy of the agent's state.
func (w *GridWorld) Agent(id AgentID) (Agent, bool) {
	a, ok := w.reg.get(id)
	if !ok {
		return Agent{}, false
	}
	return *a, true
}

// ClearDead drops agents that died from the per-group arrays. It returns how many
// agents were dropped.
func (w *GridWorld) ClearDead() int {
	return w.reg.clearDead()
}

// LastEvents returns the event log of the last tick.
func (w *GridWorld) LastEvents() []Event {
	return append([]Event(nil), w.lastEvents...)
}

// LastStepStats returns counters describing the last tick.
func (w *GridWorld) LastStepStats() StepStats {
	return w.lastStats
}

// ActionErrors returns how many actions were downgraded to no-ops this episode.
func (w *GridWorld) ActionErrors() int {
	return w.actionErrors
}

// PheromoneAt reads group g's pheromone layer; zero when pheromones are disabled.
func (w *GridWorld) PheromoneAt(g GroupID, p Pos) float32 {
	return w.pheromone.At(g, p)
}

// PheromoneTotal sums group g's pheromone layer.
func (w *GridWorld) PheromoneTotal(g GroupID) float64 {
	return w.pheromone.Total(g)
}

func (w *GridWorld) checkGroup(g GroupID) error {
	if g < 0 || int(g) >= len(w.groups) {
		return &ConfigError{Field: "group", Reason: fmt.Sprintf("unknown group handle %d", g)}
	}
	return nil
}

func (w *GridWorld) layoutOf(a *Agent) typeLayout {
	return w.layouts[a.Type]
}

func (w *GridWorld) typeOf(a *Agent) *AgentType {
	return &w.types[a.Type]
}
