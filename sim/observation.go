package sim

import "sync"

// minAgentsPerWorker keeps small groups on the calling goroutine.
const minAgentsPerWorker = 32

// Observation is the batched observation of one group, row-aligned with GetAgentID.
//
// View holds N tensors of shape ViewShape = (height, width, channels), channel-last.
// Channel 0 marks obstacles (walls and off-map cells). Then, for every group with the
// observer's own group first, come a presence channel and a normalized-hp channel.
// With minimap mode, one minimap channel per group follows in the same order. With
// pheromone mode, the own group's pheromone layer is the last channel.
//
// Feature holds N vectors of FeatureLen: one-hot last action, last reward, normalized
// hp, one-hot group, and with minimap mode the normalized (x, y) position.
type Observation struct {
	N          int
	ViewShape  [3]int
	View       []float32
	FeatureLen int
	Feature    []float32
}

// AgentView returns the i-th agent's view tensor (a sub-slice of View).
func (o Observation) AgentView(i int) []float32 {
	size := o.ViewShape[0] * o.ViewShape[1] * o.ViewShape[2]
	return o.View[i*size : (i+1)*size]
}

// AgentFeature returns the i-th agent's feature vector (a sub-slice of Feature).
func (o Observation) AgentFeature(i int) []float32 {
	return o.Feature[i*o.FeatureLen : (i+1)*o.FeatureLen]
}

type viewLayout struct {
	radius      int
	width       int
	mask        []bool
	order       []GroupID // own group first
	slot        []int     // group → index in order
	channels    int
	minimapBase int // -1 when disabled
	pheromone   int // -1 when disabled
	numActions  int
	featureLen  int
}

func (w *GridWorld) viewLayout(g GroupID) viewLayout {
	t := w.types[w.groups[g].Type]
	numGroups := len(w.groups)
	l := viewLayout{
		radius:      t.ViewRange.Radius,
		width:       t.ViewRange.Width(),
		mask:        w.layouts[w.groups[g].Type].viewMask,
		order:       make([]GroupID, 0, numGroups),
		slot:        make([]int, numGroups),
		minimapBase: -1,
		pheromone:   -1,
		numActions:  w.layouts[w.groups[g].Type].numActions(),
	}
	l.order = append(l.order, g)
	for i := range w.groups {
		if GroupID(i) != g {
			l.order = append(l.order, GroupID(i))
		}
	}
	for k, og := range l.order {
		l.slot[og] = k
	}
	l.channels = 1 + 2*numGroups
	if w.minimap {
		l.minimapBase = l.channels
		l.channels += numGroups
	}
	if w.pheromoneMode {
		l.pheromone = l.channels
		l.channels++
	}
	l.featureLen = l.numActions + 2 + numGroups
	if w.minimap {
		l.featureLen += 2
	}
	return l
}

// GetViewSpace returns the (height, width, channels) shape of group g's view tensor.
func (w *GridWorld) GetViewSpace(g GroupID) [3]int {
	if w.checkGroup(g) != nil {
		return [3]int{}
	}
	l := w.viewLayout(g)
	return [3]int{l.width, l.width, l.channels}
}

// GetFeatureSpace returns the length of group g's feature vector.
func (w *GridWorld) GetFeatureSpace(g GroupID) int {
	if w.checkGroup(g) != nil {
		return 0
	}
	return w.viewLayout(g).featureLen
}

// GetObservation renders group g's observations from the current state. It is a pure
// function of world state: calling it twice without a Step yields identical tensors.
func (w *GridWorld) GetObservation(g GroupID) Observation {
	if w.checkGroup(g) != nil {
		return Observation{}
	}
	l := w.viewLayout(g)
	ids := w.reg.group(g)
	n := len(ids)
	viewSize := l.width * l.width * l.channels
	obs := Observation{
		N:          n,
		ViewShape:  [3]int{l.width, l.width, l.channels},
		View:       make([]float32, n*viewSize),
		FeatureLen: l.featureLen,
		Feature:    make([]float32, n*l.featureLen),
	}
	var minimap [][]float32
	if w.minimap {
		minimap = w.minimapLayers(l)
	}

	render := func(from, to int) {
		for i := from; i < to; i++ {
			a := w.reg.agents[ids[i]]
			w.renderView(a, &l, minimap, obs.View[i*viewSize:(i+1)*viewSize])
			w.renderFeature(a, &l, obs.Feature[i*l.featureLen:(i+1)*l.featureLen])
		}
	}

	workers := min(w.renderWorkers, (n+minAgentsPerWorker-1)/minAgentsPerWorker)
	if workers <= 1 {
		render(0, n)
		return obs
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for from := 0; from < n; from += chunk {
		to := min(from+chunk, n)
		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			render(from, to)
		}(from, to)
	}
	wg.Wait()
	return obs
}

func (w *GridWorld) renderView(a *Agent, l *viewLayout, minimap [][]float32, out []float32) {
	c := l.channels
	for vy := 0; vy < l.width; vy++ {
		for vx := 0; vx < l.width; vx++ {
			cell := vy*l.width + vx
			base := cell * c
			// the minimap covers the whole window, unmasked
			if minimap != nil {
				for k, og := range l.order {
					out[base+l.minimapBase+k] = minimap[og][cell]
				}
			}
			if !l.mask[cell] {
				continue
			}
			p := Pos{X: a.Pos.X + vx - l.radius, Y: a.Pos.Y + vy - l.radius}
			if !w.grid.InBounds(p) || w.grid.IsWall(p) {
				out[base] = 1
				continue
			}
			if l.pheromone >= 0 {
				out[base+l.pheromone] = w.pheromone.At(a.Group, p)
			}
			id, ok := w.grid.OccupantAt(p)
			if !ok {
				continue
			}
			o := w.reg.agents[id]
			k := l.slot[o.Group]
			out[base+1+2*k] = 1
			out[base+2+2*k] = o.HP / w.types[o.Type].MaxHP
		}
	}
}

func (w *GridWorld) renderFeature(a *Agent, l *viewLayout, out []float32) {
	if a.LastAction >= 0 && a.LastAction < l.numActions {
		out[a.LastAction] = 1
	}
	i := l.numActions
	out[i] = a.LastReward
	out[i+1] = a.HP / w.typeOf(a).MaxHP
	out[i+2+int(a.Group)] = 1
	if w.minimap {
		j := i + 2 + len(w.groups)
		out[j] = float32(a.Pos.X) / float32(w.width)
		out[j+1] = float32(a.Pos.Y) / float32(w.height)
	}
}

// minimapLayers downsamples every group's live agents onto a view-sized grid, each
// layer normalized by its densest cell.
func (w *GridWorld) minimapLayers(l viewLayout) [][]float32 {
	layers := make([][]float32, len(w.groups))
	peak := make([]float32, len(w.groups))
	for g := range layers {
		layers[g] = make([]float32, l.width*l.width)
	}
	for _, a := range w.reg.agents {
		if !a.Alive {
			continue
		}
		mx := a.Pos.X * l.width / w.width
		my := a.Pos.Y * l.width / w.height
		cell := my*l.width + mx
		layers[a.Group][cell]++
		peak[a.Group] = max(peak[a.Group], layers[a.Group][cell])
	}
	for g, layer := range layers {
		if peak[g] == 0 {
			continue
		}
		for i := range layer {
			layer[i] /= peak[g]
		}
	}
	return layers
}
