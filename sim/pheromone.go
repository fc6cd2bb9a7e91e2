package sim

// PheromoneField holds one scalar layer per group over the whole map.
type PheromoneField struct {
	width  int
	height int
	layers [][]float32
}

func newPheromoneField(groups, width, height int) *PheromoneField {
	f := &PheromoneField{width: width, height: height, layers: make([][]float32, groups)}
	for g := range f.layers {
		f.layers[g] = make([]float32, width*height)
	}
	return f
}

// At returns the intensity of group g's layer at p; off-map cells read as zero.
func (f *PheromoneField) At(g GroupID, p Pos) float32 {
	if f == nil || g < 0 || int(g) >= len(f.layers) {
		return 0
	}
	if p.X < 0 || p.X >= f.width || p.Y < 0 || p.Y >= f.height {
		return 0
	}
	return f.layers[g][p.Y*f.width+p.X]
}

// Total sums group g's layer.
func (f *PheromoneField) Total(g GroupID) float64 {
	if f == nil || g < 0 || int(g) >= len(f.layers) {
		return 0
	}
	var sum float64
	for _, v := range f.layers[g] {
		sum += float64(v)
	}
	return sum
}

func (f *PheromoneField) decay(rate float32) {
	keep := 1 - rate
	for _, layer := range f.layers {
		for i := range layer {
			layer[i] *= keep
		}
	}
}

func (f *PheromoneField) deposit(g GroupID, p Pos, amount float32) {
	if p.X < 0 || p.X >= f.width || p.Y < 0 || p.Y >= f.height {
		return
	}
	f.layers[g][p.Y*f.width+p.X] += amount
}

func (f *PheromoneField) reset() {
	for _, layer := range f.layers {
		clear(layer)
	}
}
