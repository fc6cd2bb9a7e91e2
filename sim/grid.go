package sim

const (
	cellEmpty int32 = -1
	cellWall  int32 = -2
)

// MoveResult is the outcome of Grid.Move.
type MoveResult uint8

const (
	MoveOK MoveResult = iota
	MoveBlocked
	MoveOutOfBounds
)

func (r MoveResult) String() string {
	switch r {
	case MoveOK:
		return "ok"
	case MoveBlocked:
		return "blocked"
	default:
		return "out_of_bounds"
	}
}

// Grid is the dense occupancy index of the map: one slot per cell, row-major
// (index = y*width + x), holding an agent id, a wall marker or empty. Queries touch only
// the cells they ask about, so range queries cost the area of the range, never the map.
type Grid struct {
	width  int
	height int
	cells  []int32
}

// NewGrid creates an empty width×height grid.
func NewGrid(width, height int) *Grid {
	g := &Grid{width: width, height: height, cells: make([]int32, width*height)}
	g.clear()
	return g
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p is a cell of the map.
func (g *Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid) idx(p Pos) int {
	return p.Y*g.width + p.X
}

// OccupantAt returns the agent standing on p, if any.
func (g *Grid) OccupantAt(p Pos) (AgentID, bool) {
	if !g.InBounds(p) {
		return 0, false
	}
	v := g.cells[g.idx(p)]
	if v < 0 {
		return 0, false
	}
	return AgentID(v), true
}

// IsWall reports whether p holds a wall. Off-map cells are not walls.
func (g *Grid) IsWall(p Pos) bool {
	return g.InBounds(p) && g.cells[g.idx(p)] == cellWall
}

// IsFree reports whether p is on the map and holds neither a wall nor an agent.
func (g *Grid) IsFree(p Pos) bool {
	return g.InBounds(p) && g.cells[g.idx(p)] == cellEmpty
}

// AgentsInRange returns the agents inside r centred on center, in r.Offsets() order.
func (g *Grid) AgentsInRange(center Pos, r Range) []AgentID {
	var out []AgentID
	for _, off := range r.Offsets() {
		if id, ok := g.OccupantAt(center.Add(off)); ok {
			out = append(out, id)
		}
	}
	return out
}

// Move relocates id from its current cell to to. A blocked or off-map destination
// leaves the grid untouched.
func (g *Grid) Move(id AgentID, from, to Pos) MoveResult {
	if !g.InBounds(to) {
		return MoveOutOfBounds
	}
	if from == to {
		return MoveOK
	}
	if g.cells[g.idx(to)] != cellEmpty {
		return MoveBlocked
	}
	if g.InBounds(from) && g.cells[g.idx(from)] == int32(id) {
		g.cells[g.idx(from)] = cellEmpty
	}
	g.cells[g.idx(to)] = int32(id)
	return MoveOK
}

func (g *Grid) place(id AgentID, p Pos) bool {
	if !g.IsFree(p) {
		return false
	}
	g.cells[g.idx(p)] = int32(id)
	return true
}

func (g *Grid) remove(id AgentID, p Pos) {
	if g.InBounds(p) && g.cells[g.idx(p)] == int32(id) {
		g.cells[g.idx(p)] = cellEmpty
	}
}

func (g *Grid) addWall(p Pos) bool {
	if !g.IsFree(p) {
		return false
	}
	g.cells[g.idx(p)] = cellWall
	return true
}

// Walls lists wall cells in row-major order.
func (g *Grid) Walls() []Pos {
	var out []Pos
	for i, v := range g.cells {
		if v == cellWall {
			out = append(out, Pos{X: i % g.width, Y: i / g.width})
		}
	}
	return out
}

// Occupied counts cells holding an agent.
func (g *Grid) Occupied() int {
	n := 0
	for _, v := range g.cells {
		if v >= 0 {
			n++
		}
	}
	return n
}

func (g *Grid) clear() {
	for i := range g.cells {
		g.cells[i] = cellEmpty
	}
}
