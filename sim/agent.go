package sim

// AgentID identifies an agent within an episode. IDs are assigned sequentially from 0
// and are not reused until Reset.
type AgentID int32

// Direction is the facing of an agent, updated by its last successful move.
type Direction uint8

const (
	DirNorth Direction = iota
	DirEast
	DirSouth
	DirWest
)

func (d Direction) String() string {
	switch d {
	case DirNorth:
		return "N"
	case DirEast:
		return "E"
	case DirSouth:
		return "S"
	default:
		return "W"
	}
}

// facing returns the direction of the dominant axis of a move offset.
func facing(off Pos, current Direction) Direction {
	ax, ay := off.X, off.Y
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	switch {
	case ax == 0 && ay == 0:
		return current
	case ax >= ay && off.X > 0:
		return DirEast
	case ax >= ay:
		return DirWest
	case off.Y > 0:
		return DirSouth
	default:
		return DirNorth
	}
}

// Agent is the mutable per-agent state owned by the registry.
type Agent struct {
	ID         AgentID
	Group      GroupID
	Type       TypeID
	Pos        Pos
	Dir        Direction
	HP         float32
	LastAction int
	LastReward float32
	Alive      bool

	action    int // chosen for the next tick
	hasAction bool
	reward    float32 // accrued during the current tick
}

// registry is the arena of agents for one episode plus the per-group id-ordered views
// that every per-group array (ids, alive, rewards, observations, actions) follows.
type registry struct {
	agents  []*Agent    // indexed by AgentID
	members [][]AgentID // per group, ascending id, dead agents kept until clearDead
}

func (r *registry) reset(numGroups int) {
	r.agents = r.agents[:0]
	r.members = make([][]AgentID, numGroups)
}

func (r *registry) nextID() AgentID {
	return AgentID(len(r.agents))
}

func (r *registry) spawn(g GroupID, t TypeID, pos Pos, hp float32, stay int) *Agent {
	a := &Agent{
		ID:         r.nextID(),
		Group:      g,
		Type:       t,
		Pos:        pos,
		HP:         hp,
		Alive:      true,
		LastAction: stay,
		action:     stay,
	}
	r.agents = append(r.agents, a)
	r.members[g] = append(r.members[g], a.ID)
	return a
}

func (r *registry) get(id AgentID) (*Agent, bool) {
	if id < 0 || int(id) >= len(r.agents) {
		return nil, false
	}
	return r.agents[id], true
}

// group returns the id-ordered members of g. The slice must not be modified.
func (r *registry) group(g GroupID) []AgentID {
	if g < 0 || int(g) >= len(r.members) {
		return nil
	}
	return r.members[g]
}

// clearDead drops dead agents from every group view and returns how many were dropped.
func (r *registry) clearDead() int {
	removed := 0
	for g, ids := range r.members {
		kept := ids[:0]
		for _, id := range ids {
			if r.agents[id].Alive {
				kept = append(kept, id)
			} else {
				removed++
			}
		}
		r.members[g] = kept
	}
	return removed
}

// live returns the live agents in ascending id order.
func (r *registry) live() []*Agent {
	out := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if a.Alive {
			out = append(out, a)
		}
	}
	return out
}

func (r *registry) liveCount(g GroupID) int {
	n := 0
	for _, id := range r.group(g) {
		if r.agents[id].Alive {
			n++
		}
	}
	return n
}
