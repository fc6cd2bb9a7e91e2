package sim

import "github.com/sirupsen/logrus"

// Action indexes are laid out per agent type as
//
//	[0, len(moves))                        move to Pos + moves[i]
//	[len(moves), len(moves)+len(attacks))  attack the cell Pos + attacks[i]
//
// where moves are the offsets of CircleRange(Speed) (the centre is the stay action) and
// attacks are the offsets of AttackRange without the centre.

// ActionKind classifies a decoded action.
type ActionKind uint8

const (
	ActionNoop ActionKind = iota
	ActionMove
	ActionAttack
)

type decodedAction struct {
	Kind   ActionKind
	Offset Pos
}

func (l typeLayout) decode(action int) (decodedAction, bool) {
	switch {
	case action < 0 || action >= l.numActions():
		return decodedAction{Kind: ActionNoop}, false
	case action < len(l.moves):
		off := l.moves[action]
		if off == (Pos{}) {
			return decodedAction{Kind: ActionNoop}, true
		}
		return decodedAction{Kind: ActionMove, Offset: off}, true
	default:
		return decodedAction{Kind: ActionAttack, Offset: l.attacks[action-len(l.moves)]}, true
	}
}

// GetActionSpace returns the number of discrete actions available to group g.
func (w *GridWorld) GetActionSpace(g GroupID) int {
	if w.checkGroup(g) != nil {
		return 0
	}
	return w.layouts[w.groups[g].Type].numActions()
}

// StayAction returns the action index that leaves an agent of group g in place.
func (w *GridWorld) StayAction(g GroupID) int {
	if w.checkGroup(g) != nil {
		return 0
	}
	return w.layouts[w.groups[g].Type].stayAction
}

// GetView2Attack maps view cells to attack actions for group g. It returns the index of
// the first attack action and, for every cell of the view window in row-major order, the
// attack action targeting it or -1.
func (w *GridWorld) GetView2Attack(g GroupID) (int, []int) {
	if w.checkGroup(g) != nil {
		return 0, nil
	}
	t := w.types[w.groups[g].Type]
	l := w.layouts[w.groups[g].Type]
	width := t.ViewRange.Width()
	r := t.ViewRange.Radius
	out := make([]int, width*width)
	for i := range out {
		out[i] = -1
	}
	for i, off := range l.attacks {
		vx, vy := off.X+r, off.Y+r
		if vx < 0 || vx >= width || vy < 0 || vy >= width {
			continue
		}
		out[vy*width+vx] = len(l.moves) + i
	}
	return len(l.moves), out
}

// GetMoveOffsets returns group g's move offsets; action i moves by the i-th offset.
func (w *GridWorld) GetMoveOffsets(g GroupID) []Pos {
	if w.checkGroup(g) != nil {
		return nil
	}
	return append([]Pos(nil), w.layouts[w.groups[g].Type].moves...)
}

// SetAction stores the next action of each of group g's agents, positionally aligned with
// GetAgentID(g). Extra entries are ignored; agents without an entry stay in place.
// Invalid indexes and entries for dead agents become no-ops.
func (w *GridWorld) SetAction(g GroupID, actions []int) {
	ids := w.reg.group(g)
	if len(actions) != len(ids) {
		logrus.Debugf("SetAction: group %d got %d actions for %d agents", g, len(actions), len(ids))
	}
	for i, id := range ids {
		a := w.reg.agents[id]
		if i >= len(actions) {
			a.action, a.hasAction = w.layoutOf(a).stayAction, false
			continue
		}
		_ = w.SetAgentAction(id, actions[i])
	}
}

// SetAgentAction stores one agent's next action. It returns an *ActionError describing why
// the action was turned into a no-op, or nil. The error is informational only.
func (w *GridWorld) SetAgentAction(id AgentID, action int) error {
	a, ok := w.reg.get(id)
	if !ok {
		return w.rejectAction(&ActionError{Agent: id, Action: action, Reason: "no such agent"})
	}
	if !a.Alive {
		return w.rejectAction(&ActionError{Agent: id, Action: action, Reason: "agent is dead"})
	}
	l := w.layoutOf(a)
	if action < 0 || action >= l.numActions() {
		a.action, a.hasAction = l.stayAction, false
		return w.rejectAction(&ActionError{Agent: id, Action: action, Reason: "index out of range"})
	}
	a.action, a.hasAction = action, true
	return nil
}

func (w *GridWorld) rejectAction(err *ActionError) error {
	w.actionErrors++
	logrus.Debug(err.Error())
	return err
}
