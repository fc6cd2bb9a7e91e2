package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim/trace"
)

// StepStats counts what happened during one tick.
type StepStats struct {
	Tick        int
	Moves       int
	Blocked     int
	Hits        int
	Misses      int
	Kills       int
	Deaths      int
	RuleFirings int
	NoopActions int
}

// Each phase of a tick consumes the token produced by the phase before it, so the order
// intake → movement → combat → reward → death sweep → pheromone is fixed by the types.

type intakeDone struct {
	tick    int
	actions []pendingAction
}

type movementDone struct {
	intakeDone
	events []Event
}

type combatDone struct {
	movementDone
}

type rewardDone struct {
	combatDone
}

type sweepDone struct {
	rewardDone
}

type pendingAction struct {
	agent *Agent
	act   decodedAction
}

// Step advances the world by one tick and reports whether the episode is over: no live
// agents remain, or the episode started with two or more populated groups and at most
// one still has live agents. Step caps belong to the caller.
func (w *GridWorld) Step() bool {
	if w.startGroups < 0 {
		w.startGroups = w.populatedGroups()
	}
	w.lastStats = StepStats{Tick: w.tick}

	in := w.intake()
	moved := w.resolveMovement(in)
	fought := w.resolveCombat(moved)
	rewarded := w.accrueRewards(fought)
	swept := w.sweepDead(rewarded)
	w.updatePheromones(swept)

	w.lastEvents = swept.events
	if w.trace != nil && w.trace.Config.Level == trace.TraceLevelEvents {
		w.trace.RecordTick(toTraceRecord(swept.tick, swept.events))
	}
	w.tick++

	populated := w.populatedGroups()
	done := populated == 0 || (w.startGroups >= 2 && populated <= 1)
	logrus.Debugf("[tick %05d] moves=%d hits=%d misses=%d kills=%d deaths=%d done=%v",
		swept.tick, w.lastStats.Moves, w.lastStats.Hits, w.lastStats.Misses,
		w.lastStats.Kills, w.lastStats.Deaths, done)
	return done
}

// intake decodes the stored action of every live agent, in id order, and resets the
// per-tick reward accumulators.
func (w *GridWorld) intake() intakeDone {
	live := w.reg.live()
	out := intakeDone{tick: w.tick, actions: make([]pendingAction, 0, len(live))}
	for _, a := range w.reg.agents {
		a.reward = 0
	}
	for _, a := range live {
		l := w.layoutOf(a)
		act, ok := l.decode(a.action)
		if !ok {
			w.actionErrors++
			act = decodedAction{Kind: ActionNoop}
		}
		if act.Kind == ActionNoop {
			w.lastStats.NoopActions++
		}
		a.LastAction = a.action
		if !ok {
			a.LastAction = l.stayAction
		}
		a.action, a.hasAction = l.stayAction, false
		out.actions = append(out.actions, pendingAction{agent: a, act: act})
	}
	return out
}

// resolveMovement applies move actions in id order. The lower id claims a contested
// cell first; later movers find it occupied and stay put.
func (w *GridWorld) resolveMovement(in intakeDone) movementDone {
	out := movementDone{intakeDone: in}
	for _, p := range in.actions {
		if p.act.Kind != ActionMove {
			continue
		}
		a := p.agent
		to := a.Pos.Add(p.act.Offset)
		switch w.grid.Move(a.ID, a.Pos, to) {
		case MoveOK:
			a.Dir = facing(p.act.Offset, a.Dir)
			a.Pos = to
			w.lastStats.Moves++
		case MoveBlocked:
			w.lastStats.Blocked++
			if other, ok := w.grid.OccupantAt(to); ok {
				b := w.reg.agents[other]
				out.events = append(out.events, Event{Kind: EventCollide, Tick: in.tick,
					Actor: a.ID, ActorGroup: a.Group, Target: b.ID, TargetGroup: b.Group})
			}
		case MoveOutOfBounds:
			w.lastStats.Blocked++
		}
	}
	return out
}

// resolveCombat applies attack actions in id order against post-movement positions.
func (w *GridWorld) resolveCombat(in movementDone) combatDone {
	out := combatDone{movementDone: in}
	for _, p := range in.actions {
		if p.act.Kind != ActionAttack {
			continue
		}
		a := p.agent
		at := w.typeOf(a)
		if a.HP <= 0 {
			// killed earlier this tick
			continue
		}
		target, ok := w.attackTarget(a, a.Pos.Add(p.act.Offset))
		if !ok {
			a.reward += at.AttackPenalty
			w.lastStats.Misses++
			continue
		}
		tt := w.typeOf(target)
		target.HP = max(target.HP-at.Damage, 0)
		w.lastStats.Hits++
		out.events = append(out.events, Event{Kind: EventAttack, Tick: in.tick,
			Actor: a.ID, ActorGroup: a.Group, Target: target.ID, TargetGroup: target.Group})
		if target.HP <= 0 {
			a.reward += tt.KillReward
			w.lastStats.Kills++
			out.events = append(out.events, Event{Kind: EventKill, Tick: in.tick,
				Actor: a.ID, ActorGroup: a.Group, Target: target.ID, TargetGroup: target.Group})
		}
	}
	return out
}

// attackTarget returns the agent a can hit at cell, if any.
func (w *GridWorld) attackTarget(a *Agent, cell Pos) (*Agent, bool) {
	id, ok := w.grid.OccupantAt(cell)
	if !ok {
		return nil, false
	}
	t := w.reg.agents[id]
	if t.HP <= 0 {
		return nil, false
	}
	if t.Group == a.Group && !w.typeOf(a).AttackInGroup {
		return nil, false
	}
	return t, true
}

// accrueRewards pays step rewards, dead penalties and rule rewards, and applies hp
// recovery to survivors. An agent drained to zero by a negative recovery dies this tick
// and pays the dead penalty too.
func (w *GridWorld) accrueRewards(in combatDone) rewardDone {
	for _, p := range in.actions {
		a := p.agent
		t := w.typeOf(a)
		if a.HP <= 0 {
			a.reward += t.DeadPenalty
			continue
		}
		a.reward += t.StepReward
		a.HP = min(max(a.HP+t.StepRecover, 0), t.MaxHP)
		if a.HP <= 0 {
			a.reward += t.DeadPenalty
		}
	}
	credits := evaluateRules(w.groups, in.events)
	for _, c := range credits {
		if a, ok := w.reg.get(c.Agent); ok {
			a.reward += c.Value
		}
	}
	w.lastStats.RuleFirings = len(credits)
	for _, a := range w.reg.agents {
		a.LastReward = a.reward
	}
	return rewardDone{combatDone: in}
}

// sweepDead marks agents at zero hp as dead and frees their cells.
func (w *GridWorld) sweepDead(in rewardDone) sweepDone {
	for _, p := range in.actions {
		a := p.agent
		if a.Alive && a.HP <= 0 {
			a.Alive = false
			w.grid.remove(a.ID, a.Pos)
			w.lastStats.Deaths++
		}
	}
	return sweepDone{rewardDone: in}
}

// updatePheromones decays every layer, then adds this tick's deposits: every live
// pheromone-laying agent that moved or attacked marks the cell it ends the tick on.
func (w *GridWorld) updatePheromones(in sweepDone) {
	if w.pheromone == nil {
		return
	}
	w.pheromone.decay(w.pheromoneDecay)
	for _, p := range in.actions {
		a := p.agent
		if p.act.Kind == ActionNoop {
			continue
		}
		if a.Alive && w.typeOf(a).CanLayPheromone {
			w.pheromone.deposit(a.Group, a.Pos, w.pheromoneDeposit)
		}
	}
}

func (w *GridWorld) populatedGroups() int {
	n := 0
	for g := range w.groups {
		if w.reg.liveCount(GroupID(g)) > 0 {
			n++
		}
	}
	return n
}

func toTraceRecord(tick int, events []Event) trace.TickRecord {
	rec := trace.TickRecord{Tick: tick, Events: make([]trace.EventRecord, len(events))}
	for i, ev := range events {
		rec.Events[i] = trace.EventRecord{
			Kind:        ev.Kind.String(),
			Actor:       int64(ev.Actor),
			ActorGroup:  int(ev.ActorGroup),
			Target:      int64(ev.Target),
			TargetGroup: int(ev.TargetGroup),
		}
	}
	return rec
}
