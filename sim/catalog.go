package sim

import (
	"fmt"
	"math"
)

// TypeID is a handle into the config's append-only agent-type table.
type TypeID int

// GroupID is a handle into the config's append-only group table.
type GroupID int

// AgentType is the immutable attribute template shared by every agent of a type.
type AgentType struct {
	Name   string
	Width  int // must be 1
	Length int // must be 1

	MaxHP       float32
	Speed       int // movement reach; move actions cover CircleRange(Speed)
	ViewRange   Range
	AttackRange Range
	Damage      float32
	StepRecover float32 // hp regained per tick while alive (may be negative)

	StepReward    float32 // paid to every live agent every tick
	DeadPenalty   float32 // paid on the tick the agent dies
	AttackPenalty float32 // paid for an attack that lands on nothing
	KillReward    float32 // paid to whoever kills an agent of this type

	AttackInGroup   bool // may attack members of its own group
	CanLayPheromone bool
}

func (t AgentType) validate() error {
	field := func(name string) string { return fmt.Sprintf("agent_type[%s].%s", t.Name, name) }
	if t.Name == "" {
		return &ConfigError{Field: "agent_type.name", Reason: "must not be empty"}
	}
	if t.Width != 1 || t.Length != 1 {
		return &ConfigError{Field: field("width/length"),
			Reason: fmt.Sprintf("only 1x1 agents are supported, got %dx%d", t.Width, t.Length)}
	}
	if !(t.MaxHP > 0) || math.IsInf(float64(t.MaxHP), 0) {
		return &ConfigError{Field: field("hp"), Reason: fmt.Sprintf("must be a positive finite number, got %v", t.MaxHP)}
	}
	if t.Speed < 0 {
		return &ConfigError{Field: field("speed"), Reason: fmt.Sprintf("must be non-negative, got %d", t.Speed)}
	}
	if err := t.ViewRange.validate(field("view_range")); err != nil {
		return err
	}
	if err := t.AttackRange.validate(field("attack_range")); err != nil {
		return err
	}
	if t.Damage < 0 {
		return &ConfigError{Field: field("damage"), Reason: fmt.Sprintf("must be non-negative, got %v", t.Damage)}
	}
	for _, f := range []struct {
		name string
		v    float32
	}{
		{"damage", t.Damage}, {"step_recover", t.StepRecover}, {"step_reward", t.StepReward},
		{"dead_penalty", t.DeadPenalty}, {"attack_penalty", t.AttackPenalty}, {"kill_reward", t.KillReward},
	} {
		if math.IsNaN(float64(f.v)) || math.IsInf(float64(f.v), 0) {
			return &ConfigError{Field: field(f.name), Reason: "must be finite"}
		}
	}
	return nil
}

// Group binds a type to the reward rules whose receivers belong to the group.
type Group struct {
	ID    GroupID
	Type  TypeID
	Rules []RewardRule
}

// typeLayout caches everything derived from an AgentType that the step engine and
// observation renderer need per tick.
type typeLayout struct {
	moves      []Pos // move offsets, index = action
	attacks    []Pos // attack offsets, index = action - len(moves)
	stayAction int
	viewMask   []bool // Width()² cells of the view window, row-major
}

func newTypeLayout(t AgentType) typeLayout {
	moves := CircleRange(t.Speed).Offsets()
	stay := 0
	for i, m := range moves {
		if m == (Pos{}) {
			stay = i
		}
	}
	var attacks []Pos
	for _, off := range t.AttackRange.Offsets() {
		if off != (Pos{}) {
			attacks = append(attacks, off)
		}
	}
	w := t.ViewRange.Width()
	mask := make([]bool, w*w)
	for vy := 0; vy < w; vy++ {
		for vx := 0; vx < w; vx++ {
			mask[vy*w+vx] = t.ViewRange.Contains(vx-t.ViewRange.Radius, vy-t.ViewRange.Radius)
		}
	}
	return typeLayout{moves: moves, attacks: attacks, stayAction: stay, viewMask: mask}
}

func (l typeLayout) numActions() int {
	return len(l.moves) + len(l.attacks)
}
