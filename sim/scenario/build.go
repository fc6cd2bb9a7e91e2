package scenario

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// Handles maps the scenario's group names to the world's group handles.
type Handles struct {
	Groups map[string]sim.GroupID
	Order  []string // group names in handle order
}

// Group returns the handle of the named group.
func (h Handles) Group(name string) (sim.GroupID, bool) {
	g, ok := h.Groups[name]
	return g, ok
}

func toRange(r RangeSpec) sim.Range {
	if r.Shape == "square" {
		return sim.SquareRange(r.Radius)
	}
	return sim.CircleRange(r.Radius)
}

func (t AgentTypeSpec) agentType() sim.AgentType {
	return sim.AgentType{
		Name:            t.Name,
		Width:           t.Width,
		Length:          t.Length,
		MaxHP:           t.HP,
		Speed:           t.Speed,
		ViewRange:       toRange(t.ViewRange),
		AttackRange:     toRange(t.AttackRange),
		Damage:          t.Damage,
		StepRecover:     t.StepRecover,
		StepReward:      t.StepReward,
		DeadPenalty:     t.DeadPenalty,
		AttackPenalty:   t.AttackPenalty,
		KillReward:      t.KillReward,
		AttackInGroup:   t.AttackInGroup,
		CanLayPheromone: t.CanLayPheromone,
	}
}

// Build registers the scenario's types, groups and rules on a fresh sim.Config.
func (s *Spec) Build() (*sim.Config, Handles, error) {
	cfg := sim.NewConfig(s.Map.Width, s.Map.Height)
	cfg.MinimapMode = s.Minimap
	cfg.PheromoneMode = s.Pheromone.Enabled
	cfg.PheromoneDecay = s.Pheromone.Decay
	if s.Pheromone.Deposit != nil {
		cfg.PheromoneDeposit = *s.Pheromone.Deposit
	}

	for _, t := range s.AgentTypes {
		if _, err := cfg.RegisterAgentType(t.agentType()); err != nil {
			return nil, Handles{}, fmt.Errorf("agent type %q: %w", t.Name, err)
		}
	}
	h := Handles{Groups: make(map[string]sim.GroupID, len(s.Groups))}
	for _, g := range s.Groups {
		tid, ok := cfg.TypeByName(g.Type)
		if !ok {
			return nil, Handles{}, fmt.Errorf("group %q: unknown agent type %q", g.Name, g.Type)
		}
		gid, err := cfg.AddGroup(tid)
		if err != nil {
			return nil, Handles{}, fmt.Errorf("group %q: %w", g.Name, err)
		}
		h.Groups[g.Name] = gid
		h.Order = append(h.Order, g.Name)
	}
	for i, r := range s.RewardRules {
		kind, err := sim.ParseEventKind(r.Event)
		if err != nil {
			return nil, Handles{}, fmt.Errorf("reward_rules[%d]: %w", i, err)
		}
		actor, target, receiver := h.Groups[r.Actor], h.Groups[r.Target], h.Groups[r.Receiver]
		trigger := sim.On(sim.AnyAgent(actor), kind, sim.AnyAgent(target))
		if err := cfg.AddRewardRule(trigger, sim.AnyAgent(receiver), r.Value); err != nil {
			return nil, Handles{}, fmt.Errorf("reward_rules[%d]: %w", i, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, Handles{}, err
	}
	return cfg, h, nil
}

// NewWorld builds the scenario's world and seeds it.
func (s *Spec) NewWorld() (*sim.GridWorld, Handles, error) {
	cfg, h, err := s.Build()
	if err != nil {
		return nil, Handles{}, err
	}
	w, err := sim.NewGridWorld(cfg)
	if err != nil {
		return nil, Handles{}, err
	}
	w.SetSeed(s.Seed)
	return w, h, nil
}

// Populate places the scenario's walls and agents on w. Call it after every Reset.
// Strict placements that fail abort immediately; partial placements are logged and
// their *sim.PlacementError values returned joined once everything has been placed.
func (s *Spec) Populate(w *sim.GridWorld, h Handles) error {
	var partial []error
	if len(s.Map.Walls) > 0 {
		if _, err := w.AddWalls(sim.PlaceCustom{Positions: s.Map.Walls}); err != nil {
			partial = append(partial, err)
		}
	}
	for i, p := range s.Placements {
		g, ok := h.Group(p.Group)
		if !ok {
			return fmt.Errorf("placements[%d]: unknown group %q", i, p.Group)
		}
		var placement sim.Placement = sim.PlaceRandom{Count: p.Count}
		if p.Method == "custom" {
			placement = sim.PlaceCustom{Positions: p.Positions, Strict: p.Strict}
		}
		report, err := w.AddAgents(g, placement)
		var perr *sim.PlacementError
		switch {
		case err == nil:
		case errors.As(err, &perr) && !perr.Strict:
			partial = append(partial, fmt.Errorf("placements[%d]: %w", i, err))
		default:
			return fmt.Errorf("placements[%d]: %w", i, err)
		}
		logrus.Debugf("scenario: placed %d agents in group %q", len(report.Placed), p.Group)
	}
	return errors.Join(partial...)
}
