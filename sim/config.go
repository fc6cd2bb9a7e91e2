package sim

import (
	"fmt"
	"math"
)

// DefaultPheromoneDeposit is the amount a pheromone-laying agent drops on its cell per tick.
const DefaultPheromoneDeposit = 1.0

// Config describes a world before it is built: map extent, observation modes, the agent
// type table, the group table and the reward rules attached to groups.
//
// Types and groups are append-only; the handles returned by RegisterAgentType and
// AddGroup stay valid for the lifetime of the Config and of any world built from it.
type Config struct {
	MapWidth  int
	MapHeight int

	MinimapMode bool // add per-group minimap channels and a normalized position feature

	PheromoneMode    bool    // keep a per-group pheromone field and expose the own-group channel
	PheromoneDecay   float32 // fraction removed per tick; cells are multiplied by (1 - decay)
	PheromoneDeposit float32 // amount laid per tick by CanLayPheromone agents

	types     []AgentType
	typeNames map[string]TypeID
	groups    []Group
}

// NewConfig returns an empty config for a width×height map.
func NewConfig(width, height int) *Config {
	return &Config{
		MapWidth:         width,
		MapHeight:        height,
		PheromoneDeposit: DefaultPheromoneDeposit,
		typeNames:        make(map[string]TypeID),
	}
}

// RegisterAgentType validates t and appends it to the type table.
// Duplicate names are rejected.
func (c *Config) RegisterAgentType(t AgentType) (TypeID, error) {
	if t.Width == 0 && t.Length == 0 {
		t.Width, t.Length = 1, 1
	}
	if err := t.validate(); err != nil {
		return -1, err
	}
	if c.typeNames == nil {
		c.typeNames = make(map[string]TypeID)
	}
	if _, dup := c.typeNames[t.Name]; dup {
		return -1, &ConfigError{Field: "agent_type.name", Reason: fmt.Sprintf("duplicate agent type %q", t.Name)}
	}
	id := TypeID(len(c.types))
	c.types = append(c.types, t)
	c.typeNames[t.Name] = id
	return id, nil
}

// AddGroup appends a group of agents of type t.
func (c *Config) AddGroup(t TypeID) (GroupID, error) {
	if t < 0 || int(t) >= len(c.types) {
		return -1, &ConfigError{Field: "group.type", Reason: fmt.Sprintf("unknown agent type handle %d", t)}
	}
	id := GroupID(len(c.groups))
	c.groups = append(c.groups, Group{ID: id, Type: t})
	return id, nil
}

// AddRewardRule attaches a rule to the receiver's group. The receiver must be one of the
// trigger's symbols; when actor and target are the same symbol the actor is paid.
func (c *Config) AddRewardRule(trigger EventPattern, receiver Symbol, value float32) error {
	if _, ok := eventKindNames[trigger.Kind]; !ok {
		return &ConfigError{Field: "reward_rule.event", Reason: fmt.Sprintf("unknown event kind %d", trigger.Kind)}
	}
	for _, s := range []struct {
		name string
		sym  Symbol
	}{{"actor", trigger.Actor}, {"target", trigger.Target}, {"receiver", receiver}} {
		if !c.hasGroup(s.sym.Group) {
			return &ConfigError{Field: "reward_rule." + s.name, Reason: fmt.Sprintf("unknown group handle %d", s.sym.Group)}
		}
	}
	if math.IsNaN(float64(value)) || math.IsInf(float64(value), 0) {
		return &ConfigError{Field: "reward_rule.value", Reason: "must be finite"}
	}
	rule := RewardRule{Trigger: trigger, Receiver: receiver, Value: value}
	switch receiver {
	case trigger.Actor:
		rule.role = roleActor
	case trigger.Target:
		rule.role = roleTarget
	default:
		return &ConfigError{Field: "reward_rule.receiver",
			Reason: fmt.Sprintf("receiver group %d is neither the actor nor the target of the trigger", receiver.Group)}
	}
	g := &c.groups[receiver.Group]
	g.Rules = append(g.Rules, rule)
	return nil
}

// Validate checks the map and mode settings and that at least one group exists.
func (c *Config) Validate() error {
	if c.MapWidth <= 0 || c.MapHeight <= 0 {
		return &ConfigError{Field: "map", Reason: fmt.Sprintf("dimensions must be positive, got %dx%d", c.MapWidth, c.MapHeight)}
	}
	if c.PheromoneDecay < 0 || c.PheromoneDecay > 1 || math.IsNaN(float64(c.PheromoneDecay)) {
		return &ConfigError{Field: "pheromone_decay", Reason: fmt.Sprintf("must be in [0, 1], got %v", c.PheromoneDecay)}
	}
	if c.PheromoneDeposit < 0 || math.IsNaN(float64(c.PheromoneDeposit)) || math.IsInf(float64(c.PheromoneDeposit), 0) {
		return &ConfigError{Field: "pheromone_deposit", Reason: fmt.Sprintf("must be a non-negative finite number, got %v", c.PheromoneDeposit)}
	}
	if len(c.groups) == 0 {
		return &ConfigError{Field: "groups", Reason: "at least one group is required"}
	}
	return nil
}

// AgentType returns the registered type for handle t.
func (c *Config) AgentType(t TypeID) (AgentType, bool) {
	if t < 0 || int(t) >= len(c.types) {
		return AgentType{}, false
	}
	return c.types[t], true
}

// TypeByName looks a registered type up by name.
func (c *Config) TypeByName(name string) (TypeID, bool) {
	id, ok := c.typeNames[name]
	return id, ok
}

// Groups returns a copy of the group table.
func (c *Config) Groups() []Group {
	out := make([]Group, len(c.groups))
	for i, g := range c.groups {
		g.Rules = append([]RewardRule(nil), g.Rules...)
		out[i] = g
	}
	return out
}

// NumGroups returns the number of registered groups.
func (c *Config) NumGroups() int {
	return len(c.groups)
}

func (c *Config) hasGroup(g GroupID) bool {
	return g >= 0 && int(g) < len(c.groups)
}
