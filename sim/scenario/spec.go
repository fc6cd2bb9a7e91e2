// Package scenario loads gridworld scenarios from YAML and builds worlds from them.
// It also carries the built-in gather-food scenario and its map generator.
package scenario

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// Spec is the top-level scenario configuration.
// Loaded from YAML via Load(path).
type Spec struct {
	Version     string          `yaml:"version,omitempty"`
	Seed        int64           `yaml:"seed"`
	Map         MapSpec         `yaml:"map"`
	Minimap     bool            `yaml:"minimap,omitempty"`
	Pheromone   PheromoneSpec   `yaml:"pheromone,omitempty"`
	AgentTypes  []AgentTypeSpec `yaml:"agent_types"`
	Groups      []GroupSpec     `yaml:"groups"`
	RewardRules []RuleSpec      `yaml:"reward_rules,omitempty"`
	Placements  []PlacementSpec `yaml:"placements,omitempty"`
}

// MapSpec sizes the map and lists static walls.
type MapSpec struct {
	Width  int       `yaml:"width"`
	Height int       `yaml:"height"`
	Walls  []sim.Pos `yaml:"walls,omitempty"`
}

// PheromoneSpec configures the pheromone field. Deposit defaults to sim.DefaultPheromoneDeposit.
type PheromoneSpec struct {
	Enabled bool     `yaml:"enabled"`
	Decay   float32  `yaml:"decay"`
	Deposit *float32 `yaml:"deposit,omitempty"`
}

// RangeSpec is a range shape; Shape defaults to circle.
type RangeSpec struct {
	Shape  string `yaml:"shape,omitempty"`
	Radius int    `yaml:"radius"`
}

// AgentTypeSpec mirrors sim.AgentType.
type AgentTypeSpec struct {
	Name            string    `yaml:"name"`
	Width           int       `yaml:"width,omitempty"`
	Length          int       `yaml:"length,omitempty"`
	HP              float32   `yaml:"hp"`
	Speed           int       `yaml:"speed"`
	ViewRange       RangeSpec `yaml:"view_range"`
	AttackRange     RangeSpec `yaml:"attack_range"`
	Damage          float32   `yaml:"damage,omitempty"`
	StepRecover     float32   `yaml:"step_recover,omitempty"`
	StepReward      float32   `yaml:"step_reward,omitempty"`
	DeadPenalty     float32   `yaml:"dead_penalty,omitempty"`
	AttackPenalty   float32   `yaml:"attack_penalty,omitempty"`
	KillReward      float32   `yaml:"kill_reward,omitempty"`
	AttackInGroup   bool      `yaml:"attack_in_group,omitempty"`
	CanLayPheromone bool      `yaml:"can_lay_pheromone,omitempty"`
}

// GroupSpec names a group and its agent type.
type GroupSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// RuleSpec is a reward rule written with group names: whenever an agent of Actor does
// Event to an agent of Target, the Receiver side gets Value.
type RuleSpec struct {
	Actor    string  `yaml:"actor"`
	Event    string  `yaml:"event"`
	Target   string  `yaml:"target"`
	Receiver string  `yaml:"receiver"`
	Value    float32 `yaml:"value"`
}

// PlacementSpec adds agents to a group at the start of every episode.
type PlacementSpec struct {
	Group     string    `yaml:"group"`
	Method    string    `yaml:"method"`
	Count     int       `yaml:"count,omitempty"`
	Positions []sim.Pos `yaml:"positions,omitempty"`
	Strict    bool      `yaml:"strict,omitempty"`
}

var validShapes = map[string]bool{"": true, "circle": true, "square": true}

var validMethods = map[string]bool{"random": true, "custom": true}

// Load reads a scenario file, checks it against the embedded JSON Schema, decodes it
// strictly and validates it.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML.
func Parse(data []byte) (*Spec, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}
	var spec Spec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks cross references the schema cannot express: unique names, known types
// and groups, and receivers that belong to their trigger.
func (s *Spec) Validate() error {
	if s.Version != "" && s.Version != "1" {
		return fmt.Errorf("unsupported scenario version %q; valid: 1", s.Version)
	}
	if s.Map.Width <= 0 || s.Map.Height <= 0 {
		return fmt.Errorf("map dimensions must be positive, got %dx%d", s.Map.Width, s.Map.Height)
	}
	if s.Pheromone.Decay < 0 || s.Pheromone.Decay > 1 {
		return fmt.Errorf("pheromone.decay must be in [0, 1], got %v", s.Pheromone.Decay)
	}
	types := make(map[string]bool, len(s.AgentTypes))
	for i, t := range s.AgentTypes {
		if err := validateAgentType(&t, i); err != nil {
			return err
		}
		if types[t.Name] {
			return fmt.Errorf("agent_types[%d]: duplicate name %q", i, t.Name)
		}
		types[t.Name] = true
	}
	if len(s.Groups) == 0 {
		return fmt.Errorf("at least one group required")
	}
	groups := make(map[string]bool, len(s.Groups))
	for i, g := range s.Groups {
		if g.Name == "" {
			return fmt.Errorf("groups[%d]: name must not be empty", i)
		}
		if groups[g.Name] {
			return fmt.Errorf("groups[%d]: duplicate name %q", i, g.Name)
		}
		if !types[g.Type] {
			return fmt.Errorf("groups[%d]: unknown agent type %q", i, g.Type)
		}
		groups[g.Name] = true
	}
	for i, r := range s.RewardRules {
		if err := validateRule(&r, i, groups); err != nil {
			return err
		}
	}
	for i, p := range s.Placements {
		if err := validatePlacement(&p, i, groups); err != nil {
			return err
		}
	}
	return nil
}

func validateAgentType(t *AgentTypeSpec, idx int) error {
	prefix := fmt.Sprintf("agent_types[%d]", idx)
	if t.Name == "" {
		return fmt.Errorf("%s: name must not be empty", prefix)
	}
	if t.HP <= 0 {
		return fmt.Errorf("%s: hp must be positive, got %v", prefix, t.HP)
	}
	if t.Speed < 0 {
		return fmt.Errorf("%s: speed must be non-negative, got %d", prefix, t.Speed)
	}
	for _, r := range []struct {
		field string
		spec  RangeSpec
	}{{"view_range", t.ViewRange}, {"attack_range", t.AttackRange}} {
		if !validShapes[r.spec.Shape] {
			return fmt.Errorf("%s: %s: unknown shape %q; valid: circle, square", prefix, r.field, r.spec.Shape)
		}
		if r.spec.Radius < 0 {
			return fmt.Errorf("%s: %s: radius must be non-negative, got %d", prefix, r.field, r.spec.Radius)
		}
	}
	return nil
}

func validateRule(r *RuleSpec, idx int, groups map[string]bool) error {
	prefix := fmt.Sprintf("reward_rules[%d]", idx)
	if _, err := sim.ParseEventKind(r.Event); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	for _, name := range []string{r.Actor, r.Target, r.Receiver} {
		if !groups[name] {
			return fmt.Errorf("%s: unknown group %q", prefix, name)
		}
	}
	if r.Receiver != r.Actor && r.Receiver != r.Target {
		return fmt.Errorf("%s: receiver %q must be the actor or the target", prefix, r.Receiver)
	}
	return nil
}

func validatePlacement(p *PlacementSpec, idx int, groups map[string]bool) error {
	prefix := fmt.Sprintf("placements[%d]", idx)
	if !groups[p.Group] {
		return fmt.Errorf("%s: unknown group %q", prefix, p.Group)
	}
	if !validMethods[p.Method] {
		return fmt.Errorf("%s: unknown method %q; valid: random, custom", prefix, p.Method)
	}
	if p.Method == "random" && p.Count < 0 {
		return fmt.Errorf("%s: count must be non-negative, got %d", prefix, p.Count)
	}
	if p.Method == "random" && len(p.Positions) > 0 {
		return fmt.Errorf("%s: positions are only valid with method custom", prefix)
	}
	return nil
}

// Marshal renders the scenario as YAML.
func (s *Spec) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encoding scenario: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding scenario: %w", err)
	}
	return buf.Bytes(), nil
}
