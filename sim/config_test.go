package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAgentType_DefaultsFootprintToOneByOne(t *testing.T) {
	cfg := NewConfig(10, 10)
	at := testPredator()
	at.Width, at.Length = 0, 0

	id, err := cfg.RegisterAgentType(at)
	require.NoError(t, err)

	got, ok := cfg.AgentType(id)
	require.True(t, ok)
	assert.Equal(t, 1, got.Width)
	assert.Equal(t, 1, got.Length)
}

func TestRegisterAgentType_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AgentType)
		field  string
	}{
		{"empty name", func(a *AgentType) { a.Name = "" }, "agent_type.name"},
		{"2x2 footprint", func(a *AgentType) { a.Width, a.Length = 2, 2 }, "agent_type[agent].width/length"},
		{"zero hp", func(a *AgentType) { a.MaxHP = 0 }, "agent_type[agent].hp"},
		{"infinite hp", func(a *AgentType) { a.MaxHP = float32(math.Inf(1)) }, "agent_type[agent].hp"},
		{"negative speed", func(a *AgentType) { a.Speed = -1 }, "agent_type[agent].speed"},
		{"negative view radius", func(a *AgentType) { a.ViewRange = CircleRange(-1) }, "agent_type[agent].view_range"},
		{"unknown range kind", func(a *AgentType) { a.AttackRange = Range{Kind: 9, Radius: 1} }, "agent_type[agent].attack_range"},
		{"negative damage", func(a *AgentType) { a.Damage = -1 }, "agent_type[agent].damage"},
		{"NaN step reward", func(a *AgentType) { a.StepReward = float32(math.NaN()) }, "agent_type[agent].step_reward"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig(10, 10)
			at := testPredator()
			tt.mutate(&at)

			_, err := cfg.RegisterAgentType(at)

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "want *ConfigError, got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestRegisterAgentType_DuplicateName(t *testing.T) {
	cfg := NewConfig(10, 10)
	_, err := cfg.RegisterAgentType(testPredator())
	require.NoError(t, err)

	_, err = cfg.RegisterAgentType(testPredator())

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "duplicate")
}

func TestAddGroup_UnknownType(t *testing.T) {
	cfg := NewConfig(10, 10)
	_, err := cfg.AddGroup(3)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "group.type", cerr.Field)
}

func TestAddGroup_HandlesAreSequential(t *testing.T) {
	cfg := NewConfig(10, 10)
	ft, err := cfg.RegisterAgentType(testFood())
	require.NoError(t, err)
	for want := GroupID(0); want < 3; want++ {
		g, err := cfg.AddGroup(ft)
		require.NoError(t, err)
		assert.Equal(t, want, g)
	}
	assert.Equal(t, 3, cfg.NumGroups())
}

func TestAddRewardRule(t *testing.T) {
	cfg := NewConfig(10, 10)
	pt, _ := cfg.RegisterAgentType(testPredator())
	ft, _ := cfg.RegisterAgentType(testFood())
	a, _ := cfg.AddGroup(pt)
	f, _ := cfg.AddGroup(ft)
	other, _ := cfg.AddGroup(pt)

	tests := []struct {
		name      string
		trigger   EventPattern
		receiver  Symbol
		value     float32
		wantErr   string
		wantActor bool
		wantGroup GroupID
	}{
		{"actor receives", On(AnyAgent(a), EventAttack, AnyAgent(f)), AnyAgent(a), 0.5, "", true, a},
		{"target receives", On(AnyAgent(a), EventAttack, AnyAgent(f)), AnyAgent(f), -0.5, "", false, f},
		{"same symbol pays actor", On(AnyAgent(a), EventCollide, AnyAgent(a)), AnyAgent(a), -0.1, "", true, a},
		{"third-party receiver", On(AnyAgent(a), EventAttack, AnyAgent(f)), AnyAgent(other), 1, "reward_rule.receiver", false, 0},
		{"unknown group", On(AnyAgent(9), EventAttack, AnyAgent(f)), AnyAgent(9), 1, "reward_rule.actor", false, 0},
		{"unknown kind", On(AnyAgent(a), EventKind(42), AnyAgent(f)), AnyAgent(a), 1, "reward_rule.event", false, 0},
		{"infinite value", On(AnyAgent(a), EventKill, AnyAgent(f)), AnyAgent(a), float32(math.Inf(-1)), "reward_rule.value", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(cfg.Groups()[tt.wantGroup].Rules)
			err := cfg.AddRewardRule(tt.trigger, tt.receiver, tt.value)
			if tt.wantErr != "" {
				var cerr *ConfigError
				require.ErrorAs(t, err, &cerr)
				assert.Equal(t, tt.wantErr, cerr.Field)
				return
			}
			require.NoError(t, err)
			rules := cfg.Groups()[tt.wantGroup].Rules
			require.Len(t, rules, before+1)
			assert.Equal(t, tt.wantActor, rules[len(rules)-1].ReceivesActor())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	withGroup := func(c *Config) *Config {
		ft, _ := c.RegisterAgentType(testFood())
		_, _ = c.AddGroup(ft)
		return c
	}
	tests := []struct {
		name  string
		cfg   *Config
		field string
	}{
		{"zero width", withGroup(NewConfig(0, 10)), "map"},
		{"no groups", NewConfig(10, 10), "groups"},
		{"decay above one", func() *Config { c := withGroup(NewConfig(10, 10)); c.PheromoneDecay = 1.5; return c }(), "pheromone_decay"},
		{"negative deposit", func() *Config { c := withGroup(NewConfig(10, 10)); c.PheromoneDeposit = -1; return c }(), "pheromone_deposit"},
		{"valid", withGroup(NewConfig(10, 10)), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cerr *ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestNewGridWorld_SnapshotsConfig(t *testing.T) {
	// GIVEN a world built from a config
	cfg := NewConfig(10, 10)
	ft, _ := cfg.RegisterAgentType(testFood())
	g, _ := cfg.AddGroup(ft)
	w, err := NewGridWorld(cfg)
	require.NoError(t, err)

	// WHEN the config grows afterwards
	_, _ = cfg.AddGroup(ft)
	cfg.MapWidth = 99

	// THEN the world is unaffected
	assert.Len(t, w.GetHandles(), 1)
	width, _ := w.MapSize()
	assert.Equal(t, 10, width)
	assert.Equal(t, 1, w.GetActionSpace(g), "speed-0 food has only the stay action")
}

func TestNewGridWorld_NilConfig(t *testing.T) {
	_, err := NewGridWorld(nil)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}
