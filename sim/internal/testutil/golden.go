// Package testutil provides shared test infrastructure for the gridworld simulator.
// It holds the golden episode dataset and assertion helpers used across sim/ and its
// sub-package tests. It must not import sim.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/golden_episodes.json.
type GoldenDataset struct {
	Tests []GoldenEpisode `json:"tests"`
}

// GoldenEpisode is a duel between one attacker and one stationary target on an otherwise
// empty map. The attacker hits the cell at AttackOffset every tick. Every expected value
// can be derived by hand.
type GoldenEpisode struct {
	Name      string `json:"name"`
	MapWidth  int    `json:"map_width"`
	MapHeight int    `json:"map_height"`
	Steps     int    `json:"steps"`

	Attacker GoldenAgent `json:"attacker"`
	Target   GoldenAgent `json:"target"`

	AttackOffset [2]int  `json:"attack_offset"`
	RuleValue    float64 `json:"rule_value"` // attacker attack target → attacker

	Metrics GoldenMetrics `json:"metrics"`
}

// GoldenAgent describes one side of a golden episode.
type GoldenAgent struct {
	X             int     `json:"x"`
	Y             int     `json:"y"`
	HP            float64 `json:"hp"`
	Speed         int     `json:"speed"`
	ViewRadius    int     `json:"view_radius"`
	AttackRadius  int     `json:"attack_radius"`
	Damage        float64 `json:"damage"`
	StepReward    float64 `json:"step_reward"`
	AttackPenalty float64 `json:"attack_penalty"`
	KillReward    float64 `json:"kill_reward"`
}

// GoldenMetrics represents the expected outcome of a golden episode.
type GoldenMetrics struct {
	// Exact match metrics
	Hits     int `json:"hits"`
	Misses   int `json:"misses"`
	Kills    int `json:"kills"`
	DoneTick int `json:"done_tick"` // tick after which Step reported done; -1 if never

	// Accumulated float32 rewards
	AttackerReward float64 `json:"attacker_reward"`
	TargetHP       float64 `json:"target_hp"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "golden_episodes.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// TempPath returns a path named name inside a per-test temporary directory.
func TempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
