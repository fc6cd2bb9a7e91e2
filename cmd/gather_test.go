package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridworld-sim/gridworld-sim/sim/replay"
	"github.com/gridworld-sim/gridworld-sim/sim/trace"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.WarnLevel)
	}
	os.Exit(m.Run())
}

// testGatherOptions returns a short, fully rendered run into dir.
func testGatherOptions(dir string) gatherOptions {
	return gatherOptions{
		MapSize:        40,
		Rounds:         2,
		RenderEvery:    1,
		PrintEvery:     2,
		Name:           "test",
		PheromoneDecay: 0.05,
		Seed:           123,
		MaxSteps:       5,
		Policy:         "greedy",
		RenderDir:      dir,
		TraceLevel:     "none",
		BufferCapacity: 100,
	}
}

func TestRunGather_PlaysRenderedRounds(t *testing.T) {
	// GIVEN a two-round run capped at five ticks, rendering every round
	dir := t.TempDir()
	opts := testGatherOptions(dir)
	var out bytes.Buffer

	// WHEN it runs
	require.NoError(t, runGather(context.Background(), opts, &out))

	// THEN each round printed its sample header and timing
	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "===== sample ====="))
	assert.Equal(t, 2, strings.Count(text, "round time"))
	assert.Contains(t, text, "steps: 6,")
	assert.Contains(t, text, "=== Episode Metrics ===")

	// AND each round left a frame file with the header first and one frame per tick
	files, err := filepath.Glob(filepath.Join(dir, "episode-*.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	frames, err := replay.ReadFrames(files[0])
	require.NoError(t, err)
	require.Len(t, frames, 6)
	require.NotNil(t, frames[0].Header)
	assert.Equal(t, 1, frames[0].Tick)

	// AND the index lists both episodes
	var list bytes.Buffer
	require.NoError(t, listEpisodes(context.Background(), filepath.Join(dir, "index.db"), &list))
	assert.Equal(t, 3, strings.Count(strings.TrimSpace(list.String()), "\n")+1)
}

func TestRunGather_RenderEveryNthRound(t *testing.T) {
	dir := t.TempDir()
	opts := testGatherOptions(dir)
	opts.Rounds = 3
	opts.RenderEvery = 2

	require.NoError(t, runGather(context.Background(), opts, &bytes.Buffer{}))

	files, err := filepath.Glob(filepath.Join(dir, "episode-*.jsonl.zst"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestRunGather_TraceAndEval(t *testing.T) {
	// GIVEN a single round with event tracing and an eval set, rendering nothing
	opts := testGatherOptions("")
	opts.Rounds = 1
	opts.RenderEvery = 0
	opts.TraceLevel = "events"
	opts.Eval = true
	opts.Greedy = true
	var out bytes.Buffer

	// WHEN it runs
	require.NoError(t, runGather(context.Background(), opts, &out))

	// THEN the eval set was drawn and the trace summarised
	assert.Contains(t, out.String(), "sample eval set...")
	assert.Contains(t, out.String(), "=== Trace Summary ===")
	assert.Contains(t, out.String(), "eps 0.000")
}

func TestRunGather_StopsOnCancelledContext(t *testing.T) {
	opts := testGatherOptions("")
	opts.RenderEvery = 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runGather(ctx, opts, &bytes.Buffer{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestGatherOptions_Validate(t *testing.T) {
	base := testGatherOptions("")
	tests := []struct {
		name    string
		mutate  func(o *gatherOptions)
		wantErr bool
	}{
		{name: "valid", mutate: func(o *gatherOptions) {}},
		{name: "tiny map", mutate: func(o *gatherOptions) { o.MapSize = 5 }, wantErr: true},
		{name: "negative rounds", mutate: func(o *gatherOptions) { o.Rounds = -1 }, wantErr: true},
		{name: "zero max steps", mutate: func(o *gatherOptions) { o.MaxSteps = 0 }, wantErr: true},
		{name: "zero print every", mutate: func(o *gatherOptions) { o.PrintEvery = 0 }, wantErr: true},
		{name: "decay above one", mutate: func(o *gatherOptions) { o.PheromoneDecay = 1.5 }, wantErr: true},
		{name: "unknown policy", mutate: func(o *gatherOptions) { o.Policy = "dqn" }, wantErr: true},
		{name: "unknown trace level", mutate: func(o *gatherOptions) { o.TraceLevel = "verbose" }, wantErr: true},
		{name: "random policy", mutate: func(o *gatherOptions) { o.Policy = "random" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := base
			tt.mutate(&o)
			err := o.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGatherOptions_RenderSchedule(t *testing.T) {
	o := gatherOptions{Name: "run", RenderEvery: 10}

	assert.Equal(t, filepath.Join("build", "render", "run"), o.renderDir())
	assert.True(t, o.rendersAnything())
	assert.False(t, o.rendersRound(0))
	assert.True(t, o.rendersRound(9))
	assert.True(t, o.rendersRound(19))

	o.Render = true
	assert.True(t, o.rendersRound(0))

	o = gatherOptions{}
	assert.False(t, o.rendersAnything())
	assert.False(t, o.rendersRound(0))
}

func TestSetupLogging_TeesToFile(t *testing.T) {
	// GIVEN a run name inside a temp dir
	name := filepath.Join(t.TempDir(), "run")
	prev := logrus.GetLevel()
	defer logrus.SetLevel(prev)

	// WHEN logging is set up and a line is logged
	closeLog := setupLogging("info", name)
	logrus.Info("hello from the trainer")
	closeLog()

	// THEN the line landed in <name>.log
	b, err := os.ReadFile(name + ".log")
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello from the trainer")
}

func TestPrintTraceSummary_KindsInNameOrder(t *testing.T) {
	// GIVEN a summary with several event kinds
	s := &trace.TraceSummary{
		Ticks: 3, TotalEvents: 6,
		EventsByKind: map[string]int{"kill": 1, "attack": 3, "collide": 2},
	}

	// WHEN it is printed repeatedly
	var first bytes.Buffer
	printTraceSummary(&first, s)
	for i := 0; i < 20; i++ {
		var again bytes.Buffer
		printTraceSummary(&again, s)
		require.Equal(t, first.String(), again.String())
	}

	// THEN kinds appear sorted by name
	text := first.String()
	a, c, k := strings.Index(text, "attack"), strings.Index(text, "collide"), strings.Index(text, "kill")
	assert.True(t, a < c && c < k, "got:\n%s", text)
}
