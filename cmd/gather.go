package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim"
	"github.com/gridworld-sim/gridworld-sim/sim/observability"
	"github.com/gridworld-sim/gridworld-sim/sim/policy"
	"github.com/gridworld-sim/gridworld-sim/sim/replay"
	"github.com/gridworld-sim/gridworld-sim/sim/scenario"
	"github.com/gridworld-sim/gridworld-sim/sim/trace"
)

const (
	defaultMaxSteps = 350

	evalSampleSize   = 2048
	evalSampleWarmup = 500
)

// gatherOptions collects everything a gather run needs.
type gatherOptions struct {
	MapSize         int
	Rounds          int
	Render          bool
	RenderEvery     int
	PrintEvery      int
	Greedy          bool
	Name            string
	Eval            bool
	RandomPlacement bool
	MinimapMode     bool
	PheromoneMode   bool
	PheromoneDecay  float32
	Seed            int64
	MaxSteps        int
	Policy          string
	RenderDir       string
	IndexDB         string
	MetricsAddr     string
	ObserveAddr     string
	TraceLevel      string
	BufferCapacity  int
}

func (o gatherOptions) validate() error {
	if o.MapSize < 10 {
		return fmt.Errorf("map size must be >= 10, got %d", o.MapSize)
	}
	if o.Rounds < 0 {
		return fmt.Errorf("rounds must be >= 0, got %d", o.Rounds)
	}
	if o.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be > 0, got %d", o.MaxSteps)
	}
	if o.PrintEvery <= 0 {
		return fmt.Errorf("print-every must be > 0, got %d", o.PrintEvery)
	}
	if o.PheromoneDecay < 0 || o.PheromoneDecay > 1 {
		return fmt.Errorf("pheromone decay must be in [0, 1], got %v", o.PheromoneDecay)
	}
	if !policy.IsValidPolicy(o.Policy) {
		return fmt.Errorf("unknown policy %q; valid policies: %v", o.Policy, policy.ValidPolicyNames)
	}
	if !trace.IsValidTraceLevel(o.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", o.TraceLevel)
	}
	return nil
}

func (o gatherOptions) renderDir() string {
	if o.RenderDir != "" {
		return o.RenderDir
	}
	return filepath.Join("build", "render", o.Name)
}

func (o gatherOptions) rendersAnything() bool {
	return o.Render || o.RenderEvery > 0
}

func (o gatherOptions) rendersRound(k int) bool {
	return o.Render || (o.RenderEvery > 0 && (k+1)%o.RenderEvery == 0)
}

// roundResult summarises one played round.
type roundResult struct {
	Steps       int
	TotalReward float64
	PosReward   int // agents that earned more than sim.PositiveRewardThreshold in some tick
	Metrics     *sim.Metrics
}

// gatherRun is the state shared by every round of a run.
type gatherRun struct {
	opts      gatherOptions
	env       *sim.GridWorld
	handles   scenario.GatherHandles
	names     []string
	policy    policy.Policy
	buffer    *policy.EpisodesBuffer
	collector *observability.Collector
	out       io.Writer
}

// runGather plays opts.Rounds rounds of the gather scenario, writing progress to out.
func runGather(ctx context.Context, opts gatherOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, h, err := scenario.Gather(scenario.GatherOptions{
		MapSize:        opts.MapSize,
		MinimapMode:    opts.MinimapMode,
		PheromoneMode:  opts.PheromoneMode,
		PheromoneDecay: opts.PheromoneDecay,
		Seed:           opts.Seed,
	})
	if err != nil {
		return fmt.Errorf("building gather world: %w", err)
	}
	names := make([]string, len(env.GetHandles()))
	names[h.Food], names[h.Agents] = "food", "agent"

	r := &gatherRun{
		opts:    opts,
		env:     env,
		handles: h,
		names:   names,
		policy:  policy.NewPolicy(opts.Policy, env, h.Agents, env.RNG().ForSubsystem(sim.SubsystemPolicy)),
		buffer:  policy.NewEpisodesBuffer(opts.BufferCapacity, env.RNG().ForSubsystem(sim.SubsystemSample)),
		out:     out,
	}

	var renderers replay.Multi
	if opts.rendersAnything() {
		dir := opts.renderDir()
		fw := replay.NewFrameWriter(dir)
		defer closeQuietly("frame writer", fw.Close)
		indexPath := opts.IndexDB
		if indexPath == "" {
			indexPath = filepath.Join(dir, "index.db")
		}
		idx, err := replay.OpenIndex(indexPath, dir, opts.Seed)
		if err != nil {
			return fmt.Errorf("opening replay index: %w", err)
		}
		defer closeQuietly("replay index", idx.Close)
		renderers = append(renderers, fw, idx)
	}
	if opts.ObserveAddr != "" {
		hub := replay.NewHub(0)
		defer hub.Close()
		mux := http.NewServeMux()
		mux.Handle("/observe", hub.Handler())
		stop, err := serve(opts.ObserveAddr, mux)
		if err != nil {
			return fmt.Errorf("starting observer server: %w", err)
		}
		defer stop()
		renderers = append(renderers, hub)
	}
	if len(renderers) > 0 {
		env.SetRenderer(renderers)
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		c, err := observability.NewCollector(reg)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		r.collector = c
		mux := http.NewServeMux()
		mux.Handle("/metrics", c.Handler())
		stop, err := serve(opts.MetricsAddr, mux)
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer stop()
	}

	var tr *trace.SimulationTrace
	if trace.TraceLevel(opts.TraceLevel) == trace.TraceLevelEvents {
		tr = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelEvents})
		env.SetTrace(tr)
	}

	if opts.Eval {
		fmt.Fprintln(out, "sample eval set...")
		sets, err := policy.SampleObservation(env, []sim.GroupID{h.Agents}, evalSampleSize, evalSampleWarmup, r.populate)
		if err != nil {
			return fmt.Errorf("sampling eval set: %w", err)
		}
		logrus.Infof("eval set: %d observations of group %s", sets[0].Len(), names[h.Agents])
	}

	fmt.Fprintf(out, "view_space %v\n", env.GetViewSpace(h.Agents))
	fmt.Fprintf(out, "feature_space %d\n", env.GetFeatureSpace(h.Agents))

	start := time.Now()
	var last roundResult
	for k := 0; k < opts.Rounds; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tic := time.Now()
		eps := 0.0
		if !opts.Greedy {
			eps = policy.PiecewiseDecay(k, policy.GatherEpsilonAnchors, policy.GatherEpsilonValues)
		}
		if tr != nil {
			tr.Reset()
		}
		res, err := r.playRound(eps, opts.rendersRound(k))
		if err != nil {
			return fmt.Errorf("round %d: %w", k, err)
		}
		last = res
		logrus.Infof("round %d\t reward: %.2f\t pos_reward_ct: %d\t steps: %d\t eps: %.3f\t buffer: %d agents / %d steps",
			k, res.TotalReward, res.PosReward, res.Steps, eps, r.buffer.Len(), r.buffer.Steps())
		fmt.Fprintf(out, "round time %.2f  total time %.2f\n\n", time.Since(tic).Seconds(), time.Since(start).Seconds())
	}

	if last.Metrics != nil {
		last.Metrics.Print(out, len(env.GetHandles()))
	}
	if tr != nil {
		printTraceSummary(out, trace.Summarize(tr))
	}
	return nil
}

// printTraceSummary lists event counts by kind in name order.
func printTraceSummary(out io.Writer, s *trace.TraceSummary) {
	fmt.Fprintf(out, "=== Trace Summary ===\nTicks: %d  Events: %d  Busiest tick: %d (%d events)\n",
		s.Ticks, s.TotalEvents, s.BusiestTick, s.BusiestEvents)
	for _, kind := range slices.Sorted(maps.Keys(s.EventsByKind)) {
		fmt.Fprintf(out, "  %-8s %d\n", kind, s.EventsByKind[kind])
	}
}

func (r *gatherRun) populate(env *sim.GridWorld) error {
	return scenario.GatherMap(env, r.handles, r.opts.RandomPlacement)
}

// playRound resets the world, lays out the map and plays until the episode ends or the
// tick cap is passed.
func (r *gatherRun) playRound(eps float64, render bool) (roundResult, error) {
	env, h := r.env, r.handles
	env.Reset()
	if err := r.populate(env); err != nil {
		return roundResult{}, err
	}
	r.buffer.Reset()
	m := sim.NewMetrics()

	fmt.Fprintln(r.out, "===== sample =====")
	fmt.Fprintf(r.out, "eps %.3f number %v\n", eps, r.nums())

	started := time.Now()
	steps := 0
	for done := false; !done; {
		obs := env.GetObservation(h.Agents)
		ids := env.GetAgentID(h.Agents)
		acts := r.policy.Act(obs, ids, eps)
		env.SetAction(h.Agents, acts)

		tickStart := time.Now()
		done = env.Step()
		r.collector.ObserveStep(env, time.Since(tickStart), r.names)
		m.ObserveStep(env)

		rewards := env.GetReward(h.Agents)
		r.buffer.RecordStep(ids, obs, acts, rewards, env.GetAlive(h.Agents))
		stepReward := 0.0
		for _, rw := range rewards {
			stepReward += float64(rw)
		}

		if render {
			// Render failures are logged by the world and never stop the round.
			_ = env.Render()
		}
		env.ClearDead()

		if steps%r.opts.PrintEvery == 0 {
			fmt.Fprintf(r.out, "step %3d,  num %v,  reward %.2f,  total_reward: %.2f, non_zero: %d\n",
				steps, r.nums(), stepReward, m.GroupReward[h.Agents], m.RewardedAgents())
		}
		steps++
		if steps > r.opts.MaxSteps {
			break
		}
	}
	elapsed := time.Since(started).Seconds()
	fmt.Fprintf(r.out, "steps: %d,  total time: %.2f,  step average %.4f\n", steps, elapsed, elapsed/float64(steps))

	r.collector.ObserveEpisode(m.GroupReward[h.Agents])
	return roundResult{
		Steps:       steps,
		TotalReward: m.GroupReward[h.Agents],
		PosReward:   m.RewardedAgents(),
		Metrics:     m,
	}, nil
}

func (r *gatherRun) nums() []int {
	nums := make([]int, len(r.names))
	for _, g := range r.env.GetHandles() {
		nums[g] = r.env.GetNum(g)
	}
	return nums
}

// serve starts an HTTP server on addr in the background. The returned func shuts it down.
func serve(addr string, h http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Warnf("http server on %s: %v", addr, err)
		}
	}()
	logrus.Infof("Listening on %s", ln.Addr())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func closeQuietly(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logrus.Warnf("closing %s: %v", what, err)
	}
}
