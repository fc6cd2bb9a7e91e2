package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridworld-sim/gridworld-sim/sim/scenario"
)

var (
	// CLI flags shared by the simulation commands
	seed     int64  // Seed for placement, map generation and policies
	logLevel string // Log verbosity level

	// CLI flags for the gather trainer
	mapSize         int     // Side of the square map
	nRound          int     // Number of rounds to play
	render          bool    // Render every round
	renderEvery     int     // Render every N-th round
	printEvery      int     // Progress line every N ticks
	greedy          bool    // Disable exploration (eps = 0)
	runName         string  // Run name; names the log file and render directory
	evalSet         bool    // Sample an evaluation observation set first
	randomPlacement bool    // Mirror the food ring into a random quadrant
	minimapMode     bool    // Add minimap channels and position features
	pheromoneMode   bool    // Agents lay pheromones
	pheromoneDecay  float64 // Pheromone fraction lost per tick
	maxSteps        int     // Tick cap per round
	policyName      string  // Policy driving the agents
	renderDir       string  // Frame output directory
	indexDB         string  // Replay index database
	metricsAddr     string  // Prometheus listen address
	observeAddr     string  // Live observer websocket listen address
	traceLevel      string  // Event trace level
	bufferCapacity  int     // Episodes buffer capacity (agents per round)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gridworld-sim",
	Short: "Multi-agent gridworld simulator",
}

// gatherCmd plays gather-food rounds using parameters from CLI flags
var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Play rounds of the gather-food scenario",
	Run: func(cmd *cobra.Command, args []string) {
		closeLog := setupLogging(logLevel, runName)
		defer closeLog()

		opts := gatherOptions{
			MapSize:         mapSize,
			Rounds:          nRound,
			Render:          render,
			RenderEvery:     renderEvery,
			PrintEvery:      printEvery,
			Greedy:          greedy,
			Name:            runName,
			Eval:            evalSet,
			RandomPlacement: randomPlacement,
			MinimapMode:     minimapMode,
			PheromoneMode:   pheromoneMode,
			PheromoneDecay:  float32(pheromoneDecay),
			Seed:            seed,
			MaxSteps:        maxSteps,
			Policy:          policyName,
			RenderDir:       renderDir,
			IndexDB:         indexDB,
			MetricsAddr:     metricsAddr,
			ObserveAddr:     observeAddr,
			TraceLevel:      traceLevel,
			BufferCapacity:  bufferCapacity,
		}
		if err := opts.validate(); err != nil {
			logrus.Fatalf("Invalid options: %v", err)
		}
		logrus.Infof("Starting gather run %q: %d rounds on a %dx%d map, policy=%s, seed=%d",
			opts.Name, opts.Rounds, opts.MapSize, opts.MapSize, opts.Policy, opts.Seed)
		if err := runGather(cmd.Context(), opts, os.Stdout); err != nil {
			logrus.Fatalf("Gather run failed: %v", err)
		}
		logrus.Info("Gather run complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	gatherCmd.Flags().Int64Var(&seed, "seed", 123, "Seed for placement, map generation and policies")
	gatherCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	// Scenario
	gatherCmd.Flags().IntVar(&mapSize, "map-size", scenario.DefaultGatherMapSize, "Side of the square map")
	gatherCmd.Flags().BoolVar(&randomPlacement, "random-placement", false, "Place the food ring in a random quadrant")
	gatherCmd.Flags().BoolVar(&minimapMode, "mm-mode", false, "Add minimap channels and position features to observations")
	gatherCmd.Flags().BoolVar(&pheromoneMode, "pheromone-mode", false, "Agents lay pheromones")
	gatherCmd.Flags().Float64Var(&pheromoneDecay, "pheromone-decay", scenario.DefaultPheromoneDecay, "Pheromone fraction lost per tick")

	// Rounds
	gatherCmd.Flags().IntVar(&nRound, "n-round", 1500, "Number of rounds to play")
	gatherCmd.Flags().IntVar(&maxSteps, "max-steps", defaultMaxSteps, "Tick cap per round")
	gatherCmd.Flags().IntVar(&printEvery, "print-every", 100, "Print a progress line every N ticks")
	gatherCmd.Flags().BoolVar(&greedy, "greedy", false, "Disable exploration")
	gatherCmd.Flags().StringVar(&policyName, "policy", "greedy", "Agent policy (random, greedy)")
	gatherCmd.Flags().BoolVar(&evalSet, "eval", false, "Sample an evaluation observation set before the first round")
	gatherCmd.Flags().IntVar(&bufferCapacity, "buffer-capacity", 5000, "Agents recorded per round")
	gatherCmd.Flags().StringVar(&runName, "name", "gather", "Run name; names the log file and the render directory")

	// Output
	gatherCmd.Flags().BoolVar(&render, "render", false, "Render every round")
	gatherCmd.Flags().IntVar(&renderEvery, "render-every", 10, "Render every N-th round")
	gatherCmd.Flags().StringVar(&renderDir, "render-dir", "", "Frame output directory (default build/render/<name>)")
	gatherCmd.Flags().StringVar(&indexDB, "index-db", "", "Replay index database (default <render-dir>/index.db)")
	gatherCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	gatherCmd.Flags().StringVar(&observeAddr, "observe-addr", "", "Stream rendered frames to websocket observers on this address")
	gatherCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Event trace level (none, events)")

	rootCmd.AddCommand(gatherCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(benchCmd)
}
