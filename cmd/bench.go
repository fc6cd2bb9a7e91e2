package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridworld-sim/gridworld-sim/sim"
	"github.com/gridworld-sim/gridworld-sim/sim/cluster"
	"github.com/gridworld-sim/gridworld-sim/sim/scenario"
)

var (
	benchWorlds int // Worlds stepped side by side
	benchTicks  int // Ticks per world
	benchSeed   int64
	benchSize   int
)

// benchCmd measures raw engine throughput with random actions
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Step a batch of gather worlds with random actions and report throughput",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBench(benchWorlds, benchTicks, benchSize, benchSeed, os.Stdout); err != nil {
			logrus.Fatalf("Bench failed: %v", err)
		}
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchWorlds, "worlds", 8, "Worlds stepped side by side")
	benchCmd.Flags().IntVar(&benchTicks, "ticks", 200, "Ticks per world")
	benchCmd.Flags().IntVar(&benchSize, "map-size", scenario.DefaultGatherMapSize, "Side of the square map")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", 1, "Master seed of the batch")
}

func runBench(worlds, ticks, size int, seed int64, out io.Writer) error {
	if ticks <= 0 {
		return fmt.Errorf("ticks must be > 0, got %d", ticks)
	}
	var h scenario.GatherHandles
	b, err := cluster.NewBatch(worlds, seed, func(int) (*sim.GridWorld, error) {
		w, handles, err := scenario.Gather(scenario.GatherOptions{MapSize: size})
		h = handles
		return w, err
	})
	if err != nil {
		return err
	}
	populate := func(_ int, w *sim.GridWorld) error { return scenario.GatherMap(w, h, true) }
	if err := b.Reset(populate); err != nil {
		return err
	}

	start := time.Now()
	var obsTime time.Duration
	resets := 0
	for tick := 0; tick < ticks; tick++ {
		t0 := time.Now()
		if err := b.Each(func(_ int, w *sim.GridWorld) error {
			_ = w.GetObservation(h.Agents)
			rng := w.RNG().ForSubsystem(sim.SubsystemPolicy)
			acts := make([]int, w.GetNum(h.Agents))
			for i := range acts {
				acts[i] = rng.Intn(w.GetActionSpace(h.Agents))
			}
			w.SetAction(h.Agents, acts)
			return nil
		}); err != nil {
			return err
		}
		obsTime += time.Since(t0)
		for i, done := range b.Step() {
			if done {
				w := b.World(i)
				w.Reset()
				if err := populate(i, w); err != nil {
					return err
				}
				resets++
			}
		}
	}
	elapsed := time.Since(start)
	total := worlds * ticks
	fmt.Fprintln(out, "=== Bench ===")
	fmt.Fprintf(out, "Worlds x Ticks   : %d x %d\n", worlds, ticks)
	fmt.Fprintf(out, "Wall Time        : %.3fs (observe+act %.3fs)\n", elapsed.Seconds(), obsTime.Seconds())
	fmt.Fprintf(out, "Steps/sec        : %.1f\n", float64(total)/elapsed.Seconds())
	fmt.Fprintf(out, "Episodes Reset   : %d\n", resets)
	return nil
}
