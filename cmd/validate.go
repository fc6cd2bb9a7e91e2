package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridworld-sim/gridworld-sim/sim/scenario"
)

// validateCmd checks scenario files against the schema and the engine's rules
var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>...",
	Short: "Validate scenario files",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		failed := 0
		for _, path := range args {
			if err := validateScenario(path, os.Stdout); err != nil {
				fmt.Fprintf(os.Stdout, "%s: INVALID\n  %v\n", path, err)
				failed++
			}
		}
		if failed > 0 {
			logrus.Fatalf("%d of %d scenario files are invalid", failed, len(args))
		}
	},
}

// validateScenario loads a scenario, builds its world and applies its placements once, so
// every error the scenario can produce at run time surfaces here.
func validateScenario(path string, out io.Writer) error {
	spec, err := scenario.Load(path)
	if err != nil {
		return err
	}
	w, h, err := spec.NewWorld()
	if err != nil {
		return err
	}
	w.Reset()
	if err := spec.Populate(w, h); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: OK (%dx%d map, %d agent types, %d groups, %d reward rules)\n",
		path, spec.Map.Width, spec.Map.Height, len(spec.AgentTypes), len(spec.Groups), len(spec.RewardRules))
	for _, name := range h.Order {
		g := h.Groups[name]
		fmt.Fprintf(out, "  group %-10s %3d agents  actions=%d  view=%v  features=%d\n",
			name, w.GetNum(g), w.GetActionSpace(g), w.GetViewSpace(g), w.GetFeatureSpace(g))
	}
	if n := len(w.Grid().Walls()); n > 0 {
		fmt.Fprintf(out, "  walls %d\n", n)
	}
	return nil
}
