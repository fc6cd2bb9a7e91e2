package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gridworld-sim/gridworld-sim/sim/replay"
)

var replayIndex string // Index database listed by `replay`

// replayCmd lists indexed episodes or summarises frame files
var replayCmd = &cobra.Command{
	Use:   "replay [frame-file.jsonl.zst]...",
	Short: "List rendered episodes or summarise frame files",
	Long: "Without arguments, lists the episodes recorded in --index-db. " +
		"With frame files, decodes each and prints a summary.",
	Run: func(cmd *cobra.Command, args []string) {
		var err error
		if len(args) == 0 {
			err = listEpisodes(cmd.Context(), replayIndex, os.Stdout)
		} else {
			for _, path := range args {
				if err = summarizeFrames(path, os.Stdout); err != nil {
					break
				}
			}
		}
		if err != nil {
			logrus.Fatalf("Replay failed: %v", err)
		}
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayIndex, "index-db", "build/render/gather/index.db", "Replay index database")
}

func listEpisodes(ctx context.Context, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("index %s: %w", path, err)
	}
	idx, err := replay.OpenIndex(path, "", 0)
	if err != nil {
		return err
	}
	defer closeQuietly("replay index", idx.Close)

	eps, err := idx.Episodes(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-8s %-8s %-9s %-7s %-8s %-25s %s\n", "EPISODE", "SEED", "MAP", "FRAMES", "LAST", "STARTED", "PATH")
	for _, e := range eps {
		fmt.Fprintf(out, "%-8d %-8d %-9s %-7d %-8d %-25s %s\n",
			e.ID, e.Seed, fmt.Sprintf("%dx%d", e.Width, e.Height), e.Frames, e.LastTick,
			e.StartedAt.Format("2006-01-02T15:04:05Z07:00"), e.Path)
	}
	return nil
}

func summarizeFrames(path string, out io.Writer) error {
	frames, err := replay.ReadFrames(path)
	if err != nil {
		return err
	}
	s, err := replay.Summarize(frames)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(out, "=== %s ===\n", path)
	fmt.Fprintf(out, "Episode    : %d\n", s.Episode)
	fmt.Fprintf(out, "Map        : %dx%d\n", s.Width, s.Height)
	fmt.Fprintf(out, "Frames     : %d (ticks %d..%d)\n", s.Frames, s.FirstTick, s.LastTick)
	fmt.Fprintf(out, "Peak Alive : %d\n", s.PeakAlive)
	for _, g := range s.Groups {
		fmt.Fprintf(out, "Group %d %-6s: %d alive at end\n", g.ID, g.Type, s.FinalAlive[g.ID])
	}
	kinds := make([]string, 0, len(s.Events))
	for k := range s.Events {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(out, "Events %-7s: %d\n", k, s.Events[k])
	}
	return nil
}
