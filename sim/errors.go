package sim

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid type, group or rule registration. It is fatal at setup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// SkippedPlacement records one position that could not be used.
type SkippedPlacement struct {
	Pos    Pos
	Reason string
}

// PlacementError lists positions of one AddAgents/AddWalls batch that were not placed.
// Unless the placement was strict, the rest of the batch was placed.
type PlacementError struct {
	Group   GroupID // -1 for walls
	Strict  bool
	Skipped []SkippedPlacement
}

func (e *PlacementError) Error() string {
	var b strings.Builder
	target := fmt.Sprintf("group %d", e.Group)
	if e.Group < 0 {
		target = "walls"
	}
	fmt.Fprintf(&b, "placement for %s: %d position(s) skipped", target, len(e.Skipped))
	if e.Strict {
		b.WriteString(" (strict, batch rejected)")
	}
	for i, s := range e.Skipped {
		if i == 3 {
			fmt.Fprintf(&b, "; ... %d more", len(e.Skipped)-3)
			break
		}
		fmt.Fprintf(&b, "; (%d,%d) %s", s.Pos.X, s.Pos.Y, s.Reason)
	}
	return b.String()
}

// ActionError describes an action that was downgraded to a no-op.
type ActionError struct {
	Agent  AgentID
	Action int
	Reason string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %d for agent %d ignored: %s", e.Action, e.Agent, e.Reason)
}

// RenderError wraps a failure of the configured Renderer. It never aborts the episode.
type RenderError struct {
	Tick int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render tick %d: %v", e.Tick, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
