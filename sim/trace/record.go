// Package trace provides per-tick event trace recording for post-hoc episode analysis.
// This package has no dependencies on sim/ and stores pure data types.
package trace

// EventRecord captures one event of the tick's event log.
type EventRecord struct {
	Kind        string `json:"kind"` // "attack", "kill", "collide"
	Actor       int64  `json:"actor"`
	ActorGroup  int    `json:"actor_group"`
	Target      int64  `json:"target"`
	TargetGroup int    `json:"target_group"`
}

// TickRecord captures the event log of a single tick.
type TickRecord struct {
	Tick   int           `json:"tick"`
	Events []EventRecord `json:"events"`
}
