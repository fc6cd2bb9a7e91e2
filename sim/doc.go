// Package sim provides the multi-agent gridworld simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - catalog.go: agent types, groups and reward rules (append-only tables addressed by handle)
//   - world.go: the GridWorld facade (reset, placement, per-group queries, actions)
//   - step.go: the per-tick phase machine (intake → movement → combat → reward → death → pheromone)
//
// # Architecture
//
// The sim package holds the engine itself; collaborators live in sub-packages:
//   - sim/scenario/: YAML scenario files and the built-in gather-food scenario
//   - sim/policy/: action policies, sample buffers and evaluation-set sampling
//   - sim/replay/: render sinks (zstd frame files, sqlite index, websocket hub)
//   - sim/cluster/: batches of independent worlds stepped in parallel
//   - sim/observability/: Prometheus collectors
//   - sim/trace/: per-tick event trace records
//
// # Determinism
//
// All randomness flows through PartitionedRNG. Agents are always visited in id order,
// so identical seeds, placements and action sequences produce identical rewards,
// observations and final positions.
package sim
