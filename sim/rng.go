package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible run. Two worlds with the same key,
// identical configuration, placements and action sequences MUST produce identical
// rewards, observations and positions.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemPlacement drives random agent and wall placement.
	// Uses the master seed directly.
	SubsystemPlacement = "placement"

	// SubsystemMap drives scenario map generation (e.g. mirrored food offsets).
	SubsystemMap = "map"

	// SubsystemPolicy drives exploration in the bundled policies.
	SubsystemPolicy = "policy"

	// SubsystemSample drives evaluation-set sampling.
	SubsystemSample = "sample"
)

// SubsystemInstance returns the subsystem name for world N of a batch.
func SubsystemInstance(id int) string {
	return fmt.Sprintf("instance_%d", id)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem, so that
// drawing from one (e.g. a policy exploring) never perturbs another (e.g. placement).
//
// Derivation formula:
//   - For SubsystemPlacement: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemPlacement {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// DeriveSeed returns a stable child seed for the named subsystem without touching any
// cached generator. Batches use it to seed their member worlds.
func (p *PartitionedRNG) DeriveSeed(name string) int64 {
	return int64(p.key) ^ fnv1a64(name)
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
