// Package cluster runs many independent worlds side by side.
package cluster

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// Batch owns N worlds with seeds derived from one master seed, so a batch is reproducible
// as a whole while its worlds diverge from each other. Worlds are stepped concurrently,
// one goroutine per world; each world is still only touched by one goroutine at a time.
type Batch struct {
	seed    int64
	worlds  []*sim.GridWorld
	metrics []*sim.Metrics
}

// NewBatch builds n worlds with build and seeds world i from the master seed's
// SubsystemInstance(i) stream.
func NewBatch(n int, seed int64, build func(i int) (*sim.GridWorld, error)) (*Batch, error) {
	if n <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", n)
	}
	master := sim.NewPartitionedRNG(sim.NewSimulationKey(seed))
	b := &Batch{seed: seed}
	for i := 0; i < n; i++ {
		w, err := build(i)
		if err != nil {
			return nil, fmt.Errorf("building world %d: %w", i, err)
		}
		w.SetSeed(master.DeriveSeed(sim.SubsystemInstance(i)))
		b.worlds = append(b.worlds, w)
		b.metrics = append(b.metrics, sim.NewMetrics())
	}
	logrus.Debugf("cluster: batch of %d worlds from seed %d", n, seed)
	return b, nil
}

// Len returns the number of worlds.
func (b *Batch) Len() int { return len(b.worlds) }

// World returns world i.
func (b *Batch) World(i int) *sim.GridWorld { return b.worlds[i] }

// Metrics returns the episode metrics of world i since the last Reset.
func (b *Batch) Metrics(i int) *sim.Metrics { return b.metrics[i] }

// Each runs fn on every world concurrently and joins the errors.
func (b *Batch) Each(fn func(i int, w *sim.GridWorld) error) error {
	errs := make([]error, len(b.worlds))
	var wg sync.WaitGroup
	for i, w := range b.worlds {
		wg.Add(1)
		go func(i int, w *sim.GridWorld) {
			defer wg.Done()
			if err := fn(i, w); err != nil {
				errs[i] = fmt.Errorf("world %d: %w", i, err)
			}
		}(i, w)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Reset starts a new episode in every world and repopulates it with populate.
func (b *Batch) Reset(populate func(i int, w *sim.GridWorld) error) error {
	return b.Each(func(i int, w *sim.GridWorld) error {
		w.Reset()
		b.metrics[i] = sim.NewMetrics()
		return populate(i, w)
	})
}

// Step advances every world by one tick, folds the tick into its metrics and clears the
// dead. It returns each world's done flag.
func (b *Batch) Step() []bool {
	done := make([]bool, len(b.worlds))
	_ = b.Each(func(i int, w *sim.GridWorld) error {
		done[i] = w.Step()
		b.metrics[i].ObserveStep(w)
		w.ClearDead()
		return nil
	})
	return done
}

// Steps returns the total number of ticks stepped across the batch since the last Reset.
func (b *Batch) Steps() int {
	n := 0
	for _, m := range b.metrics {
		n += m.Steps
	}
	return n
}
