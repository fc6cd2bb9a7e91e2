// Package observability exports simulation progress as Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// Collector bundles the simulation's Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Steps        prometheus.Counter
	Episodes     prometheus.Counter
	Hits         prometheus.Counter
	AgentsAlive  *prometheus.GaugeVec
	Reward       prometheus.Histogram
	StepDuration prometheus.Histogram
}

// NewCollector registers the metrics against reg, defaulting to the global registry when
// nil. Metrics already registered by an earlier collector are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridworld_steps_total",
		Help: "Total number of simulation ticks stepped.",
	}), "gridworld_steps_total")
	if err != nil {
		return nil, err
	}
	episodes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridworld_episodes_total",
		Help: "Total number of finished episodes.",
	}), "gridworld_episodes_total")
	if err != nil {
		return nil, err
	}
	hits, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridworld_attack_hits_total",
		Help: "Total number of attacks that landed on an agent.",
	}), "gridworld_attack_hits_total")
	if err != nil {
		return nil, err
	}
	alive, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gridworld_agents_alive",
		Help: "Live agents per group after the last tick.",
	}, []string{"group"}), "gridworld_agents_alive")
	if err != nil {
		return nil, err
	}
	reward, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridworld_episode_reward",
		Help:    "Total reward collected by all agents over an episode.",
		Buckets: []float64{-100, -50, -20, -10, -5, 0, 5, 10, 20, 50, 100, 200, 500},
	}), "gridworld_episode_reward")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gridworld_step_duration_seconds",
		Help:    "Wall time of one simulation tick in seconds.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}), "gridworld_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:     gatherer,
		Steps:        steps,
		Episodes:     episodes,
		Hits:         hits,
		AgentsAlive:  alive,
		Reward:       reward,
		StepDuration: duration,
	}, nil
}

// ObserveStep records the last tick of w, which took elapsed wall time. groupNames labels
// the alive gauge; groups without a name are labelled by handle.
func (c *Collector) ObserveStep(w *sim.GridWorld, elapsed time.Duration, groupNames []string) {
	if c == nil {
		return
	}
	c.Steps.Inc()
	c.Hits.Add(float64(w.LastStepStats().Hits))
	c.StepDuration.Observe(elapsed.Seconds())
	for _, g := range w.GetHandles() {
		c.AgentsAlive.WithLabelValues(groupLabel(g, groupNames)).Set(float64(w.NumAlive(g)))
	}
}

// ObserveEpisode records a finished episode and its total reward.
func (c *Collector) ObserveEpisode(totalReward float64) {
	if c == nil {
		return
	}
	c.Episodes.Inc()
	c.Reward.Observe(totalReward)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func groupLabel(g sim.GroupID, names []string) string {
	if int(g) < len(names) && names[g] != "" {
		return names[g]
	}
	return fmt.Sprintf("%d", g)
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}
