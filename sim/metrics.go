// Tracks per-episode statistics such as total reward, combat outcomes and the number of
// agents that earned a positive reward.

package sim

import (
	"fmt"
	"io"
)

// PositiveRewardThreshold is the per-tick reward above which an agent counts as rewarded.
const PositiveRewardThreshold = 0.05

// Metrics aggregates statistics about one episode for final reporting.
type Metrics struct {
	Steps        int     // Ticks stepped
	TotalReward  float64 // Sum of every agent's reward over every tick
	Hits         int     // Attacks that landed
	Misses       int     // Attacks that found nothing to hit
	Kills        int
	Deaths       int
	Moves        int
	Blocked      int
	RuleFirings  int // Reward rule credits paid
	ActionErrors int // Actions downgraded to no-ops

	GroupReward map[GroupID]float64 // per-group reward sum

	rewarded map[AgentID]struct{}
}

// NewMetrics returns empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		GroupReward: make(map[GroupID]float64),
		rewarded:    make(map[AgentID]struct{}),
	}
}

// ObserveStep folds the last tick of w into m. Call it once after every Step.
func (m *Metrics) ObserveStep(w *GridWorld) {
	s := w.LastStepStats()
	m.Steps++
	m.Hits += s.Hits
	m.Misses += s.Misses
	m.Kills += s.Kills
	m.Deaths += s.Deaths
	m.Moves += s.Moves
	m.Blocked += s.Blocked
	m.RuleFirings += s.RuleFirings
	m.ActionErrors = w.ActionErrors()
	for _, g := range w.GetHandles() {
		ids := w.reg.group(g)
		for i, r := range w.GetReward(g) {
			m.TotalReward += float64(r)
			m.GroupReward[g] += float64(r)
			if r > PositiveRewardThreshold {
				m.rewarded[ids[i]] = struct{}{}
			}
		}
	}
}

// RewardedAgents counts the agents that earned more than PositiveRewardThreshold in at
// least one tick of the episode.
func (m *Metrics) RewardedAgents() int {
	return len(m.rewarded)
}

// Print writes the episode summary to out.
func (m *Metrics) Print(out io.Writer, groups int) {
	fmt.Fprintln(out, "=== Episode Metrics ===")
	fmt.Fprintf(out, "Steps                : %d\n", m.Steps)
	fmt.Fprintf(out, "Total Reward         : %.3f\n", m.TotalReward)
	for g := 0; g < groups; g++ {
		fmt.Fprintf(out, "Group %d Reward       : %.3f\n", g, m.GroupReward[GroupID(g)])
	}
	fmt.Fprintf(out, "Rewarded Agents      : %d\n", m.RewardedAgents())
	if m.Steps > 0 {
		fmt.Fprintf(out, "Hits / Misses        : %d / %d\n", m.Hits, m.Misses)
		fmt.Fprintf(out, "Kills / Deaths       : %d / %d\n", m.Kills, m.Deaths)
		fmt.Fprintf(out, "Moves / Blocked      : %d / %d\n", m.Moves, m.Blocked)
		fmt.Fprintf(out, "Rule Firings         : %d\n", m.RuleFirings)
		fmt.Fprintf(out, "Action Errors        : %d\n", m.ActionErrors)
	}
}
