package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Ticks         int
	TotalEvents   int
	EventsByKind  map[string]int
	BusiestTick   int
	BusiestEvents int
	ActorsByGroup map[int]int // group → distinct acting agents
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		EventsByKind:  make(map[string]int),
		ActorsByGroup: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.Ticks = len(st.Ticks)
	seen := make(map[int64]bool)
	for _, tick := range st.Ticks {
		summary.TotalEvents += len(tick.Events)
		if len(tick.Events) > summary.BusiestEvents {
			summary.BusiestEvents = len(tick.Events)
			summary.BusiestTick = tick.Tick
		}
		for _, ev := range tick.Events {
			summary.EventsByKind[ev.Kind]++
			if !seen[ev.Actor] {
				seen[ev.Actor] = true
				summary.ActorsByGroup[ev.ActorGroup]++
			}
		}
	}
	return summary
}
