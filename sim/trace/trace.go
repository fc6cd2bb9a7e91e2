package trace

// TraceLevel controls the verbosity of event tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures the full event log of every tick.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level    TraceLevel
	MaxTicks int // oldest ticks are dropped beyond this many; 0 = unbounded
}

// SimulationTrace collects tick records during an episode.
type SimulationTrace struct {
	Config  TraceConfig
	Ticks   []TickRecord
	Dropped int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config: config,
		Ticks:  make([]TickRecord, 0),
	}
}

// RecordTick appends a tick record, evicting the oldest when MaxTicks is reached.
func (st *SimulationTrace) RecordTick(record TickRecord) {
	if st.Config.MaxTicks > 0 && len(st.Ticks) >= st.Config.MaxTicks {
		copy(st.Ticks, st.Ticks[1:])
		st.Ticks = st.Ticks[:len(st.Ticks)-1]
		st.Dropped++
	}
	st.Ticks = append(st.Ticks, record)
}

// Reset discards all recorded ticks.
func (st *SimulationTrace) Reset() {
	st.Ticks = st.Ticks[:0]
	st.Dropped = 0
}
