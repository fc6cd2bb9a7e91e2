package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.Ticks != 0 || summary.TotalEvents != 0 {
		t.Errorf("expected zero ticks/events, got %d/%d", summary.Ticks, summary.TotalEvents)
	}
	if len(summary.EventsByKind) != 0 {
		t.Error("expected empty kind distribution")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary == nil || summary.TotalEvents != 0 {
		t.Fatal("expected non-nil zero summary for nil trace")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with attacks from two agents of group 1 and one collide from group 0
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})
	st.RecordTick(TickRecord{Tick: 0, Events: []EventRecord{
		{Kind: "attack", Actor: 5, ActorGroup: 1, Target: 0},
	}})
	st.RecordTick(TickRecord{Tick: 1, Events: []EventRecord{
		{Kind: "attack", Actor: 5, ActorGroup: 1, Target: 0},
		{Kind: "attack", Actor: 6, ActorGroup: 1, Target: 0},
		{Kind: "collide", Actor: 1, ActorGroup: 0, Target: 2},
	}})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts match
	if summary.Ticks != 2 {
		t.Errorf("expected 2 ticks, got %d", summary.Ticks)
	}
	if summary.TotalEvents != 4 {
		t.Errorf("expected 4 events, got %d", summary.TotalEvents)
	}
	if summary.EventsByKind["attack"] != 3 || summary.EventsByKind["collide"] != 1 {
		t.Errorf("unexpected kind distribution: %v", summary.EventsByKind)
	}
	if summary.BusiestTick != 1 || summary.BusiestEvents != 3 {
		t.Errorf("expected busiest tick 1 with 3 events, got tick %d with %d", summary.BusiestTick, summary.BusiestEvents)
	}
	if summary.ActorsByGroup[1] != 2 || summary.ActorsByGroup[0] != 1 {
		t.Errorf("unexpected actors by group: %v", summary.ActorsByGroup)
	}
}
