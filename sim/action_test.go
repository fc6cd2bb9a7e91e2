package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionLayout(t *testing.T) {
	w, a, f := newTestWorld(t, 10, 10)

	// speed 3 circle: 29 moves; circle(1) attacks without centre: 4
	assert.Equal(t, 33, w.GetActionSpace(a))
	assert.Equal(t, 1, w.GetActionSpace(f))

	l := w.layouts[w.groups[a].Type]
	stay, ok := l.decode(w.StayAction(a))
	require.True(t, ok)
	assert.Equal(t, ActionNoop, stay.Kind)

	first, ok := l.decode(29)
	require.True(t, ok)
	assert.Equal(t, decodedAction{Kind: ActionAttack, Offset: Pos{0, -1}}, first)

	_, ok = l.decode(33)
	assert.False(t, ok)
	_, ok = l.decode(-1)
	assert.False(t, ok)
}

func TestGetView2Attack(t *testing.T) {
	w, a, _ := newTestWorld(t, 10, 10)

	base, cells := w.GetView2Attack(a)

	assert.Equal(t, 29, base)
	require.Len(t, cells, 15*15)
	mapped := 0
	for _, c := range cells {
		if c >= 0 {
			mapped++
			assert.GreaterOrEqual(t, c, base)
		}
	}
	assert.Equal(t, 4, mapped)
	assert.Equal(t, 29, cells[6*15+7], "the cell north of centre is the first attack")
	assert.Equal(t, -1, cells[7*15+7], "no self attack")
}

func TestSetAgentAction_Errors(t *testing.T) {
	w, a, _ := newTestWorld(t, 10, 10)
	_, _ = w.AddAgents(a, PlaceCustom{Positions: []Pos{{1, 1}}})

	tests := []struct {
		name   string
		id     AgentID
		action int
		reason string
	}{
		{"unknown agent", 42, 0, "no such agent"},
		{"negative action", 0, -3, "index out of range"},
		{"too large", 0, 33, "index out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.SetAgentAction(tt.id, tt.action)
			var aerr *ActionError
			require.ErrorAs(t, err, &aerr)
			assert.Equal(t, tt.reason, aerr.Reason)
		})
	}
	assert.Equal(t, 3, w.ActionErrors())
	assert.NoError(t, w.SetAgentAction(0, 32))
}
