package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_PlaceAndQuery(t *testing.T) {
	g := NewGrid(5, 4)

	require.True(t, g.place(3, Pos{1, 2}))
	require.True(t, g.addWall(Pos{0, 0}))

	id, ok := g.OccupantAt(Pos{1, 2})
	assert.True(t, ok)
	assert.Equal(t, AgentID(3), id)
	assert.True(t, g.IsWall(Pos{0, 0}))
	assert.False(t, g.IsFree(Pos{0, 0}))
	assert.False(t, g.IsFree(Pos{1, 2}))
	assert.True(t, g.IsFree(Pos{4, 3}))
	assert.False(t, g.IsFree(Pos{5, 0}), "off-map cells are never free")
	assert.False(t, g.IsWall(Pos{-1, 0}), "off-map cells are not walls")

	assert.False(t, g.place(4, Pos{1, 2}), "occupied cell")
	assert.False(t, g.addWall(Pos{1, 2}), "wall on agent")
	assert.Equal(t, []Pos{{0, 0}}, g.Walls())
	assert.Equal(t, 1, g.Occupied())
}

func TestGrid_Move(t *testing.T) {
	tests := []struct {
		name string
		to   Pos
		want MoveResult
		at   Pos
	}{
		{"free cell", Pos{2, 1}, MoveOK, Pos{2, 1}},
		{"stay", Pos{1, 1}, MoveOK, Pos{1, 1}},
		{"onto wall", Pos{0, 1}, MoveBlocked, Pos{1, 1}},
		{"onto agent", Pos{1, 0}, MoveBlocked, Pos{1, 1}},
		{"off map", Pos{1, -1}, MoveOutOfBounds, Pos{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN agent 0 at (1,1), agent 1 at (1,0) and a wall at (0,1)
			g := NewGrid(4, 4)
			g.place(0, Pos{1, 1})
			g.place(1, Pos{1, 0})
			g.addWall(Pos{0, 1})

			// WHEN agent 0 moves
			got := g.Move(0, Pos{1, 1}, tt.to)

			// THEN the result matches and the agent is where expected
			assert.Equal(t, tt.want, got)
			id, ok := g.OccupantAt(tt.at)
			assert.True(t, ok)
			assert.Equal(t, AgentID(0), id)
			assert.Equal(t, 2, g.Occupied(), "failed moves leave no side effects")
		})
	}
}

func TestGrid_AgentsInRange(t *testing.T) {
	// GIVEN agents around (5,5)
	g := NewGrid(10, 10)
	g.place(0, Pos{5, 5})
	g.place(1, Pos{6, 5})
	g.place(2, Pos{6, 6})
	g.place(3, Pos{9, 9})

	// THEN the circle excludes the diagonal, the square includes it
	assert.Equal(t, []AgentID{0, 1}, g.AgentsInRange(Pos{5, 5}, CircleRange(1)))
	assert.Equal(t, []AgentID{0, 1, 2}, g.AgentsInRange(Pos{5, 5}, SquareRange(1)))
	assert.Equal(t, []AgentID{3}, g.AgentsInRange(Pos{9, 9}, SquareRange(2)), "off-map cells are skipped")
}

func TestGrid_RemoveOnlyClearsOwnCell(t *testing.T) {
	g := NewGrid(3, 3)
	g.place(1, Pos{1, 1})

	g.remove(2, Pos{1, 1})
	_, ok := g.OccupantAt(Pos{1, 1})
	assert.True(t, ok, "remove with a stale id must not clear another agent")

	g.remove(1, Pos{1, 1})
	assert.True(t, g.IsFree(Pos{1, 1}))
}

func BenchmarkGrid_AgentsInRange(b *testing.B) {
	g := NewGrid(200, 200)
	for i := 0; i < 2000; i++ {
		g.place(AgentID(i), Pos{X: (i * 7) % 200, Y: (i * 13) % 200})
	}
	r := CircleRange(6)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.AgentsInRange(Pos{X: i % 200, Y: (i / 200) % 200}, r)
	}
}
