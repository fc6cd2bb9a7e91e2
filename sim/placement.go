package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxPlacementTries bounds the random draws spent looking for a free cell per agent.
const maxPlacementTries = 100

// Placement describes how a batch of agents or walls is positioned.
// It is one of PlaceRandom or PlaceCustom.
type Placement interface {
	isPlacement()
}

// PlaceRandom puts Count entities on uniformly drawn free cells.
type PlaceRandom struct {
	Count int
}

// PlaceCustom puts one entity on each listed position, in order. Positions that are off
// the map or already taken (including by an earlier entry of the same batch) are
// skipped and reported. With Strict, any skip rejects the whole batch.
type PlaceCustom struct {
	Positions []Pos
	Strict    bool
}

func (PlaceRandom) isPlacement() {}
func (PlaceCustom) isPlacement() {}

// PlacementReport lists what a batch placed and what it skipped.
type PlacementReport struct {
	Placed  []AgentID
	Walls   int
	Skipped []SkippedPlacement
}

// AddAgents places a batch of agents of group g. Partial batches return the report
// together with a *PlacementError listing the skipped positions.
func (w *GridWorld) AddAgents(g GroupID, p Placement) (PlacementReport, error) {
	if err := w.checkGroup(g); err != nil {
		return PlacementReport{}, err
	}
	positions, skipped, err := w.resolvePlacement(p)
	if err != nil {
		return PlacementReport{}, err
	}
	if len(skipped) > 0 && isStrict(p) {
		return PlacementReport{Skipped: skipped}, &PlacementError{Group: g, Strict: true, Skipped: skipped}
	}

	t := w.groups[g].Type
	report := PlacementReport{Skipped: skipped}
	for _, pos := range positions {
		a := w.reg.spawn(g, t, pos, w.types[t].MaxHP, w.layouts[t].stayAction)
		w.grid.place(a.ID, pos)
		report.Placed = append(report.Placed, a.ID)
	}
	if len(skipped) > 0 {
		logrus.Warnf("AddAgents: group %d placed %d, skipped %d", g, len(report.Placed), len(skipped))
		return report, &PlacementError{Group: g, Skipped: skipped}
	}
	return report, nil
}

// AddWalls places static obstacles. Walls follow the same skip/strict policy as agents.
func (w *GridWorld) AddWalls(p Placement) (PlacementReport, error) {
	positions, skipped, err := w.resolvePlacement(p)
	if err != nil {
		return PlacementReport{}, err
	}
	if len(skipped) > 0 && isStrict(p) {
		return PlacementReport{Skipped: skipped}, &PlacementError{Group: -1, Strict: true, Skipped: skipped}
	}
	report := PlacementReport{Skipped: skipped}
	for _, pos := range positions {
		if w.grid.addWall(pos) {
			report.Walls++
		}
	}
	if len(skipped) > 0 {
		return report, &PlacementError{Group: -1, Skipped: skipped}
	}
	return report, nil
}

// resolvePlacement turns a Placement into distinct free positions without mutating the
// grid, so a strict batch can still be rejected atomically.
func (w *GridWorld) resolvePlacement(p Placement) ([]Pos, []SkippedPlacement, error) {
	taken := make(map[Pos]bool)
	free := func(pos Pos) bool { return w.grid.IsFree(pos) && !taken[pos] }

	switch p := p.(type) {
	case PlaceCustom:
		var positions []Pos
		var skipped []SkippedPlacement
		for _, pos := range p.Positions {
			switch {
			case !w.grid.InBounds(pos):
				skipped = append(skipped, SkippedPlacement{Pos: pos, Reason: "out of bounds"})
			case !free(pos):
				skipped = append(skipped, SkippedPlacement{Pos: pos, Reason: "occupied"})
			default:
				taken[pos] = true
				positions = append(positions, pos)
			}
		}
		return positions, skipped, nil
	case PlaceRandom:
		if p.Count < 0 {
			return nil, nil, &ConfigError{Field: "placement.count", Reason: fmt.Sprintf("must be non-negative, got %d", p.Count)}
		}
		rng := w.rng.ForSubsystem(SubsystemPlacement)
		var positions []Pos
		var skipped []SkippedPlacement
		for i := 0; i < p.Count; i++ {
			placed := false
			for try := 0; try < maxPlacementTries; try++ {
				pos := Pos{X: rng.Intn(w.width), Y: rng.Intn(w.height)}
				if free(pos) {
					taken[pos] = true
					positions = append(positions, pos)
					placed = true
					break
				}
			}
			if !placed {
				skipped = append(skipped, SkippedPlacement{Pos: Pos{X: -1, Y: -1},
					Reason: fmt.Sprintf("no free cell after %d tries", maxPlacementTries)})
			}
		}
		return positions, skipped, nil
	case nil:
		return nil, nil, &ConfigError{Field: "placement", Reason: "nil placement"}
	default:
		return nil, nil, &ConfigError{Field: "placement", Reason: fmt.Sprintf("unsupported placement %T", p)}
	}
}

func isStrict(p Placement) bool {
	c, ok := p.(PlaceCustom)
	return ok && c.Strict
}
