package sim

import "fmt"

// Pos is an integer cell coordinate. X grows to the right, Y grows downwards.
type Pos struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Add returns p shifted by the offset d.
func (p Pos) Add(d Pos) Pos {
	return Pos{X: p.X + d.X, Y: p.Y + d.Y}
}

// RangeKind selects the shape of a Range.
type RangeKind uint8

const (
	// RangeCircle covers offsets with dx²+dy² <= r².
	RangeCircle RangeKind = iota
	// RangeSquare covers offsets with max(|dx|,|dy|) <= r.
	RangeSquare
)

// String returns the lowercase shape name used in scenario files.
func (k RangeKind) String() string {
	switch k {
	case RangeCircle:
		return "circle"
	case RangeSquare:
		return "square"
	default:
		return fmt.Sprintf("RangeKind(%d)", uint8(k))
	}
}

// Range is a shape with an integer radius, centred on a cell. It describes view windows,
// attack reach and movement reach.
type Range struct {
	Kind   RangeKind
	Radius int
}

// CircleRange returns a circular range of radius r.
func CircleRange(r int) Range {
	return Range{Kind: RangeCircle, Radius: r}
}

// SquareRange returns a square range of radius r.
func SquareRange(r int) Range {
	return Range{Kind: RangeSquare, Radius: r}
}

// Width is the side length of the range's bounding box.
func (r Range) Width() int {
	return 2*r.Radius + 1
}

// Contains reports whether the offset (dx, dy) lies inside the range.
func (r Range) Contains(dx, dy int) bool {
	if dx < -r.Radius || dx > r.Radius || dy < -r.Radius || dy > r.Radius {
		return false
	}
	switch r.Kind {
	case RangeSquare:
		return true
	default:
		return dx*dx+dy*dy <= r.Radius*r.Radius
	}
}

// Offsets lists every offset inside the range in row-major order (dy, then dx),
// including the centre.
func (r Range) Offsets() []Pos {
	out := make([]Pos, 0, r.Width()*r.Width())
	for dy := -r.Radius; dy <= r.Radius; dy++ {
		for dx := -r.Radius; dx <= r.Radius; dx++ {
			if r.Contains(dx, dy) {
				out = append(out, Pos{X: dx, Y: dy})
			}
		}
	}
	return out
}

func (r Range) validate(field string) error {
	if r.Radius < 0 {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("radius must be non-negative, got %d", r.Radius)}
	}
	if r.Kind != RangeCircle && r.Kind != RangeSquare {
		return &ConfigError{Field: field, Reason: fmt.Sprintf("unknown range kind %d", r.Kind)}
	}
	return nil
}

func (r Range) String() string {
	return fmt.Sprintf("%s(%d)", r.Kind, r.Radius)
}
