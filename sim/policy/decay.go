package policy

// GatherEpsilonAnchors and GatherEpsilonValues are the gather trainer's exploration
// schedule, indexed by round.
var (
	GatherEpsilonAnchors = []int{0, 10000, 30000, 60000}
	GatherEpsilonValues  = []float64{0.9, 0.4, 0.2, 0.05}
)

// PiecewiseDecay interpolates linearly between (anchors[i], values[i]) points.
// Before the first anchor it returns values[0]; from the last anchor on, the last value.
// anchors must be ascending and the same length as values.
func PiecewiseDecay(now int, anchors []int, values []float64) float64 {
	if len(anchors) == 0 || len(anchors) != len(values) {
		return 0
	}
	i := 0
	for i < len(anchors) && now >= anchors[i] {
		i++
	}
	switch i {
	case 0:
		return values[0]
	case len(anchors):
		return values[len(values)-1]
	}
	span := float64(anchors[i] - anchors[i-1])
	frac := float64(now-anchors[i-1]) / span
	return values[i-1] + frac*(values[i]-values[i-1])
}

// LinearDecay goes from start to end over total steps, then holds end.
func LinearDecay(now, total int, start, end float64) float64 {
	if total <= 0 || now >= total {
		return end
	}
	if now <= 0 {
		return start
	}
	return start + float64(now)/float64(total)*(end-start)
}
