package sim

import "github.com/sirupsen/logrus"

// Renderer consumes one frame per Render call. Implementations live in sim/replay.
type Renderer interface {
	RenderFrame(f *Frame) error
}

// Frame is the render snapshot of one tick. Header is set on the first frame of an
// episode only.
type Frame struct {
	Episode int          `json:"episode"`
	Tick    int          `json:"tick"`
	Header  *FrameHeader `json:"header,omitempty"`
	Agents  []FrameAgent `json:"agents"`
	Events  []FrameEvent `json:"events,omitempty"`
}

// FrameHeader carries the static part of an episode.
type FrameHeader struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Groups []FrameGroup `json:"groups"`
	Walls  []Pos        `json:"walls,omitempty"`
}

// FrameGroup names a group's agent type.
type FrameGroup struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

// FrameAgent is one live agent in a frame.
type FrameAgent struct {
	ID    int32   `json:"id"`
	Group int     `json:"group"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Dir   string  `json:"dir"`
	HP    float32 `json:"hp"`
}

// FrameEvent is one event of the frame's tick.
type FrameEvent struct {
	Kind   string `json:"kind"`
	Actor  int32  `json:"actor"`
	Target int32  `json:"target"`
}

// SetRenderer attaches (or, with nil, detaches) the frame sink used by Render.
func (w *GridWorld) SetRenderer(r Renderer) {
	w.renderer = r
	w.headerSent = false
}

// Render hands the current state to the renderer. Failures are logged and returned as a
// *RenderError; they never change world state. Without a renderer Render is a no-op.
func (w *GridWorld) Render() error {
	if w.renderer == nil {
		return nil
	}
	f := w.Snapshot(!w.headerSent)
	if err := w.renderer.RenderFrame(f); err != nil {
		rerr := &RenderError{Tick: w.tick, Err: err}
		logrus.Warn(rerr.Error())
		return rerr
	}
	w.headerSent = true
	return nil
}

// Snapshot builds the frame for the current tick, with the episode header if requested.
func (w *GridWorld) Snapshot(withHeader bool) *Frame {
	f := &Frame{Episode: w.episode, Tick: w.tick}
	if withHeader {
		h := &FrameHeader{Width: w.width, Height: w.height, Walls: w.grid.Walls()}
		for i, g := range w.groups {
			h.Groups = append(h.Groups, FrameGroup{ID: i, Type: w.types[g.Type].Name})
		}
		f.Header = h
	}
	f.Agents = make([]FrameAgent, 0, len(w.reg.agents))
	for _, a := range w.reg.agents {
		if !a.Alive {
			continue
		}
		f.Agents = append(f.Agents, FrameAgent{
			ID: int32(a.ID), Group: int(a.Group), X: a.Pos.X, Y: a.Pos.Y, Dir: a.Dir.String(), HP: a.HP,
		})
	}
	for _, ev := range w.lastEvents {
		f.Events = append(f.Events, FrameEvent{Kind: ev.Kind.String(), Actor: int32(ev.Actor), Target: int32(ev.Target)})
	}
	return f
}
