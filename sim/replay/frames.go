// Package replay persists and streams render frames: compressed per-episode frame logs,
// a sqlite index over them, and a websocket hub for live observers.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// FramePath returns the frame file of an episode inside dir.
func FramePath(dir string, episode int) string {
	return filepath.Join(dir, fmt.Sprintf("episode-%05d.jsonl.zst", episode))
}

// FrameWriter writes one zstd-compressed JSONL file per episode. The first line of each
// file is the frame carrying the episode header.
type FrameWriter struct {
	dir string

	mu      sync.Mutex
	episode int
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewFrameWriter creates a writer for dir. The directory is created on the first frame.
func NewFrameWriter(dir string) *FrameWriter {
	return &FrameWriter{dir: dir, episode: -1}
}

// RenderFrame appends f to its episode's file, starting a new file when the episode changes.
func (w *FrameWriter) RenderFrame(f *sim.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if f.Episode != w.episode || w.w == nil {
		if f.Header == nil {
			return fmt.Errorf("frame of episode %d tick %d arrived without a header", f.Episode, f.Tick)
		}
		if err := w.rotateLocked(f.Episode); err != nil {
			return err
		}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close finishes the current file.
func (w *FrameWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *FrameWriter) rotateLocked(episode int) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := FramePath(w.dir, episode)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc = f, enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.episode = episode
	logrus.Debugf("replay: writing episode %d to %s", episode, path)
	return nil
}

func (w *FrameWriter) closeLocked() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
		w.f = nil
	}
	w.w = nil
	return errors.Join(errs...)
}

// ReadFrames decodes every frame of a frame file.
func ReadFrames(path string) ([]sim.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var frames []sim.Frame
	for sc.Scan() {
		var fr sim.Frame
		if err := json.Unmarshal(sc.Bytes(), &fr); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", filepath.Base(path), len(frames)+1, err)
		}
		frames = append(frames, fr)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return frames, nil
}

// Summary describes a decoded frame file.
type Summary struct {
	Episode    int
	Width      int
	Height     int
	Groups     []sim.FrameGroup
	Frames     int
	FirstTick  int
	LastTick   int
	PeakAlive  int
	FinalAlive map[int]int // group → live agents in the last frame
	Events     map[string]int
}

// Summarize condenses frames into a Summary. The first frame must carry the header.
func Summarize(frames []sim.Frame) (Summary, error) {
	if len(frames) == 0 {
		return Summary{}, errors.New("no frames")
	}
	h := frames[0].Header
	if h == nil {
		return Summary{}, errors.New("first frame has no header")
	}
	s := Summary{
		Episode:    frames[0].Episode,
		Width:      h.Width,
		Height:     h.Height,
		Groups:     h.Groups,
		Frames:     len(frames),
		FirstTick:  frames[0].Tick,
		LastTick:   frames[len(frames)-1].Tick,
		FinalAlive: make(map[int]int),
		Events:     make(map[string]int),
	}
	for _, fr := range frames {
		s.PeakAlive = max(s.PeakAlive, len(fr.Agents))
		for _, ev := range fr.Events {
			s.Events[ev.Kind]++
		}
	}
	for _, a := range frames[len(frames)-1].Agents {
		s.FinalAlive[a.Group]++
	}
	return s, nil
}

// Multi fans a frame out to several renderers. Every renderer sees every frame; their
// errors are joined.
type Multi []sim.Renderer

func (m Multi) RenderFrame(f *sim.Frame) error {
	var errs []error
	for _, r := range m {
		if err := r.RenderFrame(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
