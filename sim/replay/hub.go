package replay

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gridworld-sim/gridworld-sim/sim"
)

// DefaultSubscriberBuffer is the number of frames queued per observer before frames drop.
const DefaultSubscriberBuffer = 256

// Hub streams frames to websocket observers. Each observer has its own buffered queue; a
// slow observer loses frames instead of stalling the simulation. New observers first
// receive the most recent episode header.
type Hub struct {
	upgrader websocket.Upgrader
	buffer   int

	mu     sync.Mutex
	subs   map[uint64]chan []byte
	header []byte
	closed bool

	nextID atomic.Uint64
	drops  atomic.Uint64
}

// NewHub creates a hub with the given per-observer queue length (<= 0 for the default).
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		buffer: buffer,
		subs:   make(map[uint64]chan []byte),
	}
}

// RenderFrame encodes f once and queues it for every observer.
func (h *Hub) RenderFrame(f *sim.Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if f.Header != nil {
		h.header = b
	}
	for _, ch := range h.subs {
		select {
		case ch <- b:
		default:
			h.drops.Add(1)
		}
	}
	return nil
}

// Subscribers returns the number of connected observers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns the number of frames dropped across all observers.
func (h *Hub) Dropped() uint64 { return h.drops.Load() }

func (h *Hub) subscribe() (uint64, chan []byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, nil, false
	}
	id := h.nextID.Add(1)
	ch := make(chan []byte, h.buffer)
	if h.header != nil {
		ch <- h.header
	}
	h.subs[id] = ch
	return id, ch, true
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Close disconnects every observer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// Handler upgrades loopback clients to a websocket that receives one JSON frame per
// text message. Other clients get 403.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, frames, ok := h.subscribe()
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		defer h.unsubscribe(id)
		logrus.Debugf("replay hub: observer %d connected from %s", id, r.RemoteAddr)

		// Observers only send close frames; the reader notices disconnects.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case b, ok := <-frames:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
