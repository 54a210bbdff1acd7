package web

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

// Status levels carried in StatusEvent.Level.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// clientBuffer is the number of events queued per SSE client before new
// events are dropped for that client.
const clientBuffer = 64

// StatusEvent is one line on the status stream.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Msg   string `json:"msg"`
}

// StatusBroadcaster fans pulse changes, trigger shots and tee'd log lines
// out to every connected SSE client.
type StatusBroadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	now     func() time.Time
}

func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{
		clients: make(map[chan string]struct{}),
		now:     time.Now,
	}
}

// Subscribe registers a client. The returned cancel func must be called on
// disconnect; it closes the channel.
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, clientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.clients, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected clients.
func (b *StatusBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends one JSON-encoded StatusEvent to every client without
// blocking. A client whose buffer is full misses the event.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	data, err := json.Marshal(StatusEvent{
		Time:  b.now().Format(time.RFC3339),
		Level: level,
		Msg:   msg,
	})
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// PulseSet announces a new pulse.
func (b *StatusBroadcaster) PulseSet(p pulse.PseudoPosition) {
	b.Broadcast(LevelInfo, fmt.Sprintf("Pulse set: delay=%g width=%g amplitude=%g", p.Delay(), p.Width(), p.Amplitude()))
}

// MoveFailed announces a refused or failed move.
func (b *StatusBroadcaster) MoveFailed(err error) {
	b.Broadcast(LevelError, "Move failed: "+err.Error())
}

// TriggerFired announces one trigger shot.
func (b *StatusBroadcaster) TriggerFired() {
	b.Broadcast(LevelInfo, "Trigger fired")
}

// BroadcastWriter returns an io.Writer that broadcasts each non-blank write
// as an info event. Used to tee the debug log to the status stream.
func BroadcastWriter(b *StatusBroadcaster) *broadcastWriter {
	return &broadcastWriter{b: b}
}

type broadcastWriter struct {
	b *StatusBroadcaster
}

func (w *broadcastWriter) Write(p []byte) (int, error) {
	if msg := strings.TrimSpace(string(p)); msg != "" {
		w.b.Broadcast(LevelInfo, msg)
	}
	return len(p), nil
}
