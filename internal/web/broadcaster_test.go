package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mbi-berlin/bipolarpulse/internal/logic/motion"
	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

func receive(t *testing.T, ch <-chan string) StatusEvent {
	t.Helper()
	select {
	case msg := <-ch:
		var evt StatusEvent
		if err := json.Unmarshal([]byte(msg), &evt); err != nil {
			t.Fatalf("unmarshal %q: %v", msg, err)
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}
	return StatusEvent{}
}

func TestBroadcaster_Events(t *testing.T) {
	cases := []struct {
		name      string
		send      func(b *StatusBroadcaster)
		wantLevel string
		wantMsg   string
	}{
		{
			name:      "pulse_set",
			send:      func(b *StatusBroadcaster) { b.PulseSet(pulse.NewPseudoPosition(10, 5, 20)) },
			wantLevel: LevelInfo,
			wantMsg:   "Pulse set: delay=10 width=5 amplitude=20",
		},
		{
			name:      "pulse_set_small_values",
			send:      func(b *StatusBroadcaster) { b.PulseSet(pulse.NewPseudoPosition(1e-6, 2.5e-7, -4)) },
			wantLevel: LevelInfo,
			wantMsg:   "Pulse set: delay=1e-06 width=2.5e-07 amplitude=-4",
		},
		{
			name: "move_failed",
			send: func(b *StatusBroadcaster) {
				b.MoveFailed(fmt.Errorf("%w: ch2_delay=15 outside [0, 12]", motion.ErrLimit))
			},
			wantLevel: LevelError,
			wantMsg:   "Move failed: axis limit exceeded: ch2_delay=15 outside [0, 12]",
		},
		{
			name:      "trigger_fired",
			send:      func(b *StatusBroadcaster) { b.TriggerFired() },
			wantLevel: LevelInfo,
			wantMsg:   "Trigger fired",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewStatusBroadcaster()
			b.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
			ch, unsub := b.Subscribe()
			defer unsub()

			tc.send(b)

			evt := receive(t, ch)
			if evt.Level != tc.wantLevel {
				t.Errorf("level = %q, want %q", evt.Level, tc.wantLevel)
			}
			if evt.Msg != tc.wantMsg {
				t.Errorf("msg = %q, want %q", evt.Msg, tc.wantMsg)
			}
			if evt.Time != "2024-05-01T12:00:00Z" {
				t.Errorf("time = %q", evt.Time)
			}
		})
	}
}

func TestBroadcaster_EveryClientSeesPulse(t *testing.T) {
	b := NewStatusBroadcaster()
	page, unsubPage := b.Subscribe()
	defer unsubPage()
	monitor, unsubMonitor := b.Subscribe()
	defer unsubMonitor()

	b.PulseSet(pulse.NewPseudoPosition(0, 1e-6, 2))

	for name, ch := range map[string]<-chan string{"page": page, "monitor": monitor} {
		if evt := receive(t, ch); evt.Msg != "Pulse set: delay=0 width=1e-06 amplitude=2" {
			t.Errorf("%s: msg = %q", name, evt.Msg)
		}
	}
}

func TestBroadcaster_SlowClientMissesEvents(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < clientBuffer; i++ {
		b.PulseSet(pulse.NewPseudoPosition(float64(i), 1, 1))
	}
	b.TriggerFired()

	count := 0
	for len(ch) > 0 {
		evt := receive(t, ch)
		if evt.Msg == "Trigger fired" {
			t.Error("event beyond the client buffer should be dropped")
		}
		count++
	}
	if count != clientBuffer {
		t.Errorf("buffered events = %d, want %d", count, clientBuffer)
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	_, unsubOther := b.Subscribe()
	defer unsubOther()
	if n := b.Subscribers(); n != 2 {
		t.Fatalf("Subscribers = %d, want 2", n)
	}

	unsub()
	unsub() // second call is a no-op

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after unsubscribe")
	}
	if n := b.Subscribers(); n != 1 {
		t.Errorf("Subscribers = %d, want 1", n)
	}
	b.TriggerFired()
}

func TestBroadcastWriter_TeesLogLines(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()
	w := BroadcastWriter(b)

	line := "[BipolarPulse] 12:00:00.000001 [LIVE] Axis ch2_delay -> 15\n"
	n, err := w.Write([]byte(line))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len(line) {
		t.Errorf("n = %d, want %d", n, len(line))
	}
	evt := receive(t, ch)
	if evt.Msg != "[BipolarPulse] 12:00:00.000001 [LIVE] Axis ch2_delay -> 15" {
		t.Errorf("msg = %q", evt.Msg)
	}
	if evt.Level != LevelInfo {
		t.Errorf("level = %q, want %q", evt.Level, LevelInfo)
	}

	if _, err := w.Write([]byte("  \n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(ch) != 0 {
		t.Error("blank log line should not be broadcast")
	}
}

func TestBroadcaster_MoveFailedKeepsErrorText(t *testing.T) {
	b := NewStatusBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.MoveFailed(errors.New("set ch1_width: instrument timeout"))

	if evt := receive(t, ch); evt.Msg != "Move failed: set ch1_width: instrument timeout" {
		t.Errorf("msg = %q", evt.Msg)
	}
}
