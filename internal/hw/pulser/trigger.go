package pulser

import (
	"time"

	"github.com/mbi-berlin/bipolarpulse/internal/debug"
	"github.com/mbi-berlin/bipolarpulse/internal/hw/gpio"
)

// Trigger fires the generator's external trigger input from a GPIO pin.
// The line idles LOW; a shot is a HIGH pulse of length hold.
type Trigger struct {
	gpio gpio.Driver
	pin  int
	hold time.Duration
}

// NewTrigger configures pin as an output and parks it LOW.
func NewTrigger(g gpio.Driver, pin int, hold time.Duration) *Trigger {
	_ = g.SetupPin(pin, gpio.Output)
	_ = g.WritePin(pin, gpio.Low)

	return &Trigger{
		gpio: g,
		pin:  pin,
		hold: hold,
	}
}

// Fire emits one trigger pulse.
func (t *Trigger) Fire() error {
	debug.Live("Trigger: firing (pin %d, %v)", t.pin, t.hold)

	if err := t.gpio.WritePin(t.pin, gpio.High); err != nil {
		return err
	}
	time.Sleep(t.hold)
	if err := t.gpio.WritePin(t.pin, gpio.Low); err != nil {
		return err
	}
	return nil
}
