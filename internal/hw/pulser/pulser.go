package pulser

import (
	"errors"

	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

// ErrUnknownRole is returned for a physical role the pulser cannot address.
var ErrUnknownRole = errors.New("unknown physical role")

// Pulser is the high-level interface to a two-channel pulse generator.
// Each physical role (per-channel delay, width, low and high level) is one
// settable value, regardless of how the instrument is reached.
type Pulser interface {
	// SetAxis programs one physical setting.
	SetAxis(role pulse.PhysicalRole, value float64) error
	// ReadAxis reads one physical setting back from the instrument.
	ReadAxis(role pulse.PhysicalRole) (float64, error)
	Close() error
}
