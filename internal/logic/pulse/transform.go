package pulse

import (
	"errors"
	"fmt"

	"github.com/mbi-berlin/bipolarpulse/internal/debug"
)

// ErrInvalidAxisIndex is returned when an axis index is outside the range
// of the requested direction (0-7 physical, 0-2 pseudo).
var ErrInvalidAxisIndex = errors.New("invalid axis index")

// PseudoPosition is (Delay, Width, Amplitude), indexed by PseudoRole.
type PseudoPosition [NumPseudo]float64

// NewPseudoPosition builds a pseudo position from its three values.
func NewPseudoPosition(delay, width, amplitude float64) PseudoPosition {
	return PseudoPosition{delay, width, amplitude}
}

func (p PseudoPosition) Delay() float64     { return p[Delay] }
func (p PseudoPosition) Width() float64     { return p[Width] }
func (p PseudoPosition) Amplitude() float64 { return p[Amplitude] }

// PhysicalPosition holds the eight generator settings, indexed by PhysicalRole.
type PhysicalPosition [NumPhysical]float64

// Transform converts between pseudo and physical axis values one axis at a
// time. Implementations must be pure so the host may call them in any order
// or concurrently.
type Transform interface {
	ComputePhysical(index int, pseudo PseudoPosition) (float64, error)
	ComputePseudo(index int, physical PhysicalPosition) (float64, error)
	PseudoRoles() []string
	PhysicalRoles() []string
}

// BipolarPulse drives two generator channels so that channel 1 produces the
// positive lobe and the complement output of channel 2, delayed by one
// pulse width, produces the negative lobe:
//
//	    ---
//	   |   |
//	---    |    ---
//	       |   |
//	        ---
//
// Both channels get the same width, a 0 V low level and a high level of
// Amplitude/2.
type BipolarPulse struct{}

// ComputePhysical returns the target value of physical axis index for the
// given pseudo position.
func (BipolarPulse) ComputePhysical(index int, pseudo PseudoPosition) (float64, error) {
	var ret float64
	switch PhysicalRole(index) {
	case Ch1Delay:
		ret = pseudo.Delay()
	case Ch2Delay:
		ret = pseudo.Delay() + pseudo.Width()
	case Ch1Width, Ch2Width:
		ret = pseudo.Width()
	case Ch1Low, Ch2Low:
		ret = 0
	case Ch1High, Ch2High:
		ret = pseudo.Amplitude() / 2
	default:
		return 0, fmt.Errorf("%w: physical axis %d, want 0-%d", ErrInvalidAxisIndex, index, NumPhysical-1)
	}
	debug.Trace("BipolarPulse.ComputePhysical(%d, %v) -> %g", index, pseudo, ret)
	return ret, nil
}

// ComputePseudo derives pseudo axis index from the physical position.
// Only ch1_delay, ch1_width and ch1_high are read; channel 2 and the low
// levels are trusted to match. Use CheckConsistency to verify that.
func (BipolarPulse) ComputePseudo(index int, physical PhysicalPosition) (float64, error) {
	switch PseudoRole(index) {
	case Delay:
		return physical[Ch1Delay], nil
	case Width:
		return physical[Ch1Width], nil
	case Amplitude:
		return 2 * physical[Ch1High], nil
	default:
		return 0, fmt.Errorf("%w: pseudo axis %d, want 0-%d", ErrInvalidAxisIndex, index, NumPseudo-1)
	}
}

func (BipolarPulse) PseudoRoles() []string   { return PseudoRoleNames() }
func (BipolarPulse) PhysicalRoles() []string { return PhysicalRoleNames() }

// CalcAllPhysical computes every physical axis for a pseudo target, one call
// per axis in role order.
func CalcAllPhysical(t Transform, pseudo PseudoPosition) (PhysicalPosition, error) {
	var out PhysicalPosition
	for i := range out {
		v, err := t.ComputePhysical(i, pseudo)
		if err != nil {
			return PhysicalPosition{}, err
		}
		out[i] = v
	}
	return out, nil
}

// CalcAllPseudo derives every pseudo axis from a physical position.
func CalcAllPseudo(t Transform, physical PhysicalPosition) (PseudoPosition, error) {
	var out PseudoPosition
	for i := range out {
		v, err := t.ComputePseudo(i, physical)
		if err != nil {
			return PseudoPosition{}, err
		}
		out[i] = v
	}
	return out, nil
}
