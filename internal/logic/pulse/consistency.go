package pulse

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInconsistent means the physical axes no longer describe a symmetric
// bipolar pulse, typically after one channel was moved directly.
var ErrInconsistent = errors.New("physical axes inconsistent")

// Mismatch is one physical axis whose value differs from the value implied
// by the channel 1 readings.
type Mismatch struct {
	Role     PhysicalRole
	Got      float64
	Expected float64
}

// InconsistencyError lists every mismatching axis.
type InconsistencyError struct {
	Mismatches []Mismatch
}

func (e *InconsistencyError) Error() string {
	parts := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		parts = append(parts, fmt.Sprintf("%s=%g (expected %g)", m.Role, m.Got, m.Expected))
	}
	return ErrInconsistent.Error() + ": " + strings.Join(parts, ", ")
}

func (e *InconsistencyError) Unwrap() error { return ErrInconsistent }

// CheckConsistency re-derives the pseudo position from channel 1, runs it
// through the forward transform and compares every axis within tol.
// A NaN on either side counts as a mismatch.
// It returns nil or an *InconsistencyError.
func CheckConsistency(t Transform, physical PhysicalPosition, tol float64) error {
	pseudo, err := CalcAllPseudo(t, physical)
	if err != nil {
		return err
	}
	want, err := CalcAllPhysical(t, pseudo)
	if err != nil {
		return err
	}

	var mismatches []Mismatch
	for i := range physical {
		if !(math.Abs(physical[i]-want[i]) <= tol) {
			mismatches = append(mismatches, Mismatch{
				Role:     PhysicalRole(i),
				Got:      physical[i],
				Expected: want[i],
			})
		}
	}
	if len(mismatches) > 0 {
		return &InconsistencyError{Mismatches: mismatches}
	}
	return nil
}
