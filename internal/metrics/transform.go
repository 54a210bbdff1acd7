package metrics

import "github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"

// instrumented counts calls to the wrapped transform.
type instrumented struct {
	pulse.Transform
}

// InstrumentTransform wraps t so every call is counted by direction and
// result. Values and errors pass through unchanged.
func InstrumentTransform(t pulse.Transform) pulse.Transform {
	return instrumented{Transform: t}
}

func (i instrumented) ComputePhysical(index int, pseudo pulse.PseudoPosition) (float64, error) {
	v, err := i.Transform.ComputePhysical(index, pseudo)
	transformCalls.WithLabelValues("physical", result(err)).Inc()
	return v, err
}

func (i instrumented) ComputePseudo(index int, physical pulse.PhysicalPosition) (float64, error) {
	v, err := i.Transform.ComputePseudo(index, physical)
	transformCalls.WithLabelValues("pseudo", result(err)).Inc()
	return v, err
}
