package pulser

import (
	"fmt"
	"sync"

	"github.com/mbi-berlin/bipolarpulse/internal/debug"
	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

// MockPulser stores settings in memory. Used for development on PC or testing.
type MockPulser struct {
	mu     sync.Mutex
	values pulse.PhysicalPosition
	writes int
}

// NewMockPulser returns a mock pulser with every setting at 0.
func NewMockPulser() *MockPulser {
	debug.Info("Using MOCK pulser (development mode)")
	return &MockPulser{}
}

func (m *MockPulser) SetAxis(role pulse.PhysicalRole, value float64) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	debug.Trace("Mock pulser: %s = %g", role, value)
	m.values[role] = value
	m.writes++
	return nil
}

func (m *MockPulser) ReadAxis(role pulse.PhysicalRole) (float64, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[role], nil
}

// Values returns a snapshot of all settings.
func (m *MockPulser) Values() pulse.PhysicalPosition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values
}

// Writes returns how many SetAxis calls succeeded.
func (m *MockPulser) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *MockPulser) Close() error {
	debug.Trace("Pulser Close (mock)")
	return nil
}
