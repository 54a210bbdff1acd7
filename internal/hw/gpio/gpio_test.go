package gpio

import "testing"

func TestNewDriver_Mock(t *testing.T) {
	drv, err := NewDriver(true)
	if err != nil {
		t.Fatalf("NewDriver(true): %v", err)
	}
	if _, ok := drv.(*MockDriver); !ok {
		t.Errorf("driver = %T, want *MockDriver", drv)
	}
}

func TestMockDriver_ReadBackWrittenLevel(t *testing.T) {
	drv := &MockDriver{}

	if lvl, _ := drv.ReadPin(17); lvl != Low {
		t.Errorf("unwritten pin = %v, want Low", lvl)
	}
	if err := drv.SetupPin(17, Output); err != nil {
		t.Fatal(err)
	}
	if err := drv.WritePin(17, High); err != nil {
		t.Fatal(err)
	}
	if lvl, _ := drv.ReadPin(17); lvl != High {
		t.Errorf("pin 17 = %v, want High", lvl)
	}
	if lvl, _ := drv.ReadPin(18); lvl != Low {
		t.Errorf("pin 18 = %v, want Low", lvl)
	}
	if err := drv.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
