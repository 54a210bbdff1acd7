package pulser

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// SerialConfig holds serial port settings for an SCPI instrument.
type SerialConfig struct {
	Device      string        // e.g. "/dev/ttyUSB0"
	Baud        int           // e.g. 115200
	ReadTimeout time.Duration // 0 = blocking
}

// OpenSerial opens the instrument's serial port.
func OpenSerial(cfg SerialConfig) (io.ReadWriteCloser, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial device is required")
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return port, nil
}
