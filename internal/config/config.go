package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

// Pulser types
const (
	PulserMock       = "mock"
	PulserSCPISerial = "scpi_serial"
)

// PulserConfig selects and configures the pulse generator connection.
type PulserConfig struct {
	Type          string `yaml:"type"`            // "mock" or "scpi_serial"
	Device        string `yaml:"device"`          // serial device, e.g. /dev/ttyUSB0
	Baud          int    `yaml:"baud"`            // default 115200
	ReadTimeoutMs int    `yaml:"read_timeout_ms"` // default 500
}

// TriggerConfig describes the GPIO line wired to the external trigger input.
type TriggerConfig struct {
	Pin     int `yaml:"pin"`      // BCM pin, 0 = no trigger
	PulseUs int `yaml:"pulse_us"` // HIGH time of one trigger pulse, default 10
}

// Limit bounds one physical axis. Enforced by the motion controller,
// never by the transform.
type Limit struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// DefaultsConfig contains the start-up pulse and generic parameters.
type DefaultsConfig struct {
	Delay                float64 `yaml:"delay"`                 // s
	Width                float64 `yaml:"width"`                 // s
	Amplitude            float64 `yaml:"amplitude"`             // V, peak to peak
	ConsistencyTolerance float64 `yaml:"consistency_tolerance"` // channel mismatch tolerance, default 1e-12
	DebugLevel           int     `yaml:"debug_level"`           // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO             bool    `yaml:"mock_gpio"`             // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Pulser   PulserConfig     `yaml:"pulser"`
	Trigger  TriggerConfig    `yaml:"trigger"`
	Limits   map[string]Limit `yaml:"limits,omitempty"` // keyed by physical role name
	Defaults DefaultsConfig   `yaml:"defaults"`
}

// ValidateConfigPath rejects paths that are empty, not .yaml, or not
// inside a configs/ directory.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension: %s", path)
	}
	if strings.Contains(filepath.ToSlash(path), "..") {
		return fmt.Errorf("config path must not contain '..': %s", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must be inside a configs/ directory: %s", path)
	}
	return nil
}

// maxConfigSize caps the config file size read by Load.
const maxConfigSize = 1 << 20

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse unmarshals and validates YAML configuration, filling defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	switch cfg.Pulser.Type {
	case "":
		cfg.Pulser.Type = PulserMock
	case PulserMock:
	case PulserSCPISerial:
		if cfg.Pulser.Device == "" {
			return nil, fmt.Errorf("pulser.device is required for %s", PulserSCPISerial)
		}
	default:
		return nil, fmt.Errorf("unsupported pulser type: %s", cfg.Pulser.Type)
	}
	if cfg.Pulser.Baud <= 0 {
		cfg.Pulser.Baud = 115200
	}
	if cfg.Pulser.ReadTimeoutMs <= 0 {
		cfg.Pulser.ReadTimeoutMs = 500
	}

	if cfg.Trigger.Pin < 0 {
		return nil, fmt.Errorf("trigger.pin must be >= 0, got %d", cfg.Trigger.Pin)
	}
	if cfg.Trigger.PulseUs <= 0 {
		cfg.Trigger.PulseUs = 10
	}

	for name, l := range cfg.Limits {
		if _, err := pulse.ParsePhysicalRole(name); err != nil {
			return nil, fmt.Errorf("limits: %w", err)
		}
		if !finite(l.Min) || !finite(l.Max) || l.Min > l.Max {
			return nil, fmt.Errorf("limits.%s: min must be <= max, got [%g, %g]", name, l.Min, l.Max)
		}
	}

	d := cfg.Defaults
	if !finite(d.Delay) || !finite(d.Width) || !finite(d.Amplitude) {
		return nil, fmt.Errorf("defaults: delay, width and amplitude must be finite")
	}
	if d.Width < 0 {
		return nil, fmt.Errorf("defaults.width must be >= 0, got %g", d.Width)
	}
	if cfg.Defaults.ConsistencyTolerance <= 0 {
		cfg.Defaults.ConsistencyTolerance = 1e-12
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return nil, fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}

	return &cfg, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ReadTimeout returns the serial read timeout.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Pulser.ReadTimeoutMs) * time.Millisecond
}

// TriggerPulse returns the HIGH time of one trigger pulse.
func (c *Config) TriggerPulse() time.Duration {
	return time.Duration(c.Trigger.PulseUs) * time.Microsecond
}

// DefaultPseudo returns the start-up pulse as a pseudo position.
func (c *Config) DefaultPseudo() pulse.PseudoPosition {
	return pulse.NewPseudoPosition(c.Defaults.Delay, c.Defaults.Width, c.Defaults.Amplitude)
}

// RoleLimits returns the configured limits keyed by physical role.
func (c *Config) RoleLimits() map[pulse.PhysicalRole]Limit {
	out := make(map[pulse.PhysicalRole]Limit, len(c.Limits))
	for name, l := range c.Limits {
		role, err := pulse.ParsePhysicalRole(name)
		if err != nil {
			continue
		}
		out[role] = l
	}
	return out
}
