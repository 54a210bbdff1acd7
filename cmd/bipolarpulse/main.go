package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/mbi-berlin/bipolarpulse/internal/config"
	"github.com/mbi-berlin/bipolarpulse/internal/debug"
	"github.com/mbi-berlin/bipolarpulse/internal/hw/gpio"
	"github.com/mbi-berlin/bipolarpulse/internal/hw/pulser"
	"github.com/mbi-berlin/bipolarpulse/internal/logic/motion"
	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
	"github.com/mbi-berlin/bipolarpulse/internal/metrics"
	"github.com/mbi-berlin/bipolarpulse/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	delay := optionalFloat{}
	width := optionalFloat{}
	amplitude := optionalFloat{}
	flag.Var(&delay, "delay", "override pulse delay in seconds")
	flag.Var(&width, "width", "override pulse width in seconds")
	flag.Var(&amplitude, "amplitude", "override pulse amplitude in volts (peak to peak)")
	fire := flag.Bool("fire", false, "fire one trigger shot after setting the pulse")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	target := applyOverrides(cfg.DefaultPseudo(), delay, width, amplitude)
	if err := validateTarget(target); err != nil {
		log.Fatalf("invalid pulse: %v", err)
	}

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Pulser config", cfg.Pulser)

	debug.Step(1, "Initializing GPIO driver")
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	debug.Step(2, "Connecting pulse generator")
	pg, err := newPulserFromConfig(cfg)
	if err != nil {
		log.Fatalf("init pulser failed: %v", err)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			log.Printf("closing pulser failed: %v", err)
		}
	}()

	debug.Step(3, "Creating pseudo-axis controller")
	ctrl := motion.NewController(
		metrics.InstrumentTransform(pulse.BipolarPulse{}),
		pg,
		controllerConfig(cfg, gpioDriver),
	)
	pseudoRoles, physicalRoles := ctrl.Roles()
	debug.Value("Pseudo roles", pseudoRoles)
	debug.Value("Physical roles", physicalRoles)

	if err := ctrl.Refresh(); err != nil {
		debug.Error(fmt.Errorf("initial readback: %w", err))
	}

	debug.Section("Setting pulse")
	if err := ctrl.MovePseudo(ctx, target); err != nil {
		log.Fatalf("set pulse failed: %v", err)
	}

	if port := webPort.port(); port > 0 {
		broadcaster := web.NewStatusBroadcaster()
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		formDefaults := web.PulseRequest{
			Delay:     target.Delay(),
			Width:     target.Width(),
			Amplitude: target.Amplitude(),
		}
		srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, ctrl, formDefaults)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	if err := printPosition(os.Stdout, ctrl); err != nil {
		log.Fatalf("read position failed: %v", err)
	}
	if *fire {
		if err := ctrl.Fire(); err != nil {
			log.Fatalf("fire failed: %v", err)
		}
		debug.Info("Trigger fired")
	}
}

// newPulserFromConfig selects a pulser implementation based on configuration.
func newPulserFromConfig(cfg *config.Config) (pulser.Pulser, error) {
	switch cfg.Pulser.Type {
	case config.PulserMock:
		return pulser.NewMockPulser(), nil
	case config.PulserSCPISerial:
		port, err := pulser.OpenSerial(pulser.SerialConfig{
			Device:      cfg.Pulser.Device,
			Baud:        cfg.Pulser.Baud,
			ReadTimeout: cfg.ReadTimeout(),
		})
		if err != nil {
			return nil, err
		}
		p := pulser.NewSCPIPulser(port)
		if id, err := p.Identify(); err == nil {
			debug.Value("Instrument", id)
		} else {
			debug.Error(fmt.Errorf("identify instrument: %w", err))
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported pulser type: %s", cfg.Pulser.Type)
	}
}

// controllerConfig maps the file configuration onto the controller's options.
func controllerConfig(cfg *config.Config, g gpio.Driver) motion.Config {
	limits := make(map[pulse.PhysicalRole]motion.Limit)
	for role, l := range cfg.RoleLimits() {
		limits[role] = motion.Limit{Min: l.Min, Max: l.Max}
	}
	mc := motion.Config{
		Limits:    limits,
		Tolerance: cfg.Defaults.ConsistencyTolerance,
	}
	if cfg.Trigger.Pin > 0 {
		mc.Trigger = pulser.NewTrigger(g, cfg.Trigger.Pin, cfg.TriggerPulse())
	}
	return mc
}

// applyOverrides replaces the pseudo values whose flags were set.
func applyOverrides(p pulse.PseudoPosition, delay, width, amplitude optionalFloat) pulse.PseudoPosition {
	if delay.set {
		p[pulse.Delay] = delay.val
	}
	if width.set {
		p[pulse.Width] = width.val
	}
	if amplitude.set {
		p[pulse.Amplitude] = amplitude.val
	}
	return p
}

// validateTarget rejects non-finite values and negative widths.
func validateTarget(p pulse.PseudoPosition) error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be finite, got %g", pulse.PseudoRole(i), v)
		}
	}
	if p.Width() < 0 {
		return fmt.Errorf("width must be >= 0, got %g", p.Width())
	}
	return nil
}

// printPosition writes the pseudo and physical positions, one role per line.
func printPosition(w io.Writer, ctrl *motion.Controller) error {
	pseudo, physical, err := ctrl.Position()
	if err != nil {
		return err
	}
	for i, v := range pseudo {
		fmt.Fprintf(w, "%-10s %g\n", pulse.PseudoRole(i), v)
	}
	for i, v := range physical {
		fmt.Fprintf(w, "%-10s %g\n", pulse.PhysicalRole(i), v)
	}
	return nil
}

// optionalFloat is a flag.Value that remembers whether it was set, so an
// explicit 0 overrides the config default.
type optionalFloat struct {
	val float64
	set bool
}

func (o *optionalFloat) String() string {
	if !o.set {
		return ""
	}
	return strconv.FormatFloat(o.val, 'g', -1, 64)
}

func (o *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	o.val = v
	o.set = true
	return nil
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
