package motion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mbi-berlin/bipolarpulse/internal/debug"
	"github.com/mbi-berlin/bipolarpulse/internal/hw/pulser"
	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
	"github.com/mbi-berlin/bipolarpulse/internal/metrics"
)

var (
	// ErrLimit is returned when a target lies outside a configured axis limit.
	ErrLimit = errors.New("axis limit exceeded")
	// ErrNoTrigger is returned by Fire when no trigger line is configured.
	ErrNoTrigger = errors.New("no trigger configured")
)

// Limit bounds one physical axis.
type Limit struct {
	Min, Max float64
}

// Firer emits one trigger shot.
type Firer interface {
	Fire() error
}

// Config holds the controller's optional parts.
type Config struct {
	Limits    map[pulse.PhysicalRole]Limit
	Trigger   Firer   // nil = no trigger
	Tolerance float64 // channel mismatch tolerance for Position
}

// Controller is the pseudo-axis controller: it turns Delay/Width/Amplitude
// requests into the eight pulser settings and derives the pulse back from
// the settings. It sits between the operator-facing layers (CLI, web) and
// the pulser hardware, and owns the last known physical position.
type Controller struct {
	transform pulse.Transform
	pulser    pulser.Pulser
	cfg       Config

	mu       sync.Mutex
	physical pulse.PhysicalPosition
}

func NewController(t pulse.Transform, p pulser.Pulser, cfg Config) *Controller {
	return &Controller{
		transform: t,
		pulser:    p,
		cfg:       cfg,
	}
}

// Roles returns the pseudo and physical role names in index order.
func (c *Controller) Roles() (pseudo, physical []string) {
	return c.transform.PseudoRoles(), c.transform.PhysicalRoles()
}

// MovePseudo moves all eight physical axes to the targets derived from
// target. All targets are computed and limit-checked before the first
// write, so a refused move leaves the pulser untouched.
func (c *Controller) MovePseudo(ctx context.Context, target pulse.PseudoPosition) error {
	err := c.movePseudo(ctx, target)
	metrics.ObserveMove("pseudo", err)
	return err
}

func (c *Controller) movePseudo(ctx context.Context, target pulse.PseudoPosition) error {
	debug.Position(target.Delay(), target.Width(), target.Amplitude())

	physical, err := pulse.CalcAllPhysical(c.transform, target)
	if err != nil {
		return fmt.Errorf("compute physical targets: %w", err)
	}
	for i, v := range physical {
		if err := c.checkLimit(pulse.PhysicalRole(i), v); err != nil {
			return err
		}
	}
	debug.Verbose("Physical targets: %v", physical)

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range physical {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.setAxis(pulse.PhysicalRole(i), v); err != nil {
			return err
		}
	}
	return nil
}

// MovePhysical moves a single physical axis directly, bypassing the pseudo
// layer. The pulse may stop being symmetric; Position reports that.
func (c *Controller) MovePhysical(ctx context.Context, role pulse.PhysicalRole, value float64) error {
	err := c.movePhysical(ctx, role, value)
	metrics.ObserveMove("physical", err)
	return err
}

func (c *Controller) movePhysical(ctx context.Context, role pulse.PhysicalRole, value float64) error {
	if !role.Valid() {
		return fmt.Errorf("%w: physical axis %d", pulse.ErrInvalidAxisIndex, int(role))
	}
	if err := c.checkLimit(role, value); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setAxis(role, value)
}

// setAxis writes one axis and updates the cache. Caller holds c.mu.
func (c *Controller) setAxis(role pulse.PhysicalRole, value float64) error {
	debug.Axis(role.String(), value)
	if err := c.pulser.SetAxis(role, value); err != nil {
		return fmt.Errorf("set %s: %w", role, err)
	}
	c.physical[role] = value
	metrics.SetAxisPosition(role.String(), value)
	return nil
}

func (c *Controller) checkLimit(role pulse.PhysicalRole, v float64) error {
	l, ok := c.cfg.Limits[role]
	if !ok {
		return nil
	}
	if v < l.Min || v > l.Max {
		return fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrLimit, role, v, l.Min, l.Max)
	}
	return nil
}

// Refresh reads every physical axis back from the pulser. The readback
// holds c.mu so it never observes a half-written move.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var physical pulse.PhysicalPosition
	for i := range physical {
		role := pulse.PhysicalRole(i)
		v, err := c.pulser.ReadAxis(role)
		if err != nil {
			return fmt.Errorf("read %s: %w", role, err)
		}
		physical[i] = v
	}
	debug.Verbose("Readback: %v", physical)

	c.physical = physical
	for i, v := range physical {
		metrics.SetAxisPosition(pulse.PhysicalRole(i).String(), v)
	}
	return nil
}

// Position returns the pulse derived from the last known physical position
// together with that position. A channel mismatch is logged and counted
// but not returned as an error.
func (c *Controller) Position() (pulse.PseudoPosition, pulse.PhysicalPosition, error) {
	c.mu.Lock()
	physical := c.physical
	c.mu.Unlock()

	pseudo, err := pulse.CalcAllPseudo(c.transform, physical)
	if err != nil {
		return pulse.PseudoPosition{}, physical, fmt.Errorf("compute pseudo position: %w", err)
	}
	if err := pulse.CheckConsistency(c.transform, physical, c.cfg.Tolerance); err != nil {
		debug.Warn("%v", err)
		metrics.ObserveInconsistency()
	}
	return pseudo, physical, nil
}

// Fire emits one trigger shot with the current settings. It waits for any
// move in progress so the shot never sees a half-programmed pulse.
func (c *Controller) Fire() error {
	if c.cfg.Trigger == nil {
		return ErrNoTrigger
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Trigger.Fire()
}
