package pulser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/mbi-berlin/bipolarpulse/internal/debug"
	"github.com/mbi-berlin/bipolarpulse/internal/logic/pulse"
)

// scpiCommands maps each physical role to the instrument's SCPI header.
// Channel 2 drives the negative lobe from its complement output, so its
// levels are programmed exactly like channel 1.
var scpiCommands = [pulse.NumPhysical]string{
	pulse.Ch1Delay: ":PULS:DEL1",
	pulse.Ch2Delay: ":PULS:DEL2",
	pulse.Ch1Width: ":PULS:WIDT1",
	pulse.Ch2Width: ":PULS:WIDT2",
	pulse.Ch1Low:   ":VOLT1:LOW",
	pulse.Ch2Low:   ":VOLT2:LOW",
	pulse.Ch1High:  ":VOLT1:HIGH",
	pulse.Ch2High:  ":VOLT2:HIGH",
}

// SCPIPulser drives a pulse generator that speaks line-based SCPI over a
// byte stream (usually a serial port opened with OpenSerial).
type SCPIPulser struct {
	mu   sync.Mutex
	port io.ReadWriteCloser
	r    *bufio.Reader
}

// NewSCPIPulser wraps an open port.
func NewSCPIPulser(port io.ReadWriteCloser) *SCPIPulser {
	return &SCPIPulser{
		port: port,
		r:    bufio.NewReader(port),
	}
}

func scpiCommand(role pulse.PhysicalRole) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}
	return scpiCommands[role], nil
}

// SetAxis sends "<header> <value>".
func (p *SCPIPulser) SetAxis(role pulse.PhysicalRole, value float64) error {
	cmd, err := scpiCommand(role)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.send(cmd + " " + strconv.FormatFloat(value, 'g', -1, 64)); err != nil {
		return fmt.Errorf("set %s: %w", role, err)
	}
	return nil
}

// ReadAxis sends "<header>?" and parses the numeric reply.
func (p *SCPIPulser) ReadAxis(role pulse.PhysicalRole) (float64, error) {
	cmd, err := scpiCommand(role)
	if err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	reply, err := p.query(cmd + "?")
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", role, err)
	}
	v, err := strconv.ParseFloat(reply, 64)
	if err != nil {
		return 0, fmt.Errorf("read %s: parse reply %q: %w", role, reply, err)
	}
	return v, nil
}

// Identify returns the instrument's *IDN? string.
func (p *SCPIPulser) Identify() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query("*IDN?")
}

func (p *SCPIPulser) send(line string) error {
	debug.SCPI(">", line)
	_, err := io.WriteString(p.port, line+"\n")
	return err
}

func (p *SCPIPulser) query(line string) (string, error) {
	if err := p.send(line); err != nil {
		return "", err
	}
	reply, err := p.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	debug.SCPI("<", reply)
	return reply, nil
}

func (p *SCPIPulser) Close() error {
	debug.Trace("Pulser Close (SCPI)")
	return p.port.Close()
}
