// Package actuator drives the physical alert outputs.
package actuator

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"github.com/oshokin/alarm-clock/internal/device/delay"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// Actuator produces the alert.
type Actuator interface {
	// Pulse drives the outputs through one fixed on/off pattern.
	Pulse(ctx context.Context)
}

const (
	high = "1"
	low  = "0"

	// filePermissions matches the mode sysfs attribute files are opened with.
	filePermissions os.FileMode = 0o644
)

// GPIO drives output lines through the sysfs GPIO interface.
type GPIO struct {
	fs    afero.Fs
	root  string
	pins  []int
	pulse time.Duration
}

// NewGPIO creates an actuator driving pins under root for pulse each.
func NewGPIO(fs afero.Fs, root string, pins []int, pulse time.Duration) *GPIO {
	return &GPIO{
		fs:    fs,
		root:  root,
		pins:  pins,
		pulse: pulse,
	}
}

// Init exports the pins, configures them as outputs and drives them low.
func (g *GPIO) Init() error {
	for _, pin := range g.pins {
		dir := g.pinDir(pin)

		if exists, err := afero.DirExists(g.fs, dir); err != nil {
			return fmt.Errorf("stat gpio%d: %w", pin, err)
		} else if !exists {
			if err = g.write(path.Join(g.root, "export"), strconv.Itoa(pin)); err != nil {
				return fmt.Errorf("export gpio%d: %w", pin, err)
			}
		}

		if err := g.write(path.Join(dir, "direction"), "out"); err != nil {
			return fmt.Errorf("configure gpio%d: %w", pin, err)
		}

		if err := g.set(pin, low); err != nil {
			return err
		}
	}

	return nil
}

// Pulse raises each pin in turn for the pulse duration.
// Write failures are logged; the alert is fire-and-forget.
func (g *GPIO) Pulse(ctx context.Context) {
	for _, pin := range g.pins {
		if err := g.set(pin, high); err != nil {
			logger.ErrorKV(ctx, "Failed to raise output", "pin", pin, "error", err)
		}

		_ = delay.Sleep(ctx, g.pulse)

		if err := g.set(pin, low); err != nil {
			logger.ErrorKV(ctx, "Failed to lower output", "pin", pin, "error", err)
		}
	}
}

func (g *GPIO) set(pin int, value string) error {
	if err := g.write(path.Join(g.pinDir(pin), "value"), value); err != nil {
		return fmt.Errorf("set gpio%d to %s: %w", pin, value, err)
	}

	return nil
}

func (g *GPIO) pinDir(pin int) string {
	return path.Join(g.root, "gpio"+strconv.Itoa(pin))
}

func (g *GPIO) write(name, value string) error {
	return afero.WriteFile(g.fs, name, []byte(value), filePermissions)
}

// Log only logs the alert. Used on hosts without outputs.
type Log struct {
	pulse time.Duration
}

// NewLog creates a logging actuator taking pulse per output like the GPIO one.
func NewLog(pulse time.Duration) *Log {
	return &Log{pulse: pulse}
}

// Pulse logs the alert.
func (l *Log) Pulse(ctx context.Context) {
	logger.Warn(ctx, "Bzzzzzzzz")
	_ = delay.Sleep(ctx, 2*l.pulse)
}
