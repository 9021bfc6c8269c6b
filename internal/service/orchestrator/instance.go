package orchestrator

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another daemon owns the outputs.
var ErrAlreadyRunning = errors.New("another instance is already running")

// processLister lists the running processes.
type processLister func() ([]ps.Process, error)

// ensureSingleInstance fails when a process other than this one runs the
// executable named name.
func ensureSingleInstance(list processLister, name string) error {
	processList, err := list()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != name {
			continue
		}

		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
	}

	return nil
}
