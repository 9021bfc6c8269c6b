package orchestrator

import (
	"errors"
	"os"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	pid        int
	executable string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (fakeProcess) PPid() int            { return 1 }
func (p fakeProcess) Executable() string { return p.executable }

func listing(processes ...ps.Process) processLister {
	return func() ([]ps.Process, error) {
		return processes, nil
	}
}

// TestEnsureSingleInstance checks detection of another running daemon.
func TestEnsureSingleInstance(t *testing.T) {
	t.Parallel()

	self := fakeProcess{pid: os.Getpid(), executable: "alarm-clock"}

	require.NoError(t, ensureSingleInstance(listing(self, fakeProcess{pid: 2, executable: "sshd"}), "alarm-clock"))

	err := ensureSingleInstance(listing(self, fakeProcess{pid: 2, executable: "alarm-clock"}), "alarm-clock")
	require.ErrorIs(t, err, ErrAlreadyRunning)

	errList := errors.New("proc unavailable")
	err = ensureSingleInstance(func() ([]ps.Process, error) { return nil, errList }, "alarm-clock")
	require.ErrorIs(t, err, errList)
}
