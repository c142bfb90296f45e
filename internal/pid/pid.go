package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"syscall"

	"codeberg.org/mutker/metalsnapd/internal/errors"
)

const pidFile = "metalsnapd.pid"

func path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write records the current process ID, refusing to start when a live
// metalsnapd already holds the file. A stale file from a dead process
// is overwritten.
func Write() error {
	if running, err := otherInstanceRunning(); err != nil {
		return err
	} else if running {
		return errors.New(errors.ErrAlreadyRunning)
	}

	if err := os.WriteFile(path(), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errors.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func otherInstanceRunning() (bool, error) {
	raw, err := os.ReadFile(path())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.ErrInternal, err)
	}

	pid, err := strconv.Atoi(string(raw))
	if err != nil {
		// Unreadable pid file, treat as stale.
		return false, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	return process.Signal(syscall.Signal(0)) == nil, nil
}

// Remove deletes the PID file.
func Remove() error {
	if _, err := os.Stat(path()); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path()); err != nil {
		return errors.Wrap(errors.ErrInternal, err)
	}

	return nil
}
