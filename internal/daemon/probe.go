package daemon

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"mec/internal/config"
)

// Status describes a role as seen from outside the process.
type Status struct {
	Role     string `json:"role"`
	Running  bool   `json:"running"`
	PID      int    `json:"pid,omitempty"`
	LockPath string `json:"lock_path"`
	// Stale is set when a pid file survived a process that no longer holds
	// the lock.
	Stale bool `json:"stale,omitempty"`
}

// Probe reports whether a role currently holds its lock. The lock is taken
// and released immediately when free.
func Probe(cfg *config.Config, role string) (Status, error) {
	status := Status{Role: role, LockPath: cfg.LockPath(role)}
	if _, err := os.Stat(status.LockPath); errors.Is(err, os.ErrNotExist) {
		return status, nil
	}

	lock := flock.New(status.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return status, fmt.Errorf("probe lock %s: %w", status.LockPath, err)
	}
	if ok {
		_ = lock.Unlock()
		if _, err := os.Stat(cfg.PIDPath(role)); err == nil {
			status.Stale = true
		}
		return status, nil
	}

	status.Running = true
	pid, err := readPID(cfg.PIDPath(role))
	if err != nil {
		return status, err
	}
	status.PID = pid
	return status, nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read pid file %q: %w", path, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %q: %w", path, err)
	}
	return pid, nil
}
