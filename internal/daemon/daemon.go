package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mec/internal/config"
	"mec/internal/logging"
)

// Service is a component the daemon starts and stops with the process.
type Service interface {
	Start(ctx context.Context) error
	Stop()
}

type namedService struct {
	name string
	svc  Service
}

// Daemon enforces single-instance execution for a role and owns the
// lifecycle of its services.
type Daemon struct {
	role     string
	logger   *slog.Logger
	lockPath string
	pidPath  string
	lock     *flock.Flock

	mu       sync.Mutex
	services []namedService
	started  []namedService
	running  atomic.Bool
	cancel   context.CancelFunc
}

// New constructs a daemon for role using the lock and pid paths from cfg.
func New(cfg *config.Config, role string, logger *slog.Logger) (*Daemon, error) {
	role = strings.TrimSpace(role)
	if cfg == nil || role == "" {
		return nil, errors.New("daemon requires config and role")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath(role)
	return &Daemon{
		role:     role,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		pidPath:  cfg.PIDPath(role),
		lock:     flock.New(lockPath),
	}, nil
}

// Add registers a service. Services start in registration order.
func (d *Daemon) Add(name string, svc Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services = append(d.services, namedService{name: name, svc: svc})
}

// Start acquires the role lock, writes the pid file and starts every service.
// A service failing to start stops the ones already running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another mec %s instance is already running", d.role)
	}
	if err := writePIDFile(d.pidPath); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("write pid file: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	for _, ns := range d.services {
		if err := ns.svc.Start(runCtx); err != nil {
			cancel()
			d.stopStarted()
			d.release()
			return fmt.Errorf("start %s: %w", ns.name, err)
		}
		d.started = append(d.started, ns)
		d.logger.Debug("service started", logging.String("service", ns.name))
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("mec daemon started",
		logging.String("role", d.role),
		logging.String("lock", d.lockPath),
		logging.Int("services", len(d.started)),
	)
	return nil
}

// Stop stops services in reverse order and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.stopStarted()
	d.release()
	d.running.Store(false)
	d.logger.Info("mec daemon stopped", logging.String("role", d.role))
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool { return d.running.Load() }

// LockPath returns the role's lock file.
func (d *Daemon) LockPath() string { return d.lockPath }

func (d *Daemon) stopStarted() {
	for i := len(d.started) - 1; i >= 0; i-- {
		d.started[i].svc.Stop()
		d.logger.Debug("service stopped", logging.String("service", d.started[i].name))
	}
	d.started = nil
}

func (d *Daemon) release() {
	if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("failed to remove pid file", logging.Error(err))
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
