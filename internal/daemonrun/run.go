package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mec/internal/config"
	"mec/internal/daemon"
	"mec/internal/dispatcher"
	"mec/internal/event"
	"mec/internal/handler"
	"mec/internal/logging"
	"mec/internal/metrics"
	"mec/internal/notifications"
	"mec/internal/preflight"
	"mec/internal/queue"
)

// Roles a mec process can run as.
const (
	RoleScraper = "scraper"
	RoleHandler = "handler"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// SkipPreflight starts the role even when startup checks fail.
	SkipPreflight bool
	// Logger overrides the role logger built from configuration.
	Logger *slog.Logger
}

// Run starts one mec role and blocks until ctx ends or SIGINT/SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, role string, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if role != RoleScraper && role != RoleHandler {
		return fmt.Errorf("unknown role %q", role)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.NewFromConfig(cfg, role)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}
	logger = logger.With(logging.String("role", role))

	if err := runPreflight(signalCtx, cfg, role, logger); err != nil && !opts.SkipPreflight {
		return err
	}

	m := metrics.New()
	d, err := daemon.New(cfg, role, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	var cleanup func()
	switch role {
	case RoleScraper:
		cleanup, err = wireScraper(signalCtx, cfg, d, m, logger)
	case RoleHandler:
		cleanup, err = wireHandler(signalCtx, cfg, d, m, logger)
	}
	if err != nil {
		return err
	}
	defer cleanup()

	if bind := strings.TrimSpace(cfg.Metrics.Bind); bind != "" {
		d.Add("metrics", &metricsService{server: metrics.NewServer(bind, m), logger: logger})
	}

	if err := d.Start(signalCtx); err != nil {
		logger.Warn("daemon start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "check for another running instance and the state directory"),
			logging.String(logging.FieldImpact, "no events are processed"),
		)
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("mec daemon shutting down")
	return nil
}

func runPreflight(ctx context.Context, cfg *config.Config, role string, logger *slog.Logger) error {
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	results := preflight.RunAll(checkCtx, cfg, preflight.Role(role))
	for _, r := range results {
		attrs := []logging.Attr{
			logging.String("check", r.Name),
			logging.Bool("passed", r.Passed),
			logging.String("detail", r.Detail),
		}
		if r.Passed {
			logger.Info("preflight check", logging.Args(attrs...)...)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed", attrs...)
	}
	failed := preflight.Failed(results)
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for _, r := range failed {
		names = append(names, r.Name)
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(names, ", "))
}

func wireScraper(ctx context.Context, cfg *config.Config, d *daemon.Daemon, m *metrics.Metrics, logger *slog.Logger) (func(), error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	closers := []func(){func() { _ = store.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cleared, err := store.ClearBusy(ctx); err != nil {
		cleanup()
		return nil, err
	} else if cleared > 0 {
		logger.Info("cleared stale busy schedules", logging.Int64("count", cleared))
	}

	sources, err := dispatcher.Sources(cfg, time.Now(), logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	if len(sources) == 0 {
		cleanup()
		return nil, errors.New("no adapters enabled")
	}
	disp := dispatcher.New(store, cfg.PollInterval(), logger,
		dispatcher.WithStateStore(store),
		dispatcher.WithMetrics(m),
		dispatcher.WithNotifier(notifications.NewService(cfg.Notifications)),
	)
	if err := disp.RegisterAll(ctx, sources); err != nil {
		cleanup()
		return nil, err
	}
	d.Add("dispatcher", disp)

	if !cfg.BrokerEnabled() {
		logging.WarnWithContext(logger, "broker not configured", "relay_disabled",
			logging.String(logging.FieldImpact, "events accumulate in the outbox until a broker is configured"),
			logging.String(logging.FieldErrorHint, "set queue.nats_url"),
		)
		return cleanup, nil
	}
	broker, err := queue.Connect(ctx, cfg.Queue, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	closers = append(closers, broker.Close)
	relay := queue.NewRelay(store, broker,
		time.Duration(cfg.Queue.RelayIntervalSeconds)*time.Second,
		cfg.Queue.RelayBatch, logger, m)
	d.Add("relay", daemon.NewLoop("relay", func(ctx context.Context) error {
		relay.Run(ctx)
		return nil
	}, logger))
	return cleanup, nil
}

func wireHandler(ctx context.Context, cfg *config.Config, d *daemon.Daemon, m *metrics.Metrics, logger *slog.Logger) (func(), error) {
	if !cfg.BrokerEnabled() {
		return nil, errors.New("handler requires queue.nats_url")
	}
	policy, err := event.ParseDoorPolicy(cfg.Handler.DoorPolicy)
	if err != nil {
		return nil, err
	}

	var sinks []handler.Sink
	if path := strings.TrimSpace(cfg.Handler.GraphFile); path != "" {
		fileSink, err := handler.NewFileSink(path)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fileSink)
	}

	broker, err := queue.Connect(ctx, cfg.Queue, logger)
	if err != nil {
		return nil, err
	}
	if subject := strings.TrimSpace(cfg.Handler.OutputSubject); subject != "" {
		sinks = append(sinks, handler.NewSubjectSink(broker, subject))
	}
	if len(sinks) == 0 {
		logger.Warn("no graph sink configured; triples are validated and dropped",
			logging.String(logging.FieldEventType, "sink_missing"),
			logging.String(logging.FieldErrorHint, "set handler.graph_file or handler.output_subject"),
		)
	}

	proc := handler.NewProcessor(policy, sinks, logger, handler.WithMetrics(m))
	d.Add("consumer", daemon.NewLoop("consumer", func(ctx context.Context) error {
		return broker.Consume(ctx, proc.Handle)
	}, logger))
	return broker.Close, nil
}

type metricsService struct {
	server *metrics.Server
	logger *slog.Logger
}

func (s *metricsService) Start(context.Context) error {
	addr, errCh, err := s.server.Start()
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	s.logger.Info("metrics endpoint listening", logging.String("addr", addr.String()))
	go func() {
		if err := <-errCh; err != nil {
			logging.ErrorWithContext(s.logger, "metrics endpoint stopped", "metrics_failed", logging.Error(err))
		}
	}()
	return nil
}

func (s *metricsService) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics shutdown", logging.Error(err))
	}
}
