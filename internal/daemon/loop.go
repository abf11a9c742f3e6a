package daemon

import (
	"context"
	"log/slog"
	"sync"

	"mec/internal/logging"
)

// Loop adapts a blocking run function into a Service. Stop cancels the run
// context and waits for fn to return.
type Loop struct {
	name   string
	fn     func(ctx context.Context) error
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLoop wraps fn. A non-nil error from fn is logged, not propagated.
func NewLoop(name string, fn func(ctx context.Context) error, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loop{name: name, fn: fn, logger: logger}
}

func (l *Loop) Start(ctx context.Context) error {
	ctx, l.cancel = context.WithCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.fn(ctx); err != nil && ctx.Err() == nil {
			logging.ErrorWithContext(l.logger, "service exited", "service_failed",
				logging.String("service", l.name),
				logging.Error(err),
				logging.String(logging.FieldImpact, l.name+" is no longer running until restart"),
			)
		}
	}()
	return nil
}

func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}
