package services

import (
	"context"

	"github.com/dmitrijs2005/weldkeeper/internal/logging"
	"github.com/dmitrijs2005/weldkeeper/internal/server/metrics"
)

type undoStep struct {
	name string
	fn   func(ctx context.Context) error
}

// undoStack collects cleanups for the steps of a multi-step create that
// completed so far. rollback runs them newest first.
type undoStack struct {
	steps []undoStep
}

func (u *undoStack) push(name string, fn func(ctx context.Context) error) {
	u.steps = append(u.steps, undoStep{name: name, fn: fn})
}

func (u *undoStack) len() int {
	return len(u.steps)
}

// rollback runs every cleanup even when some fail. Failures are logged and
// never returned: the caller reports the error that caused the rollback.
// Cancellation of ctx does not stop the cleanups.
func (u *undoStack) rollback(ctx context.Context, log logging.Logger, failedStep string) {
	ctx = context.WithoutCancel(ctx)
	metrics.Rollbacks.WithLabelValues(failedStep).Inc()

	for i := len(u.steps) - 1; i >= 0; i-- {
		s := u.steps[i]
		if err := s.fn(ctx); err != nil {
			log.Warn(ctx, "rollback step failed", "step", s.name, "failed_step", failedStep, "error", err)
		}
	}
	u.steps = nil
}
