package bedlifecycle

import (
	"context"
	"time"

	"goa.design/clue/log"
)

// DefaultSweepInterval is how often StartSweep invokes SweepExpired when the
// caller does not override it (spec.md §4.2).
const DefaultSweepInterval = 120 * time.Second

// StartSweep runs SweepExpired on a periodic timer until ctx is canceled. A
// sweep failure is logged and swallowed; it never reaches the caller, since
// the background task has no caller to report to (spec.md §4.2 Failure
// semantics). interval <= 0 uses DefaultSweepInterval.
func (m *Manager) StartSweep(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.runSweep(ctx)
			}
		}
	}()
}

func (m *Manager) runSweep(ctx context.Context) {
	updated, err := m.SweepExpired(ctx)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "bed sweep failed"})
		return
	}
	if len(updated) > 0 {
		log.Info(ctx, log.KV{K: "msg", V: "bed sweep completed"}, log.KV{K: "beds_updated", V: len(updated)})
	}
}
