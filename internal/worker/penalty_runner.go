package worker

import (
	"context"
	"log/slog"
	"time"

	"khata/internal/core"
	"khata/internal/ledger"
)

// PenaltyRunner periodically posts overdue penalties. Each pass re-derives
// what is due from bill policies, so a missed tick catches up on the next one.
type PenaltyRunner struct {
	processor *ledger.PenaltyProcessor
	interval  time.Duration
}

func NewPenaltyRunner(processor *ledger.PenaltyProcessor, interval time.Duration) *PenaltyRunner {
	return &PenaltyRunner{
		processor: processor,
		interval:  interval,
	}
}

// Run processes overdue bills on every tick until the context is cancelled.
// The first pass runs immediately.
func (r *PenaltyRunner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Penalty runner stopping")
			return ctx.Err()
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *PenaltyRunner) runOnce(ctx context.Context) {
	processed, err := r.processor.ProcessOverdueBills(ctx, core.Today())
	if err != nil {
		slog.ErrorContext(ctx, "Penalty pass finished with errors",
			"processed", processed,
			"error", err)
		return
	}
	if processed > 0 {
		slog.InfoContext(ctx, "Penalty pass completed", "processed", processed)
	}
}
