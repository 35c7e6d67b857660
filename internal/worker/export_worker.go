// Package worker hosts the background processes: the audit-register export
// consumer and the periodic overdue-penalty runner.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"khata/internal/amqp"
	"khata/internal/sheets"
)

// ExportWorker appends applied ledger entries to the audit register. Entries
// arrive over AMQP after the local commit, so a register outage never blocks
// a ledger write.
type ExportWorker struct {
	register sheets.RegisterWriter
}

func NewExportWorker(register sheets.RegisterWriter) *ExportWorker {
	return &ExportWorker{
		register: register,
	}
}

// HandleEntryApplied processes a single applied-entry message. A returned
// error leaves the message for redelivery.
func (w *ExportWorker) HandleEntryApplied(ctx context.Context, msg *amqp.EntryAppliedMessage) error {
	slog.InfoContext(ctx, "Processing applied entry",
		"id", msg.ID,
		"society", msg.Society,
		"account", msg.Account)

	if w.register == nil {
		slog.WarnContext(ctx, "No register writer configured, skipping export", "id", msg.ID)
		return nil
	}

	rowRef, err := w.register.Append(ctx, *msg)
	if err != nil {
		return fmt.Errorf("append to register: %w", err)
	}

	slog.InfoContext(ctx, "Exported entry to register",
		"id", msg.ID,
		"row_ref", rowRef)

	return nil
}
