package sheets

import (
	"context"

	"khata/internal/amqp"
)

// Ports for outbound adapters.
type (
	// RegisterWriter appends one applied ledger entry to the audit register.
	RegisterWriter interface {
		Append(ctx context.Context, msg amqp.EntryAppliedMessage) (rowRef string, err error)
	}
)
