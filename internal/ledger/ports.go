package ledger

import (
	"context"

	"khata/internal/amqp"
	"khata/internal/core"
)

// EventPublisher emits an event for every committed entry so the audit
// export can follow the ledger. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishEntryApplied(ctx context.Context, msg *amqp.EntryAppliedMessage) error
}

// Ports for the backing store. The SQLite repository and the in-memory store
// both satisfy them.
type (
	// DeltaApplier atomically applies one signed delta to an account: the
	// (account, day) snapshot merges additively and the running total moves
	// by the same amount, exactly once per call, under concurrent callers.
	// Implementations retry internal write conflicts up to a bounded budget
	// and return an error wrapping ErrTransactionFailed past it.
	DeltaApplier interface {
		ApplyDelta(ctx context.Context, account core.AccountRef, amount core.Money, dir core.Effect, day core.Date) error
	}

	// BalanceReader answers point-in-time balance questions from the per-day
	// audit trail. Accounts with no history at or before the requested day
	// resolve to zero, not an error.
	BalanceReader interface {
		// BalanceAsOf returns the cumulative balance at or before day.
		BalanceAsOf(ctx context.Context, account core.AccountRef, day core.Date) (core.Money, error)
		// BalanceBefore returns the cumulative balance strictly before day.
		BalanceBefore(ctx context.Context, account core.AccountRef, day core.Date) (core.Money, error)
	}

	// AccountLister enumerates the accounts of a society, optionally scoped
	// to one category (empty category means all). An unknown society yields
	// an empty slice.
	AccountLister interface {
		ListAccounts(ctx context.Context, society string, category core.AccountCategory) ([]core.AccountRef, error)
	}

	// AggregateReader exposes the running aggregate for present-day reads.
	AggregateReader interface {
		Aggregate(ctx context.Context, account core.AccountRef) (core.AccountAggregate, error)
	}

	// SnapshotLister exposes the per-day audit trail of one account, ordered
	// by day.
	SnapshotLister interface {
		ListDailySnapshots(ctx context.Context, account core.AccountRef, from, to core.Date) ([]core.DailySnapshot, error)
	}

	// BillStore persists bills for overdue-penalty processing.
	BillStore interface {
		CreateBill(ctx context.Context, bill core.Bill) error
		GetBill(ctx context.Context, id string) (core.Bill, error)
		ListBills(ctx context.Context, society string) ([]core.Bill, error)
		ListOpenBills(ctx context.Context) ([]core.Bill, error)
		SetBillPenaltiesApplied(ctx context.Context, id string, applied int64) error
		SettleBill(ctx context.Context, id string) error
	}

	// Store is the full surface the backend factory hands out.
	Store interface {
		DeltaApplier
		BalanceReader
		AccountLister
		AggregateReader
		SnapshotLister
		BillStore
		Close() error
	}
)
