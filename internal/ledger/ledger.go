// Package ledger implements the balance engine: classifying entry effects,
// applying deltas exactly once under concurrency, resolving historical
// balances from the per-day audit trail, and posting overdue-bill penalties.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"khata/internal/amqp"
	"khata/internal/core"
)

var (
	// ErrTransactionFailed means a ledger mutation could not commit within
	// its retry budget. The movement was not applied; callers must surface
	// it, never swallow it.
	ErrTransactionFailed = errors.New("ledger transaction failed")

	// ErrQueryFailed means the store was unreachable during a history read.
	ErrQueryFailed = errors.New("balance query failed")
)

// Ledger applies balance movements. It orchestrates classification, the
// atomic store write, and the audit event publish; the store owns
// transactional isolation and conflict retry.
type Ledger struct {
	store     DeltaApplier
	publisher EventPublisher
}

// New creates a Ledger. publisher may be nil; audit events are then skipped.
func New(store DeltaApplier, publisher EventPublisher) *Ledger {
	return &Ledger{
		store:     store,
		publisher: publisher,
	}
}

// Apply moves an account balance by amount in the given direction on the
// given day. The snapshot for (account, day) merges additively with any
// earlier entries of the same day.
func (l *Ledger) Apply(ctx context.Context, account core.AccountRef, amount core.Money, dir core.Effect, day core.Date) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	if dir != core.EffectIncrease && dir != core.EffectDecrease {
		return fmt.Errorf("unknown effect %q", dir)
	}
	if err := day.Validate(); err != nil {
		return err
	}

	if err := l.store.ApplyDelta(ctx, account, amount, dir, day); err != nil {
		return fmt.Errorf("apply delta: %w", err)
	}

	slog.InfoContext(ctx, "Ledger delta applied",
		"society", account.Society,
		"category", string(account.Category),
		"account", account.Name,
		"amount_paise", amount.Paise,
		"effect", string(dir),
		"day", string(day))

	return nil
}

// Record posts an entry: the account category and entry side decide the
// direction, the delta is applied, and an audit event is published. A failed
// publish is logged but never fails the posting; a failed apply always does.
func (l *Ledger) Record(ctx context.Context, e core.Entry) (core.Effect, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	effect := core.Classify(e.Account.Category, e.Side)
	if err := l.Apply(ctx, e.Account, e.Amount, effect, e.Day); err != nil {
		return "", err
	}

	if err := l.publishApplied(ctx, e, effect); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry-applied event",
			"society", e.Account.Society,
			"account", e.Account.Name,
			"error", err)
		// The entry is committed; audit export catches up out of band.
	}

	return effect, nil
}

func (l *Ledger) publishApplied(ctx context.Context, e core.Entry, effect core.Effect) error {
	if l.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping audit event")
		return nil
	}
	return l.publisher.PublishEntryApplied(ctx, amqp.NewEntryAppliedMessage(e, effect))
}
