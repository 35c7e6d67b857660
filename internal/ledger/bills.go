package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"khata/internal/core"
)

// Bills manages the receivables the penalty processor works from.
type Bills struct {
	store BillStore
}

func NewBills(store BillStore) *Bills {
	return &Bills{store: store}
}

// Create validates and persists a bill, assigning an ID when absent.
func (b *Bills) Create(ctx context.Context, bill core.Bill) (core.Bill, error) {
	if err := bill.Validate(); err != nil {
		return core.Bill{}, err
	}
	if bill.ID == "" {
		bill.ID = uuid.NewString()
	}
	bill.PenaltiesApplied = 0
	bill.Settled = false

	if err := b.store.CreateBill(ctx, bill); err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	return bill, nil
}

// List returns the bills of one society.
func (b *Bills) List(ctx context.Context, society string) ([]core.Bill, error) {
	bills, err := b.store.ListBills(ctx, society)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// Settle marks a bill as paid; settled bills stop accruing penalties.
func (b *Bills) Settle(ctx context.Context, id string) error {
	if err := b.store.SettleBill(ctx, id); err != nil {
		return fmt.Errorf("settle bill: %w", err)
	}
	return nil
}
