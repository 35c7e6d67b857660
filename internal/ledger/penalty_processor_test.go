package ledger

import (
	"context"
	"testing"

	"khata/internal/core"
	"khata/internal/memory"
)

func overdueBill(t *testing.T, id string) core.Bill {
	t.Helper()
	policy, err := core.NewPenaltyPolicy(core.NewDate(2026, 3, 5), core.OccurrenceRecurring, 5, core.PenaltyPercentage, 200)
	if err != nil {
		t.Fatal(err)
	}
	return core.Bill{
		ID:          id,
		Account:     core.AccountRef{Society: "green-acres", Category: core.CategoryIncome, Name: "maintenance"},
		Description: "March maintenance",
		Amount:      core.Money{Paise: 100000},
		Policy:      policy,
	}
}

func TestProcessOverdueBillsPostsPenalty(t *testing.T) {
	store := memory.New()
	l := New(store, nil)
	processor := NewPenaltyProcessor(store, l)
	ctx := context.Background()

	bill := overdueBill(t, "bill-1")
	if err := store.CreateBill(ctx, bill); err != nil {
		t.Fatal(err)
	}

	// Ten days past due with a 5-day frequency: two units of 2% of 1000.00.
	now := core.NewDate(2026, 3, 15)
	processed, err := processor.ProcessOverdueBills(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}

	balance, err := store.BalanceAsOf(ctx, bill.Account, now)
	if err != nil {
		t.Fatal(err)
	}
	if balance.Paise != 4000 {
		t.Errorf("posted penalty = %d, want 4000", balance.Paise)
	}

	got, err := store.GetBill(ctx, "bill-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.PenaltiesApplied != 2 {
		t.Errorf("penalties applied = %d, want 2", got.PenaltiesApplied)
	}
}

func TestProcessOverdueBillsIsIdempotentPerDay(t *testing.T) {
	store := memory.New()
	l := New(store, nil)
	processor := NewPenaltyProcessor(store, l)
	ctx := context.Background()

	if err := store.CreateBill(ctx, overdueBill(t, "bill-1")); err != nil {
		t.Fatal(err)
	}

	now := core.NewDate(2026, 3, 15)
	if _, err := processor.ProcessOverdueBills(ctx, now); err != nil {
		t.Fatal(err)
	}
	processed, err := processor.ProcessOverdueBills(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if processed != 0 {
		t.Errorf("second run processed = %d, want 0", processed)
	}

	account := core.AccountRef{Society: "green-acres", Category: core.CategoryIncome, Name: "maintenance"}
	balance, err := store.BalanceAsOf(ctx, account, now)
	if err != nil {
		t.Fatal(err)
	}
	if balance.Paise != 4000 {
		t.Errorf("balance after rerun = %d, want 4000", balance.Paise)
	}
}

func TestProcessOverdueBillsPostsOnlyNewUnits(t *testing.T) {
	store := memory.New()
	l := New(store, nil)
	processor := NewPenaltyProcessor(store, l)
	ctx := context.Background()

	if err := store.CreateBill(ctx, overdueBill(t, "bill-1")); err != nil {
		t.Fatal(err)
	}

	if _, err := processor.ProcessOverdueBills(ctx, core.NewDate(2026, 3, 15)); err != nil {
		t.Fatal(err)
	}
	// Five more days: one additional unit.
	if _, err := processor.ProcessOverdueBills(ctx, core.NewDate(2026, 3, 20)); err != nil {
		t.Fatal(err)
	}

	account := core.AccountRef{Society: "green-acres", Category: core.CategoryIncome, Name: "maintenance"}
	balance, err := store.BalanceAsOf(ctx, account, core.NewDate(2026, 3, 20))
	if err != nil {
		t.Fatal(err)
	}
	if balance.Paise != 6000 {
		t.Errorf("balance = %d, want 6000", balance.Paise)
	}
}

func TestProcessOverdueBillsPublishesAuditEvents(t *testing.T) {
	store := memory.New()
	publisher := &capturingPublisher{}
	l := New(store, publisher)
	processor := NewPenaltyProcessor(store, l)
	ctx := context.Background()

	if err := store.CreateBill(ctx, overdueBill(t, "bill-1")); err != nil {
		t.Fatal(err)
	}

	if _, err := processor.ProcessOverdueBills(ctx, core.NewDate(2026, 3, 15)); err != nil {
		t.Fatal(err)
	}

	if len(publisher.messages) != 1 {
		t.Fatalf("published %d messages, want 1", len(publisher.messages))
	}
	msg := publisher.messages[0]
	if msg.AmountPaise != 4000 {
		t.Errorf("penalty event amount = %d, want 4000", msg.AmountPaise)
	}
	if msg.Side != string(core.SideCredit) {
		t.Errorf("penalty event side = %s, want credit", msg.Side)
	}
	if msg.Day != "2026-03-15" {
		t.Errorf("penalty event day = %s, want 2026-03-15", msg.Day)
	}
}

func TestProcessOverdueBillsSkipsNotYetDue(t *testing.T) {
	store := memory.New()
	l := New(store, nil)
	processor := NewPenaltyProcessor(store, l)
	ctx := context.Background()

	if err := store.CreateBill(ctx, overdueBill(t, "bill-1")); err != nil {
		t.Fatal(err)
	}

	// Three days overdue with a 5-day frequency: nothing to post.
	processed, err := processor.ProcessOverdueBills(ctx, core.NewDate(2026, 3, 8))
	if err != nil {
		t.Fatal(err)
	}
	if processed != 0 {
		t.Errorf("processed = %d, want 0", processed)
	}
}

func TestProcessOverdueBillsSkipsSettled(t *testing.T) {
	store := memory.New()
	l := New(store, nil)
	processor := NewPenaltyProcessor(store, l)
	ctx := context.Background()

	if err := store.CreateBill(ctx, overdueBill(t, "bill-1")); err != nil {
		t.Fatal(err)
	}
	if err := store.SettleBill(ctx, "bill-1"); err != nil {
		t.Fatal(err)
	}

	processed, err := processor.ProcessOverdueBills(ctx, core.NewDate(2026, 3, 15))
	if err != nil {
		t.Fatal(err)
	}
	if processed != 0 {
		t.Errorf("processed = %d, want 0", processed)
	}
}

func TestBillsCreateAssignsID(t *testing.T) {
	store := memory.New()
	bills := NewBills(store)

	bill := overdueBill(t, "")
	created, err := bills.Create(context.Background(), bill)
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned ID")
	}

	listed, err := bills.List(context.Background(), "green-acres")
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("got %+v", listed)
	}
}
