package ledger

import (
	"context"
	"errors"
	"testing"

	"khata/internal/core"
	"khata/internal/memory"
)

func seedLedger(t *testing.T) (*memory.Store, *Ledger) {
	t.Helper()
	store := memory.New()
	return store, New(store, nil)
}

func TestBalanceAsOfCumulative(t *testing.T) {
	store, l := seedLedger(t)
	resolver := NewHistoryResolver(store, store)
	ctx := context.Background()
	account := testAccount()

	entries := []struct {
		day   core.Date
		paise int64
		dir   core.Effect
	}{
		{core.NewDate(2026, 1, 5), 10000, core.EffectIncrease},
		{core.NewDate(2026, 1, 8), 2500, core.EffectDecrease},
		{core.NewDate(2026, 1, 20), 5000, core.EffectIncrease},
	}
	for _, e := range entries {
		if err := l.Apply(ctx, account, core.Money{Paise: e.paise}, e.dir, e.day); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		day  core.Date
		want int64
	}{
		{core.NewDate(2026, 1, 4), 0},      // before any history
		{core.NewDate(2026, 1, 5), 10000},  // exact snapshot day
		{core.NewDate(2026, 1, 7), 10000},  // between snapshots: nearest preceding
		{core.NewDate(2026, 1, 8), 7500},
		{core.NewDate(2026, 1, 15), 7500},
		{core.NewDate(2026, 1, 20), 12500},
		{core.NewDate(2026, 3, 1), 12500},  // far future: latest snapshot
	}
	for _, tt := range tests {
		got, err := resolver.BalanceAsOf(ctx, account, tt.day)
		if err != nil {
			t.Fatal(err)
		}
		if got.Paise != tt.want {
			t.Errorf("BalanceAsOf(%s) = %d, want %d", tt.day, got.Paise, tt.want)
		}
	}
}

func TestBalanceAsOfUnknownAccountIsZero(t *testing.T) {
	store, _ := seedLedger(t)
	resolver := NewHistoryResolver(store, store)

	got, err := resolver.BalanceAsOf(context.Background(), testAccount(), core.NewDate(2026, 1, 5))
	if err != nil {
		t.Fatal(err)
	}
	if got.Paise != 0 {
		t.Errorf("got %d, want 0", got.Paise)
	}
}

func TestRangeBalancesScenario(t *testing.T) {
	// +100.00 on day 1, -30.00 on day 2: opening before day 1 is zero,
	// closing on day 2 is 70.00.
	store, l := seedLedger(t)
	resolver := NewHistoryResolver(store, store)
	ctx := context.Background()
	account := testAccount()
	day1 := core.NewDate(2026, 1, 10)
	day2 := core.NewDate(2026, 1, 11)

	if err := l.Apply(ctx, account, core.Money{Paise: 10000}, core.EffectIncrease, day1); err != nil {
		t.Fatal(err)
	}
	if err := l.Apply(ctx, account, core.Money{Paise: 3000}, core.EffectDecrease, day2); err != nil {
		t.Fatal(err)
	}

	report, err := resolver.RangeBalances(ctx, []core.AccountRef{account}, day1, day2)
	if err != nil {
		t.Fatal(err)
	}
	if len(report) != 1 {
		t.Fatalf("got %d rows, want 1", len(report))
	}
	if report[0].Opening.Paise != 0 {
		t.Errorf("opening = %d, want 0", report[0].Opening.Paise)
	}
	if report[0].Closing.Paise != 7000 {
		t.Errorf("closing = %d, want 7000", report[0].Closing.Paise)
	}
}

func TestRangeBalancesExplicitZeroClosingStaysZero(t *testing.T) {
	// A balance that genuinely returns to zero must not be confused with
	// missing data.
	store, l := seedLedger(t)
	resolver := NewHistoryResolver(store, store)
	ctx := context.Background()
	account := testAccount()

	if err := l.Apply(ctx, account, core.Money{Paise: 5000}, core.EffectIncrease, core.NewDate(2026, 1, 10)); err != nil {
		t.Fatal(err)
	}
	if err := l.Apply(ctx, account, core.Money{Paise: 5000}, core.EffectDecrease, core.NewDate(2026, 1, 12)); err != nil {
		t.Fatal(err)
	}

	report, err := resolver.RangeBalances(ctx, []core.AccountRef{account}, core.NewDate(2026, 1, 11), core.NewDate(2026, 1, 12))
	if err != nil {
		t.Fatal(err)
	}
	if report[0].Opening.Paise != 5000 {
		t.Errorf("opening = %d, want 5000", report[0].Opening.Paise)
	}
	if report[0].Closing.Paise != 0 {
		t.Errorf("closing = %d, want 0", report[0].Closing.Paise)
	}
}

func TestRangeBalancesInvertedRange(t *testing.T) {
	store, _ := seedLedger(t)
	resolver := NewHistoryResolver(store, store)

	_, err := resolver.RangeBalances(context.Background(), []core.AccountRef{testAccount()},
		core.NewDate(2026, 2, 1), core.NewDate(2026, 1, 1))
	if !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSocietyRangeBalancesUnknownSocietyIsEmpty(t *testing.T) {
	store, _ := seedLedger(t)
	resolver := NewHistoryResolver(store, store)

	report, err := resolver.SocietyRangeBalances(context.Background(), "nowhere", "",
		core.NewDate(2026, 1, 1), core.NewDate(2026, 1, 31))
	if err != nil {
		t.Fatal(err)
	}
	if len(report) != 0 {
		t.Errorf("got %d rows, want 0", len(report))
	}
}

func TestSocietyRangeBalancesFiltersByCategory(t *testing.T) {
	store, l := seedLedger(t)
	resolver := NewHistoryResolver(store, store)
	ctx := context.Background()

	bank := core.AccountRef{Society: "green-acres", Category: core.CategoryBank, Name: "hdfc-current"}
	income := core.AccountRef{Society: "green-acres", Category: core.CategoryIncome, Name: "maintenance"}
	day := core.NewDate(2026, 1, 10)
	for _, a := range []core.AccountRef{bank, income} {
		if err := l.Apply(ctx, a, core.Money{Paise: 1000}, core.EffectIncrease, day); err != nil {
			t.Fatal(err)
		}
	}

	all, err := resolver.SocietyRangeBalances(ctx, "green-acres", "", day, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("all categories: got %d rows, want 2", len(all))
	}

	banksOnly, err := resolver.SocietyRangeBalances(ctx, "green-acres", core.CategoryBank, day, day)
	if err != nil {
		t.Fatal(err)
	}
	if len(banksOnly) != 1 || banksOnly[0].Account != bank {
		t.Fatalf("bank filter: got %+v", banksOnly)
	}
}
