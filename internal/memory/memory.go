// Package memory provides an in-memory ledger store. It backs tests and the
// "memory" data backend; semantics match the SQLite repository, including
// additive same-day snapshot merges and the last-updated-day watermark.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"khata/internal/core"
)

type accountKey struct {
	society  string
	category core.AccountCategory
	name     string
}

func keyOf(r core.AccountRef) accountKey {
	return accountKey{society: r.Society, category: r.Category, name: r.Name}
}

func (k accountKey) ref() core.AccountRef {
	return core.AccountRef{Society: k.society, Category: k.category, Name: k.name}
}

type aggregate struct {
	totalPaise     int64
	lastUpdatedDay core.Date
}

type Store struct {
	mu         sync.Mutex
	snapshots  map[accountKey]map[core.Date]int64
	aggregates map[accountKey]*aggregate
	bills      map[string]core.Bill
}

func New() *Store {
	return &Store{
		snapshots:  make(map[accountKey]map[core.Date]int64),
		aggregates: make(map[accountKey]*aggregate),
		bills:      make(map[string]core.Bill),
	}
}

// ApplyDelta merges the delta into the (account, day) snapshot and the
// running aggregate under one lock, so the pair can never diverge.
func (s *Store) ApplyDelta(_ context.Context, account core.AccountRef, amount core.Money, dir core.Effect, day core.Date) error {
	delta := dir.Signed(amount)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(account)
	days, ok := s.snapshots[key]
	if !ok {
		days = make(map[core.Date]int64)
		s.snapshots[key] = days
	}
	days[day] += delta

	agg, ok := s.aggregates[key]
	if !ok {
		agg = &aggregate{}
		s.aggregates[key] = agg
	}
	agg.totalPaise += delta
	if agg.lastUpdatedDay == "" || day.After(agg.lastUpdatedDay) {
		agg.lastUpdatedDay = day
	}

	return nil
}

// BalanceAsOf sums the daily changes at or before day.
func (s *Store) BalanceAsOf(_ context.Context, account core.AccountRef, day core.Date) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(keyOf(account), func(d core.Date) bool { return !d.After(day) }), nil
}

// BalanceBefore sums the daily changes strictly before day.
func (s *Store) BalanceBefore(_ context.Context, account core.AccountRef, day core.Date) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sumLocked(keyOf(account), func(d core.Date) bool { return d.Before(day) }), nil
}

func (s *Store) sumLocked(key accountKey, include func(core.Date) bool) core.Money {
	var total int64
	for d, change := range s.snapshots[key] {
		if include(d) {
			total += change
		}
	}
	return core.Money{Paise: total}
}

// ListAccounts returns the society's known accounts sorted by category then
// name. An empty category matches all categories.
func (s *Store) ListAccounts(_ context.Context, society string, category core.AccountCategory) ([]core.AccountRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []core.AccountRef
	for key := range s.aggregates {
		if key.society != society {
			continue
		}
		if category != "" && key.category != category {
			continue
		}
		refs = append(refs, key.ref())
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Category != refs[j].Category {
			return refs[i].Category < refs[j].Category
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

// Aggregate returns the running aggregate; an account with no history yields
// a zero aggregate.
func (s *Store) Aggregate(_ context.Context, account core.AccountRef) (core.AccountAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agg, ok := s.aggregates[keyOf(account)]
	if !ok {
		return core.AccountAggregate{Account: account}, nil
	}
	return core.AccountAggregate{
		Account:        account,
		Total:          core.Money{Paise: agg.totalPaise},
		LastUpdatedDay: agg.lastUpdatedDay,
	}, nil
}

// ListDailySnapshots returns the per-day changes within [from, to] ordered by
// day.
func (s *Store) ListDailySnapshots(_ context.Context, account core.AccountRef, from, to core.Date) ([]core.DailySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snaps []core.DailySnapshot
	for d, change := range s.snapshots[keyOf(account)] {
		if d.Before(from) || d.After(to) {
			continue
		}
		snaps = append(snaps, core.DailySnapshot{
			Account: account,
			Day:     d,
			Change:  core.Money{Paise: change},
		})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Day < snaps[j].Day })
	return snaps, nil
}

func (s *Store) CreateBill(_ context.Context, bill core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bills[bill.ID]; exists {
		return fmt.Errorf("bill %s already exists", bill.ID)
	}
	s.bills[bill.ID] = bill
	return nil
}

func (s *Store) GetBill(_ context.Context, id string) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, ok := s.bills[id]
	if !ok {
		return core.Bill{}, fmt.Errorf("bill %s not found", id)
	}
	return bill, nil
}

func (s *Store) ListBills(_ context.Context, society string) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bills []core.Bill
	for _, b := range s.bills {
		if b.Account.Society == society {
			bills = append(bills, b)
		}
	}
	sortBills(bills)
	return bills, nil
}

func (s *Store) ListOpenBills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bills []core.Bill
	for _, b := range s.bills {
		if !b.Settled {
			bills = append(bills, b)
		}
	}
	sortBills(bills)
	return bills, nil
}

func (s *Store) SetBillPenaltiesApplied(_ context.Context, id string, applied int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, ok := s.bills[id]
	if !ok {
		return fmt.Errorf("bill %s not found", id)
	}
	bill.PenaltiesApplied = applied
	s.bills[id] = bill
	return nil
}

func (s *Store) SettleBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, ok := s.bills[id]
	if !ok {
		return fmt.Errorf("bill %s not found", id)
	}
	bill.Settled = true
	s.bills[id] = bill
	return nil
}

func (s *Store) Close() error { return nil }

func sortBills(bills []core.Bill) {
	sort.Slice(bills, func(i, j int) bool {
		if bills[i].Policy.DueDate != bills[j].Policy.DueDate {
			return bills[i].Policy.DueDate < bills[j].Policy.DueDate
		}
		return bills[i].ID < bills[j].ID
	})
}
