package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"khata/internal/core"
)

// rangeReadConcurrency bounds the per-account reads of a range report.
const rangeReadConcurrency = 8

// HistoryResolver reconstructs opening and closing balances from the per-day
// snapshot trail. It is a pure read path: no locks, safe to run concurrently
// with writers. Reads are coherent per account, not across accounts.
type HistoryResolver struct {
	balances BalanceReader
	accounts AccountLister
}

func NewHistoryResolver(balances BalanceReader, accounts AccountLister) *HistoryResolver {
	return &HistoryResolver{
		balances: balances,
		accounts: accounts,
	}
}

// BalanceAsOf returns the account balance as of the end of day: the
// cumulative sum of all daily changes at or before it. A day between two
// snapshots resolves to the nearest preceding snapshot; an account with no
// history resolves to zero.
func (r *HistoryResolver) BalanceAsOf(ctx context.Context, account core.AccountRef, day core.Date) (core.Money, error) {
	if err := account.Validate(); err != nil {
		return core.Money{}, err
	}
	if err := day.Validate(); err != nil {
		return core.Money{}, err
	}

	balance, err := r.balances.BalanceAsOf(ctx, account, day)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: as of %s for %s/%s: %w", ErrQueryFailed, day, account.Society, account.Name, err)
	}
	return balance, nil
}

// RangeBalances returns, for each account, the balance strictly before from
// (opening) and the balance at or before to (closing). Accounts are read
// concurrently; result order matches the input order.
func (r *HistoryResolver) RangeBalances(ctx context.Context, accounts []core.AccountRef, from, to core.Date) ([]core.AccountBalanceRange, error) {
	if err := from.Validate(); err != nil {
		return nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range %s..%s is inverted", core.ErrInvalidDate, from, to)
	}

	results := make([]core.AccountBalanceRange, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rangeReadConcurrency)

	for i, account := range accounts {
		g.Go(func() error {
			opening, err := r.balances.BalanceBefore(gctx, account, from)
			if err != nil {
				return fmt.Errorf("%w: opening before %s for %s/%s: %w", ErrQueryFailed, from, account.Society, account.Name, err)
			}
			closing, err := r.balances.BalanceAsOf(gctx, account, to)
			if err != nil {
				return fmt.Errorf("%w: closing as of %s for %s/%s: %w", ErrQueryFailed, to, account.Society, account.Name, err)
			}
			results[i] = core.AccountBalanceRange{
				Account: account,
				Opening: opening,
				Closing: closing,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// SocietyRangeBalances resolves the society's accounts (optionally one
// category) and reports their range balances. An unknown society yields an
// empty report, not an error, so reporting screens stay resilient.
func (r *HistoryResolver) SocietyRangeBalances(ctx context.Context, society string, category core.AccountCategory, from, to core.Date) ([]core.AccountBalanceRange, error) {
	accounts, err := r.accounts.ListAccounts(ctx, society, category)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts for %s: %w", ErrQueryFailed, society, err)
	}
	if len(accounts) == 0 {
		return []core.AccountBalanceRange{}, nil
	}
	return r.RangeBalances(ctx, accounts, from, to)
}
