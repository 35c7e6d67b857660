package core

import (
	"errors"
	"strings"
)

const (
	// CategoryBank and CategoryCash follow the cash-book convention: money
	// received (credit) raises the balance, money paid out (debit) lowers it.
	CategoryBank AccountCategory = "bank"
	CategoryCash AccountCategory = "cash"

	CategoryAsset       AccountCategory = "asset"
	CategoryLiability   AccountCategory = "liability"
	CategoryIncome      AccountCategory = "income"
	CategoryExpenditure AccountCategory = "expenditure"
)

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

const (
	EffectIncrease Effect = "increase"
	EffectDecrease Effect = "decrease"
)

type (
	// AccountCategory is the accounting classification of an account. The
	// category decides whether a credit or debit entry raises or lowers the
	// running balance (see Classify).
	AccountCategory string

	// Side is the accounting side of an entry.
	Side string

	// Effect is the direction an entry moves an account balance.
	Effect string

	// AccountRef addresses one account of one society. Accounts are unique
	// per (society, category, name); there is no ambient tenant state, the
	// society travels with every reference.
	AccountRef struct {
		Society  string
		Category AccountCategory
		Name     string
	}

	// Entry is a signed amount applied to one account on one calendar day.
	Entry struct {
		Account AccountRef
		Amount  Money
		Side    Side
		Day     Date
	}

	// DailySnapshot is the net change applied to an account on one day.
	// Entries landing on the same day accumulate into the one snapshot.
	DailySnapshot struct {
		Account AccountRef
		Day     Date
		Change  Money
	}

	// AccountAggregate carries the running total of an account and the
	// latest day for which an entry has been applied. LastUpdatedDay is a
	// watermark, not a timestamp: it only ever moves forward.
	AccountAggregate struct {
		Account        AccountRef
		Total          Money
		LastUpdatedDay Date
	}

	// AccountBalanceRange is one row of a range-balance report.
	AccountBalanceRange struct {
		Account AccountRef
		Opening Money
		Closing Money
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidSide      = errors.New("invalid entry side")
	ErrEmptySociety     = errors.New("empty society")
	ErrEmptyAccount     = errors.New("empty account name")
	ErrEmptyCategory    = errors.New("empty account category")
	ErrEmptyDescription = errors.New("empty description")
)

// Known reports whether the category is one of the fixed enumeration.
func (c AccountCategory) Known() bool {
	switch c {
	case CategoryBank, CategoryCash, CategoryAsset, CategoryLiability, CategoryIncome, CategoryExpenditure:
		return true
	}
	return false
}

func (s Side) Validate() error {
	if s != SideDebit && s != SideCredit {
		return ErrInvalidSide
	}
	return nil
}

func (r AccountRef) Validate() error {
	if strings.TrimSpace(r.Society) == "" {
		return ErrEmptySociety
	}
	if strings.TrimSpace(string(r.Category)) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyAccount
	}
	return nil
}

func (e Entry) Validate() error {
	if err := e.Account.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Side.Validate(); err != nil {
		return err
	}
	return e.Day.Validate()
}

// Signed returns the amount with the sign this effect applies to a balance.
func (e Effect) Signed(m Money) int64 {
	if e == EffectDecrease {
		return -m.Paise
	}
	return m.Paise
}
