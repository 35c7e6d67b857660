package core

import "strings"

// Bill is a receivable raised against a society account, carrying the
// penalty policy applied once it runs overdue. PenaltiesApplied records how
// many penalty units have already been posted to the ledger so overdue
// processing stays idempotent across runs.
type Bill struct {
	ID               string
	Account          AccountRef
	Description      string
	Amount           Money
	Policy           PenaltyPolicy
	PenaltiesApplied int64
	Settled          bool
}

func (b Bill) Validate() error {
	if err := b.Account.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Description) == "" {
		return ErrEmptyDescription
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return b.Policy.Validate()
}

// PenaltyUnitsDue returns how many penalty units the bill has accrued as of
// now: whole frequency periods for a recurring policy, at most one for a
// one-time policy, zero when not yet overdue.
func (b Bill) PenaltyUnitsDue(now Date) int64 {
	if !now.After(b.Policy.DueDate) {
		return 0
	}
	if b.Policy.Occurrence == OccurrenceRecurring {
		return int64(DaysBetween(b.Policy.DueDate, now) / b.Policy.FrequencyDays)
	}
	return 1
}

// PenaltyUnit is the amount one penalty unit posts to the ledger.
func (b Bill) PenaltyUnit() Money {
	switch b.Policy.Type {
	case PenaltyPercentage:
		return Money{Paise: b.Amount.Paise * b.Policy.Value / 10000}
	default:
		return Money{Paise: b.Policy.Value}
	}
}
