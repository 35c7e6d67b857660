package core

import (
	"errors"
	"fmt"
)

const (
	OccurrenceOneTime   PenaltyOccurrence = "one_time"
	OccurrenceRecurring PenaltyOccurrence = "recurring"
)

const (
	PenaltyFixed      PenaltyType = "fixed"
	PenaltyPercentage PenaltyType = "percentage"
)

type (
	// PenaltyOccurrence says whether a penalty applies once or repeats.
	PenaltyOccurrence string

	// PenaltyType says how the penalty value is read: a fixed amount or a
	// percentage of the overdue amount.
	PenaltyType string

	// PenaltyPolicy describes how an overdue bill accrues penalties.
	// Value is paise for a fixed penalty and basis points for a percentage
	// one ("2.5%" is 250). Malformed policies are rejected at construction;
	// a validated policy computes without error.
	PenaltyPolicy struct {
		DueDate       Date
		Occurrence    PenaltyOccurrence
		FrequencyDays int
		Type          PenaltyType
		Value         int64
	}
)

var ErrInvalidPolicy = errors.New("invalid penalty policy")

// NewPenaltyPolicy builds and validates a penalty policy.
func NewPenaltyPolicy(dueDate Date, occurrence PenaltyOccurrence, frequencyDays int, penaltyType PenaltyType, value int64) (PenaltyPolicy, error) {
	p := PenaltyPolicy{
		DueDate:       dueDate,
		Occurrence:    occurrence,
		FrequencyDays: frequencyDays,
		Type:          penaltyType,
		Value:         value,
	}
	if err := p.Validate(); err != nil {
		return PenaltyPolicy{}, err
	}
	return p, nil
}

func (p PenaltyPolicy) Validate() error {
	if err := p.DueDate.Validate(); err != nil {
		return fmt.Errorf("%w: due date: %v", ErrInvalidPolicy, err)
	}
	switch p.Occurrence {
	case OccurrenceOneTime:
	case OccurrenceRecurring:
		if p.FrequencyDays < 1 {
			return fmt.Errorf("%w: recurring penalty requires a frequency in days", ErrInvalidPolicy)
		}
	default:
		return fmt.Errorf("%w: unknown occurrence %q", ErrInvalidPolicy, p.Occurrence)
	}
	switch p.Type {
	case PenaltyFixed, PenaltyPercentage:
	default:
		return fmt.Errorf("%w: unknown penalty type %q", ErrInvalidPolicy, p.Type)
	}
	if p.Value <= 0 {
		return fmt.Errorf("%w: penalty value must be positive", ErrInvalidPolicy)
	}
	return nil
}

// Penalty computes the penalty accrued on amount as of now. Pure: no I/O and
// no hidden state.
//
// Nothing accrues on or before the due date. Past it, the base penalty is the
// fixed value or the percentage of amount; a recurring policy multiplies the
// base by the number of whole frequency periods elapsed, so an overdue span
// shorter than one period still yields zero.
func (p PenaltyPolicy) Penalty(amount Money, now Date) Money {
	if !now.After(p.DueDate) {
		return Money{}
	}
	overdueDays := DaysBetween(p.DueDate, now)

	var base int64
	switch p.Type {
	case PenaltyFixed:
		base = p.Value
	case PenaltyPercentage:
		base = amount.Paise * p.Value / 10000
	}

	if p.Occurrence == OccurrenceRecurring {
		timesApplied := int64(overdueDays / p.FrequencyDays)
		return Money{Paise: base * timesApplied}
	}
	return Money{Paise: base}
}
