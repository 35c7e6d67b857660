package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"khata/internal/core"
)

// PenaltyProcessor posts overdue-bill penalties to the ledger. Each run
// computes how many penalty units every open bill has accrued as of now and
// posts only the units not yet applied, so repeated runs on the same day are
// no-ops.
type PenaltyProcessor struct {
	bills  BillStore
	ledger *Ledger
}

func NewPenaltyProcessor(bills BillStore, ledger *Ledger) *PenaltyProcessor {
	return &PenaltyProcessor{
		bills:  bills,
		ledger: ledger,
	}
}

// ProcessOverdueBills scans open bills and posts pending penalties dated now.
// Returns how many bills had a penalty posted. A bill whose posting fails is
// left unmarked so the next run retries it; the failure is reported, never
// ignored.
func (p *PenaltyProcessor) ProcessOverdueBills(ctx context.Context, now core.Date) (int, error) {
	if p.bills == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}
	if err := now.Validate(); err != nil {
		return 0, err
	}

	bills, err := p.bills.ListOpenBills(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open bills: %w", err)
	}

	slog.InfoContext(ctx, "Processing overdue bills",
		"total_open", len(bills),
		"processing_date", string(now))

	processed := 0
	failed := 0

	for _, bill := range bills {
		unitsDue := bill.PenaltyUnitsDue(now)
		pending := unitsDue - bill.PenaltiesApplied
		if pending <= 0 {
			continue
		}

		unit := bill.PenaltyUnit()
		amount := core.Money{Paise: unit.Paise * pending}
		if amount.Paise <= 0 {
			continue
		}

		// Penalties post as credit-side entries like any other, so they
		// reach the audit register too.
		if _, err := p.ledger.Record(ctx, core.Entry{
			Account: bill.Account,
			Amount:  amount,
			Side:    core.SideCredit,
			Day:     now,
		}); err != nil {
			slog.ErrorContext(ctx, "Failed to post penalty",
				"bill_id", bill.ID,
				"society", bill.Account.Society,
				"account", bill.Account.Name,
				"amount_paise", amount.Paise,
				"error", err)
			failed++
			continue
		}

		if err := p.bills.SetBillPenaltiesApplied(ctx, bill.ID, unitsDue); err != nil {
			// The posting committed but the counter did not; the next
			// run may re-post these units. Surfaced as a failure so the
			// operator reconciles instead of trusting the run.
			slog.ErrorContext(ctx, "Failed to record applied penalties",
				"bill_id", bill.ID,
				"applied", unitsDue,
				"error", err)
			failed++
			continue
		}

		processed++
		slog.InfoContext(ctx, "Posted overdue penalty",
			"bill_id", bill.ID,
			"description", bill.Description,
			"units", pending,
			"amount_paise", amount.Paise)
	}

	if failed > 0 {
		return processed, fmt.Errorf("%d overdue bills failed to post", failed)
	}
	return processed, nil
}
