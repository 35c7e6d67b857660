package core

import "log/slog"

// Classify maps an account category and entry side to the direction the
// entry moves the account balance. The table is fixed, not configurable:
//
//	bank, cash          credit raises, debit lowers (cash-book convention)
//	asset, expenditure  credit lowers, debit raises
//	liability, income   credit raises, debit lowers
//
// An unrecognized category falls back to Increase on either side. The
// fallback is deliberate and non-fatal: a category added without extending
// this table must not block posting, but the misclassification risk is real,
// so the path is logged at warning level.
func Classify(category AccountCategory, side Side) Effect {
	switch category {
	case CategoryBank, CategoryCash:
		if side == SideCredit {
			return EffectIncrease
		}
		return EffectDecrease
	case CategoryAsset, CategoryExpenditure:
		if side == SideCredit {
			return EffectDecrease
		}
		return EffectIncrease
	case CategoryLiability, CategoryIncome:
		if side == SideCredit {
			return EffectIncrease
		}
		return EffectDecrease
	default:
		slog.Warn("Unrecognized account category, defaulting to increase",
			"category", string(category),
			"side", string(side))
		return EffectIncrease
	}
}
