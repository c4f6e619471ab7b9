package promo

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Skip records one promotion that was considered but not applied.
type Skip struct {
	PromotionID string
	Reason      SkipReason
}

// Issue records one catalog entry that could not be evaluated at all.
type Issue struct {
	PromotionID string
	Err         error
}

// Result is the outcome of one evaluation: the applied promotions with their
// discounts, the totals, and the diagnostics describing everything that was
// not applied and why.
type Result struct {
	Applied       []Candidate
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	FinalAmount   decimal.Decimal
	Skipped       []Skip
	Invalid       []Issue
}

// Engine evaluates a promotion catalog against cart snapshots. It is
// stateless and safe for concurrent use; the logger is only used for skip
// and misconfiguration diagnostics.
type Engine struct {
	lg *zap.Logger
}

// NewEngine returns an Engine logging diagnostics to lg. A nil logger
// disables logging.
func NewEngine(lg *zap.Logger) *Engine {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Engine{lg: lg}
}

// Evaluate runs the full pipeline: structural validation, eligibility
// filtering, discount calculation, and conflict resolution. Catalog entries
// and the cart are never mutated. Malformed catalog entries are excluded and
// reported in Result.Invalid; ineligible or no-effect promotions land in
// Result.Skipped with a reason.
func (e *Engine) Evaluate(catalog []*Promotion, cart Cart, ectx EvalContext) Result {
	subtotal := cart.Subtotal()
	res := Result{
		Subtotal:    subtotal,
		FinalAmount: subtotal,
	}

	var candidates []Candidate
	for _, p := range catalog {
		if err := ValidateConfig(p); err != nil {
			res.Invalid = append(res.Invalid, Issue{PromotionID: p.ID, Err: err})
			e.lg.Warn("excluding misconfigured promotion",
				zap.String("promotion_id", p.ID),
				zap.Error(err),
			)
			continue
		}

		if reason, ok := Eligibility(p, cart, ectx); !ok {
			res.Skipped = append(res.Skipped, Skip{PromotionID: p.ID, Reason: reason})
			e.lg.Debug("promotion not eligible",
				zap.String("promotion_id", p.ID),
				zap.String("reason", string(reason)),
			)
			continue
		}

		cand, err := Calculate(p, cart)
		if err != nil {
			res.Invalid = append(res.Invalid, Issue{PromotionID: p.ID, Err: err})
			continue
		}
		if !cand.Amount.IsPositive() {
			res.Skipped = append(res.Skipped, Skip{PromotionID: p.ID, Reason: ReasonNoMatchingItems})
			continue
		}
		candidates = append(candidates, cand)
	}

	applied, total := ResolveConflicts(candidates, subtotal)
	res.Applied = applied
	res.TotalDiscount = total.Round(2)
	res.FinalAmount = subtotal.Sub(res.TotalDiscount)
	if res.FinalAmount.IsNegative() {
		res.FinalAmount = decimal.Zero
	}
	res.FinalAmount = res.FinalAmount.Round(2)

	return res
}
