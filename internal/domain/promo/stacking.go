package promo

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ResolveConflicts picks the final applied subset from the eligible
// candidates. Candidates are ranked by priority descending with promotion ID
// ascending as the tie-break, so evaluation order is deterministic. The
// winner set is either a single non-combinable promotion or the maximal
// prefix of mutually combinable ones. The running total never exceeds the
// cart subtotal: a candidate that would cross it is scaled down to the
// remaining headroom and marked capped.
func ResolveConflicts(candidates []Candidate, subtotal decimal.Decimal) ([]Candidate, decimal.Decimal) {
	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi, pj := ranked[i].Promotion, ranked[j].Promotion
		if pi.Priority != pj.Priority {
			return pi.Priority > pj.Priority
		}
		return pi.ID < pj.ID
	})

	var applied []Candidate
	total := decimal.Zero
	for _, cand := range ranked {
		if len(applied) > 0 {
			// Once a non-combinable promotion wins, nothing else may join;
			// and a non-combinable candidate never joins an existing set.
			if !applied[0].Promotion.CanCombine || !cand.Promotion.CanCombine {
				continue
			}
		}

		headroom := subtotal.Sub(total)
		if !headroom.IsPositive() {
			break
		}
		if cand.Amount.GreaterThan(headroom) {
			cand.Amount = headroom
			cand.CappedByMax = true
		}

		applied = append(applied, cand)
		total = total.Add(cand.Amount)

		if !cand.Promotion.CanCombine {
			break
		}
	}

	return applied, total
}
