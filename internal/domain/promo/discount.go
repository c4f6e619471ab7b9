package promo

import (
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// Calculate computes the candidate discount for one eligible promotion.
// The amount is rounded half-up to two decimal places once, after the
// promotion's full discount is known. It is never negative and never exceeds
// the subtotal of the items it affects. A structurally broken rule yields a
// ConfigError; a rule that simply matches nothing yields a zero candidate.
func Calculate(p *Promotion, cart Cart) (Candidate, error) {
	var cand Candidate

	switch p.Type {
	case TypeCartDiscount:
		cand = calcCartLevel(p, cart)
	case TypeTimeBased, TypeCoupon:
		// The type only gates eligibility; the calculation delegates to the
		// underlying discount type against the promotion's targets.
		cand = calcDelegated(p, cart)
	case TypeItemDiscount:
		cand = calcItemDiscount(p, cart)
	case TypeComboDeal, TypeFixedPrice:
		cand = calcFixedPrice(p, cart)
	case TypeBOGO:
		cand = calcBOGO(p, cart)
	default:
		return Candidate{}, &ConfigError{
			PromotionID: p.ID,
			Detail:      errors.Errorf("unsupported promotion type %q", p.Type).Error(),
		}
	}

	cand.Promotion = p

	if p.MaxDiscountAmount.IsPositive() && cand.Amount.GreaterThan(p.MaxDiscountAmount) {
		cand.Amount = p.MaxDiscountAmount
		cand.CappedByMax = true
	}
	if subtotal := cart.Subtotal(); cand.Amount.GreaterThan(subtotal) {
		cand.Amount = subtotal
	}
	cand.Amount = floorAtZero(cand.Amount).Round(2)

	return cand, nil
}

// calcDelegated routes TIME_BASED and COUPON promotions to the calculation
// their discount type implies: item-scoped when targets exist, cart-scoped
// otherwise.
func calcDelegated(p *Promotion, cart Cart) Candidate {
	switch p.DiscountType {
	case DiscountFreeItem:
		return calcBOGO(p, cart)
	case DiscountFixedPrice:
		return calcFixedPrice(p, cart)
	default:
		if len(p.Items) > 0 {
			return calcItemDiscount(p, cart)
		}
		return calcCartLevel(p, cart)
	}
}

func calcCartLevel(p *Promotion, cart Cart) Candidate {
	subtotal := cart.Subtotal()

	switch p.DiscountType {
	case DiscountPercentage:
		return Candidate{Amount: subtotal.Mul(p.Value).Div(hundred)}
	case DiscountFixedAmount:
		return Candidate{Amount: decimal.Min(p.Value, subtotal)}
	default:
		return Candidate{Amount: zero}
	}
}

func calcItemDiscount(p *Promotion, cart Cart) Candidate {
	targets := p.Items
	if len(targets) == 0 {
		// No scoping rows means the whole cart.
		targets = []PromotionItem{{}}
	}

	total := zero
	var affected []AffectedItem
	for _, pi := range targets {
		matched := ResolveTarget(pi.Target(), cart.Items)
		remaining := pi.MaxQuantity
		for _, li := range matched {
			units := li.Quantity
			if pi.MaxQuantity > 0 {
				if remaining <= 0 {
					break
				}
				if units > remaining {
					units = remaining
				}
				remaining -= units
			}

			perUnit := perUnitReduction(p, pi, li.UnitPrice)
			if !perUnit.IsPositive() {
				continue
			}
			total = total.Add(perUnit.Mul(decimal.NewFromInt(int64(units))))
			affected = append(affected, AffectedItem{
				MenuItemID:      li.MenuItemID,
				Quantity:        units,
				OriginalPrice:   li.UnitPrice,
				DiscountedPrice: li.UnitPrice.Sub(perUnit),
			})
		}
	}

	return Candidate{Amount: total, Affected: affected}
}

// perUnitReduction returns how much a single unit of the given price is
// reduced, clamped so a unit never goes below zero.
func perUnitReduction(p *Promotion, pi PromotionItem, price decimal.Decimal) decimal.Decimal {
	switch p.DiscountType {
	case DiscountPercentage:
		return price.Mul(p.Value).Div(hundred)
	case DiscountFixedAmount:
		return decimal.Min(p.Value, price)
	case DiscountFixedPrice:
		if pi.DiscountedPrice.IsPositive() {
			return floorAtZero(price.Sub(pi.DiscountedPrice))
		}
		return zero
	default:
		return zero
	}
}

// calcFixedPrice handles combos and per-item fixed-price overrides. Every
// required promotion item must be present in its required quantity; an
// unsatisfied required item means no discount. With FixedPriceAmount set the
// discount is the matched originals minus the combo price; otherwise each
// matched unit is repriced to its item's DiscountedPrice.
func calcFixedPrice(p *Promotion, cart Cart) Candidate {
	if len(p.Items) == 0 {
		return Candidate{Amount: zero}
	}

	type take struct {
		item  PromotionItem
		line  LineItem
		units int
	}

	sumOriginal := zero
	var takes []take
	for _, pi := range p.Items {
		req := pi.RequiredQuantity
		if req <= 0 {
			req = 1
		}
		matched := ResolveTarget(pi.Target(), cart.Items)

		got := 0
		for _, li := range matched {
			if got >= req {
				break
			}
			units := li.Quantity
			if units > req-got {
				units = req - got
			}
			takes = append(takes, take{item: pi, line: li, units: units})
			sumOriginal = sumOriginal.Add(li.UnitPrice.Mul(decimal.NewFromInt(int64(units))))
			got += units
		}
		if got < req {
			if pi.IsRequired {
				return Candidate{Amount: zero}
			}
			continue
		}
	}
	if len(takes) == 0 || !sumOriginal.IsPositive() {
		return Candidate{Amount: zero}
	}

	if p.FixedPriceAmount.IsPositive() {
		amount := floorAtZero(sumOriginal.Sub(p.FixedPriceAmount))
		// Each unit pays its proportional share of the combo price.
		ratio := p.FixedPriceAmount.Div(sumOriginal)
		affected := make([]AffectedItem, len(takes))
		for i, t := range takes {
			affected[i] = AffectedItem{
				MenuItemID:      t.line.MenuItemID,
				Quantity:        t.units,
				OriginalPrice:   t.line.UnitPrice,
				DiscountedPrice: t.line.UnitPrice.Mul(ratio).Round(2),
			}
		}
		return Candidate{Amount: amount, Affected: affected}
	}

	// Per-item overrides: reprice each taken unit to DiscountedPrice.
	total := zero
	var affected []AffectedItem
	for _, t := range takes {
		if !t.item.DiscountedPrice.IsPositive() {
			continue
		}
		perUnit := floorAtZero(t.line.UnitPrice.Sub(t.item.DiscountedPrice))
		if !perUnit.IsPositive() {
			continue
		}
		total = total.Add(perUnit.Mul(decimal.NewFromInt(int64(t.units))))
		affected = append(affected, AffectedItem{
			MenuItemID:      t.line.MenuItemID,
			Quantity:        t.units,
			OriginalPrice:   t.line.UnitPrice,
			DiscountedPrice: t.item.DiscountedPrice,
		})
	}
	return Candidate{Amount: total, Affected: affected}
}

// unit is one physical item unit considered for a free grant.
type unit struct {
	menuItemID string
	price      decimal.Decimal
}

// calcBOGO grants free units once the buy side quantity is met. The cheapest
// matching units in the get set become free first, so the merchant always
// gives away the least value consistent with the rule.
func calcBOGO(p *Promotion, cart Cart) Candidate {
	if len(p.Items) == 0 {
		return Candidate{Amount: zero}
	}

	buySide := filterItems(p.Items, func(pi PromotionItem) bool { return pi.RequiredQuantity > 0 })
	if len(buySide) == 0 {
		buySide = p.Items
	}
	getSide := filterItems(p.Items, func(pi PromotionItem) bool { return pi.FreeQuantity > 0 })
	if len(getSide) == 0 {
		getSide = buySide
	}

	required := buySide[0].RequiredQuantity
	if required <= 0 {
		required = 1
	}
	freePerBuy := getSide[0].FreeQuantity
	if freePerBuy <= 0 {
		freePerBuy = 1
	}

	buyQty := 0
	buyIDs := make(map[string]struct{})
	for _, pi := range buySide {
		for _, li := range ResolveTarget(pi.Target(), cart.Items) {
			buyQty += li.Quantity
			buyIDs[li.MenuItemID] = struct{}{}
		}
	}
	if buyQty < required {
		return Candidate{Amount: zero}
	}

	var units []unit
	overlap := false
	for _, pi := range getSide {
		contributed := 0
		for _, li := range ResolveTarget(pi.Target(), cart.Items) {
			if _, ok := buyIDs[li.MenuItemID]; ok {
				overlap = true
			}
			for range li.Quantity {
				if pi.MaxQuantity > 0 && contributed >= pi.MaxQuantity {
					break
				}
				units = append(units, unit{menuItemID: li.MenuItemID, price: li.UnitPrice})
				contributed++
			}
		}
	}
	if len(units) == 0 {
		return Candidate{Amount: zero}
	}

	// When buy and get sides draw from the same items, the units satisfying
	// the buy requirement stay paid.
	available := len(units)
	if overlap {
		available -= required
		if available < 0 {
			available = 0
		}
	}

	free := buyQty / required * freePerBuy
	if free > available {
		free = available
	}
	if free <= 0 {
		return Candidate{Amount: zero}
	}

	sort.SliceStable(units, func(i, j int) bool { return units[i].price.LessThan(units[j].price) })

	total := zero
	grants := make(map[string]*AffectedItem)
	var order []string
	for _, u := range units[:free] {
		total = total.Add(u.price)
		// Same item at different unit prices stays in separate grant rows.
		key := u.menuItemID + "@" + u.price.String()
		if g, ok := grants[key]; ok {
			g.Quantity++
			continue
		}
		grants[key] = &AffectedItem{
			MenuItemID:      u.menuItemID,
			Quantity:        1,
			OriginalPrice:   u.price,
			DiscountedPrice: zero,
		}
		order = append(order, key)
	}

	affected := make([]AffectedItem, 0, len(order))
	for _, key := range order {
		affected = append(affected, *grants[key])
	}
	return Candidate{Amount: total, Affected: affected}
}

func filterItems(items []PromotionItem, keep func(PromotionItem) bool) []PromotionItem {
	var out []PromotionItem
	for _, pi := range items {
		if keep(pi) {
			out = append(out, pi)
		}
	}
	return out
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
