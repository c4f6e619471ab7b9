package promo

import (
	"fmt"
)

// ConfigError marks a structurally invalid promotion definition. Such
// promotions are excluded from evaluation and surfaced through the result's
// diagnostics; they are a catalog-authoring fault, not an evaluation outcome.
type ConfigError struct {
	PromotionID string
	Detail      string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("promotion %s misconfigured: %s", e.PromotionID, e.Detail)
}

// ValidateConfig checks a promotion definition for the malformed shapes that
// make evaluation meaningless. It is also intended for the catalog owner at
// creation time, so every rule a tenant can get wrong is checked here rather
// than tolerated downstream.
func ValidateConfig(p *Promotion) error {
	fail := func(format string, args ...any) error {
		return &ConfigError{PromotionID: p.ID, Detail: fmt.Sprintf(format, args...)}
	}

	switch p.Type {
	case TypeItemDiscount, TypeComboDeal, TypeCartDiscount, TypeBOGO,
		TypeFixedPrice, TypeTimeBased, TypeCoupon:
	default:
		return fail("unknown type %q", p.Type)
	}
	switch p.DiscountType {
	case DiscountPercentage, DiscountFixedAmount, DiscountFreeItem, DiscountFixedPrice:
	default:
		return fail("unknown discount type %q", p.DiscountType)
	}

	switch p.DiscountType {
	case DiscountPercentage:
		if !p.Value.IsPositive() || p.Value.GreaterThan(hundred) {
			return fail("percentage value %s outside (0, 100]", p.Value)
		}
	case DiscountFixedAmount:
		if !p.Value.IsPositive() {
			return fail("fixed amount value %s must be positive", p.Value)
		}
	}

	if p.Type == TypeBOGO && len(p.Items) == 0 {
		return fail("BOGO promotion has no target items")
	}
	if p.Type == TypeFixedPrice || p.Type == TypeComboDeal {
		if len(p.Items) == 0 {
			return fail("%s promotion has no target items", p.Type)
		}
		if !p.FixedPriceAmount.IsPositive() && !anyDiscountedPrice(p.Items) {
			return fail("%s promotion has neither a fixed price nor item price overrides", p.Type)
		}
	}

	if p.RequiresCode && p.PromoCode == "" {
		return fail("requires a code but none is set")
	}
	if !p.AutoApply && p.PromoCode == "" {
		return fail("not auto-applied and has no code, so it can never be selected")
	}

	if (p.TimeRangeStart == "") != (p.TimeRangeEnd == "") {
		return fail("daily time window must set both bounds")
	}
	if p.TimeRangeStart != "" {
		start, err := parseClock(p.TimeRangeStart)
		if err != nil {
			return fail("invalid time range start %q", p.TimeRangeStart)
		}
		end, err := parseClock(p.TimeRangeEnd)
		if err != nil {
			return fail("invalid time range end %q", p.TimeRangeEnd)
		}
		// A window crossing midnight would silently never match; reject it
		// at authoring time instead.
		if end <= start {
			return fail("daily time window %s-%s ends before it starts", p.TimeRangeStart, p.TimeRangeEnd)
		}
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fail("end date precedes start date")
	}

	if p.MinCartValue.IsNegative() {
		return fail("negative minimum cart value")
	}
	if p.MaxDiscountAmount.IsNegative() {
		return fail("negative maximum discount amount")
	}
	if p.MinItems < 0 || p.MaxItems < 0 || p.UsageLimit < 0 || p.PerCustomerLimit < 0 {
		return fail("negative limit")
	}
	if p.MaxItems > 0 && p.MinItems > p.MaxItems {
		return fail("minimum items %d exceeds maximum items %d", p.MinItems, p.MaxItems)
	}

	return nil
}

func anyDiscountedPrice(items []PromotionItem) bool {
	for _, pi := range items {
		if pi.DiscountedPrice.IsPositive() {
			return true
		}
	}
	return false
}
