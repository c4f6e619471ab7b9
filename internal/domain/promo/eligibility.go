package promo

import (
	"strconv"
	"strings"
	"time"
)

// SkipReason explains why a promotion was not considered for an order.
// Skips are normal evaluation outcomes, not errors.
type SkipReason string

const (
	ReasonInactive             SkipReason = "INACTIVE"
	ReasonOutOfDateRange       SkipReason = "OUT_OF_DATE_RANGE"
	ReasonWrongDay             SkipReason = "WRONG_DAY"
	ReasonOutsideTimeWindow    SkipReason = "OUTSIDE_TIME_WINDOW"
	ReasonBelowMinCartValue    SkipReason = "BELOW_MIN_CART_VALUE"
	ReasonBelowMinItems        SkipReason = "BELOW_MIN_ITEMS"
	ReasonAboveMaxItems        SkipReason = "ABOVE_MAX_ITEMS"
	ReasonUsageLimitReached    SkipReason = "USAGE_LIMIT_REACHED"
	ReasonCustomerLimitReached SkipReason = "CUSTOMER_LIMIT_REACHED"
	ReasonCodeRequiredNotGiven SkipReason = "CODE_REQUIRED_NOT_SUPPLIED"
	ReasonCodeMismatch         SkipReason = "CODE_MISMATCH"
	ReasonSegmentMismatch      SkipReason = "SEGMENT_MISMATCH"
	ReasonOrderTypeMismatch    SkipReason = "ORDER_TYPE_MISMATCH"
	// ReasonNoMatchingItems is emitted after calculation when the promotion
	// was eligible but produced no discount (e.g. a combo with missing items).
	ReasonNoMatchingItems SkipReason = "NO_MATCHING_ITEMS"
)

// Eligibility decides whether the promotion may be considered for this cart
// and context. Checks run in a fixed order so the reported reason is
// deterministic and cheap gates short-circuit expensive ones. It returns the
// zero reason and true when the promotion is eligible.
func Eligibility(p *Promotion, cart Cart, ectx EvalContext) (SkipReason, bool) {
	if !p.IsActive {
		return ReasonInactive, false
	}

	if p.StartDate != nil && ectx.Now.Before(*p.StartDate) {
		return ReasonOutOfDateRange, false
	}
	if p.EndDate != nil && ectx.Now.After(*p.EndDate) {
		return ReasonOutOfDateRange, false
	}

	if len(p.DaysOfWeek) > 0 && !containsWeekday(p.DaysOfWeek, ectx.Now.Weekday()) {
		return ReasonWrongDay, false
	}

	if p.TimeRangeStart != "" && p.TimeRangeEnd != "" && !inDailyWindow(p, ectx.Now) {
		return ReasonOutsideTimeWindow, false
	}

	if p.MinCartValue.IsPositive() && cart.Subtotal().LessThan(p.MinCartValue) {
		return ReasonBelowMinCartValue, false
	}
	qty := cart.TotalQuantity()
	if p.MinItems > 0 && qty < p.MinItems {
		return ReasonBelowMinItems, false
	}
	if p.MaxItems > 0 && qty > p.MaxItems {
		return ReasonAboveMaxItems, false
	}

	if p.UsageLimit > 0 && p.UsageCount >= p.UsageLimit {
		return ReasonUsageLimitReached, false
	}
	if p.PerCustomerLimit > 0 && ectx.CustomerUsage[p.ID] >= p.PerCustomerLimit {
		return ReasonCustomerLimitReached, false
	}

	codeMatches := ectx.Code != "" && ectx.Code == p.PromoCode
	if p.RequiresCode {
		if ectx.Code == "" {
			return ReasonCodeRequiredNotGiven, false
		}
		if !codeMatches {
			return ReasonCodeMismatch, false
		}
	}
	// A non-auto-apply promotion is only selectable by its own code, even when
	// it does not formally require one.
	if !p.AutoApply && !codeMatches {
		return ReasonCodeRequiredNotGiven, false
	}

	if len(p.CustomerSegments) > 0 && !intersects(p.CustomerSegments, ectx.Segments) {
		return ReasonSegmentMismatch, false
	}
	if len(p.OrderTypes) > 0 && !containsString(p.OrderTypes, ectx.OrderType) {
		return ReasonOrderTypeMismatch, false
	}

	return "", true
}

// inDailyWindow reports whether now falls inside the promotion's daily time
// range: start inclusive, end exclusive. An inverted window (end before
// start) is rejected at catalog validation; here it never matches.
func inDailyWindow(p *Promotion, now time.Time) bool {
	start, err := parseClock(p.TimeRangeStart)
	if err != nil {
		return false
	}
	end, err := parseClock(p.TimeRangeEnd)
	if err != nil {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	return minute >= start && minute < end
}

// parseClock converts an "HH:MM" string to minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, strconv.ErrSyntax
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, strconv.ErrRange
	}
	return h*60 + m, nil
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, day := range days {
		if day == d {
			return true
		}
	}
	return false
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, v := range a {
		if containsString(b, v) {
			return true
		}
	}
	return false
}
