// Package promo implements the promotion and discount evaluation engine:
// given a tenant's promotion catalog and a cart snapshot, it decides which
// promotions apply, how much discount each contributes, and which usage
// records the caller must persist. The engine performs no I/O and holds no
// mutable state; every evaluation is a pure function of its inputs.
package promo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type enumerates the supported promotion rule variants.
type Type string

const (
	// TypeItemDiscount reduces the price of targeted line items.
	TypeItemDiscount Type = "ITEM_DISCOUNT"
	// TypeComboDeal sells a fixed set of items for a combined fixed price.
	TypeComboDeal Type = "COMBO_DEAL"
	// TypeCartDiscount reduces the cart subtotal.
	TypeCartDiscount Type = "CART_DISCOUNT"
	// TypeBOGO grants free units after a required purchase quantity is met.
	TypeBOGO Type = "BOGO"
	// TypeFixedPrice overrides targeted item prices with a fixed price.
	TypeFixedPrice Type = "FIXED_PRICE"
	// TypeTimeBased applies its underlying discount only inside a time window.
	TypeTimeBased Type = "TIME_BASED"
	// TypeCoupon applies its underlying discount only when its code is supplied.
	TypeCoupon Type = "COUPON"
)

// DiscountType enumerates how a promotion's discount amount is derived.
type DiscountType string

const (
	// DiscountPercentage deducts a percentage of the affected subtotal.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixedAmount deducts a fixed monetary amount.
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
	// DiscountFreeItem grants free units of the targeted items.
	DiscountFreeItem DiscountType = "FREE_ITEM"
	// DiscountFixedPrice replaces the affected subtotal with a fixed price.
	DiscountFixedPrice DiscountType = "FIXED_PRICE"
)

// Promotion is a tenant-defined discount rule. It is read-only to the engine;
// creation and editing happen upstream. UsageCount is a snapshot of the
// aggregate counter owned by the persistence layer.
type Promotion struct {
	ID          string
	TenantID    string
	Name        string
	Description string

	Type         Type
	DiscountType DiscountType
	// Value is a percentage for DiscountPercentage and a monetary amount for
	// DiscountFixedAmount. Unused for the other discount types.
	Value decimal.Decimal
	// FixedPriceAmount is the combined price for combo and fixed-price rules.
	FixedPriceAmount decimal.Decimal

	MinCartValue      decimal.Decimal
	MaxDiscountAmount decimal.Decimal
	MinItems          int
	MaxItems          int

	// UsageLimit caps total applications across all orders; zero means
	// unlimited. PerCustomerLimit caps applications per customer identity.
	UsageLimit       int
	UsageCount       int
	PerCustomerLimit int

	StartDate *time.Time
	EndDate   *time.Time
	// TimeRangeStart and TimeRangeEnd bound a daily window in "15:04" form.
	// The start is inclusive, the end exclusive. Both must be set together.
	TimeRangeStart string
	TimeRangeEnd   string
	// DaysOfWeek restricts the promotion to the listed weekdays when non-empty.
	DaysOfWeek []time.Weekday

	RequiresCode bool
	// PromoCode is unique per tenant when present. Matching is case-sensitive.
	PromoCode string
	// AutoApply selects the promotion without a supplied code. When false the
	// promotion is only considered if its code was supplied.
	AutoApply bool

	CustomerSegments []string
	OrderTypes       []string

	// Priority ranks the promotion in conflict resolution; higher wins.
	Priority   int
	CanCombine bool
	IsActive   bool

	Items []PromotionItem
}

// PromotionItem scopes which line items a promotion's buy or get side targets.
// A set MenuItemID targets one product, a set CategoryID targets a category,
// and neither targets the whole cart.
type PromotionItem struct {
	MenuItemID string
	CategoryID string

	// RequiredQuantity is how many matching units the buy side needs.
	RequiredQuantity int
	// FreeQuantity is how many units the get side grants per satisfied buy.
	FreeQuantity int
	// DiscountedPrice is a per-unit fixed-price override when positive.
	DiscountedPrice decimal.Decimal
	IsRequired      bool
	// MaxQuantity caps how many units this item contributes; zero means no cap.
	MaxQuantity int
}

// LineItem is one entry of the cart snapshot the engine evaluates against.
type LineItem struct {
	MenuItemID string
	CategoryID string
	UnitPrice  decimal.Decimal
	Quantity   int
}

// Subtotal returns unit price times quantity for this line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart is an immutable order snapshot: the ordered line items under evaluation.
type Cart struct {
	Items []LineItem
}

// Subtotal returns the sum of line subtotals across the cart.
func (c Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range c.Items {
		sum = sum.Add(li.Subtotal())
	}
	return sum
}

// TotalQuantity returns the sum of quantities across the cart.
func (c Cart) TotalQuantity() int {
	total := 0
	for _, li := range c.Items {
		total += li.Quantity
	}
	return total
}

// EvalContext carries everything about the evaluation moment that is not part
// of the cart: who is ordering, when, through which channel, and which promo
// code (if any) they supplied.
type EvalContext struct {
	CustomerID    string
	CustomerPhone string
	// Segments are the customer's segment memberships (e.g. "vip", "new").
	Segments  []string
	OrderType string
	Now       time.Time
	// Code is the promo code supplied with the order, empty when none.
	Code string
	// CustomerUsage is a read snapshot of per-customer usage counters keyed by
	// promotion ID, supplied by the persistence layer.
	CustomerUsage map[string]int
}

// AffectedItem describes the effect of an applied promotion on one line item.
type AffectedItem struct {
	MenuItemID      string
	Quantity        int
	OriginalPrice   decimal.Decimal
	DiscountedPrice decimal.Decimal
}

// Candidate is a computed discount decision for one eligible promotion,
// before and after conflict resolution.
type Candidate struct {
	Promotion *Promotion
	Amount    decimal.Decimal
	Affected  []AffectedItem
	// CappedByMax is set when MaxDiscountAmount or remaining cart headroom
	// clamped the computed amount.
	CappedByMax bool
}
