package promo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomerIdentity names the customer an order belongs to. Either field may
// be empty; a fully empty identity is an anonymous order.
type CustomerIdentity struct {
	CustomerID string
	Phone      string
}

// Key returns the stable key used for per-customer counters: the customer ID
// when known, the phone number otherwise, empty for anonymous orders.
func (ci CustomerIdentity) Key() string {
	if ci.CustomerID != "" {
		return ci.CustomerID
	}
	return ci.Phone
}

// OrderPromotion is the junction record tying one applied promotion to one
// order. The persistence layer enforces (OrderID, PromotionID) uniqueness so
// a promotion is never double-applied to the same order.
type OrderPromotion struct {
	OrderID        string
	PromotionID    string
	DiscountAmount decimal.Decimal
}

// UsageRecord is the immutable audit record created once a promotion is
// applied to a finalized order.
type UsageRecord struct {
	ID             string
	TenantID       string
	PromotionID    string
	OrderID        string
	CustomerID     string
	CustomerPhone  string
	DiscountAmount decimal.Decimal
	OriginalAmount decimal.Decimal
	FinalAmount    decimal.Decimal
	CodeUsed       string
	UsedAt         time.Time
	Items          []AffectedItem
}

// CounterIncrement instructs the persistence layer to bump the rolling
// per-customer counter for one promotion.
type CounterIncrement struct {
	TenantID    string
	PromotionID string
	CustomerKey string
	UsedAt      time.Time
}

// UsageDraft bundles everything the storage collaborator must persist for one
// applied promotion: the junction row, the audit record, and the counter
// increment (nil for anonymous orders). The caller applies all drafts of an
// order in a single transaction.
type UsageDraft struct {
	OrderPromotion OrderPromotion
	Usage          UsageRecord
	Counter        *CounterIncrement
}

// BuildUsageDrafts converts the final applied set into usage-tracking records
// for the given order and customer. It is a pure projection: persistence,
// counter atomicity, and the (orderID, promotionID) uniqueness guarantee stay
// with the storage collaborator.
func BuildUsageDrafts(
	applied []Candidate,
	orderID string,
	identity CustomerIdentity,
	originalAmount, finalAmount decimal.Decimal,
	code string,
	now time.Time,
) []UsageDraft {
	drafts := make([]UsageDraft, 0, len(applied))
	for _, cand := range applied {
		p := cand.Promotion

		codeUsed := ""
		if code != "" && code == p.PromoCode {
			codeUsed = code
		}

		draft := UsageDraft{
			OrderPromotion: OrderPromotion{
				OrderID:        orderID,
				PromotionID:    p.ID,
				DiscountAmount: cand.Amount,
			},
			Usage: UsageRecord{
				ID:             uuid.New().String(),
				TenantID:       p.TenantID,
				PromotionID:    p.ID,
				OrderID:        orderID,
				CustomerID:     identity.CustomerID,
				CustomerPhone:  identity.Phone,
				DiscountAmount: cand.Amount,
				OriginalAmount: originalAmount,
				FinalAmount:    finalAmount,
				CodeUsed:       codeUsed,
				UsedAt:         now,
				Items:          cand.Affected,
			},
		}
		if key := identity.Key(); key != "" {
			draft.Counter = &CounterIncrement{
				TenantID:    p.TenantID,
				PromotionID: p.ID,
				CustomerKey: key,
				UsedAt:      now,
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts
}
