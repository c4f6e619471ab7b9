package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tably/promo-engine/internal/domain/promo"
)

// Order represents a finalized customer order with pricing and the promotions
// that were applied to it.
type Order struct {
	ID            string
	TenantID      string
	Items         []LineItem
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	Total         decimal.Decimal
	PromoCode     string
	CustomerID    string
	CustomerPhone string
	OrderType     string
	Applied       []promo.OrderPromotion
	CreatedAt     time.Time
}

// LineItem is one priced entry of an order. Prices arrive from the ordering
// channel; the engine never looks them up itself.
type LineItem struct {
	MenuItemID string          `json:"menu_item_id"`
	CategoryID string          `json:"category_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
}

// CatalogRepository loads the promotion catalog the engine evaluates.
type CatalogRepository interface {
	// ListActive returns the tenant's active promotions with their item rules.
	ListActive(ctx context.Context, tenantID string) ([]*promo.Promotion, error)
}

// UsageRepository persists promotion usage and serves counter snapshots.
type UsageRepository interface {
	// Counts returns the per-customer usage counters for the identity,
	// keyed by promotion ID. Empty for anonymous identities.
	Counts(ctx context.Context, tenantID string, identity promo.CustomerIdentity) (map[string]int, error)
	// Record persists all drafts of one order in a single transaction.
	Record(ctx context.Context, drafts []promo.UsageDraft) error
}
