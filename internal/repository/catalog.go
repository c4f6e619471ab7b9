package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/promo-engine/internal/domain/order"
	"github.com/tably/promo-engine/internal/domain/promo"
)

const (
	listActivePromotionsSQL = `SELECT id, tenant_id, name, description, type, discount_type,
		value, fixed_price_amount, min_cart_value, max_discount_amount,
		min_items, max_items, usage_limit, usage_count, per_customer_limit,
		start_date, end_date, time_range_start, time_range_end, days_of_week,
		requires_code, promo_code, auto_apply, customer_segments, order_types,
		priority, can_combine, is_active
		FROM promotions WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY id`

	listPromotionItemsSQL = `SELECT promotion_id, menu_item_id, category_id,
		required_quantity, free_quantity, discounted_price, is_required, max_quantity
		FROM promotion_items WHERE promotion_id = ANY($1)
		ORDER BY id`
)

var _ order.CatalogRepository = (*CatalogRepository)(nil)

// CatalogRepository implements order.CatalogRepository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListActive returns the tenant's active promotions with their item rules
// attached, ordered by ID.
func (r *CatalogRepository) ListActive(ctx context.Context, tenantID string) ([]*promo.Promotion, error) {
	rows, err := r.pool.Query(ctx, listActivePromotionsSQL, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing promotions for tenant %q: %w", tenantID, err)
	}

	promotions, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, fmt.Errorf("listing promotions for tenant %q: %w", tenantID, err)
	}
	if len(promotions) == 0 {
		return nil, nil
	}

	byID := make(map[string]*promo.Promotion, len(promotions))
	ids := make([]string, len(promotions))
	for i, p := range promotions {
		byID[p.ID] = p
		ids[i] = p.ID
	}

	itemRows, err := r.pool.Query(ctx, listPromotionItemsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("listing promotion items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			promotionID string
			item        promo.PromotionItem
			required    int32
			free        int32
			maxQty      int32
		)
		if err := itemRows.Scan(
			&promotionID, &item.MenuItemID, &item.CategoryID,
			&required, &free, &item.DiscountedPrice, &item.IsRequired, &maxQty,
		); err != nil {
			return nil, fmt.Errorf("scanning promotion item: %w", err)
		}
		item.RequiredQuantity = int(required)
		item.FreeQuantity = int(free)
		item.MaxQuantity = int(maxQty)
		if p, ok := byID[promotionID]; ok {
			p.Items = append(p.Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("listing promotion items: %w", err)
	}

	return promotions, nil
}

func scanPromotion(row pgx.CollectableRow) (*promo.Promotion, error) {
	var (
		p                promo.Promotion
		promoType        string
		discountType     string
		minItems         int32
		maxItems         int32
		usageLimit       int32
		usageCount       int32
		perCustomerLimit int32
		daysOfWeek       []int32
		priority         int32
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Description, &promoType, &discountType,
		&p.Value, &p.FixedPriceAmount, &p.MinCartValue, &p.MaxDiscountAmount,
		&minItems, &maxItems, &usageLimit, &usageCount, &perCustomerLimit,
		&p.StartDate, &p.EndDate, &p.TimeRangeStart, &p.TimeRangeEnd, &daysOfWeek,
		&p.RequiresCode, &p.PromoCode, &p.AutoApply, &p.CustomerSegments, &p.OrderTypes,
		&priority, &p.CanCombine, &p.IsActive,
	)
	p.Type = promo.Type(promoType)
	p.DiscountType = promo.DiscountType(discountType)
	p.MinItems = int(minItems)
	p.MaxItems = int(maxItems)
	p.UsageLimit = int(usageLimit)
	p.UsageCount = int(usageCount)
	p.PerCustomerLimit = int(perCustomerLimit)
	p.Priority = int(priority)
	for _, d := range daysOfWeek {
		p.DaysOfWeek = append(p.DaysOfWeek, time.Weekday(d))
	}
	return &p, err
}
