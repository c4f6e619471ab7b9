package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tably/promo-engine/internal/domain/order"
	"github.com/tably/promo-engine/internal/domain/promo"
)

const (
	insertOrderPromotionSQL = `INSERT INTO order_promotions (order_id, promotion_id, discount_amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (order_id, promotion_id) DO NOTHING`

	insertUsageRecordSQL = `INSERT INTO promotion_usages (id, tenant_id, promotion_id, order_id,
		customer_id, customer_phone, discount_amount, original_amount, final_amount,
		code_used, items, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	incrementUsageCountSQL = `UPDATE promotions SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit = 0 OR usage_count < usage_limit)`

	upsertCustomerCounterSQL = `INSERT INTO customer_promotion_usages
		(tenant_id, customer_key, promotion_id, usage_count, last_used_at)
		VALUES ($1, $2, $3, 1, $4)
		ON CONFLICT (tenant_id, customer_key, promotion_id)
		DO UPDATE SET usage_count = customer_promotion_usages.usage_count + 1,
			last_used_at = EXCLUDED.last_used_at`

	customerCountsSQL = `SELECT promotion_id, SUM(usage_count)::INT
		FROM customer_promotion_usages
		WHERE tenant_id = $1 AND customer_key = ANY($2)
		GROUP BY promotion_id`
)

var _ order.UsageRepository = (*UsageRepository)(nil)

// UsageRepository implements order.UsageRepository backed by PostgreSQL.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository returns a UsageRepository that uses the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// Record persists all usage drafts of one order in a single transaction. The
// (order_id, promotion_id) unique constraint makes replays idempotent: when
// the junction row already exists the draft's audit record and counter
// increments are skipped, so retries never double-count.
func (r *UsageRepository) Record(ctx context.Context, drafts []promo.UsageDraft) error {
	if len(drafts) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning usage transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, d := range drafts {
		op := d.OrderPromotion
		tag, err := tx.Exec(ctx, insertOrderPromotionSQL,
			op.OrderID, op.PromotionID, op.DiscountAmount,
		)
		if err != nil {
			return fmt.Errorf("recording promotion %q for order %q: %w", op.PromotionID, op.OrderID, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}

		u := d.Usage
		itemsJSON, err := json.Marshal(u.Items)
		if err != nil {
			return fmt.Errorf("marshaling usage items: %w", err)
		}
		if _, err := tx.Exec(ctx, insertUsageRecordSQL,
			u.ID, u.TenantID, u.PromotionID, u.OrderID,
			u.CustomerID, u.CustomerPhone, u.DiscountAmount, u.OriginalAmount, u.FinalAmount,
			u.CodeUsed, itemsJSON, u.UsedAt,
		); err != nil {
			return fmt.Errorf("recording usage for promotion %q: %w", u.PromotionID, err)
		}

		if _, err := tx.Exec(ctx, incrementUsageCountSQL, op.PromotionID); err != nil {
			return fmt.Errorf("incrementing usage count for promotion %q: %w", op.PromotionID, err)
		}

		if c := d.Counter; c != nil {
			if _, err := tx.Exec(ctx, upsertCustomerCounterSQL,
				c.TenantID, c.CustomerKey, c.PromotionID, c.UsedAt,
			); err != nil {
				return fmt.Errorf("incrementing customer counter for promotion %q: %w", c.PromotionID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing usage transaction: %w", err)
	}
	return nil
}

// Counts returns the identity's usage counters keyed by promotion ID.
// Counters may exist under either the customer ID or the phone number, so
// both keys are queried and summed.
func (r *UsageRepository) Counts(ctx context.Context, tenantID string, identity promo.CustomerIdentity) (map[string]int, error) {
	var keys []string
	if identity.CustomerID != "" {
		keys = append(keys, identity.CustomerID)
	}
	if identity.Phone != "" && identity.Phone != identity.CustomerID {
		keys = append(keys, identity.Phone)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, customerCountsSQL, tenantID, keys)
	if err != nil {
		return nil, fmt.Errorf("loading customer counters: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			promotionID string
			count       int32
		)
		if err := rows.Scan(&promotionID, &count); err != nil {
			return nil, fmt.Errorf("scanning customer counter: %w", err)
		}
		counts[promotionID] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading customer counters: %w", err)
	}
	return counts, nil
}
