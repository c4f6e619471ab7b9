package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tably/promo-engine/internal/domain/order"
	"github.com/tably/promo-engine/internal/domain/promo"
)

// testPool connects to the database named by TEST_DATABASE_URL and runs the
// migrations. Tests are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func insertTestPromotion(t *testing.T, pool *pgxpool.Pool, tenantID string) *promo.Promotion {
	t.Helper()

	p := &promo.Promotion{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Name:         "10% off",
		Type:         promo.TypeCartDiscount,
		DiscountType: promo.DiscountPercentage,
		Value:        decimal.RequireFromString("10"),
		UsageLimit:   2,
		AutoApply:    true,
		IsActive:     true,
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO promotions (id, tenant_id, name, type, discount_type, value, usage_limit, auto_apply, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, TRUE)`,
		p.ID, p.TenantID, p.Name, string(p.Type), string(p.DiscountType), p.Value, p.UsageLimit,
	)
	require.NoError(t, err)
	return p
}

func insertTestOrder(t *testing.T, pool *pgxpool.Pool, tenantID string) string {
	t.Helper()

	repo := NewOrderRepository(pool)
	o := &order.Order{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		Items:         []order.LineItem{{MenuItemID: "burger", UnitPrice: decimal.RequireFromString("12.00"), Quantity: 1}},
		Subtotal:      decimal.RequireFromString("12.00"),
		TotalDiscount: decimal.RequireFromString("1.20"),
		Total:         decimal.RequireFromString("10.80"),
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), o))
	return o.ID
}

func TestCatalogRepository_ListActive(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	tenantID := uuid.New().String()

	p := insertTestPromotion(t, pool, tenantID)
	_, err := pool.Exec(ctx,
		`INSERT INTO promotion_items (promotion_id, menu_item_id, required_quantity, free_quantity)
		 VALUES ($1, 'burger', 2, 1)`,
		p.ID,
	)
	require.NoError(t, err)

	repo := NewCatalogRepository(pool)
	promotions, err := repo.ListActive(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, promotions, 1)

	got := promotions[0]
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, promo.TypeCartDiscount, got.Type)
	assert.True(t, decimal.RequireFromString("10").Equal(got.Value))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "burger", got.Items[0].MenuItemID)
	assert.Equal(t, 2, got.Items[0].RequiredQuantity)
	assert.Equal(t, 1, got.Items[0].FreeQuantity)
}

func TestCatalogRepository_ListActive_UnknownTenant(t *testing.T) {
	pool := testPool(t)

	repo := NewCatalogRepository(pool)
	promotions, err := repo.ListActive(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, promotions)
}

func TestUsageRepository_RecordIsIdempotent(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	tenantID := uuid.New().String()

	p := insertTestPromotion(t, pool, tenantID)
	orderID := insertTestOrder(t, pool, tenantID)

	now := time.Now().UTC()
	draft := promo.UsageDraft{
		OrderPromotion: promo.OrderPromotion{
			OrderID:        orderID,
			PromotionID:    p.ID,
			DiscountAmount: decimal.RequireFromString("1.20"),
		},
		Usage: promo.UsageRecord{
			ID:             uuid.New().String(),
			TenantID:       tenantID,
			PromotionID:    p.ID,
			OrderID:        orderID,
			CustomerID:     "cust-1",
			DiscountAmount: decimal.RequireFromString("1.20"),
			OriginalAmount: decimal.RequireFromString("12.00"),
			FinalAmount:    decimal.RequireFromString("10.80"),
			UsedAt:         now,
		},
		Counter: &promo.CounterIncrement{
			TenantID:    tenantID,
			PromotionID: p.ID,
			CustomerKey: "cust-1",
			UsedAt:      now,
		},
	}

	repo := NewUsageRepository(pool)
	require.NoError(t, repo.Record(ctx, []promo.UsageDraft{draft}))

	// Replaying the same order must not double-count anything.
	draft.Usage.ID = uuid.New().String()
	require.NoError(t, repo.Record(ctx, []promo.UsageDraft{draft}))

	var usageCount int32
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT usage_count FROM promotions WHERE id = $1`, p.ID,
	).Scan(&usageCount))
	assert.Equal(t, int32(1), usageCount)

	counts, err := repo.Counts(ctx, tenantID, promo.CustomerIdentity{CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[p.ID])
}

func TestUsageRepository_CountsAnonymous(t *testing.T) {
	pool := testPool(t)

	repo := NewUsageRepository(pool)
	counts, err := repo.Counts(context.Background(), uuid.New().String(), promo.CustomerIdentity{})
	require.NoError(t, err)
	assert.Empty(t, counts)
}
