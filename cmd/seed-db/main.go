// Command seed-db creates the schema and loads a demo tenant: a small
// promotion catalog covering every rule type plus one API key for the
// ordering channel.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tably/promo-engine/internal/api"
	"github.com/tably/promo-engine/internal/domain/promo"
	"github.com/tably/promo-engine/internal/repository"
)

const (
	upsertPromotionSQL = `INSERT INTO promotions (id, tenant_id, name, description, type, discount_type,
		value, fixed_price_amount, min_cart_value, max_discount_amount, min_items,
		usage_limit, per_customer_limit, time_range_start, time_range_end, days_of_week,
		requires_code, promo_code, auto_apply, customer_segments, order_types,
		priority, can_combine, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, TRUE)
		ON CONFLICT (id) DO NOTHING`

	insertPromotionItemSQL = `INSERT INTO promotion_items (promotion_id, menu_item_id, category_id,
		required_quantity, free_quantity, discounted_price, is_required, max_quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, tenant_id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (key_hash) DO NOTHING`
)

func main() {
	var (
		databaseURL  string
		tenantID     string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&tenantID, "tenant", "demo-restaurant", "tenant ID to seed")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, tenantID, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, tenantID, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedPromotions(ctx, pool, tenantID); err != nil {
		return errors.Wrap(err, "seed promotions")
	}

	if err := seedAPIKey(ctx, pool, tenantID, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

// seedPromotions loads one promotion per rule type so every engine path can
// be exercised against the demo tenant.
func seedPromotions(ctx context.Context, pool *pgxpool.Pool, tenantID string) error {
	slog.Info("seeding demo catalog", slog.String("tenant", tenantID))

	catalog := []*promo.Promotion{
		{
			ID:                tenantID + "-welcome10",
			Name:              "Welcome 10% off",
			Description:       "10% off your first orders, up to $20",
			Type:              promo.TypeCartDiscount,
			DiscountType:      promo.DiscountPercentage,
			Value:             decimal.NewFromInt(10),
			MaxDiscountAmount: decimal.NewFromInt(20),
			PerCustomerLimit:  3,
			RequiresCode:      true,
			PromoCode:         "WELCOME10",
			Priority:          10,
			CanCombine:        true,
		},
		{
			ID:             tenantID + "-happy-hour",
			Name:           "Happy hour drinks",
			Description:    "20% off beverages on weekday afternoons",
			Type:           promo.TypeTimeBased,
			DiscountType:   promo.DiscountPercentage,
			Value:          decimal.NewFromInt(20),
			TimeRangeStart: "15:00",
			TimeRangeEnd:   "18:00",
			DaysOfWeek: []time.Weekday{
				time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
			},
			AutoApply:  true,
			Priority:   20,
			CanCombine: true,
			Items: []promo.PromotionItem{
				{CategoryID: "beverages"},
			},
		},
		{
			ID:           tenantID + "-bogo-drinks",
			Name:         "Buy 2 drinks get 1 free",
			Type:         promo.TypeBOGO,
			DiscountType: promo.DiscountFreeItem,
			AutoApply:    true,
			Priority:     30,
			Items: []promo.PromotionItem{
				{CategoryID: "beverages", RequiredQuantity: 2, FreeQuantity: 1},
			},
		},
		{
			ID:               tenantID + "-burger-combo",
			Name:             "Burger combo",
			Description:      "Burger, fries and a drink for a fixed price",
			Type:             promo.TypeComboDeal,
			DiscountType:     promo.DiscountFixedPrice,
			FixedPriceAmount: decimal.RequireFromString("13.99"),
			AutoApply:        true,
			Priority:         40,
			Items: []promo.PromotionItem{
				{MenuItemID: "burger", RequiredQuantity: 1, IsRequired: true},
				{MenuItemID: "fries", RequiredQuantity: 1, IsRequired: true},
				{CategoryID: "beverages", RequiredQuantity: 1, IsRequired: true},
			},
		},
		{
			ID:               tenantID + "-vip-discount",
			Name:             "VIP members 15% off",
			Type:             promo.TypeCartDiscount,
			DiscountType:     promo.DiscountPercentage,
			Value:            decimal.NewFromInt(15),
			CustomerSegments: []string{"vip"},
			AutoApply:        true,
			Priority:         15,
		},
	}

	for _, p := range catalog {
		days := make([]int32, len(p.DaysOfWeek))
		for i, d := range p.DaysOfWeek {
			days[i] = int32(d)
		}
		// pgx encodes nil slices as NULL; the columns are NOT NULL.
		segments := p.CustomerSegments
		if segments == nil {
			segments = []string{}
		}
		orderTypes := p.OrderTypes
		if orderTypes == nil {
			orderTypes = []string{}
		}
		tag, err := pool.Exec(ctx, upsertPromotionSQL,
			p.ID, tenantID, p.Name, p.Description, string(p.Type), string(p.DiscountType),
			p.Value, p.FixedPriceAmount, p.MinCartValue, p.MaxDiscountAmount, p.MinItems,
			p.UsageLimit, p.PerCustomerLimit, p.TimeRangeStart, p.TimeRangeEnd, days,
			p.RequiresCode, p.PromoCode, p.AutoApply, segments, orderTypes,
			p.Priority, p.CanCombine,
		)
		if err != nil {
			return errors.Wrapf(err, "upsert promotion %s", p.ID)
		}
		if tag.RowsAffected() == 0 {
			// Already seeded; item rows exist too.
			continue
		}

		for _, item := range p.Items {
			if _, err := pool.Exec(ctx, insertPromotionItemSQL,
				p.ID, item.MenuItemID, item.CategoryID,
				item.RequiredQuantity, item.FreeQuantity, item.DiscountedPrice,
				item.IsRequired, item.MaxQuantity,
			); err != nil {
				return errors.Wrapf(err, "insert items for promotion %s", p.ID)
			}
		}
	}

	slog.Info("demo catalog seeded", slog.Int("promotions", len(catalog)))
	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, tenantID, apiKey, pepper string) error {
	hash := api.HashAPIKey(apiKey, []byte(pepper))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		uuid.New().String(), tenantID, hash, "seed key", []string{"orders"},
	); err != nil {
		return errors.Wrap(err, "upsert api key")
	}

	slog.Info("api key seeded", slog.String("tenant", tenantID))
	return nil
}
