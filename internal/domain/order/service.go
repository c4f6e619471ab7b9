package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tably/promo-engine/internal/domain/promo"
)

// Sentinel errors for request validation.
var (
	ErrEmptyItems    = fmt.Errorf("items required")
	ErrMissingTenant = fmt.Errorf("tenant id required")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	MenuItemID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for item %s", e.MenuItemID)
}

// InvalidPriceError indicates a line item has a negative unit price.
type InvalidPriceError struct {
	MenuItemID string
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("unit price must not be negative for item %s", e.MenuItemID)
}

// EvaluateRequest holds the input shared by quoting and checkout.
type EvaluateRequest struct {
	TenantID  string
	Items     []LineItem
	Code      string
	Customer  promo.CustomerIdentity
	Segments  []string
	OrderType string
}

// CheckoutResult pairs the persisted order with the full evaluation outcome.
type CheckoutResult struct {
	Order  *Order
	Result promo.Result
}

// Service orchestrates promotion evaluation around order persistence: it
// loads the catalog and counter snapshot, runs the engine, and on checkout
// writes the order together with its usage records.
type Service struct {
	catalog CatalogRepository
	usage   UsageRepository
	orders  Repository
	engine  *promo.Engine
	now     func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	catalog CatalogRepository,
	usage UsageRepository,
	orders Repository,
	engine *promo.Engine,
) *Service {
	return &Service{
		catalog: catalog,
		usage:   usage,
		orders:  orders,
		engine:  engine,
		now:     time.Now,
	}
}

// Quote evaluates the request without persisting anything. It is the dry-run
// path the ordering UI uses to show applicable discounts before checkout.
func (s *Service) Quote(ctx context.Context, req EvaluateRequest) (promo.Result, error) {
	cart, ectx, err := s.prepare(ctx, req)
	if err != nil {
		return promo.Result{}, err
	}

	catalog, err := s.catalog.ListActive(ctx, req.TenantID)
	if err != nil {
		return promo.Result{}, fmt.Errorf("list promotions: %w", err)
	}

	return s.engine.Evaluate(catalog, cart, ectx), nil
}

// Checkout evaluates the request, persists the order, and records usage for
// every applied promotion. Usage drafts for one order are written in a single
// transaction so counters and audit records never diverge.
func (s *Service) Checkout(ctx context.Context, req EvaluateRequest) (*CheckoutResult, error) {
	cart, ectx, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	catalog, err := s.catalog.ListActive(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}

	result := s.engine.Evaluate(catalog, cart, ectx)

	o := &Order{
		ID:            uuid.New().String(),
		TenantID:      req.TenantID,
		Items:         req.Items,
		Subtotal:      result.Subtotal,
		TotalDiscount: result.TotalDiscount,
		Total:         result.FinalAmount,
		PromoCode:     req.Code,
		CustomerID:    req.Customer.CustomerID,
		CustomerPhone: req.Customer.Phone,
		OrderType:     req.OrderType,
		CreatedAt:     ectx.Now,
	}
	for _, cand := range result.Applied {
		o.Applied = append(o.Applied, promo.OrderPromotion{
			OrderID:        o.ID,
			PromotionID:    cand.Promotion.ID,
			DiscountAmount: cand.Amount,
		})
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	drafts := promo.BuildUsageDrafts(
		result.Applied, o.ID, req.Customer,
		result.Subtotal, result.FinalAmount,
		req.Code, ectx.Now,
	)
	if len(drafts) > 0 {
		if err := s.usage.Record(ctx, drafts); err != nil {
			return nil, fmt.Errorf("record usage: %w", err)
		}
	}

	return &CheckoutResult{Order: o, Result: result}, nil
}

// prepare validates the request and assembles the cart snapshot and
// evaluation context, including the per-customer counter snapshot.
func (s *Service) prepare(ctx context.Context, req EvaluateRequest) (promo.Cart, promo.EvalContext, error) {
	if req.TenantID == "" {
		return promo.Cart{}, promo.EvalContext{}, ErrMissingTenant
	}
	if len(req.Items) == 0 {
		return promo.Cart{}, promo.EvalContext{}, ErrEmptyItems
	}

	cart := promo.Cart{Items: make([]promo.LineItem, len(req.Items))}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return promo.Cart{}, promo.EvalContext{}, &InvalidQuantityError{MenuItemID: item.MenuItemID}
		}
		if item.UnitPrice.IsNegative() {
			return promo.Cart{}, promo.EvalContext{}, &InvalidPriceError{MenuItemID: item.MenuItemID}
		}
		cart.Items[i] = promo.LineItem{
			MenuItemID: item.MenuItemID,
			CategoryID: item.CategoryID,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}

	ectx := promo.EvalContext{
		CustomerID:    req.Customer.CustomerID,
		CustomerPhone: req.Customer.Phone,
		Segments:      req.Segments,
		OrderType:     req.OrderType,
		Now:           s.now(),
		Code:          req.Code,
	}

	if req.Customer.Key() != "" {
		counts, err := s.usage.Counts(ctx, req.TenantID, req.Customer)
		if err != nil {
			return promo.Cart{}, promo.EvalContext{}, fmt.Errorf("load customer usage: %w", err)
		}
		ectx.CustomerUsage = counts
	}

	return cart, ectx, nil
}
