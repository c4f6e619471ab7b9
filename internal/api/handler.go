// Package api exposes the promotion engine over HTTP: a dry-run evaluation
// endpoint for ordering UIs and a checkout endpoint that finalizes orders and
// records promotion usage.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tably/promo-engine/internal/domain/order"
	"github.com/tably/promo-engine/internal/domain/promo"
)

// Service is the slice of the order service the handlers need.
type Service interface {
	Quote(ctx context.Context, req order.EvaluateRequest) (promo.Result, error)
	Checkout(ctx context.Context, req order.EvaluateRequest) (*order.CheckoutResult, error)
}

// Handler serves the promotion evaluation API, delegating business logic to
// the order service.
type Handler struct {
	svc Service
}

// NewHandler constructs a Handler around the given service.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Routes registers the API endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/evaluate", h.Evaluate)
	r.Post("/orders", h.PlaceOrder)
}

// lineItemRequest is the wire form of a cart line. Prices are decimal strings
// to avoid float rounding on the wire.
type lineItemRequest struct {
	MenuItemID string          `json:"menu_item_id"`
	CategoryID string          `json:"category_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// evaluateRequest is the shared wire form of evaluation and checkout requests.
type evaluateRequest struct {
	Items            []lineItemRequest `json:"items"`
	PromoCode        string            `json:"promo_code"`
	CustomerID       string            `json:"customer_id"`
	CustomerPhone    string            `json:"customer_phone"`
	CustomerSegments []string          `json:"customer_segments"`
	OrderType        string            `json:"order_type"`
}

// Evaluate handles POST /evaluate: it prices the cart against the tenant's
// catalog without persisting anything.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Quote(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, encodeResult(result))
}

// PlaceOrder handles POST /orders: it evaluates the cart, persists the order,
// and records usage for every applied promotion.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Checkout(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, encodeCheckout(res))
}

// decodeRequest parses and validates the shared request body, filling the
// tenant from the authenticated API key.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (order.EvaluateRequest, bool) {
	var body evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return order.EvaluateRequest{}, false
	}

	items := make([]order.LineItem, len(body.Items))
	for i, item := range body.Items {
		items[i] = order.LineItem{
			MenuItemID: item.MenuItemID,
			CategoryID: item.CategoryID,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
		}
	}

	return order.EvaluateRequest{
		TenantID:  TenantFromContext(r.Context()),
		Items:     items,
		Code:      body.PromoCode,
		Customer:  promo.CustomerIdentity{CustomerID: body.CustomerID, Phone: body.CustomerPhone},
		Segments:  body.CustomerSegments,
		OrderType: body.OrderType,
	}, true
}

// respondError maps domain errors to HTTP status codes. Unexpected errors are
// logged and returned as opaque 500s.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyItems), errors.Is(err, order.ErrMissingTenant):
		respondErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		respondErrorMessage(w, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}
	var ipErr *order.InvalidPriceError
	if errors.As(err, &ipErr) {
		respondErrorMessage(w, http.StatusUnprocessableEntity, ipErr.Error())
		return
	}

	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	respondErrorMessage(w, http.StatusInternalServerError, "internal error")
}
