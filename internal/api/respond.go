package api

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/tably/promo-engine/internal/domain/order"
	"github.com/tably/promo-engine/internal/domain/promo"
)

// respondJSON encodes the body with the given encoder function and writes it
// with the given status.
func respondJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// respondErrorMessage writes a {"code","message"} error body.
func respondErrorMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

// encodeMoney writes a decimal as a JSON number with two fraction digits.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.StringFixed(2))
}

func encodeResult(result promo.Result) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			encodeResultFields(e, result)
		})
	}
}

func encodeCheckout(res *order.CheckoutResult) func(e *jx.Encoder) {
	return func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order_id", func(e *jx.Encoder) { e.Str(res.Order.ID) })
			e.Field("created_at", func(e *jx.Encoder) {
				e.Str(res.Order.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
			})
			encodeResultFields(e, res.Result)
		})
	}
}

func encodeResultFields(e *jx.Encoder, result promo.Result) {
	e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, result.Subtotal) })
	e.Field("total_discount", func(e *jx.Encoder) { encodeMoney(e, result.TotalDiscount) })
	e.Field("final_amount", func(e *jx.Encoder) { encodeMoney(e, result.FinalAmount) })

	e.Field("applied_promotions", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, cand := range result.Applied {
				encodeCandidate(e, cand)
			}
		})
	})

	e.Field("skipped_promotions", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, s := range result.Skipped {
				e.Obj(func(e *jx.Encoder) {
					e.Field("promotion_id", func(e *jx.Encoder) { e.Str(s.PromotionID) })
					e.Field("reason", func(e *jx.Encoder) { e.Str(string(s.Reason)) })
				})
			}
		})
	})
}

func encodeCandidate(e *jx.Encoder, cand promo.Candidate) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("promotion_id", func(e *jx.Encoder) { e.Str(cand.Promotion.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(cand.Promotion.Name) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(cand.Promotion.Type)) })
		e.Field("discount_amount", func(e *jx.Encoder) { encodeMoney(e, cand.Amount) })
		if cand.CappedByMax {
			e.Field("capped", func(e *jx.Encoder) { e.Bool(true) })
		}
		if len(cand.Affected) > 0 {
			e.Field("affected_items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, it := range cand.Affected {
						e.Obj(func(e *jx.Encoder) {
							e.Field("menu_item_id", func(e *jx.Encoder) { e.Str(it.MenuItemID) })
							e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
							e.Field("original_price", func(e *jx.Encoder) { encodeMoney(e, it.OriginalPrice) })
							e.Field("discounted_price", func(e *jx.Encoder) { encodeMoney(e, it.DiscountedPrice) })
						})
					}
				})
			})
		}
	})
}
