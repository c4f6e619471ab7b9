package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUsageDrafts(t *testing.T) {
	p := basePromotion()
	p.PromoCode = "SAVE10"
	applied := []Candidate{{
		Promotion: p,
		Amount:    dec("10"),
		Affected: []AffectedItem{
			{MenuItemID: "cola", Quantity: 2, OriginalPrice: dec("5"), DiscountedPrice: dec("4.50")},
		},
	}}
	identity := CustomerIdentity{CustomerID: "cust-1", Phone: "+15550001111"}

	drafts := BuildUsageDrafts(applied, "order-1", identity, dec("100"), dec("90"), "SAVE10", fixedNow)

	require.Len(t, drafts, 1)
	d := drafts[0]

	assert.Equal(t, "order-1", d.OrderPromotion.OrderID)
	assert.Equal(t, p.ID, d.OrderPromotion.PromotionID)
	assert.True(t, dec("10").Equal(d.OrderPromotion.DiscountAmount))

	assert.NotEmpty(t, d.Usage.ID)
	assert.Equal(t, p.TenantID, d.Usage.TenantID)
	assert.Equal(t, "cust-1", d.Usage.CustomerID)
	assert.Equal(t, "+15550001111", d.Usage.CustomerPhone)
	assert.Equal(t, "SAVE10", d.Usage.CodeUsed)
	assert.True(t, dec("100").Equal(d.Usage.OriginalAmount))
	assert.True(t, dec("90").Equal(d.Usage.FinalAmount))
	assert.Equal(t, fixedNow, d.Usage.UsedAt)
	require.Len(t, d.Usage.Items, 1)
	assert.Equal(t, "cola", d.Usage.Items[0].MenuItemID)

	require.NotNil(t, d.Counter)
	assert.Equal(t, "cust-1", d.Counter.CustomerKey)
	assert.Equal(t, p.ID, d.Counter.PromotionID)
}

func TestBuildUsageDrafts_CodeOnlyRecordedForMatchingPromotion(t *testing.T) {
	withCode := basePromotion()
	withCode.ID = "with-code"
	withCode.PromoCode = "SAVE10"
	without := basePromotion()
	without.ID = "without-code"

	drafts := BuildUsageDrafts(
		[]Candidate{
			{Promotion: withCode, Amount: dec("5")},
			{Promotion: without, Amount: dec("3")},
		},
		"order-1", CustomerIdentity{CustomerID: "c1"}, dec("50"), dec("42"), "SAVE10", fixedNow,
	)

	require.Len(t, drafts, 2)
	assert.Equal(t, "SAVE10", drafts[0].Usage.CodeUsed)
	assert.Empty(t, drafts[1].Usage.CodeUsed)
}

func TestBuildUsageDrafts_AnonymousOrderHasNoCounter(t *testing.T) {
	drafts := BuildUsageDrafts(
		[]Candidate{{Promotion: basePromotion(), Amount: dec("5")}},
		"order-1", CustomerIdentity{}, dec("50"), dec("45"), "", fixedNow,
	)

	require.Len(t, drafts, 1)
	assert.Nil(t, drafts[0].Counter)
	assert.Empty(t, drafts[0].Usage.CustomerID)
}

func TestCustomerIdentity_Key(t *testing.T) {
	assert.Equal(t, "c1", CustomerIdentity{CustomerID: "c1", Phone: "p1"}.Key())
	assert.Equal(t, "p1", CustomerIdentity{Phone: "p1"}.Key())
	assert.Empty(t, CustomerIdentity{}.Key())
}

func TestBuildUsageDrafts_EmptyAppliedSet(t *testing.T) {
	drafts := BuildUsageDrafts(nil, "order-1", CustomerIdentity{}, decimal.Zero, decimal.Zero, "", fixedNow)
	assert.Empty(t, drafts)
}
