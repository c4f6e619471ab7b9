package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(id string, priority int, combinable bool, amount string) Candidate {
	return Candidate{
		Promotion: &Promotion{ID: id, Priority: priority, CanCombine: combinable},
		Amount:    dec(amount),
	}
}

func appliedIDs(applied []Candidate) []string {
	ids := make([]string, len(applied))
	for i, c := range applied {
		ids[i] = c.Promotion.ID
	}
	return ids
}

func TestResolveConflicts(t *testing.T) {
	subtotal := decimal.NewFromInt(100)

	tests := []struct {
		name       string
		candidates []Candidate
		wantIDs    []string
		wantTotal  string
	}{
		{
			name:       "no candidates",
			candidates: nil,
			wantIDs:    []string{},
			wantTotal:  "0",
		},
		{
			name: "single non-combinable wins",
			candidates: []Candidate{
				candidate("a", 5, false, "10"),
			},
			wantIDs:   []string{"a"},
			wantTotal: "10",
		},
		{
			name: "high-priority non-combinable beats combinable pair",
			candidates: []Candidate{
				candidate("a", 5, true, "10"),
				candidate("b", 5, true, "5"),
				candidate("c", 10, false, "20"),
			},
			wantIDs:   []string{"c"},
			wantTotal: "20",
		},
		{
			name: "combinable promotions stack in priority order",
			candidates: []Candidate{
				candidate("b", 5, true, "5"),
				candidate("a", 8, true, "10"),
			},
			wantIDs:   []string{"a", "b"},
			wantTotal: "15",
		},
		{
			name: "non-combinable after accepted combinables is skipped",
			candidates: []Candidate{
				candidate("a", 10, true, "10"),
				candidate("b", 8, false, "50"),
				candidate("c", 5, true, "5"),
			},
			wantIDs:   []string{"a", "c"},
			wantTotal: "15",
		},
		{
			name: "equal priority ties break by ascending id",
			candidates: []Candidate{
				candidate("z", 7, false, "30"),
				candidate("m", 7, false, "40"),
			},
			wantIDs:   []string{"m"},
			wantTotal: "40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			applied, total := ResolveConflicts(tt.candidates, subtotal)

			assert.ElementsMatch(t, tt.wantIDs, appliedIDs(applied))
			assert.True(t, dec(tt.wantTotal).Equal(total), "expected total %s, got %s", tt.wantTotal, total)
		})
	}
}

func TestResolveConflicts_TotalNeverExceedsSubtotal(t *testing.T) {
	subtotal := decimal.NewFromInt(100)
	applied, total := ResolveConflicts([]Candidate{
		candidate("a", 10, true, "80"),
		candidate("b", 5, true, "50"),
		candidate("c", 1, true, "5"),
	}, subtotal)

	require.Len(t, applied, 2)
	assert.True(t, decimal.NewFromInt(100).Equal(total))
	// The last accepted candidate was scaled to the remaining headroom.
	assert.Equal(t, "b", applied[1].Promotion.ID)
	assert.True(t, dec("20").Equal(applied[1].Amount))
	assert.True(t, applied[1].CappedByMax)
	// Nothing beyond it is accepted once headroom is exhausted.
	assert.NotContains(t, appliedIDs(applied), "c")
}

func TestResolveConflicts_DoesNotMutateInput(t *testing.T) {
	in := []Candidate{
		candidate("a", 10, true, "80"),
		candidate("b", 5, true, "50"),
	}

	_, _ = ResolveConflicts(in, decimal.NewFromInt(100))

	assert.True(t, dec("50").Equal(in[1].Amount))
	assert.False(t, in[1].CappedByMax)
}
