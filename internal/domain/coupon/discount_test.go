package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name        string
		rule        *Rule
		items       []Item
		wantAmount  decimal.Decimal
		wantDesc    string
		wantErr     error
		wantErrText string
	}{
		{
			name: "percentage 18% off $100 subtotal",
			rule: &Rule{
				Code:         "PCT18",
				DiscountType: DiscountPercentage,
				Value:        d("18"),
				Description:  "18% off",
			},
			items: []Item{
				{BookID: "b1", Price: d("50"), Quantity: 2},
			},
			wantAmount: d("18"),
			wantDesc:   "18% off",
		},
		{
			name: "percentage 100% off equals subtotal",
			rule: &Rule{
				Code:         "FREE",
				DiscountType: DiscountPercentage,
				Value:        d("100"),
				Description:  "100% off",
			},
			items: []Item{
				{BookID: "b1", Price: d("25"), Quantity: 4},
			},
			wantAmount: d("100"),
			wantDesc:   "100% off",
		},
		{
			name: "fixed $9 off $100 subtotal",
			rule: &Rule{
				Code:         "FLAT9",
				DiscountType: DiscountFixed,
				Value:        d("9"),
				Description:  "$9 off",
			},
			items: []Item{
				{BookID: "b1", Price: d("100"), Quantity: 1},
			},
			wantAmount: d("9"),
			wantDesc:   "$9 off",
		},
		{
			name: "fixed $200 off capped at $100 subtotal",
			rule: &Rule{
				Code:         "BIG",
				DiscountType: DiscountFixed,
				Value:        d("200"),
				Description:  "$200 off",
			},
			items: []Item{
				{BookID: "b1", Price: d("50"), Quantity: 2},
			},
			wantAmount: d("100"),
			wantDesc:   "$200 off",
		},
		{
			name: "free lowest with 3 books",
			rule: &Rule{
				Code:         "FREELOW",
				DiscountType: DiscountFreeLowest,
				Value:        decimal.Zero,
				Description:  "free lowest book",
			},
			items: []Item{
				{BookID: "b1", Price: d("5"), Quantity: 1},
				{BookID: "b2", Price: d("10"), Quantity: 1},
				{BookID: "b3", Price: d("15"), Quantity: 1},
			},
			wantAmount: d("5"),
			wantDesc:   "free lowest book",
		},
		{
			name: "min items not met returns ErrInvalidCoupon",
			rule: &Rule{
				Code:         "MIN2",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				MinItems:     2,
				Description:  "10% off min 2",
			},
			items: []Item{
				{BookID: "b1", Price: d("50"), Quantity: 1},
			},
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "min items met succeeds",
			rule: &Rule{
				Code:         "MIN2",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				MinItems:     2,
				Description:  "10% off min 2",
			},
			items: []Item{
				{BookID: "b1", Price: d("50"), Quantity: 2},
			},
			wantAmount: d("10"),
			wantDesc:   "10% off min 2",
		},
		{
			name: "author-restricted percentage applies to matching lines only",
			rule: &Rule{
				Code:         "ADAMS10",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				AuthorOnly:   "Douglas Adams",
				Description:  "10% off Douglas Adams",
			},
			items: []Item{
				{BookID: "b1", Author: "Douglas Adams", Price: d("30"), Quantity: 2},
				{BookID: "b2", Author: "Frank Herbert", Price: d("100"), Quantity: 1},
			},
			// 10% of 2 * $30, the Herbert line is untouched.
			wantAmount: d("6"),
			wantDesc:   "10% off Douglas Adams",
		},
		{
			name: "author-restricted match is case-insensitive",
			rule: &Rule{
				Code:         "ADAMS10",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				AuthorOnly:   "douglas adams",
				Description:  "10% off Douglas Adams",
			},
			items: []Item{
				{BookID: "b1", Author: "Douglas Adams", Price: d("30"), Quantity: 1},
			},
			wantAmount: d("3"),
			wantDesc:   "10% off Douglas Adams",
		},
		{
			name: "author-restricted coupon with no matching lines is invalid",
			rule: &Rule{
				Code:         "ADAMS10",
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				AuthorOnly:   "Douglas Adams",
				Description:  "10% off Douglas Adams",
			},
			items: []Item{
				{BookID: "b1", Author: "Frank Herbert", Price: d("100"), Quantity: 1},
			},
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "author-restricted fixed capped at matching subtotal",
			rule: &Rule{
				Code:         "ADAMS50",
				DiscountType: DiscountFixed,
				Value:        d("50"),
				AuthorOnly:   "Douglas Adams",
				Description:  "$50 off Douglas Adams",
			},
			items: []Item{
				{BookID: "b1", Author: "Douglas Adams", Price: d("20"), Quantity: 1},
				{BookID: "b2", Author: "Frank Herbert", Price: d("100"), Quantity: 1},
			},
			wantAmount: d("20"),
			wantDesc:   "$50 off Douglas Adams",
		},
		{
			name: "author-restricted free lowest is unsupported",
			rule: &Rule{
				Code:         "ADAMSLOW",
				DiscountType: DiscountFreeLowest,
				Value:        decimal.Zero,
				AuthorOnly:   "Douglas Adams",
				Description:  "free lowest Adams",
			},
			items: []Item{
				{BookID: "b1", Author: "Douglas Adams", Price: d("20"), Quantity: 1},
			},
			wantErrText: "unsupported author-restricted discount type",
		},
		{
			name: "decimal precision rounds to 2 dp",
			rule: &Rule{
				Code:         "PCT33",
				DiscountType: DiscountPercentage,
				Value:        d("33.33"),
				Description:  "33.33% off",
			},
			items: []Item{
				{BookID: "b1", Price: d("10.01"), Quantity: 1},
			},
			// 10.01 * 33.33 / 100 = 3.336333 -> rounds to 3.34
			wantAmount: d("3.34"),
			wantDesc:   "33.33% off",
		},
		{
			name: "unsupported discount type returns error",
			rule: &Rule{
				Code:         "BAD",
				DiscountType: DiscountType("bogus"),
				Value:        d("10"),
				Description:  "bad type",
			},
			items: []Item{
				{BookID: "b1", Price: d("10"), Quantity: 1},
			},
			wantErrText: "unsupported discount type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.rule, tt.items)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantErrText != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrText)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.wantAmount.Equal(got.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Amount)
			assert.Equal(t, tt.wantDesc, got.Description)
		})
	}
}
