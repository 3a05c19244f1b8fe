package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCouponRepo struct {
	rule          *Rule
	err           error
	incrementErr  error
	incrementCode string
	increments    int
}

func (m *mockCouponRepo) FindByCode(_ context.Context, _ string) (*Rule, error) {
	return m.rule, m.err
}

func (m *mockCouponRepo) IncrementUses(_ context.Context, code string) error {
	m.incrementCode = code
	m.increments++
	return m.incrementErr
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)
	farFuture := fixedNow.Add(48 * time.Hour)

	tests := []struct {
		name       string
		repo       *mockCouponRepo
		code       string
		items      []Item
		wantAmount decimal.Decimal
		wantErr    error
	}{
		{
			name: "valid code returns discount",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "SAVE10",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					Description:  "10% off",
				},
			},
			code: "SAVE10",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantAmount: decimal.NewFromInt(10),
		},
		{
			name: "unknown code returns ErrInvalidCoupon",
			repo: &mockCouponRepo{
				err: ErrInvalidCoupon,
			},
			code: "BOGUS",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(50), Quantity: 1},
			},
			wantErr: ErrInvalidCoupon,
		},
		{
			name: "expired coupon (valid_until in past)",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "OLD",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					ValidUntil:   &pastTime,
					Description:  "expired",
				},
			},
			code: "OLD",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantErr: ErrCouponExpired,
		},
		{
			name: "coupon not yet valid (valid_from in future)",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "FUTURE",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					ValidFrom:    &futureTime,
					Description:  "not yet",
				},
			},
			code: "FUTURE",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantErr: ErrCouponExpired,
		},
		{
			name: "coupon within valid window succeeds",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "WINDOW",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					ValidFrom:    &pastTime,
					ValidUntil:   &futureTime,
					Description:  "valid window",
				},
			},
			code: "WINDOW",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantAmount: decimal.NewFromInt(10),
		},
		{
			name: "coupon with open start and future end succeeds",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "NOSTART",
					DiscountType: DiscountFixed,
					Value:        decimal.NewFromInt(5),
					ValidUntil:   &farFuture,
					Description:  "no start",
				},
			},
			code: "NOSTART",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantAmount: decimal.NewFromInt(5),
		},
		{
			name: "usage limit reached",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "LIMITED",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					MaxUses:      100,
					Uses:         100,
					Description:  "limited",
				},
			},
			code: "LIMITED",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantErr: ErrCouponUsageLimitReached,
		},
		{
			name: "usage under limit succeeds",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "HASROOM",
					DiscountType: DiscountPercentage,
					Value:        decimal.NewFromInt(10),
					MaxUses:      100,
					Uses:         50,
					Description:  "has room",
				},
			},
			code: "HASROOM",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantAmount: decimal.NewFromInt(10),
		},
		{
			name: "unlimited uses (max_uses=0) always succeeds",
			repo: &mockCouponRepo{
				rule: &Rule{
					Code:         "UNLIMITED",
					DiscountType: DiscountFixed,
					Value:        decimal.NewFromInt(5),
					MaxUses:      0,
					Uses:         9999,
					Description:  "unlimited",
				},
			},
			code: "UNLIMITED",
			items: []Item{
				{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
			},
			wantAmount: decimal.NewFromInt(5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), tt.code, tt.items)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, tt.wantAmount.Equal(got.Amount),
				"expected amount %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}

func TestRepoValidator_ValidateDoesNotConsumeUse(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:         "READONLY",
			DiscountType: DiscountFixed,
			Value:        decimal.NewFromInt(5),
			Description:  "read only",
		},
	}

	v := NewRepoValidator(repo)
	got, err := v.Validate(context.Background(), "READONLY", []Item{
		{BookID: "b1", Price: decimal.NewFromInt(100), Quantity: 1},
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Zero(t, repo.increments, "Validate must not touch the usage counter")
}

func TestRepoValidator_CommitConsumesUse(t *testing.T) {
	repo := &mockCouponRepo{
		rule: &Rule{
			Code:         "INC",
			DiscountType: DiscountFixed,
			Value:        decimal.NewFromInt(5),
			Description:  "inc test",
		},
	}

	v := NewRepoValidator(repo)
	require.NoError(t, v.Commit(context.Background(), "INC"))

	assert.Equal(t, "INC", repo.incrementCode)
	assert.Equal(t, 1, repo.increments)
}

func TestRepoValidator_CommitError(t *testing.T) {
	repo := &mockCouponRepo{
		incrementErr: errors.New("store error"),
	}

	v := NewRepoValidator(repo)
	err := v.Commit(context.Background(), "FAIL")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "increment coupon uses")
}
