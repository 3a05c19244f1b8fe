package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/bookshop-pricing/internal/domain/coupon"
)

// Engine evaluates the configured discount and shipping rules over orders.
// Construct it once with NewEngine; PriceOrder is safe for concurrent use.
type Engine struct {
	cfg      Config
	evals    []evaluator
	priority map[RuleKind]int
	distance DistanceFunc
	coupons  coupon.Validator
	newID    func() string
}

// Option customises an Engine beyond its rule configuration.
type Option func(*Engine)

// WithCouponValidator wires an optional coupon validator. Orders carrying a
// coupon code fail when no validator is configured.
func WithCouponValidator(v coupon.Validator) Option {
	return func(e *Engine) { e.coupons = v }
}

// NewEngine validates the rule configuration and compiles its evaluators.
// A nil distance lookup is a configuration error: shipping below the free
// threshold cannot be computed without one.
func NewEngine(cfg Config, distance DistanceFunc, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if distance == nil {
		return nil, &ConfigurationError{Field: "distance", Reason: "distance lookup is required"}
	}

	e := &Engine{
		cfg:      cfg,
		evals:    buildEvaluators(&cfg),
		priority: cfg.priorityIndex(),
		distance: distance,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// PriceOrder computes the priced total for the order: subtotal, the selected
// discount, and shipping. It is deterministic for identical inputs and
// configuration, and either returns a fully computed PricedOrder or fails
// atomically.
func (e *Engine) PriceOrder(ctx context.Context, ord *Order) (*PricedOrder, error) {
	if err := validateOrder(ord); err != nil {
		return nil, err
	}

	subtotal := ord.Subtotal()

	candidates := make([]candidate, 0, len(e.evals)+1)
	for _, eval := range e.evals {
		if c, ok := eval(ord, subtotal); ok {
			candidates = append(candidates, c)
		}
	}

	if ord.CouponCode != "" {
		c, err := e.couponCandidate(ctx, ord)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	discount, applied := e.selectDiscount(candidates, subtotal)

	shipping, err := e.shippingCost(ctx, subtotal, ord.Customer.Location)
	if err != nil {
		return nil, errors.Wrap(err, "shipping")
	}

	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	// The coupon's use is consumed only once the order is fully priced and
	// the coupon is part of the applied discount. A coupon that loses the
	// selection, or an order that fails earlier, leaves no state behind.
	if couponApplied(applied) {
		if err := e.coupons.Commit(ctx, ord.CouponCode); err != nil {
			return nil, errors.Wrap(err, "commit coupon use")
		}
	}

	return &PricedOrder{
		ID:        e.newID(),
		Subtotal:  subtotal.Round(2),
		Discount:  discount.Round(2),
		Discounts: applied,
		Shipping:  shipping.Round(2),
		Total:     total.Round(2),
	}, nil
}

// couponCandidate validates the order's coupon code and converts the result
// into a discount candidate.
func (e *Engine) couponCandidate(ctx context.Context, ord *Order) (candidate, error) {
	if e.coupons == nil {
		return candidate{}, &ConfigurationError{Field: "coupons", Reason: "coupon code given but no validator configured"}
	}

	items := make([]coupon.Item, len(ord.Items))
	for i, item := range ord.Items {
		items[i] = coupon.Item{
			BookID:   item.BookID,
			Author:   item.Author,
			Price:    item.UnitPrice,
			Quantity: item.Quantity,
		}
	}

	d, err := e.coupons.Validate(ctx, ord.CouponCode, items)
	if err != nil {
		return candidate{}, errors.Wrap(err, "validate coupon")
	}

	return candidate{
		Rule:        RuleCoupon,
		Amount:      d.Amount,
		Description: d.Description,
	}, nil
}

// selectDiscount picks the single highest candidate (ties broken by the
// configured rule priority), or sums all candidates when stacking is
// enabled. The result is capped at the subtotal; under stacking each entry
// records the amount it actually contributed, so the breakdown always sums
// to the applied discount.
func (e *Engine) selectDiscount(candidates []candidate, subtotal decimal.Decimal) (decimal.Decimal, []AppliedDiscount) {
	if len(candidates) == 0 {
		return decimal.Zero, nil
	}

	if e.cfg.Stacking {
		total := decimal.Zero
		applied := make([]AppliedDiscount, 0, len(candidates))
		for _, c := range candidates {
			remaining := subtotal.Sub(total)
			if !remaining.IsPositive() {
				break
			}
			amount := decimal.Min(c.Amount, remaining)
			total = total.Add(amount)
			applied = append(applied, AppliedDiscount{Rule: c.Rule, Amount: amount, Description: c.Description})
		}
		return total, applied
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.Amount.GreaterThan(best.Amount):
			best = c
		case c.Amount.Equal(best.Amount) && e.priority[c.Rule] < e.priority[best.Rule]:
			best = c
		}
	}

	amount := decimal.Min(best.Amount, subtotal)
	return amount, []AppliedDiscount{{Rule: best.Rule, Amount: amount, Description: best.Description}}
}

// couponApplied reports whether the coupon is part of the applied discount.
func couponApplied(applied []AppliedDiscount) bool {
	for _, a := range applied {
		if a.Rule == RuleCoupon {
			return true
		}
	}
	return false
}

// validateOrder rejects malformed orders before any rule runs.
func validateOrder(ord *Order) error {
	if ord == nil {
		return &InvalidInputError{Reason: "order is nil"}
	}
	if len(ord.Items) == 0 {
		return &InvalidInputError{Reason: "order has no items"}
	}
	if ord.Date.IsZero() {
		return &InvalidInputError{Reason: "order date is missing"}
	}
	if ord.Customer.Username == "" {
		return &InvalidInputError{Reason: "missing customer reference"}
	}
	for _, item := range ord.Items {
		if item.Quantity <= 0 {
			return &InvalidInputError{Reason: "quantity must be greater than 0 for book " + item.BookID}
		}
		if item.UnitPrice.IsNegative() {
			return &InvalidInputError{Reason: "negative price for book " + item.BookID}
		}
	}
	return nil
}
