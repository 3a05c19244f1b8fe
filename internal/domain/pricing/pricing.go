// Package pricing computes the priced total of a bookshop order: it selects
// the applicable discount from a configured rule set and adds shipping cost.
// The evaluation is a pure function over immutable inputs; callers may share
// one Engine across goroutines.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bookshop-pricing/internal/domain/catalog"
)

// InvalidInputError indicates a malformed order or customer record. It is
// surfaced to the caller immediately and must not be retried.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// ConfigurationError indicates a missing or malformed rule configuration.
// It is fatal to the engine construction or to the call that detects it.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// OrderItem represents a single line item in an order.
type OrderItem struct {
	BookID    string
	Title     string
	Author    string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns unit price * quantity for this item.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the pricing engine's input: the ordered items, the order date,
// the customer placing it, and an optional coupon code.
type Order struct {
	Customer   catalog.Customer
	Items      []OrderItem
	Date       time.Time
	CouponCode string
}

// Subtotal returns the sum of item price * quantity before any discount
// or shipping.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// AppliedDiscount records one discount that contributed to the priced total.
type AppliedDiscount struct {
	Rule        RuleKind
	Amount      decimal.Decimal
	Description string
}

// PricedOrder is the engine's output: a freshly constructed value per
// invocation, owned solely by the caller.
//
// Total = Subtotal - Discount + Shipping, never negative.
type PricedOrder struct {
	ID        string
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Discounts []AppliedDiscount
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}
