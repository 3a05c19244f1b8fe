package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/bookshop-pricing/internal/domain/catalog"
)

// RuleKind identifies a discount rule for priority ordering and reporting.
type RuleKind string

const (
	RuleGroup    RuleKind = "group"
	RuleLoyalty  RuleKind = "loyalty"
	RuleSeasonal RuleKind = "seasonal"
	RuleRegional RuleKind = "regional"
	RuleAuthor   RuleKind = "author"
	RuleCoupon   RuleKind = "coupon"
)

// AuthorScope selects what an author discount applies to.
type AuthorScope string

const (
	// AuthorScopeMatchedItems discounts only the line items by an eligible author.
	AuthorScopeMatchedItems AuthorScope = "matched_items"
	// AuthorScopeWholeOrder discounts the entire order when any item matches.
	AuthorScopeWholeOrder AuthorScope = "whole_order"
)

// defaultRulePriority is the tie-break order used when Config.RulePriority
// is empty. Earlier entries win ties.
var defaultRulePriority = []RuleKind{
	RuleGroup, RuleLoyalty, RuleSeasonal, RuleRegional, RuleAuthor, RuleCoupon,
}

// GroupDiscountConfig targets a set of customer groups with a percentage.
type GroupDiscountConfig struct {
	Groups  []catalog.Group
	Percent decimal.Decimal
}

// LoyaltyDiscountConfig rewards account tenure at the order date.
type LoyaltyDiscountConfig struct {
	ThresholdDays int
	Percent       decimal.Decimal
}

// SeasonalDiscountConfig applies a flat percentage to every customer whose
// order falls on the configured calendar date. A zero Date disables the rule.
type SeasonalDiscountConfig struct {
	Date    time.Time
	Percent decimal.Decimal
}

// RegionalDiscountConfig targets a set of customer locations. Locations are
// matched case-insensitively.
type RegionalDiscountConfig struct {
	Locations []string
	Percent   decimal.Decimal
}

// AuthorDiscountConfig targets orders containing books by eligible authors.
type AuthorDiscountConfig struct {
	Authors []string
	Percent decimal.Decimal
	Scope   AuthorScope
}

// ShippingConfig controls the free-shipping threshold and the distance-based
// fee applied below it.
type ShippingConfig struct {
	FreeThreshold decimal.Decimal
	BaseFee       decimal.Decimal
	RatePerKm     decimal.Decimal
	StoreLocation string
}

// Config is the engine's rule table. It is validated once at engine
// construction, not at each call.
type Config struct {
	Group    GroupDiscountConfig
	Loyalty  LoyaltyDiscountConfig
	Seasonal SeasonalDiscountConfig
	Regional RegionalDiscountConfig
	Author   AuthorDiscountConfig

	// RulePriority breaks ties between discounts of equal amount; earlier
	// entries win. Defaults to group, loyalty, seasonal, regional, author,
	// coupon when empty.
	RulePriority []RuleKind

	// Stacking sums all qualifying discounts (capped at the subtotal)
	// instead of selecting the single best one. Off by default.
	Stacking bool

	Shipping ShippingConfig
}

// Validate checks percentages, fees, and the rule priority list. It returns
// a *ConfigurationError describing the first violation found.
func (c *Config) Validate() error {
	checks := []struct {
		field string
		pct   decimal.Decimal
	}{
		{"group.percent", c.Group.Percent},
		{"loyalty.percent", c.Loyalty.Percent},
		{"seasonal.percent", c.Seasonal.Percent},
		{"regional.percent", c.Regional.Percent},
		{"author.percent", c.Author.Percent},
	}
	for _, chk := range checks {
		if chk.pct.IsNegative() || chk.pct.GreaterThan(decimal.NewFromInt(100)) {
			return &ConfigurationError{Field: chk.field, Reason: "percentage must be between 0 and 100"}
		}
	}

	if c.Loyalty.ThresholdDays < 0 {
		return &ConfigurationError{Field: "loyalty.threshold_days", Reason: "must not be negative"}
	}

	switch c.Author.Scope {
	case "", AuthorScopeMatchedItems, AuthorScopeWholeOrder:
	default:
		return &ConfigurationError{Field: "author.scope", Reason: "must be matched_items or whole_order"}
	}

	if c.Shipping.FreeThreshold.IsNegative() {
		return &ConfigurationError{Field: "shipping.free_threshold", Reason: "must not be negative"}
	}
	if c.Shipping.BaseFee.IsNegative() {
		return &ConfigurationError{Field: "shipping.base_fee", Reason: "must not be negative"}
	}
	if c.Shipping.RatePerKm.IsNegative() {
		return &ConfigurationError{Field: "shipping.rate_per_km", Reason: "must not be negative"}
	}
	if c.Shipping.StoreLocation == "" {
		return &ConfigurationError{Field: "shipping.store_location", Reason: "store location is required"}
	}

	seen := make(map[RuleKind]bool, len(c.RulePriority))
	for _, r := range c.RulePriority {
		switch r {
		case RuleGroup, RuleLoyalty, RuleSeasonal, RuleRegional, RuleAuthor, RuleCoupon:
		default:
			return &ConfigurationError{Field: "rule_priority", Reason: "unknown rule " + string(r)}
		}
		if seen[r] {
			return &ConfigurationError{Field: "rule_priority", Reason: "duplicate rule " + string(r)}
		}
		seen[r] = true
	}

	return nil
}

// priorityIndex maps each rule kind to its tie-break rank. Rules missing
// from the configured list rank after all listed ones.
func (c *Config) priorityIndex() map[RuleKind]int {
	priority := c.RulePriority
	if len(priority) == 0 {
		priority = defaultRulePriority
	}

	idx := make(map[RuleKind]int, len(defaultRulePriority))
	for i, r := range priority {
		idx[r] = i
	}
	for _, r := range defaultRulePriority {
		if _, ok := idx[r]; !ok {
			idx[r] = len(idx)
		}
	}
	return idx
}
