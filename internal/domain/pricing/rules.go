package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// candidate is one qualifying discount produced by a rule evaluator.
type candidate struct {
	Rule        RuleKind
	Amount      decimal.Decimal
	Description string
}

// evaluator inspects an order and either produces a candidate discount or
// reports that the rule does not apply.
type evaluator func(ord *Order, subtotal decimal.Decimal) (candidate, bool)

// buildEvaluators compiles the configured rule table into the fixed, ordered
// list of evaluators the engine runs on every call. Rules with a zero
// percentage are compiled out.
func buildEvaluators(cfg *Config) []evaluator {
	evals := make([]evaluator, 0, 5)

	if len(cfg.Group.Groups) > 0 && cfg.Group.Percent.IsPositive() {
		evals = append(evals, groupEvaluator(cfg.Group))
	}
	if cfg.Loyalty.ThresholdDays > 0 && cfg.Loyalty.Percent.IsPositive() {
		evals = append(evals, loyaltyEvaluator(cfg.Loyalty))
	}
	if !cfg.Seasonal.Date.IsZero() && cfg.Seasonal.Percent.IsPositive() {
		evals = append(evals, seasonalEvaluator(cfg.Seasonal))
	}
	if len(cfg.Regional.Locations) > 0 && cfg.Regional.Percent.IsPositive() {
		evals = append(evals, regionalEvaluator(cfg.Regional))
	}
	if len(cfg.Author.Authors) > 0 && cfg.Author.Percent.IsPositive() {
		evals = append(evals, authorEvaluator(cfg.Author))
	}

	return evals
}

func groupEvaluator(cfg GroupDiscountConfig) evaluator {
	eligible := make(map[string]bool, len(cfg.Groups))
	for _, g := range cfg.Groups {
		eligible[strings.ToLower(string(g))] = true
	}

	return func(ord *Order, subtotal decimal.Decimal) (candidate, bool) {
		if !eligible[strings.ToLower(string(ord.Customer.Group))] {
			return candidate{}, false
		}
		return candidate{
			Rule:        RuleGroup,
			Amount:      percentOf(subtotal, cfg.Percent),
			Description: fmt.Sprintf("%s%% off for %s customers", cfg.Percent, ord.Customer.Group),
		}, true
	}
}

func loyaltyEvaluator(cfg LoyaltyDiscountConfig) evaluator {
	threshold := time.Duration(cfg.ThresholdDays) * 24 * time.Hour

	return func(ord *Order, subtotal decimal.Decimal) (candidate, bool) {
		if ord.Customer.Tenure(ord.Date) < threshold {
			return candidate{}, false
		}
		return candidate{
			Rule:        RuleLoyalty,
			Amount:      percentOf(subtotal, cfg.Percent),
			Description: fmt.Sprintf("%s%% loyalty discount (account older than %d days)", cfg.Percent, cfg.ThresholdDays),
		}, true
	}
}

func seasonalEvaluator(cfg SeasonalDiscountConfig) evaluator {
	return func(ord *Order, subtotal decimal.Decimal) (candidate, bool) {
		if !sameCalendarDay(ord.Date, cfg.Date) {
			return candidate{}, false
		}
		return candidate{
			Rule:        RuleSeasonal,
			Amount:      percentOf(subtotal, cfg.Percent),
			Description: fmt.Sprintf("%s%% Black Friday discount", cfg.Percent),
		}, true
	}
}

func regionalEvaluator(cfg RegionalDiscountConfig) evaluator {
	eligible := make(map[string]bool, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		eligible[strings.ToLower(loc)] = true
	}

	return func(ord *Order, subtotal decimal.Decimal) (candidate, bool) {
		if !eligible[strings.ToLower(ord.Customer.Location)] {
			return candidate{}, false
		}
		return candidate{
			Rule:        RuleRegional,
			Amount:      percentOf(subtotal, cfg.Percent),
			Description: fmt.Sprintf("%s%% regional discount for %s", cfg.Percent, ord.Customer.Location),
		}, true
	}
}

func authorEvaluator(cfg AuthorDiscountConfig) evaluator {
	eligible := make(map[string]bool, len(cfg.Authors))
	for _, a := range cfg.Authors {
		eligible[strings.ToLower(a)] = true
	}

	scope := cfg.Scope
	if scope == "" {
		scope = AuthorScopeMatchedItems
	}

	return func(ord *Order, subtotal decimal.Decimal) (candidate, bool) {
		matched := decimal.Zero
		for _, item := range ord.Items {
			if eligible[strings.ToLower(item.Author)] {
				matched = matched.Add(item.LineTotal())
			}
		}
		if matched.IsZero() {
			return candidate{}, false
		}

		base := matched
		if scope == AuthorScopeWholeOrder {
			base = subtotal
		}
		return candidate{
			Rule:        RuleAuthor,
			Amount:      percentOf(base, cfg.Percent),
			Description: fmt.Sprintf("%s%% author discount", cfg.Percent),
		}, true
	}
}

// percentOf returns pct percent of amount, rounded to 2 decimal places.
func percentOf(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}

// sameCalendarDay reports whether a and b fall on the same year, month and day.
func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
