package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Validator resolves a coupon code into a discount without consuming it.
// Validate is read-only; callers settle on a discount first and call Commit
// only for the coupon they actually applied.
type Validator interface {
	Validate(ctx context.Context, code string, items []Item) (*Discount, error)
	Commit(ctx context.Context, code string) error
}

// RepoValidator implements Validator over a Repository of coupon rules.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the rule for the given code, checks its validity window
// and usage limit, and computes the discount over the order items. It does
// not change the rule's usage counter.
func (v *RepoValidator) Validate(ctx context.Context, code string, items []Item) (*Discount, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if err := checkRule(rule, v.now()); err != nil {
		return nil, err
	}

	d, err := Apply(rule, items)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Commit records one use of the coupon. Call it once the discount has been
// applied to a fully priced order.
func (v *RepoValidator) Commit(ctx context.Context, code string) error {
	if err := v.repo.IncrementUses(ctx, code); err != nil {
		return errors.Wrap(err, "increment coupon uses")
	}
	return nil
}

// checkRule rejects rules outside their validity window or over their
// usage limit.
func checkRule(rule *Rule, now time.Time) error {
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return ErrCouponExpired
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return ErrCouponExpired
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return ErrCouponUsageLimitReached
	}
	return nil
}
