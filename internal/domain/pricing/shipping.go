package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DistanceFunc resolves the shipping distance in kilometres between two
// named locations. It is an injected collaborator; the engine does not care
// whether the answer comes from a static table or a geocoding service.
type DistanceFunc func(ctx context.Context, from, to string) (float64, error)

// shippingCost returns zero when the subtotal reaches the free-shipping
// threshold, otherwise base fee + rate * distance(store, customer).
func (e *Engine) shippingCost(ctx context.Context, subtotal decimal.Decimal, customerLocation string) (decimal.Decimal, error) {
	cfg := e.cfg.Shipping

	if subtotal.GreaterThanOrEqual(cfg.FreeThreshold) {
		return decimal.Zero, nil
	}

	dist, err := e.distance(ctx, cfg.StoreLocation, customerLocation)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "distance %s to %s", cfg.StoreLocation, customerLocation)
	}
	if dist < 0 {
		return decimal.Zero, errors.Errorf("negative distance %f from lookup", dist)
	}

	cost := cfg.BaseFee.Add(cfg.RatePerKm.Mul(decimal.NewFromFloat(dist)))
	return cost.Round(2), nil
}
