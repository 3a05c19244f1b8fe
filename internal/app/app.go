package app

import (
	"context"
	"io"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/bookshop-pricing/internal/domain/coupon"
	"github.com/xenking/bookshop-pricing/internal/domain/pricing"
	"github.com/xenking/bookshop-pricing/internal/geo"
	"github.com/xenking/bookshop-pricing/internal/masterdata"
	"github.com/xenking/bookshop-pricing/internal/store"
)

// Run loads master data and configuration, prices the requested order, and
// writes the priced order JSON to stdout. It is the single wiring point for
// the price-order tool.
func Run(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	lg.Info("Loading master data", zap.String("dir", cfg.MasterDataDir))

	set, err := masterdata.Load(ctx, cfg.MasterDataDir)
	if err != nil {
		return errors.Wrap(err, "load master data")
	}
	lg.Info("Master data loaded",
		zap.Int("books", len(set.Books)),
		zap.Int("customers", len(set.Customers)),
		zap.Int("coupons", len(set.Coupons)),
	)

	st := store.New(set.Books, set.Customers, set.Coupons)
	if cfg.CouponFilter != "" {
		filter, err := loadCodeFilter(cfg.CouponFilter)
		if err != nil {
			return errors.Wrap(err, "load coupon filter")
		}
		st.SetCodeFilter(filter)
		lg.Info("Coupon code filter loaded", zap.String("path", cfg.CouponFilter))
	}

	pricingCfg, err := cfg.PricingConfig()
	if err != nil {
		return err
	}

	table := geo.NewTable(cfg.Coordinates())
	engine, err := pricing.NewEngine(pricingCfg, table.Distance,
		pricing.WithCouponValidator(coupon.NewRepoValidator(st)),
	)
	if err != nil {
		return err
	}

	req, err := readOrderRequest(cfg.OrderFile)
	if err != nil {
		return err
	}

	ord, err := resolveOrder(ctx, st, req)
	if err != nil {
		return err
	}

	priced, err := engine.PriceOrder(ctx, ord)
	if err != nil {
		return errors.Wrap(err, "price order")
	}

	out := encodePricedOrder(priced)
	if _, err := os.Stdout.Write(append(out, '\n')); err != nil {
		return errors.Wrap(err, "write priced order")
	}

	lg.Info("Order priced",
		zap.String("order_id", priced.ID),
		zap.String("customer", req.Customer),
		zap.String("subtotal", priced.Subtotal.String()),
		zap.String("discount", priced.Discount.String()),
		zap.String("shipping", priced.Shipping.String()),
		zap.String("total", priced.Total.String()),
	)
	return nil
}

// resolveOrder turns the request's customer username and book titles into a
// fully resolved pricing order.
func resolveOrder(ctx context.Context, st *store.Memory, req *OrderRequest) (*pricing.Order, error) {
	customer, err := st.GetByUsername(ctx, req.Customer)
	if err != nil {
		return nil, errors.Wrapf(err, "customer %q", req.Customer)
	}

	items := make([]pricing.OrderItem, len(req.Items))
	for i, it := range req.Items {
		book, err := st.GetByTitle(ctx, it.Title)
		if err != nil {
			return nil, errors.Wrapf(err, "book %q", it.Title)
		}
		items[i] = pricing.OrderItem{
			BookID:    book.ID,
			Title:     book.Title,
			Author:    book.Author,
			UnitPrice: book.Price,
			Quantity:  it.Quantity,
		}
	}

	return &pricing.Order{
		Customer:   *customer,
		Items:      items,
		Date:       req.Date,
		CouponCode: req.CouponCode,
	}, nil
}

// readOrderRequest reads the order request JSON from the given path, or
// stdin when path is "-".
func readOrderRequest(path string) (*OrderRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read order request")
	}
	return decodeOrderRequest(data)
}

// loadCodeFilter reads a serialized Bloom filter of known coupon codes.
func loadCodeFilter(path string) (*bloom.BloomFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var filter bloom.BloomFilter
	if _, err := filter.ReadFrom(f); err != nil {
		return nil, errors.Wrapf(err, "read filter from %s", path)
	}
	return &filter, nil
}
