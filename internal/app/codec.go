package app

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/bookshop-pricing/internal/domain/pricing"
)

// OrderRequest is the JSON shape the price-order tool accepts:
//
//	{"customer": "john_doe", "date": "2026-11-27", "coupon_code": "HAPPYHRS",
//	 "items": [{"title": "Dune", "quantity": 2}]}
//
// A missing date defaults to the current day.
type OrderRequest struct {
	Customer   string
	Date       time.Time
	CouponCode string
	Items      []OrderRequestItem
}

// OrderRequestItem references a book by title.
type OrderRequestItem struct {
	Title    string
	Quantity int
}

// decodeOrderRequest parses an order request from JSON.
func decodeOrderRequest(data []byte) (*OrderRequest, error) {
	req := &OrderRequest{}

	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customer":
			v, err := d.Str()
			req.Customer = v
			return err
		case "date":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse("2006-01-02", v)
			if err != nil {
				return errors.Wrap(err, "parse date")
			}
			req.Date = t
			return nil
		case "coupon_code":
			v, err := d.Str()
			req.CouponCode = v
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var item OrderRequestItem
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "title":
						v, err := d.Str()
						item.Title = v
						return err
					case "quantity":
						v, err := d.Int()
						item.Quantity = v
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode order request")
	}

	if req.Date.IsZero() {
		req.Date = time.Now()
	}
	return req, nil
}

// encodePricedOrder renders a priced order as JSON.
func encodePricedOrder(po *pricing.PricedOrder) []byte {
	var e jx.Encoder

	e.ObjStart()
	e.FieldStart("id")
	e.Str(po.ID)
	e.FieldStart("subtotal")
	e.Float64(po.Subtotal.InexactFloat64())
	e.FieldStart("discount")
	e.Float64(po.Discount.InexactFloat64())
	e.FieldStart("discounts")
	e.ArrStart()
	for _, d := range po.Discounts {
		e.ObjStart()
		e.FieldStart("rule")
		e.Str(string(d.Rule))
		e.FieldStart("amount")
		e.Float64(d.Amount.InexactFloat64())
		e.FieldStart("description")
		e.Str(d.Description)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("shipping")
	e.Float64(po.Shipping.InexactFloat64())
	e.FieldStart("total")
	e.Float64(po.Total.InexactFloat64())
	e.ObjEnd()

	return e.Bytes()
}
