// Package masterdata loads the bookshop's master data (books, customers,
// coupon discounts) from CSV files. Files may be stored gzip-compressed with
// a .gz suffix; the three files load concurrently.
package masterdata

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/bookshop-pricing/internal/domain/catalog"
	"github.com/xenking/bookshop-pricing/internal/domain/coupon"
)

const (
	booksFile     = "books.csv"
	customersFile = "customers.csv"
	discountsFile = "discounts.csv"

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Set holds the fully loaded master data.
type Set struct {
	Books     []catalog.Book
	Customers []catalog.Customer
	Coupons   []coupon.Rule
}

// Load reads books.csv, customers.csv and discounts.csv (optionally
// .csv.gz) from dir, concurrently.
func Load(ctx context.Context, dir string) (*Set, error) {
	set := &Set{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		books, err := LoadBooks(ctx, filepath.Join(dir, booksFile))
		if err != nil {
			return errors.Wrap(err, "load books")
		}
		set.Books = books
		return nil
	})
	g.Go(func() error {
		customers, err := LoadCustomers(ctx, filepath.Join(dir, customersFile))
		if err != nil {
			return errors.Wrap(err, "load customers")
		}
		set.Customers = customers
		return nil
	})
	g.Go(func() error {
		coupons, err := LoadCoupons(ctx, filepath.Join(dir, discountsFile))
		if err != nil {
			return errors.Wrap(err, "load discounts")
		}
		set.Coupons = coupons
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}

// LoadBooks reads the book catalog from a CSV file with columns
// id,title,author,price.
func LoadBooks(ctx context.Context, path string) ([]catalog.Book, error) {
	var books []catalog.Book

	err := readCSV(ctx, path, func(row record) error {
		price, err := decimal.NewFromString(row.get("price"))
		if err != nil {
			return errors.Wrapf(err, "parse price for book %q", row.get("title"))
		}
		books = append(books, catalog.Book{
			ID:     row.get("id"),
			Title:  row.get("title"),
			Author: row.get("author"),
			Price:  price,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// LoadCustomers reads customer profiles from a CSV file with columns
// username,group,location,signup_date.
func LoadCustomers(ctx context.Context, path string) ([]catalog.Customer, error) {
	var customers []catalog.Customer

	err := readCSV(ctx, path, func(row record) error {
		signup, err := time.Parse(dateLayout, row.get("signup_date"))
		if err != nil {
			return errors.Wrapf(err, "parse signup_date for customer %q", row.get("username"))
		}
		customers = append(customers, catalog.Customer{
			Username:   row.get("username"),
			Group:      catalog.Group(strings.ToLower(row.get("group"))),
			Location:   row.get("location"),
			SignupDate: signup,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// LoadCoupons reads coupon discount rules from a CSV file with columns
// code,type,value,min_items,author,valid_from,valid_until,max_uses,description.
// valid_from and valid_until may be empty for open-ended coupons.
func LoadCoupons(ctx context.Context, path string) ([]coupon.Rule, error) {
	var rules []coupon.Rule

	err := readCSV(ctx, path, func(row record) error {
		code := row.get("code")

		value, err := decimal.NewFromString(row.get("value"))
		if err != nil {
			return errors.Wrapf(err, "parse value for coupon %q", code)
		}
		minItems, err := parseOptionalInt(row.get("min_items"))
		if err != nil {
			return errors.Wrapf(err, "parse min_items for coupon %q", code)
		}
		maxUses, err := parseOptionalInt(row.get("max_uses"))
		if err != nil {
			return errors.Wrapf(err, "parse max_uses for coupon %q", code)
		}
		validFrom, err := parseOptionalTime(row.get("valid_from"))
		if err != nil {
			return errors.Wrapf(err, "parse valid_from for coupon %q", code)
		}
		validUntil, err := parseOptionalTime(row.get("valid_until"))
		if err != nil {
			return errors.Wrapf(err, "parse valid_until for coupon %q", code)
		}

		rules = append(rules, coupon.Rule{
			Code:         code,
			DiscountType: coupon.DiscountType(row.get("type")),
			Value:        value,
			MinItems:     minItems,
			AuthorOnly:   row.get("author"),
			Description:  row.get("description"),
			ValidFrom:    validFrom,
			ValidUntil:   validUntil,
			MaxUses:      maxUses,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// record maps a CSV row by header name.
type record struct {
	header map[string]int
	fields []string
}

func (r record) get(name string) string {
	idx, ok := r.header[name]
	if !ok || idx >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[idx])
}

// readCSV streams a header-prefixed CSV file, calling fn for each data row.
// Files ending in .gz are decompressed with pgzip; when path itself does not
// exist, path+".gz" is tried before failing.
func readCSV(ctx context.Context, path string, fn func(record) error) error {
	rc, err := openData(path)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	reader := csv.NewReader(rc)
	reader.TrimLeadingSpace = true

	headerRow, err := reader.Read()
	if err != nil {
		return errors.Wrapf(err, "read header of %s", path)
	}
	header := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		header[strings.TrimSpace(strings.ToLower(name))] = i
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if err := fn(record{header: header, fields: fields}); err != nil {
			return err
		}
	}
}

// openData opens path, falling back to path+".gz". Gzip files are wrapped
// in a parallel gzip reader.
func openData(path string) (io.ReadCloser, error) {
	open := func(p string) (io.ReadCloser, error) {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		if !strings.HasSuffix(p, ".gz") {
			return f, nil
		}
		gz, err := pgzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "create gzip reader for %s", p)
		}
		return &gzipReadCloser{gz: gz, f: f}, nil
	}

	rc, err := open(path)
	if err == nil {
		return rc, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	rc, gzErr := open(path + ".gz")
	if gzErr != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	return rc, nil
}

type gzipReadCloser struct {
	gz *pgzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	gzErr := g.gz.Close()
	if err := g.f.Close(); err != nil {
		return err
	}
	return gzErr
}

func parseOptionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		// Date-only validity bounds are accepted as well.
		t, err = time.Parse(dateLayout, s)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}
