// Package store holds the in-memory master data repositories backing the
// pricing engine: books, customers, and coupon rules. Data is loaded once
// at startup; only coupon usage counters mutate afterwards.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/xenking/bookshop-pricing/internal/domain/catalog"
	"github.com/xenking/bookshop-pricing/internal/domain/coupon"
)

// Compile-time checks ensuring Memory satisfies the domain repositories.
var (
	_ catalog.BookRepository     = (*Memory)(nil)
	_ catalog.CustomerRepository = (*Memory)(nil)
	_ coupon.Repository          = (*Memory)(nil)
)

// Memory is an in-memory master data store.
type Memory struct {
	books     []catalog.Book
	byTitle   map[string]*catalog.Book
	customers map[string]*catalog.Customer

	// mu guards coupons; usage counters mutate on successful validation.
	mu      sync.RWMutex
	coupons map[string]*coupon.Rule

	// codes answers "definitely not a coupon" without touching the rule
	// map; built by the coupon-ingest tool. Nil disables the check.
	codes *bloom.BloomFilter
}

// New builds a Memory store over the given master data. Slices are copied;
// the caller may discard its inputs.
func New(books []catalog.Book, customers []catalog.Customer, coupons []coupon.Rule) *Memory {
	m := &Memory{
		books:     make([]catalog.Book, len(books)),
		byTitle:   make(map[string]*catalog.Book, len(books)),
		customers: make(map[string]*catalog.Customer, len(customers)),
		coupons:   make(map[string]*coupon.Rule, len(coupons)),
	}

	copy(m.books, books)
	for i := range m.books {
		m.byTitle[strings.ToLower(m.books[i].Title)] = &m.books[i]
	}
	for _, c := range customers {
		m.customers[strings.ToLower(c.Username)] = &c
	}
	for _, r := range coupons {
		m.coupons[normalizeCode(r.Code)] = &r
	}

	return m
}

// SetCodeFilter installs a Bloom filter of known coupon codes. Codes the
// filter rejects are reported invalid without a map lookup.
func (m *Memory) SetCodeFilter(f *bloom.BloomFilter) {
	m.codes = f
}

// List returns all books in the catalog.
func (m *Memory) List(_ context.Context) ([]catalog.Book, error) {
	out := make([]catalog.Book, len(m.books))
	copy(out, m.books)
	return out, nil
}

// GetByTitle looks up a book by its title, case-insensitively.
func (m *Memory) GetByTitle(_ context.Context, title string) (*catalog.Book, error) {
	b, ok := m.byTitle[strings.ToLower(title)]
	if !ok {
		return nil, catalog.ErrBookNotFound
	}
	out := *b
	return &out, nil
}

// ListByAuthor returns all books by the given author.
func (m *Memory) ListByAuthor(_ context.Context, author string) ([]catalog.Book, error) {
	var out []catalog.Book
	for _, b := range m.books {
		if strings.EqualFold(b.Author, author) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetByUsername looks up a customer profile by username.
func (m *Memory) GetByUsername(_ context.Context, username string) (*catalog.Customer, error) {
	c, ok := m.customers[strings.ToLower(username)]
	if !ok {
		return nil, catalog.ErrCustomerNotFound
	}
	out := *c
	return &out, nil
}

// ListByLocation returns all customers at the given location.
func (m *Memory) ListByLocation(_ context.Context, location string) ([]catalog.Customer, error) {
	var out []catalog.Customer
	for _, c := range m.customers {
		if strings.EqualFold(c.Location, location) {
			out = append(out, *c)
		}
	}
	return out, nil
}

// FindByCode looks up a coupon rule by its code. Returns
// coupon.ErrInvalidCoupon when the code is unknown or filtered out.
func (m *Memory) FindByCode(_ context.Context, code string) (*coupon.Rule, error) {
	normalized := normalizeCode(code)

	if m.codes != nil && !m.codes.TestString(normalized) {
		return nil, coupon.ErrInvalidCoupon
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.coupons[normalized]
	if !ok {
		return nil, coupon.ErrInvalidCoupon
	}
	out := *r
	return &out, nil
}

// IncrementUses bumps the usage counter of the given coupon code.
func (m *Memory) IncrementUses(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.coupons[normalizeCode(code)]
	if !ok {
		return coupon.ErrInvalidCoupon
	}
	r.Uses++
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
