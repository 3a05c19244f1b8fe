// Package catalog defines the master-data entities of the bookshop: books,
// authors, and customers. Entities are immutable inputs to the pricing
// engine; repositories provide read access over whatever backing store holds
// the master data.
package catalog

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups.
var (
	ErrBookNotFound     = errors.New("book not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// Group enumerates the customer tiers used by group-targeted discounts.
type Group string

const (
	GroupRegular Group = "regular"
	GroupMember  Group = "member"
	GroupVIP     Group = "vip"
)

// Book represents a catalog item available for purchase.
type Book struct {
	ID     string
	Title  string
	Author string
	Price  decimal.Decimal
}

// Author identifies a book author referenced by author-targeted discounts.
type Author struct {
	ID   string
	Name string
}

// Customer holds the profile attributes the pricing rules evaluate:
// tier, shipping location, and account age.
type Customer struct {
	Username   string
	Group      Group
	Location   string
	SignupDate time.Time
}

// Tenure returns how long the customer's account has existed as of the
// given reference time.
func (c Customer) Tenure(at time.Time) time.Duration {
	return at.Sub(c.SignupDate)
}

// BookRepository defines read operations over the book catalog.
type BookRepository interface {
	List(ctx context.Context) ([]Book, error)
	GetByTitle(ctx context.Context, title string) (*Book, error)
	ListByAuthor(ctx context.Context, author string) ([]Book, error)
}

// CustomerRepository defines read operations over customer master data.
type CustomerRepository interface {
	GetByUsername(ctx context.Context, username string) (*Customer, error)
	ListByLocation(ctx context.Context, location string) ([]Customer, error)
}
