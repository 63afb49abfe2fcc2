package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidProduct = errors.New("invalid product")

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog entry. Values are never mutated once built.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Rating      Rating          `json:"rating"`
}

// NewProduct builds a Product and checks the fields the cart relies on.
func NewProduct(id int64, title string, price decimal.Decimal) (Product, error) {
	p := Product{ID: id, Title: title, Price: price}
	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (p Product) Validate() error {
	if p.ID == 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price %s", ErrInvalidProduct, p.Price)
	}
	return nil
}

// Matches reports whether the product passes the storefront search box and
// category chip. An empty query or category (or "All") matches everything.
func (p Product) Matches(query, category string) bool {
	if category != "" && category != AllCategories && p.Category != category {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q)
}

const AllCategories = "All"
