package port

import (
	"context"

	"github.com/rl1809/minicart/internal/core/domain"
)

type ProductCatalog interface {
	// ListProducts returns every product the catalog offers
	ListProducts(ctx context.Context) ([]domain.Product, error)

	// ListCategories returns the category labels used by the products
	ListCategories(ctx context.Context) ([]string, error)
}
