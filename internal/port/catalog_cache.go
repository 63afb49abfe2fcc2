package port

import (
	"context"
	"errors"

	"github.com/rl1809/minicart/internal/core/domain"
)

var ErrCacheMiss = errors.New("cache miss")

type CatalogCache interface {
	// GetProducts returns ErrCacheMiss when nothing is cached
	GetProducts(ctx context.Context) ([]domain.Product, error)
	SetProducts(ctx context.Context, products []domain.Product) error

	// GetCategories returns ErrCacheMiss when nothing is cached
	GetCategories(ctx context.Context) ([]string, error)
	SetCategories(ctx context.Context, categories []string) error
}
