package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/minicart/internal/core/domain"
	"github.com/rl1809/minicart/internal/port"
)

var ErrProductNotFound = errors.New("product not found")

const (
	productsFlightKey   = "products"
	categoriesFlightKey = "categories"
	cacheFillTimeout    = time.Second
)

// CatalogService reads the external catalog through a cache.
type CatalogService struct {
	catalog port.ProductCatalog
	cache   port.CatalogCache
	sfg     singleflight.Group // collapses concurrent misses
	logger  *zap.Logger
}

// NewCatalogService accepts a nil cache, in which case every read goes to
// the catalog.
func NewCatalogService(catalog port.ProductCatalog, cache port.CatalogCache, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		catalog: catalog,
		cache:   cache,
		logger:  logger,
	}
}

func (s *CatalogService) Products(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(productsFlightKey, func() (interface{}, error) {
		if s.cache != nil {
			products, err := s.cache.GetProducts(ctx)
			if err == nil {
				return products, nil
			}
			if !errors.Is(err, port.ErrCacheMiss) {
				s.logger.Warn("catalog cache get failed", zap.String("key", productsFlightKey), zap.Error(err))
			}
		}

		products, err := s.catalog.ListProducts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}

		if s.cache != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cacheFillTimeout)
				defer cancel()
				if err := s.cache.SetProducts(ctx, products); err != nil {
					s.logger.Warn("catalog cache set failed", zap.String("key", productsFlightKey), zap.Error(err))
				}
			}()
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	v, err, _ := s.sfg.Do(categoriesFlightKey, func() (interface{}, error) {
		if s.cache != nil {
			categories, err := s.cache.GetCategories(ctx)
			if err == nil {
				return categories, nil
			}
			if !errors.Is(err, port.ErrCacheMiss) {
				s.logger.Warn("catalog cache get failed", zap.String("key", categoriesFlightKey), zap.Error(err))
			}
		}

		categories, err := s.catalog.ListCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}

		if s.cache != nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), cacheFillTimeout)
				defer cancel()
				if err := s.cache.SetCategories(ctx, categories); err != nil {
					s.logger.Warn("catalog cache set failed", zap.String("key", categoriesFlightKey), zap.Error(err))
				}
			}()
		}
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (s *CatalogService) Product(ctx context.Context, id int64) (domain.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
}

// Search returns the products matching the search query and category.
func (s *CatalogService) Search(ctx context.Context, query, category string) ([]domain.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(products, query, category), nil
}

func Filter(products []domain.Product, query, category string) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Matches(query, category) {
			out = append(out, p)
		}
	}
	return out
}
