package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/minicart/internal/core/domain"
)

// MySQLAdapter serves the product catalog from a products table, for
// deployments that mirror the catalog instead of calling the public API.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

const productsSchema = `
CREATE TABLE IF NOT EXISTS products (
	id           BIGINT        NOT NULL PRIMARY KEY,
	title        VARCHAR(255)  NOT NULL,
	description  TEXT          NOT NULL,
	price        DECIMAL(12,2) NOT NULL,
	image        VARCHAR(512)  NOT NULL DEFAULT '',
	category     VARCHAR(128)  NOT NULL DEFAULT '',
	rating_rate  DOUBLE        NOT NULL DEFAULT 0,
	rating_count INT           NOT NULL DEFAULT 0
)`

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, productsSchema); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, title, description, price, image, category, rating_rate, rating_count
		FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			p     domain.Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &price, &p.Image, &p.Category,
			&p.Rating.Rate, &p.Rating.Count); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}

		p.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse price of product %d: %w", p.ID, err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (m *MySQLAdapter) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

// UpsertProduct loads or refreshes one catalog row.
func (m *MySQLAdapter) UpsertProduct(ctx context.Context, p domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, title, description, price, image, category, rating_rate, rating_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			title = VALUES(title), description = VALUES(description), price = VALUES(price),
			image = VALUES(image), category = VALUES(category),
			rating_rate = VALUES(rating_rate), rating_count = VALUES(rating_count)`,
		p.ID, p.Title, p.Description, p.Price.String(), p.Image, p.Category,
		p.Rating.Rate, p.Rating.Count,
	)
	if err != nil {
		return fmt.Errorf("upsert product %d: %w", p.ID, err)
	}
	return nil
}
