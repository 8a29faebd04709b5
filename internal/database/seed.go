package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Seed loads development fixture data. Idempotent: it skips entirely when any
// product already exists. Every product's current_stock matches the net sum of
// its seeded movements, so the ledger invariant holds from the first request.
func Seed(db *sql.DB, logger *zap.Logger) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check for existing data: %w", err)
	}
	if count > 0 {
		logger.Info("Seed skipped, products already present", zap.Int("count", count))
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		`INSERT INTO tags (id, name, description) VALUES
			(1, 'Electronics', 'Electronic devices and components'),
			(2, 'Footwear', 'Shoes, boots, and other footwear'),
			(3, 'Sale', 'Items currently on sale'),
			(4, 'Premium', 'High-end premium products'),
			(5, 'Clothing', 'Apparel and clothing items')`,
		`INSERT INTO products (id, name, description, price, current_stock) VALUES
			(1, 'iPhone 15 Pro', 'Latest Apple smartphone with advanced features', 999.99, 25),
			(2, 'Nike Air Max 270', 'Comfortable running shoes with air cushioning', 150.00, 50),
			(3, 'Samsung Galaxy Watch', 'Smart watch with health monitoring features', 299.99, 15),
			(4, 'Adidas Ultraboost 22', 'Premium running shoes with boost technology', 180.00, 30),
			(5, 'MacBook Pro 14"', 'Professional laptop with M3 chip', 1999.99, 10),
			(6, 'Levi''s 501 Jeans', 'Classic straight-fit denim jeans', 89.99, 75)`,
		`INSERT INTO product_tags (product_id, tag_id) VALUES
			(1, 1), (1, 4),
			(2, 2), (2, 3),
			(3, 1), (3, 4),
			(4, 2), (4, 4),
			(5, 1), (5, 4),
			(6, 5), (6, 3)`,
		`INSERT INTO inventory (product_id, type, quantity, reason) VALUES
			(1, 'in', 30, 'Initial stock'), (1, 'out', 5, 'Sales'),
			(2, 'in', 60, 'Initial stock'), (2, 'out', 10, 'Sales'),
			(3, 'in', 20, 'Initial stock'), (3, 'out', 5, 'Sales'),
			(4, 'in', 35, 'Initial stock'), (4, 'out', 5, 'Sales'),
			(5, 'in', 15, 'Initial stock'), (5, 'out', 5, 'Sales'),
			(6, 'in', 80, 'Initial stock'), (6, 'out', 5, 'Sales')`,
		`SELECT setval('tags_id_seq', (SELECT MAX(id) FROM tags))`,
		`SELECT setval('products_id_seq', (SELECT MAX(id) FROM products))`,
	}

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to seed data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	logger.Info("Seed data loaded")
	return nil
}
