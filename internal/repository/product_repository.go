package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"inventory-api/internal/domain"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrDuplicateProductName = errors.New("product with this name already exists")
)

// ProductFilter holds the optional filters for listing products. All filters
// compose conjunctively.
type ProductFilter struct {
	// Tag restricts to products carrying a tag with this name (case-insensitive).
	Tag string
	// MinStock restricts to products with at least this much stock.
	MinStock *int
	// Name restricts to products whose name contains this substring (case-insensitive).
	Name string
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	UpdateFields(ctx context.Context, id int64, name, description *string, price *float64) error
	UpdateStock(ctx context.Context, id int64, stock int) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
}

type productRepository struct {
	db DBTX
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db DBTX) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = "id, name, description, price, current_stock, created_at, updated_at"

// Create inserts a new product and fills in its generated id and timestamps
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (name, description, price, current_stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.CurrentStock,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProductName
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// UpdateFields patches the mutable product fields. Nil arguments are left
// untouched; stock is never updated here, only through UpdateStock.
func (r *productRepository) UpdateFields(ctx context.Context, id int64, name, description *string, price *float64) error {
	setClauses := []string{}
	args := []any{id}
	argIndex := 2

	if name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIndex))
		args = append(args, *name)
		argIndex++
	}
	if description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIndex))
		args = append(args, *description)
		argIndex++
	}
	if price != nil {
		setClauses = append(setClauses, fmt.Sprintf("price = $%d", argIndex))
		args = append(args, *price)
		argIndex++
	}

	query := "UPDATE products SET updated_at = NOW()"
	for _, clause := range setClauses {
		query += ", " + clause
	}
	query += " WHERE id = $1"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// UpdateStock sets the materialized stock counter. Callers must hold the
// product row lock (FindByIDForUpdate) in the same transaction that inserted
// the matching ledger movement.
func (r *productRepository) UpdateStock(ctx context.Context, id int64, stock int) error {
	query := `UPDATE products SET current_stock = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, stock)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product from the database
func (r *productRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// FindByIDForUpdate retrieves a product by ID and takes a row-level lock on it.
// Must be called inside a transaction; concurrent stock adjustments on the same
// product serialize on this lock.
func (r *productRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *productRepository) scanOne(row *sql.Row) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CurrentStock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products matching the filter, ordered by id ascending. The tag
// filter is a semi-join so a product with several matching tag rows still
// appears exactly once.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	whereClauses := []string{}
	args := []any{}
	argIndex := 1

	if filter.Tag != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM product_tags pt
			JOIN tags t ON t.id = pt.tag_id
			WHERE pt.product_id = p.id AND t.name ILIKE $%d
		)`, argIndex))
		args = append(args, filter.Tag)
		argIndex++
	}

	if filter.MinStock != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.current_stock >= $%d", argIndex))
		args = append(args, *filter.MinStock)
		argIndex++
	}

	if filter.Name != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Name+"%")
		argIndex++
	}

	query := `SELECT ` + productColumns + ` FROM products p`
	for i, clause := range whereClauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY p.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Description,
			&product.Price,
			&product.CurrentStock,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
