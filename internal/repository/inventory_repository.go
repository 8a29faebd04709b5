package repository

import (
	"context"
	"fmt"

	"inventory-api/internal/domain"
)

// InventoryRepository defines the interface for the append-only stock ledger.
// Movements are never updated or deleted individually; DeleteForProduct exists
// only for the product-deletion cascade.
type InventoryRepository interface {
	Create(ctx context.Context, movement *domain.InventoryMovement) error
	ListForProduct(ctx context.Context, productID int64) ([]*domain.InventoryMovement, error)
	NetQuantity(ctx context.Context, productID int64) (int, error)
	DeleteForProduct(ctx context.Context, productID int64) error
}

type inventoryRepository struct {
	db DBTX
}

// NewInventoryRepository creates a new instance of InventoryRepository
func NewInventoryRepository(db DBTX) InventoryRepository {
	return &inventoryRepository{db: db}
}

// Create appends a movement to the ledger and fills in its generated id and timestamp
func (r *inventoryRepository) Create(ctx context.Context, movement *domain.InventoryMovement) error {
	query := `
		INSERT INTO inventory (product_id, type, quantity, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		movement.ProductID,
		movement.Type,
		movement.Quantity,
		movement.Reason,
	).Scan(&movement.ID, &movement.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create inventory movement: %w", err)
	}

	return nil
}

// ListForProduct retrieves a product's movements, oldest first
func (r *inventoryRepository) ListForProduct(ctx context.Context, productID int64) ([]*domain.InventoryMovement, error) {
	query := `
		SELECT id, product_id, type, quantity, reason, created_at
		FROM inventory
		WHERE product_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory movements: %w", err)
	}
	defer rows.Close()

	movements := []*domain.InventoryMovement{}
	for rows.Next() {
		movement := &domain.InventoryMovement{}
		err := rows.Scan(
			&movement.ID,
			&movement.ProductID,
			&movement.Type,
			&movement.Quantity,
			&movement.Reason,
			&movement.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory movement: %w", err)
		}
		movements = append(movements, movement)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory movements: %w", err)
	}

	return movements, nil
}

// NetQuantity computes the net sum of a product's movements (in minus out).
// After any committed transaction this must equal the product's current_stock.
func (r *inventoryRepository) NetQuantity(ctx context.Context, productID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'in' THEN quantity ELSE -quantity END), 0)
		FROM inventory
		WHERE product_id = $1
	`

	var net int
	if err := r.db.QueryRowContext(ctx, query, productID).Scan(&net); err != nil {
		return 0, fmt.Errorf("failed to compute net quantity: %w", err)
	}

	return net, nil
}

// DeleteForProduct removes all of a product's movements as part of the
// product-deletion cascade
func (r *inventoryRepository) DeleteForProduct(ctx context.Context, productID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete inventory movements: %w", err)
	}
	return nil
}
