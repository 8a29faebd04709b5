package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"inventory-api/internal/domain"
)

var (
	ErrTagNotFound      = errors.New("tag not found")
	ErrDuplicateTagName = errors.New("tag with this name already exists")
)

// TagRepository defines the interface for tag and product-tag association data access
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	CreateBatch(ctx context.Context, names []string) ([]*domain.Tag, error)
	UpdateFields(ctx context.Context, id int64, name, description *string) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Tag, error)
	FindByNames(ctx context.Context, names []string) ([]*domain.Tag, error)
	List(ctx context.Context) ([]*domain.Tag, error)
	AttachToProduct(ctx context.Context, productID int64, tagIDs []int64) error
	DetachProduct(ctx context.Context, productID int64) error
	DetachTag(ctx context.Context, tagID int64) error
	NamesForProduct(ctx context.Context, productID int64) ([]string, error)
	NamesForProducts(ctx context.Context, productIDs []int64) (map[int64][]string, error)
	ProductsForTag(ctx context.Context, tagID int64) ([]domain.TagProduct, error)
}

type tagRepository struct {
	db DBTX
}

// NewTagRepository creates a new instance of TagRepository
func NewTagRepository(db DBTX) TagRepository {
	return &tagRepository{db: db}
}

const tagColumns = "id, name, description, created_at, updated_at"

// Create inserts a new tag and fills in its generated id and timestamps
func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	query := `
		INSERT INTO tags (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query, tag.Name, tag.Description).
		Scan(&tag.ID, &tag.CreatedAt, &tag.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTagName
		}
		return fmt.Errorf("failed to create tag: %w", err)
	}

	return nil
}

// CreateBatch inserts one tag per name in a single statement. A concurrent
// insert of the same name surfaces as ErrDuplicateTagName so the caller can
// decide whether to retry.
func (r *tagRepository) CreateBatch(ctx context.Context, names []string) ([]*domain.Tag, error) {
	if len(names) == 0 {
		return []*domain.Tag{}, nil
	}

	values := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		values[i] = fmt.Sprintf("($%d)", i+1)
		args[i] = name
	}

	query := `
		INSERT INTO tags (name)
		VALUES ` + strings.Join(values, ", ") + `
		RETURNING ` + tagColumns

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTagName
		}
		return nil, fmt.Errorf("failed to create tags: %w", err)
	}
	defer rows.Close()

	tags, err := scanTags(rows)
	if err != nil {
		return nil, err
	}

	return tags, nil
}

// UpdateFields patches a tag's name and/or description
func (r *tagRepository) UpdateFields(ctx context.Context, id int64, name, description *string) error {
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

	query := "UPDATE tags SET updated_at = NOW()"
	for _, clause := range setClauses {
		query += ", " + clause
	}
	query += " WHERE id = $1"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTagName
		}
		return fmt.Errorf("failed to update tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrTagNotFound
	}

	return nil
}

// Delete removes a tag from the database
func (r *tagRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM tags WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrTagNotFound
	}

	return nil
}

// FindByID retrieves a tag by ID
func (r *tagRepository) FindByID(ctx context.Context, id int64) (*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags WHERE id = $1`

	tag := &domain.Tag{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tag.ID,
		&tag.Name,
		&tag.Description,
		&tag.CreatedAt,
		&tag.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to find tag by ID: %w", err)
	}

	return tag, nil
}

// FindByNames retrieves the tags whose stored name exactly matches one of the
// given names. Lookups here are case-sensitive; only filtering is not.
func (r *tagRepository) FindByNames(ctx context.Context, names []string) ([]*domain.Tag, error) {
	if len(names) == 0 {
		return []*domain.Tag{}, nil
	}

	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}

	query := `SELECT ` + tagColumns + ` FROM tags WHERE name IN (` + placeholders(1, len(names)) + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find tags by names: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// List retrieves all tags ordered by name
func (r *tagRepository) List(ctx context.Context) ([]*domain.Tag, error) {
	query := `SELECT ` + tagColumns + ` FROM tags ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// AttachToProduct creates one association row per tag that is not already
// attached to the product. Additive only.
func (r *tagRepository) AttachToProduct(ctx context.Context, productID int64, tagIDs []int64) error {
	if len(tagIDs) == 0 {
		return nil
	}

	values := make([]string, len(tagIDs))
	args := []any{productID}
	for i, tagID := range tagIDs {
		values[i] = fmt.Sprintf("($1, $%d)", i+2)
		args = append(args, tagID)
	}

	query := `
		INSERT INTO product_tags (product_id, tag_id)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (product_id, tag_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to attach tags to product: %w", err)
	}

	return nil
}

// DetachProduct removes all tag associations for a product
func (r *tagRepository) DetachProduct(ctx context.Context, productID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM product_tags WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to detach product tags: %w", err)
	}
	return nil
}

// DetachTag removes all product associations for a tag
func (r *tagRepository) DetachTag(ctx context.Context, tagID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM product_tags WHERE tag_id = $1`, tagID); err != nil {
		return fmt.Errorf("failed to detach tag from products: %w", err)
	}
	return nil
}

// NamesForProduct retrieves the distinct tag names attached to a product,
// ordered by name
func (r *tagRepository) NamesForProduct(ctx context.Context, productID int64) ([]string, error) {
	query := `
		SELECT DISTINCT t.name
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = $1
		ORDER BY t.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag names for product: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag names: %w", err)
	}

	return names, nil
}

// NamesForProducts retrieves tag names for a set of products in one query,
// keyed by product id. Products without tags are absent from the map.
func (r *tagRepository) NamesForProducts(ctx context.Context, productIDs []int64) (map[int64][]string, error) {
	result := map[int64][]string{}
	if len(productIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(productIDs))
	for i, id := range productIDs {
		args[i] = id
	}

	query := `
		SELECT DISTINCT pt.product_id, t.name
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id IN (` + placeholders(1, len(productIDs)) + `)
		ORDER BY pt.product_id, t.name
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag names for products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var productID int64
		var name string
		if err := rows.Scan(&productID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		result[productID] = append(result[productID], name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tag names: %w", err)
	}

	return result, nil
}

// ProductsForTag retrieves the products attached to a tag, ordered by product name
func (r *tagRepository) ProductsForTag(ctx context.Context, tagID int64) ([]domain.TagProduct, error) {
	query := `
		SELECT p.id, p.name, p.price, p.current_stock
		FROM products p
		JOIN product_tags pt ON pt.product_id = p.id
		WHERE pt.tag_id = $1
		ORDER BY p.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tagID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products for tag: %w", err)
	}
	defer rows.Close()

	products := []domain.TagProduct{}
	for rows.Next() {
		var product domain.TagProduct
		err := rows.Scan(&product.ID, &product.Name, &product.Price, &product.CurrentStock)
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

func scanTags(rows *sql.Rows) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	for rows.Next() {
		tag := &domain.Tag{}
		err := rows.Scan(
			&tag.ID,
			&tag.Name,
			&tag.Description,
			&tag.CreatedAt,
			&tag.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	return tags, nil
}
