package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"inventory-api/internal/domain"
	"inventory-api/internal/repository"
)

var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidMovementType = errors.New("movement type must be either \"in\" or \"out\"")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrInvalidPrice        = errors.New("price cannot be negative")
	ErrInvalidInitialStock = errors.New("initial stock cannot be negative")
)

// CreateProductInput is the validated input for product creation
type CreateProductInput struct {
	Name         string
	Description  string
	Price        float64
	InitialStock int
	Tags         []string
}

// UpdateProductInput is a field-level patch; nil fields are left untouched.
// Stock and tags are never updated through this path.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
}

// AdjustStockInput is the validated input for a stock adjustment
type AdjustStockInput struct {
	Type     domain.MovementType
	Quantity int
	Reason   string
}

// StockAdjustment reports the outcome of an adjustment so callers can show the
// delta without a second read
type StockAdjustment struct {
	Product       *domain.ProductView       `json:"product"`
	Movement      *domain.InventoryMovement `json:"inventory_record"`
	PreviousStock int                       `json:"previous_stock"`
	NewStock      int                       `json:"new_stock"`
}

// ProductService defines the interface for product business logic, including
// the stock ledger
type ProductService interface {
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductView, error)
	Get(ctx context.Context, id int64) (*domain.ProductView, error)
	Create(ctx context.Context, input CreateProductInput) (*domain.ProductView, error)
	Update(ctx context.Context, id int64, input UpdateProductInput) (*domain.ProductView, error)
	Delete(ctx context.Context, id int64) error
	AdjustStock(ctx context.Context, id int64, input AdjustStockInput) (*StockAdjustment, error)
}

type productService struct {
	db       *sql.DB
	products repository.ProductRepository
	tags     repository.TagRepository
}

// NewProductService creates a new instance of ProductService. The *sql.DB is
// needed directly because every invariant-preserving write runs in its own
// transaction.
func NewProductService(db *sql.DB) ProductService {
	return &productService{
		db:       db,
		products: repository.NewProductRepository(db),
		tags:     repository.NewTagRepository(db),
	}
}

// List retrieves product views matching the filter, ordered by id ascending.
// Runs outside any transaction; a slightly stale snapshot is acceptable for reads.
func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductView, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	tagNames, err := s.tags.NamesForProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load product tags: %w", err)
	}

	views := make([]*domain.ProductView, len(products))
	for i, p := range products {
		names := tagNames[p.ID]
		if names == nil {
			names = []string{}
		}
		views[i] = &domain.ProductView{Product: *p, Tags: names}
	}

	return views, nil
}

// Get retrieves a single product view
func (s *productService) Get(ctx context.Context, id int64) (*domain.ProductView, error) {
	return s.getView(ctx, s.products, s.tags, id)
}

func (s *productService) getView(ctx context.Context, products repository.ProductRepository, tags repository.TagRepository, id int64) (*domain.ProductView, error) {
	product, err := products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	names, err := tags.NamesForProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product tags: %w", err)
	}

	return &domain.ProductView{Product: *product, Tags: names}, nil
}

// Create inserts a product with its initial stock, reconciles the requested tag
// set, and, when initial stock is positive, appends a synthetic "Initial stock"
// movement so the ledger invariant holds from creation. All of it is one
// transaction; any failure rolls back the whole creation including
// partially-created tags.
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.ProductView, error) {
	if input.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if input.InitialStock < 0 {
		return nil, ErrInvalidInitialStock
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	products := repository.NewProductRepository(tx)
	tags := repository.NewTagRepository(tx)
	inventory := repository.NewInventoryRepository(tx)

	product := &domain.Product{
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		Price:        input.Price,
		CurrentStock: input.InitialStock,
	}

	if err := products.Create(ctx, product); err != nil {
		return nil, err
	}

	if _, err := attachTags(ctx, tags, product.ID, input.Tags); err != nil {
		return nil, err
	}

	if input.InitialStock > 0 {
		movement := &domain.InventoryMovement{
			ProductID: product.ID,
			Type:      domain.MovementIn,
			Quantity:  input.InitialStock,
			Reason:    "Initial stock",
		}
		if err := inventory.Create(ctx, movement); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.getView(ctx, s.products, s.tags, product.ID)
}

// Update applies a field-level patch to a product
func (s *productService) Update(ctx context.Context, id int64, input UpdateProductInput) (*domain.ProductView, error) {
	if input.Price != nil && *input.Price < 0 {
		return nil, ErrInvalidPrice
	}

	if err := s.products.UpdateFields(ctx, id, input.Name, input.Description, input.Price); err != nil {
		return nil, err
	}

	return s.getView(ctx, s.products, s.tags, id)
}

// Delete removes a product together with its movements and tag associations in
// one transaction
func (s *productService) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	products := repository.NewProductRepository(tx)
	tags := repository.NewTagRepository(tx)
	inventory := repository.NewInventoryRepository(tx)

	if _, err := products.FindByID(ctx, id); err != nil {
		return err
	}

	// The schema cascades these deletes; doing them explicitly keeps the order
	// deterministic for storage engines without cascade support.
	if err := inventory.DeleteForProduct(ctx, id); err != nil {
		return err
	}
	if err := tags.DetachProduct(ctx, id); err != nil {
		return err
	}
	if err := products.Delete(ctx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// AdjustStock appends one ledger movement and updates the materialized stock
// counter as a single all-or-nothing unit. The product row is locked for the
// duration of the transaction, so concurrent adjustments on the same product
// serialize instead of racing on current_stock.
func (s *productService) AdjustStock(ctx context.Context, id int64, input AdjustStockInput) (*StockAdjustment, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidMovementType
	}
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	products := repository.NewProductRepository(tx)
	inventory := repository.NewInventoryRepository(tx)

	product, err := products.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}

	previousStock := product.CurrentStock
	newStock := previousStock + input.Quantity
	if input.Type == domain.MovementOut {
		newStock = previousStock - input.Quantity
	}

	if newStock < 0 {
		return nil, fmt.Errorf("%w: cannot remove %d items, current stock is %d",
			ErrInsufficientStock, input.Quantity, previousStock)
	}

	reason := input.Reason
	if reason == "" {
		if input.Type == domain.MovementIn {
			reason = "Stock addition"
		} else {
			reason = "Stock removal"
		}
	}

	movement := &domain.InventoryMovement{
		ProductID: id,
		Type:      input.Type,
		Quantity:  input.Quantity,
		Reason:    reason,
	}
	if err := inventory.Create(ctx, movement); err != nil {
		return nil, err
	}

	if err := products.UpdateStock(ctx, id, newStock); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	view, err := s.getView(ctx, s.products, s.tags, id)
	if err != nil {
		return nil, err
	}

	return &StockAdjustment{
		Product:       view,
		Movement:      movement,
		PreviousStock: previousStock,
		NewStock:      newStock,
	}, nil
}

// attachTags reconciles a product's tag set against the requested names:
// normalize, look up existing tags by exact stored name, bulk-create the
// missing ones, then associate every requested tag with the product. The
// operation is additive only; it never removes existing associations.
func attachTags(ctx context.Context, tags repository.TagRepository, productID int64, requestedNames []string) ([]*domain.Tag, error) {
	names := make([]string, 0, len(requestedNames))
	seen := map[string]bool{}
	for _, name := range requestedNames {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	if len(names) == 0 {
		return []*domain.Tag{}, nil
	}

	existing, err := tags.FindByNames(ctx, names)
	if err != nil {
		return nil, err
	}

	existingNames := map[string]bool{}
	for _, tag := range existing {
		existingNames[tag.Name] = true
	}

	missing := []string{}
	for _, name := range names {
		if !existingNames[name] {
			missing = append(missing, name)
		}
	}

	created, err := tags.CreateBatch(ctx, missing)
	if err != nil {
		return nil, err
	}

	all := append(existing, created...)
	tagIDs := make([]int64, len(all))
	for i, tag := range all {
		tagIDs[i] = tag.ID
	}

	if err := tags.AttachToProduct(ctx, productID, tagIDs); err != nil {
		return nil, err
	}

	return all, nil
}
