package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"inventory-api/internal/domain"
	"inventory-api/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestProductService_CreateWithInitialStock(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateProductInput{
		Name:         "Widget " + uuid.New().String(),
		Description:  "a widget",
		Price:        10.00,
		InitialStock: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	if view.CurrentStock != 5 {
		t.Errorf("Expected stock 5, got %d", view.CurrentStock)
	}
	if len(view.Tags) != 0 {
		t.Errorf("Expected no tags, got %v", view.Tags)
	}
	if view.Tags == nil {
		t.Error("Expected empty tag slice, got nil")
	}

	// Initial stock arrives through the ledger, not just the counter
	movements, err := repository.NewInventoryRepository(testDB).ListForProduct(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("Expected 1 movement, got %d", len(movements))
	}
	if movements[0].Type != domain.MovementIn || movements[0].Quantity != 5 {
		t.Errorf("Expected movement in/5, got %s/%d", movements[0].Type, movements[0].Quantity)
	}
	if movements[0].Reason != "Initial stock" {
		t.Errorf("Expected reason %q, got %q", "Initial stock", movements[0].Reason)
	}
}

func TestProductService_CreateWithZeroStockWritesNoMovement(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateProductInput{
		Name:  "Empty " + uuid.New().String(),
		Price: 1.00,
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	movements, err := repository.NewInventoryRepository(testDB).ListForProduct(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to list movements: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("Expected empty ledger for zero initial stock, got %d movements", len(movements))
	}
}

func TestProductService_CreateRejectsNegativeInputs(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductInput{Name: "Bad", Price: -1})
	if !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Expected ErrInvalidPrice, got %v", err)
	}

	_, err = svc.Create(ctx, CreateProductInput{Name: "Bad", Price: 1, InitialStock: -5})
	if !errors.Is(err, ErrInvalidInitialStock) {
		t.Errorf("Expected ErrInvalidInitialStock, got %v", err)
	}
}

func TestProductService_CreateReconcilesTags(t *testing.T) {
	svc := NewProductService(testDB)
	tagRepo := repository.NewTagRepository(testDB)
	ctx := context.Background()

	suffix := uuid.New().String()
	existingName := "Electronics-" + suffix
	newName := "NewTag-" + suffix

	existing := &domain.Tag{Name: existingName}
	if err := tagRepo.Create(ctx, existing); err != nil {
		t.Fatalf("Failed to create tag: %v", err)
	}

	view, err := svc.Create(ctx, CreateProductInput{
		Name:  "Tagged " + suffix,
		Price: 2.00,
		Tags:  []string{existingName, newName, " " + newName + " ", ""},
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	if len(view.Tags) != 2 {
		t.Fatalf("Expected 2 tags on the view, got %v", view.Tags)
	}

	// The existing tag was reused, not duplicated
	tags, err := tagRepo.FindByNames(ctx, []string{existingName, newName})
	if err != nil {
		t.Fatalf("Failed to find tags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("Expected exactly 2 tag rows, got %d", len(tags))
	}
	for _, tag := range tags {
		if tag.Name == existingName && tag.ID != existing.ID {
			t.Errorf("Expected existing tag to be reused, got new id %d", tag.ID)
		}
	}

	names, err := tagRepo.NamesForProduct(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to get tag names: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("Expected 2 associations, got %v", names)
	}
}

func TestProductService_CreateTrimsName(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	name := "Padded " + uuid.New().String()
	view, err := svc.Create(ctx, CreateProductInput{Name: "  " + name + "  ", Price: 1.00})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	if view.Name != name {
		t.Errorf("Expected trimmed name %q, got %q", name, view.Name)
	}
}

func TestProductService_Update(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateProductInput{
		Name:         "Original " + uuid.New().String(),
		Description:  "before",
		Price:        3.00,
		InitialStock: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	newPrice := 4.50
	updated, err := svc.Update(ctx, view.ID, UpdateProductInput{Price: &newPrice})
	if err != nil {
		t.Fatalf("Failed to update product: %v", err)
	}
	if updated.Price != 4.50 {
		t.Errorf("Expected price 4.50, got %v", updated.Price)
	}
	if updated.Name != view.Name || updated.Description != "before" {
		t.Error("Expected unpatched fields to survive")
	}
	if updated.CurrentStock != 2 {
		t.Errorf("Expected stock untouched by patch, got %d", updated.CurrentStock)
	}

	negative := -1.0
	if _, err := svc.Update(ctx, view.ID, UpdateProductInput{Price: &negative}); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Expected ErrInvalidPrice, got %v", err)
	}

	if _, err := svc.Update(ctx, 999999999, UpdateProductInput{Price: &newPrice}); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestProductService_AdjustStock(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateProductInput{
		Name:         "Adjustable " + uuid.New().String(),
		Price:        10.00,
		InitialStock: 5,
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	result, err := svc.AdjustStock(ctx, view.ID, AdjustStockInput{Type: domain.MovementOut, Quantity: 3})
	if err != nil {
		t.Fatalf("Failed to adjust stock: %v", err)
	}
	if result.PreviousStock != 5 || result.NewStock != 2 {
		t.Errorf("Expected 5 -> 2, got %d -> %d", result.PreviousStock, result.NewStock)
	}
	if result.Product.CurrentStock != 2 {
		t.Errorf("Expected product view stock 2, got %d", result.Product.CurrentStock)
	}
	if result.Movement.Reason != "Stock removal" {
		t.Errorf("Expected default reason %q, got %q", "Stock removal", result.Movement.Reason)
	}

	result, err = svc.AdjustStock(ctx, view.ID, AdjustStockInput{Type: domain.MovementIn, Quantity: 4, Reason: "Restock"})
	if err != nil {
		t.Fatalf("Failed to adjust stock: %v", err)
	}
	if result.NewStock != 6 {
		t.Errorf("Expected stock 6, got %d", result.NewStock)
	}
	if result.Movement.Reason != "Restock" {
		t.Errorf("Expected explicit reason to win, got %q", result.Movement.Reason)
	}
}

func TestProductService_AdjustStockInsufficient(t *testing.T) {
	svc := NewProductService(testDB)
	inventoryRepo := repository.NewInventoryRepository(testDB)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateProductInput{
		Name:         "Scarce " + uuid.New().String(),
		Price:        10.00,
		InitialStock: 2,
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	_, err = svc.AdjustStock(ctx, view.ID, AdjustStockInput{Type: domain.MovementOut, Quantity: 10})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("Expected ErrInsufficientStock, got %v", err)
	}
	if !strings.Contains(err.Error(), "current stock is 2") {
		t.Errorf("Expected error to report current stock, got %q", err.Error())
	}

	// The failed adjustment left no trace: counter unchanged, ledger unchanged
	after, err := svc.Get(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to get product: %v", err)
	}
	if after.CurrentStock != 2 {
		t.Errorf("Expected stock still 2, got %d", after.CurrentStock)
	}
	movements, err := inventoryRepo.ListForProduct(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to list movements: %v", err)
	}
	if len(movements) != 1 {
		t.Errorf("Expected only the initial movement, got %d", len(movements))
	}
}

func TestProductService_AdjustStockRejectsInvalidInput(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateProductInput{Name: "Strict " + uuid.New().String(), Price: 1.00})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	if _, err := svc.AdjustStock(ctx, view.ID, AdjustStockInput{Type: "sideways", Quantity: 1}); !errors.Is(err, ErrInvalidMovementType) {
		t.Errorf("Expected ErrInvalidMovementType, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, view.ID, AdjustStockInput{Type: domain.MovementIn, Quantity: 0}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, view.ID, AdjustStockInput{Type: domain.MovementIn, Quantity: -2}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.AdjustStock(ctx, 999999999, AdjustStockInput{Type: domain.MovementIn, Quantity: 1}); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestProductService_AdjustStockConcurrent(t *testing.T) {
	svc := NewProductService(testDB)
	inventoryRepo := repository.NewInventoryRepository(testDB)
	ctx := context.Background()

	view, err := svc.Create(ctx, CreateProductInput{
		Name:         "Contended " + uuid.New().String(),
		Price:        1.00,
		InitialStock: 100,
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AdjustStock(ctx, view.ID, AdjustStockInput{Type: domain.MovementOut, Quantity: 5})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Concurrent adjustment failed: %v", err)
	}

	after, err := svc.Get(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to get product: %v", err)
	}
	if after.CurrentStock != 50 {
		t.Errorf("Expected stock 50 after 10 concurrent removals of 5, got %d", after.CurrentStock)
	}

	net, err := inventoryRepo.NetQuantity(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to compute net quantity: %v", err)
	}
	if net != after.CurrentStock {
		t.Errorf("Ledger net %d does not match stock %d", net, after.CurrentStock)
	}
}

func TestProductService_DeleteCascades(t *testing.T) {
	svc := NewProductService(testDB)
	tagRepo := repository.NewTagRepository(testDB)
	inventoryRepo := repository.NewInventoryRepository(testDB)
	ctx := context.Background()

	tagName := "survivor-" + uuid.New().String()
	view, err := svc.Create(ctx, CreateProductInput{
		Name:         "Transient " + uuid.New().String(),
		Price:        5.00,
		InitialStock: 3,
		Tags:         []string{tagName},
	})
	if err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	if err := svc.Delete(ctx, view.ID); err != nil {
		t.Fatalf("Failed to delete product: %v", err)
	}

	if _, err := svc.Get(ctx, view.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}

	movements, err := inventoryRepo.ListForProduct(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to list movements: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("Expected ledger purged with product, got %d movements", len(movements))
	}

	names, err := tagRepo.NamesForProduct(ctx, view.ID)
	if err != nil {
		t.Fatalf("Failed to get tag names: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("Expected associations removed, got %v", names)
	}

	// The tag itself survives product deletion
	tags, err := tagRepo.FindByNames(ctx, []string{tagName})
	if err != nil {
		t.Fatalf("Failed to find tag: %v", err)
	}
	if len(tags) != 1 {
		t.Errorf("Expected tag row to survive, got %d rows", len(tags))
	}

	if err := svc.Delete(ctx, view.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound on second delete, got %v", err)
	}
}

func TestProductService_ListFilters(t *testing.T) {
	svc := NewProductService(testDB)
	ctx := context.Background()

	suffix := uuid.New().String()
	tagName := "listing-" + suffix
	if _, err := svc.Create(ctx, CreateProductInput{
		Name:         "Listed " + suffix,
		Price:        1.00,
		InitialStock: 8,
		Tags:         []string{tagName},
	}); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}
	if _, err := svc.Create(ctx, CreateProductInput{
		Name:         "Hidden " + suffix,
		Price:        1.00,
		InitialStock: 1,
	}); err != nil {
		t.Fatalf("Failed to create product: %v", err)
	}

	minStock := 5
	views, err := svc.List(ctx, repository.ProductFilter{Name: suffix, MinStock: &minStock})
	if err != nil {
		t.Fatalf("Failed to list products: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("Expected 1 product, got %d", len(views))
	}
	if len(views[0].Tags) != 1 || views[0].Tags[0] != tagName {
		t.Errorf("Expected tags [%q], got %v", tagName, views[0].Tags)
	}

	views, err = svc.List(ctx, repository.ProductFilter{Name: suffix})
	if err != nil {
		t.Fatalf("Failed to list products: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("Expected 2 products, got %d", len(views))
	}
	for _, view := range views {
		if view.Tags == nil {
			t.Errorf("Expected non-nil tag slice for product %q", view.Name)
		}
	}
}

func TestProperty_StockMatchesLedger(t *testing.T) {
	svc := NewProductService(testDB)
	inventoryRepo := repository.NewInventoryRepository(testDB)

	properties := gopter.NewProperties(nil)

	properties.Property("current stock always equals the ledger net after any adjustment sequence", prop.ForAll(
		func(initial int, deltas []int) bool {
			ctx := context.Background()

			view, err := svc.Create(ctx, CreateProductInput{
				Name:         "Ledger " + uuid.New().String(),
				Price:        1.00,
				InitialStock: initial,
			})
			if err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}

			for _, delta := range deltas {
				input := AdjustStockInput{Type: domain.MovementIn, Quantity: delta}
				if delta < 0 {
					input = AdjustStockInput{Type: domain.MovementOut, Quantity: -delta}
				} else if delta == 0 {
					continue
				}

				// Removals past zero must fail and change nothing
				if _, err := svc.AdjustStock(ctx, view.ID, input); err != nil && !errors.Is(err, ErrInsufficientStock) {
					t.Logf("FAIL: Unexpected adjustment error: %v", err)
					return false
				}
			}

			after, err := svc.Get(ctx, view.ID)
			if err != nil {
				t.Logf("FAIL: Failed to get product: %v", err)
				return false
			}
			net, err := inventoryRepo.NetQuantity(ctx, view.ID)
			if err != nil {
				t.Logf("FAIL: Failed to compute net quantity: %v", err)
				return false
			}

			if after.CurrentStock < 0 {
				t.Logf("FAIL: Stock went negative: %d", after.CurrentStock)
				return false
			}
			if after.CurrentStock != net {
				t.Logf("FAIL: Stock %d does not match ledger net %d", after.CurrentStock, net)
				return false
			}
			return true
		},
		gen.IntRange(0, 50),
		gen.SliceOf(gen.IntRange(-30, 30)),
	))

	properties.TestingRun(t)
}
