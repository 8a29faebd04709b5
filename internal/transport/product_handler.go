package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"inventory-api/internal/domain"
	"inventory-api/internal/middleware"
	"inventory-api/internal/repository"
	"inventory-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Price        float64  `json:"price" validate:"required,gte=0"`
	InitialStock int      `json:"initial_stock" validate:"gte=0"`
	Tags         []string `json:"tags" validate:"dive,max=100"`
}

// UpdateProductRequest represents the product patch payload. Stock and tags
// cannot be changed through this endpoint.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

// AdjustStockRequest represents the stock adjustment payload
type AdjustStockRequest struct {
	Type     string `json:"type" validate:"required,oneof=in out"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/stock", h.AdjustStock)
	})
}

// List handles listing products with optional tag, min_stock, and name filters
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{
		Tag:  r.URL.Query().Get("tag"),
		Name: r.URL.Query().Get("name"),
	}

	// A non-numeric min_stock is ignored rather than rejected
	if raw := r.URL.Query().Get("min_stock"); raw != "" {
		if minStock, err := strconv.Atoi(raw); err == nil {
			filter.MinStock = &minStock
		}
	}

	products, err := h.productService.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch products", "could not fetch products")
		return
	}

	middleware.RespondWithCount(w, http.StatusOK, products, len(products))
}

// Get handles fetching a single product with its tags
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.respondProductNotFound(w, id)
			return
		}
		h.logger.Error("Failed to get product", zap.Int64("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch product", "could not fetch product")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, product, "")
}

// Create handles product creation, including initial stock and tags
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", "invalid request body")
		return
	}

	product, err := h.productService.Create(r.Context(), service.CreateProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		InitialStock: req.InitialStock,
		Tags:         req.Tags,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPrice), errors.Is(err, service.ErrInvalidInitialStock):
			middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", err.Error())
		case errors.Is(err, repository.ErrDuplicateProductName):
			middleware.RespondWithError(w, http.StatusConflict, "Product already exists", "a product with this name already exists")
		case errors.Is(err, repository.ErrDuplicateTagName):
			middleware.RespondWithError(w, http.StatusConflict, "Tag already exists", "a tag with this name already exists")
		default:
			h.logger.Error("Failed to create product", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to create product", "could not create product")
		}
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	middleware.RespondWithData(w, http.StatusCreated, product, "Product created successfully")
}

// Update handles the field-level product patch
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), id, service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			h.respondProductNotFound(w, id)
		case errors.Is(err, service.ErrInvalidPrice):
			middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", err.Error())
		default:
			h.logger.Error("Failed to update product", zap.Int64("product_id", id), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to update product", "could not update product")
		}
		return
	}

	middleware.RespondWithData(w, http.StatusOK, product, "Product updated successfully")
}

// Delete handles product deletion together with its movements and tag associations
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			h.respondProductNotFound(w, id)
			return
		}
		h.logger.Error("Failed to delete product", zap.Int64("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to delete product", "could not delete product")
		return
	}

	h.logger.Info("Product deleted", zap.Int64("product_id", id))
	middleware.RespondWithData(w, http.StatusOK, nil, "Product and all associated records deleted successfully")
}

// AdjustStock handles stock adjustments through the ledger
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req AdjustStockRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Stock adjustment validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", "invalid request body")
		return
	}

	adjustment, err := h.productService.AdjustStock(r.Context(), id, service.AdjustStockInput{
		Type:     domain.MovementType(req.Type),
		Quantity: req.Quantity,
		Reason:   req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			h.respondProductNotFound(w, id)
		case errors.Is(err, service.ErrInsufficientStock):
			middleware.RespondWithError(w, http.StatusBadRequest, "Insufficient stock", err.Error())
		case errors.Is(err, service.ErrInvalidMovementType), errors.Is(err, service.ErrInvalidQuantity):
			middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", err.Error())
		default:
			h.logger.Error("Failed to adjust stock", zap.Int64("product_id", id), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to update inventory", "could not update inventory")
		}
		return
	}

	h.logger.Info("Stock adjusted",
		zap.Int64("product_id", id),
		zap.String("type", req.Type),
		zap.Int("quantity", req.Quantity),
		zap.Int("previous_stock", adjustment.PreviousStock),
		zap.Int("new_stock", adjustment.NewStock),
	)
	middleware.RespondWithData(w, http.StatusCreated, adjustment, "Inventory updated successfully")
}

// parseID extracts the product id from the URL. An unparseable id refers to no
// product, so it reports not-found rather than a validation error.
func (h *ProductHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found",
			fmt.Sprintf("Product with ID %s does not exist", raw))
		return 0, false
	}
	return id, true
}

func (h *ProductHandler) respondProductNotFound(w http.ResponseWriter, id int64) {
	middleware.RespondWithError(w, http.StatusNotFound, "Product not found",
		fmt.Sprintf("Product with ID %d does not exist", id))
}
