package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"inventory-api/internal/middleware"
	"inventory-api/internal/repository"
	"inventory-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateTagRequest represents the tag creation payload
type CreateTagRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// UpdateTagRequest represents the tag patch payload
type UpdateTagRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}

// TagHandler handles HTTP requests for tag operations
type TagHandler struct {
	tagService service.TagService
	logger     *zap.Logger
}

// NewTagHandler creates a new TagHandler
func NewTagHandler(tagService service.TagService, logger *zap.Logger) *TagHandler {
	return &TagHandler{
		tagService: tagService,
		logger:     logger,
	}
}

// RegisterRoutes registers all tag routes
func (h *TagHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/tags", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// List handles listing all tags ordered by name
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tagService.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list tags", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch tags", "could not fetch tags")
		return
	}

	middleware.RespondWithCount(w, http.StatusOK, tags, len(tags))
}

// Get handles fetching a single tag together with its products
func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	tag, err := h.tagService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			h.respondTagNotFound(w, id)
			return
		}
		h.logger.Error("Failed to get tag", zap.Int64("tag_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch tag", "could not fetch tag")
		return
	}

	middleware.RespondWithData(w, http.StatusOK, tag, "")
}

// Create handles standalone tag creation
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Tag creation validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", "invalid request body")
		return
	}

	tag, err := h.tagService.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyTagName):
			middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", "Name is required")
		case errors.Is(err, repository.ErrDuplicateTagName):
			middleware.RespondWithError(w, http.StatusConflict, "Tag already exists", "A tag with this name already exists")
		default:
			h.logger.Error("Failed to create tag", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to create tag", "could not create tag")
		}
		return
	}

	h.logger.Info("Tag created", zap.Int64("tag_id", tag.ID), zap.String("name", tag.Name))
	middleware.RespondWithData(w, http.StatusCreated, tag, "Tag created successfully")
}

// Update handles the field-level tag patch
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req UpdateTagRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Tag update validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", "invalid request body")
		return
	}

	tag, err := h.tagService.Update(r.Context(), id, service.UpdateTagInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTagNotFound):
			h.respondTagNotFound(w, id)
		case errors.Is(err, service.ErrEmptyTagName):
			middleware.RespondWithError(w, http.StatusBadRequest, "Validation failed", "Name is required")
		case errors.Is(err, repository.ErrDuplicateTagName):
			middleware.RespondWithError(w, http.StatusConflict, "Tag name already exists", "A tag with this name already exists")
		default:
			h.logger.Error("Failed to update tag", zap.Int64("tag_id", id), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to update tag", "could not update tag")
		}
		return
	}

	middleware.RespondWithData(w, http.StatusOK, tag, "Tag updated successfully")
}

// Delete handles tag deletion; attached products survive, only the
// associations go
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.tagService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrTagNotFound) {
			h.respondTagNotFound(w, id)
			return
		}
		h.logger.Error("Failed to delete tag", zap.Int64("tag_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "Failed to delete tag", "could not delete tag")
		return
	}

	h.logger.Info("Tag deleted", zap.Int64("tag_id", id))
	middleware.RespondWithData(w, http.StatusOK, nil, "Tag deleted successfully")
}

func (h *TagHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusNotFound, "Tag not found",
			fmt.Sprintf("Tag with ID %s does not exist", raw))
		return 0, false
	}
	return id, true
}

func (h *TagHandler) respondTagNotFound(w http.ResponseWriter, id int64) {
	middleware.RespondWithError(w, http.StatusNotFound, "Tag not found",
		fmt.Sprintf("Tag with ID %d does not exist", id))
}
