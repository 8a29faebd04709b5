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
	ErrEmptyTagName = errors.New("tag name is required")
)

// UpdateTagInput is a field-level patch for a tag; nil fields are left untouched
type UpdateTagInput struct {
	Name        *string
	Description *string
}

// TagService defines the interface for tag business logic
type TagService interface {
	List(ctx context.Context) ([]*domain.Tag, error)
	Get(ctx context.Context, id int64) (*domain.TagWithProducts, error)
	Create(ctx context.Context, name, description string) (*domain.Tag, error)
	Update(ctx context.Context, id int64, input UpdateTagInput) (*domain.Tag, error)
	Delete(ctx context.Context, id int64) error
}

type tagService struct {
	db   *sql.DB
	tags repository.TagRepository
}

// NewTagService creates a new instance of TagService
func NewTagService(db *sql.DB) TagService {
	return &tagService{
		db:   db,
		tags: repository.NewTagRepository(db),
	}
}

// List retrieves all tags ordered by name
func (s *tagService) List(ctx context.Context) ([]*domain.Tag, error) {
	return s.tags.List(ctx)
}

// Get retrieves a tag together with its products, ordered by product name
func (s *tagService) Get(ctx context.Context, id int64) (*domain.TagWithProducts, error) {
	tag, err := s.tags.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	products, err := s.tags.ProductsForTag(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load tag products: %w", err)
	}

	return &domain.TagWithProducts{Tag: *tag, Products: products}, nil
}

// Create inserts a standalone tag. Names are trimmed; duplicates surface as
// repository.ErrDuplicateTagName.
func (s *tagService) Create(ctx context.Context, name, description string) (*domain.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyTagName
	}

	tag := &domain.Tag{
		Name:        name,
		Description: strings.TrimSpace(description),
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}

	return tag, nil
}

// Update applies a field-level patch to a tag
func (s *tagService) Update(ctx context.Context, id int64, input UpdateTagInput) (*domain.Tag, error) {
	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		if trimmed == "" {
			return nil, ErrEmptyTagName
		}
		input.Name = &trimmed
	}
	if input.Description != nil {
		trimmed := strings.TrimSpace(*input.Description)
		input.Description = &trimmed
	}

	if err := s.tags.UpdateFields(ctx, id, input.Name, input.Description); err != nil {
		return nil, err
	}

	return s.tags.FindByID(ctx, id)
}

// Delete removes a tag and its associations in one transaction. Products
// attached to the tag are left intact.
func (s *tagService) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tags := repository.NewTagRepository(tx)

	if _, err := tags.FindByID(ctx, id); err != nil {
		return err
	}

	if err := tags.DetachTag(ctx, id); err != nil {
		return err
	}
	if err := tags.Delete(ctx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
