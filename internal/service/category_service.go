package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// CategoryService handles category business logic
type CategoryService struct {
	categoryRepo domain.CategoryRepository
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(categoryRepo domain.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// CreateCategoryInput holds the input for creating a category
type CreateCategoryInput struct {
	Name         string
	NameHe       string
	Type         domain.CategoryType
	Color        string
	Icon         string
	ParentID     *uuid.UUID
	DisplayOrder int32
}

// CreateCategory creates a category. (name, type) must be unique among
// non-archived categories in the scope.
func (s *CategoryService) CreateCategory(scope domain.Scope, input CreateCategoryInput) (*domain.Category, error) {
	category := &domain.Category{
		Name:         strings.TrimSpace(input.Name),
		NameHe:       strings.TrimSpace(input.NameHe),
		Type:         input.Type,
		Color:        input.Color,
		Icon:         input.Icon,
		ParentID:     input.ParentID,
		DisplayOrder: input.DisplayOrder,
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}

	taken, err := s.categoryRepo.ExistsByNameAndType(scope, category.Name, category.Type, nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrCategoryNameTaken
	}

	if category.ParentID != nil {
		parent, err := s.categoryRepo.GetByID(scope, *category.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.Type != category.Type {
			return nil, domain.ErrCategoryTypeMismatch
		}
	}

	return s.categoryRepo.Create(scope, category)
}

// GetCategory retrieves a category by ID
func (s *CategoryService) GetCategory(scope domain.Scope, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.GetByID(scope, id)
}

// ListCategories retrieves the categories in scope
func (s *CategoryService) ListCategories(scope domain.Scope, includeArchived bool) ([]*domain.Category, error) {
	return s.categoryRepo.List(scope, includeArchived)
}

// UpdateCategoryInput holds the input for updating a category
type UpdateCategoryInput struct {
	Name         string
	NameHe       string
	Type         domain.CategoryType
	Color        string
	Icon         string
	DisplayOrder int32
}

// UpdateCategory updates a category. The type cannot change while any
// transaction or recurring entity still references the category.
func (s *CategoryService) UpdateCategory(scope domain.Scope, id uuid.UUID, input UpdateCategoryInput) (*domain.Category, error) {
	existing, err := s.categoryRepo.GetByID(scope, id)
	if err != nil {
		return nil, err
	}

	if input.Type != existing.Type {
		referenced, err := s.categoryRepo.HasDependents(scope, id)
		if err != nil {
			return nil, err
		}
		if referenced {
			return nil, domain.ErrCategoryTypeLocked
		}
	}

	name := strings.TrimSpace(input.Name)
	if name != existing.Name || input.Type != existing.Type {
		taken, err := s.categoryRepo.ExistsByNameAndType(scope, name, input.Type, &id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrCategoryNameTaken
		}
	}

	existing.Name = name
	existing.NameHe = strings.TrimSpace(input.NameHe)
	existing.Type = input.Type
	existing.Color = input.Color
	existing.Icon = input.Icon
	existing.DisplayOrder = input.DisplayOrder

	if err := existing.Validate(); err != nil {
		return nil, err
	}

	return s.categoryRepo.Update(scope, existing)
}

// DeleteCategory removes a category. Referenced categories are archived
// instead of deleted so historical rows keep their label.
func (s *CategoryService) DeleteCategory(scope domain.Scope, id uuid.UUID) (archived bool, err error) {
	if _, err := s.categoryRepo.GetByID(scope, id); err != nil {
		return false, err
	}
	referenced, err := s.categoryRepo.HasDependents(scope, id)
	if err != nil {
		return false, err
	}
	if referenced {
		return true, s.categoryRepo.Archive(scope, id)
	}
	return false, s.categoryRepo.Delete(scope, id)
}
