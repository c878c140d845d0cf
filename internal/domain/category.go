package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryNameTaken    = errors.New("category with this name and type already exists")
	ErrCategoryArchived     = errors.New("category is archived")
	ErrCategoryTypeLocked   = errors.New("category type cannot change while transactions reference it")
	ErrCategoryTypeMismatch = errors.New("category type does not match transaction type")
	ErrCategoryTypeInvalid  = errors.New("category type must be income or expense")
	ErrColorInvalid         = errors.New("color must match #RRGGBB")
)

// CategoryType is a closed enumeration of category kinds.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

func (t CategoryType) Valid() bool {
	return t == CategoryIncome || t == CategoryExpense
}

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Category labels transactions. Uniqueness on (scope, name, type) ignores
// archived rows. Archived categories stay readable but cannot be assigned
// to new rows.
type Category struct {
	ID             uuid.UUID    `json:"id"`
	UserID         uuid.UUID    `json:"userId"`
	OrganizationID *uuid.UUID   `json:"organizationId,omitempty"`
	Name           string       `json:"name"`
	NameHe         string       `json:"nameHe"`
	Type           CategoryType `json:"type"`
	Color          string       `json:"color"`
	Icon           string       `json:"icon"`
	IsArchived     bool         `json:"isArchived"`
	ParentID       *uuid.UUID   `json:"parentId,omitempty"`
	DisplayOrder   int32        `json:"displayOrder"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if len(c.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !c.Type.Valid() {
		return ErrCategoryTypeInvalid
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return ErrColorInvalid
	}
	return nil
}

// CategoryRepository is the persistence contract for categories.
type CategoryRepository interface {
	Create(scope Scope, category *Category) (*Category, error)
	GetByID(scope Scope, id uuid.UUID) (*Category, error)
	List(scope Scope, includeArchived bool) ([]*Category, error)
	Update(scope Scope, category *Category) (*Category, error)
	// Archive soft-deletes a category that still has dependent rows.
	Archive(scope Scope, id uuid.UUID) error
	// Delete hard-deletes a category with no dependents.
	Delete(scope Scope, id uuid.UUID) error
	// HasDependents reports whether any transaction or recurring entity
	// references the category.
	HasDependents(scope Scope, id uuid.UUID) (bool, error)
	// ExistsByNameAndType checks the uniqueness rule among non-archived rows.
	ExistsByNameAndType(scope Scope, name string, categoryType CategoryType, excludeID *uuid.UUID) (bool, error)
}
