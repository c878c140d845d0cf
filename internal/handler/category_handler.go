package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/middleware"
	"github.com/tazrim/tazrim-backend/internal/service"
)

// CategoryHandler handles category related HTTP requests
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRequest is the JSON request for creating or updating a category
type CategoryRequest struct {
	Name         string     `json:"name"`
	NameHe       string     `json:"nameHe"`
	Type         string     `json:"type"`
	Color        string     `json:"color"`
	Icon         string     `json:"icon"`
	ParentID     *uuid.UUID `json:"parentId,omitempty"`
	DisplayOrder int32      `json:"displayOrder"`
}

// DeleteCategoryResponse reports whether the category was deleted or archived
type DeleteCategoryResponse struct {
	Archived bool `json:"archived"`
}

// Create creates a new category
// @Summary Create category
// @Tags categories
// @Security BearerAuth
// @Router /categories [post]
func (h *CategoryHandler) Create(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	category, err := h.categoryService.CreateCategory(dc.Scope(), service.CreateCategoryInput{
		Name:         req.Name,
		NameHe:       req.NameHe,
		Type:         domain.CategoryType(req.Type),
		Color:        req.Color,
		Icon:         req.Icon,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		return categoryError(c, err, "Failed to create category")
	}
	return c.JSON(http.StatusCreated, category)
}

// List lists the scope's categories
// @Summary List categories
// @Tags categories
// @Security BearerAuth
// @Router /categories [get]
func (h *CategoryHandler) List(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}

	includeArchived := c.QueryParam("includeArchived") == "true"
	categories, err := h.categoryService.ListCategories(dc.Scope(), includeArchived)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list categories")
		return NewInternalError(c, "Failed to list categories")
	}
	return c.JSON(http.StatusOK, categories)
}

// Get retrieves a category
// @Summary Get category
// @Tags categories
// @Security BearerAuth
// @Router /categories/{id} [get]
func (h *CategoryHandler) Get(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid category ID", "path", "id")
	}

	category, err := h.categoryService.GetCategory(dc.Scope(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return NewNotFoundError(c, "Category not found")
		}
		log.Error().Err(err).Msg("Failed to get category")
		return NewInternalError(c, "Failed to get category")
	}
	return c.JSON(http.StatusOK, category)
}

// Update updates a category
// @Summary Update category
// @Tags categories
// @Security BearerAuth
// @Router /categories/{id} [put]
func (h *CategoryHandler) Update(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid category ID", "path", "id")
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return schemaError(c, "Invalid request body", "body")
	}

	category, err := h.categoryService.UpdateCategory(dc.Scope(), id, service.UpdateCategoryInput{
		Name:         req.Name,
		NameHe:       req.NameHe,
		Type:         domain.CategoryType(req.Type),
		Color:        req.Color,
		Icon:         req.Icon,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		return categoryError(c, err, "Failed to update category")
	}
	return c.JSON(http.StatusOK, category)
}

// Delete deletes a category, or archives it when transactions reference it
// @Summary Delete category
// @Tags categories
// @Security BearerAuth
// @Router /categories/{id} [delete]
func (h *CategoryHandler) Delete(c echo.Context) error {
	dc, ok := middleware.GetDataContext(c)
	if !ok {
		return NewUnauthorizedError(c, "Authentication required")
	}
	id, err := pathID(c)
	if err != nil {
		return schemaError(c, "Invalid category ID", "path", "id")
	}

	archived, err := h.categoryService.DeleteCategory(dc.Scope(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCategoryNotFound) {
			return NewNotFoundError(c, "Category not found")
		}
		log.Error().Err(err).Msg("Failed to delete category")
		return NewInternalError(c, "Failed to delete category")
	}
	return c.JSON(http.StatusOK, DeleteCategoryResponse{Archived: archived})
}

func categoryError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		return NewNotFoundError(c, "Category not found")
	case errors.Is(err, domain.ErrCategoryNameTaken):
		return NewConflictError(c, "A category with that name and type already exists")
	case errors.Is(err, domain.ErrCategoryArchived):
		return NewConflictError(c, "Category is archived")
	case errors.Is(err, domain.ErrCategoryTypeLocked):
		return NewConflictError(c, "Category type cannot change while transactions reference it")
	case errors.Is(err, domain.ErrCategoryTypeInvalid):
		return NewValidationError(c, "Invalid category type")
	case errors.Is(err, domain.ErrColorInvalid):
		return NewValidationError(c, "Invalid color")
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, "Invalid category name")
	}
	log.Error().Err(err).Msg(fallback)
	return NewInternalError(c, fallback)
}
