package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

type categoryFixture struct {
	scope      domain.Scope
	categories *testutil.MockCategoryRepository
	service    *CategoryService
}

func newCategoryFixture() *categoryFixture {
	f := &categoryFixture{
		scope:      domain.PersonalScope(uuid.New()),
		categories: testutil.NewMockCategoryRepository(),
	}
	f.service = NewCategoryService(f.categories)
	return f
}

func TestCreateCategory_UniquePerNameAndType(t *testing.T) {
	f := newCategoryFixture()

	_, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Food", NameHe: "אוכל", Type: domain.CategoryExpense,
	})
	require.NoError(t, err)

	// Same name with the same type collides
	_, err = f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Food", Type: domain.CategoryExpense,
	})
	assert.ErrorIs(t, err, domain.ErrCategoryNameTaken)

	// Same name with the other type is fine
	_, err = f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Food", Type: domain.CategoryIncome,
	})
	assert.NoError(t, err)
}

func TestCreateCategory_Validation(t *testing.T) {
	f := newCategoryFixture()

	_, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "   ", Type: domain.CategoryExpense,
	})
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	_, err = f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Pets", Type: domain.CategoryType("transfer"),
	})
	assert.ErrorIs(t, err, domain.ErrCategoryTypeInvalid)

	_, err = f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Pets", Type: domain.CategoryExpense, Color: "red",
	})
	assert.ErrorIs(t, err, domain.ErrColorInvalid)
}

func TestCreateCategory_ParentTypeMustMatch(t *testing.T) {
	f := newCategoryFixture()
	parent, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Transport", Type: domain.CategoryExpense,
	})
	require.NoError(t, err)

	parentID := parent.ID
	_, err = f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Refunds", Type: domain.CategoryIncome, ParentID: &parentID,
	})
	assert.ErrorIs(t, err, domain.ErrCategoryTypeMismatch)

	_, err = f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Fuel", Type: domain.CategoryExpense, ParentID: &parentID,
	})
	assert.NoError(t, err)
}

func TestUpdateCategory_TypeLockedWhileReferenced(t *testing.T) {
	f := newCategoryFixture()
	category, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Consulting", Type: domain.CategoryIncome,
	})
	require.NoError(t, err)
	f.categories.Dependents[category.ID] = true

	_, err = f.service.UpdateCategory(f.scope, category.ID, UpdateCategoryInput{
		Name: "Consulting", Type: domain.CategoryExpense,
	})
	assert.ErrorIs(t, err, domain.ErrCategoryTypeLocked)

	// Renaming without a type change stays allowed
	updated, err := f.service.UpdateCategory(f.scope, category.ID, UpdateCategoryInput{
		Name: "Consulting income", Type: domain.CategoryIncome,
	})
	require.NoError(t, err)
	assert.Equal(t, "Consulting income", updated.Name)
}

func TestDeleteCategory_ArchivesWhenReferenced(t *testing.T) {
	f := newCategoryFixture()
	referenced, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Rent", Type: domain.CategoryExpense,
	})
	require.NoError(t, err)
	f.categories.Dependents[referenced.ID] = true

	archived, err := f.service.DeleteCategory(f.scope, referenced.ID)
	require.NoError(t, err)
	assert.True(t, archived)

	kept, err := f.categories.GetByID(f.scope, referenced.ID)
	require.NoError(t, err)
	assert.True(t, kept.IsArchived)

	// Unreferenced categories are hard-deleted
	loose, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "One-off", Type: domain.CategoryExpense,
	})
	require.NoError(t, err)
	archived, err = f.service.DeleteCategory(f.scope, loose.ID)
	require.NoError(t, err)
	assert.False(t, archived)
	_, err = f.categories.GetByID(f.scope, loose.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestDeleteCategory_CrossTenant(t *testing.T) {
	f := newCategoryFixture()
	category, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Private", Type: domain.CategoryExpense,
	})
	require.NoError(t, err)

	_, err = f.service.DeleteCategory(domain.PersonalScope(uuid.New()), category.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestArchivedNameFreedForReuse(t *testing.T) {
	f := newCategoryFixture()
	category, err := f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Travel", Type: domain.CategoryExpense,
	})
	require.NoError(t, err)
	f.categories.Dependents[category.ID] = true
	_, err = f.service.DeleteCategory(f.scope, category.ID)
	require.NoError(t, err)

	// Uniqueness only counts non-archived rows
	_, err = f.service.CreateCategory(f.scope, CreateCategoryInput{
		Name: "Travel", Type: domain.CategoryExpense,
	})
	assert.NoError(t, err)
}
