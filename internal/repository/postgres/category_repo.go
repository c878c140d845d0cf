package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// CategoryRepository implements domain.CategoryRepository using PostgreSQL
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, user_id, organization_id, name, name_he, type, color, icon,
	is_archived, parent_id, display_order, created_at, updated_at`

// Create creates a new category
func (r *CategoryRepository) Create(scope domain.Scope, category *domain.Category) (*domain.Category, error) {
	ctx := context.Background()

	var created *domain.Category
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO categories (id, user_id, organization_id, name, name_he, type, color, icon,
				is_archived, parent_id, display_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING %s`, categoryColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID),
			category.Name, category.NameHe, string(category.Type), category.Color, category.Icon,
			category.IsArchived, uuidPtrToPg(category.ParentID), category.DisplayOrder,
		)
		var err error
		created, err = scanCategory(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "categories", created.ID, domain.AuditCreate, nil, categoryAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a category under the ownership filter
func (r *CategoryRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Category, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM categories WHERE id = $1 AND %s",
		categoryColumns, scopeCondition(scope, &args))

	category, err := scanCategory(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// List retrieves the scope's categories in display order
func (r *CategoryRepository) List(scope domain.Scope, includeArchived bool) ([]*domain.Category, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM categories WHERE %s", categoryColumns, scopeCondition(scope, &args))
	if !includeArchived {
		query += " AND is_archived = false"
	}
	query += " ORDER BY display_order, name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

// Update updates a category and audits the diff
func (r *CategoryRepository) Update(scope domain.Scope, category *domain.Category) (*domain.Category, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, category.ID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Category
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{category.ID, category.Name, category.NameHe, string(category.Type),
			category.Color, category.Icon, uuidPtrToPg(category.ParentID), category.DisplayOrder}
		query := fmt.Sprintf(`
			UPDATE categories
			SET name = $2, name_he = $3, type = $4, color = $5, icon = $6, parent_id = $7,
				display_order = $8, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), categoryColumns)

		var err error
		updated, err = scanCategory(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrCategoryNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(categoryAuditValues(previous), categoryAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "categories", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Archive soft-deletes a category that still has dependent rows
func (r *CategoryRepository) Archive(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("UPDATE categories SET is_archived = true, updated_at = now() WHERE id = $1 AND %s",
			scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCategoryNotFound
		}
		return appendAuditTx(ctx, tx, scope, "categories", id, domain.AuditUpdate,
			map[string]interface{}{"is_archived": false}, map[string]interface{}{"is_archived": true})
	})
}

// Delete hard-deletes a category with no dependents
func (r *CategoryRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM categories WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCategoryNotFound
		}
		return appendAuditTx(ctx, tx, scope, "categories", id, domain.AuditDelete, categoryAuditValues(previous), nil)
	})
}

// HasDependents reports whether any transaction or recurring entity
// references the category
func (r *CategoryRepository) HasDependents(scope domain.Scope, id uuid.UUID) (bool, error) {
	ctx := context.Background()

	args := []any{id}
	condition := scopeCondition(scope, &args)
	query := fmt.Sprintf(`SELECT EXISTS (
		SELECT 1 FROM transactions WHERE category_id = $1 AND %s
		UNION ALL
		SELECT 1 FROM fixed_schedules WHERE category_id = $1 AND %s
		UNION ALL
		SELECT 1 FROM installments WHERE category_id = $1 AND %s
		UNION ALL
		SELECT 1 FROM loans WHERE category_id = $1 AND %s
	)`, condition, condition, condition, condition)

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ExistsByNameAndType checks the uniqueness rule among non-archived rows
func (r *CategoryRepository) ExistsByNameAndType(scope domain.Scope, name string, categoryType domain.CategoryType, excludeID *uuid.UUID) (bool, error) {
	ctx := context.Background()

	args := []any{name, string(categoryType)}
	query := fmt.Sprintf(`SELECT EXISTS (
		SELECT 1 FROM categories
		WHERE lower(name) = lower($1) AND type = $2 AND is_archived = false AND %s`,
		scopeCondition(scope, &args))
	if excludeID != nil {
		args = append(args, *excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	query += ")"

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	var orgID, parentID pgtype.UUID
	var createdAt, updatedAt pgtype.Timestamptz
	var categoryType string

	err := row.Scan(&c.ID, &c.UserID, &orgID, &c.Name, &c.NameHe, &categoryType, &c.Color,
		&c.Icon, &c.IsArchived, &parentID, &c.DisplayOrder, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.OrganizationID = pgUUIDToPtr(orgID)
	c.Type = domain.CategoryType(categoryType)
	c.ParentID = pgUUIDToPtr(parentID)
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}

func categoryAuditValues(c *domain.Category) map[string]interface{} {
	return map[string]interface{}{
		"name":        c.Name,
		"type":        string(c.Type),
		"is_archived": c.IsArchived,
	}
}
