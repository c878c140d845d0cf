package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// ExpectedIncomeRepository implements domain.ExpectedIncomeRepository using PostgreSQL
type ExpectedIncomeRepository struct {
	pool *pgxpool.Pool
}

// NewExpectedIncomeRepository creates a new ExpectedIncomeRepository
func NewExpectedIncomeRepository(pool *pgxpool.Pool) *ExpectedIncomeRepository {
	return &ExpectedIncomeRepository{pool: pool}
}

const expectedIncomeColumns = `id, user_id, organization_id, month, expected_amount, notes,
	created_at, updated_at`

// Upsert inserts or replaces the scope's expected income for a month
func (r *ExpectedIncomeRepository) Upsert(scope domain.Scope, income *domain.ExpectedIncome) (*domain.ExpectedIncome, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(income.ExpectedAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var saved *domain.ExpectedIncome
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		// One row per scope+month; COALESCE folds the personal NULL org into
		// the unique index.
		query := fmt.Sprintf(`
			INSERT INTO expected_income (id, user_id, organization_id, month, expected_amount, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, COALESCE(organization_id, '00000000-0000-0000-0000-000000000000'::uuid), month)
			DO UPDATE SET expected_amount = EXCLUDED.expected_amount, notes = EXCLUDED.notes, updated_at = now()
			RETURNING %s`, expectedIncomeColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID),
			dateToPg(income.Month), amount, income.Notes,
		)
		var err error
		saved, err = scanExpectedIncome(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "expected_income", saved.ID, domain.AuditUpdate, nil,
			map[string]interface{}{
				"month":           saved.Month.Format("2006-01"),
				"expected_amount": saved.ExpectedAmount.String(),
			})
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// GetByMonth retrieves the scope's expected income for a month
func (r *ExpectedIncomeRepository) GetByMonth(scope domain.Scope, month time.Time) (*domain.ExpectedIncome, error) {
	ctx := context.Background()

	args := []any{month}
	query := fmt.Sprintf("SELECT %s FROM expected_income WHERE month = $1 AND %s",
		expectedIncomeColumns, scopeCondition(scope, &args))

	income, err := scanExpectedIncome(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrExpectedIncomeNotFound
		}
		return nil, err
	}
	return income, nil
}

// ListRange retrieves expected income rows with month in [start, end]
func (r *ExpectedIncomeRepository) ListRange(scope domain.Scope, start, end time.Time) ([]*domain.ExpectedIncome, error) {
	ctx := context.Background()

	args := []any{start, end}
	query := fmt.Sprintf("SELECT %s FROM expected_income WHERE month >= $1 AND month <= $2 AND %s ORDER BY month",
		expectedIncomeColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ExpectedIncome
	for rows.Next() {
		income, err := scanExpectedIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, income)
	}
	return out, rows.Err()
}

// Delete removes an expected income row
func (r *ExpectedIncomeRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM expected_income WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrExpectedIncomeNotFound
		}
		return appendAuditTx(ctx, tx, scope, "expected_income", id, domain.AuditDelete, nil, nil)
	})
}

func scanExpectedIncome(row pgx.Row) (*domain.ExpectedIncome, error) {
	var e domain.ExpectedIncome
	var orgID pgtype.UUID
	var amount pgtype.Numeric
	var month pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&e.ID, &e.UserID, &orgID, &month, &amount, &e.Notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.OrganizationID = pgUUIDToPtr(orgID)
	e.Month = month.Time
	e.ExpectedAmount = pgNumericToDecimal(amount)
	e.CreatedAt = createdAt.Time
	e.UpdatedAt = updatedAt.Time
	return &e, nil
}
