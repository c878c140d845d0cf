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

// InstallmentRepository implements domain.InstallmentRepository using PostgreSQL
type InstallmentRepository struct {
	pool *pgxpool.Pool
}

// NewInstallmentRepository creates a new InstallmentRepository
func NewInstallmentRepository(pool *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{pool: pool}
}

const installmentColumns = `id, user_id, organization_id, name, total_amount, monthly_amount,
	number_of_payments, payments_completed, type, category_id, start_date, day_of_month,
	currency, original_amount, original_currency, exchange_rate, created_at, updated_at`

// Create creates a new installment plan and audits it
func (r *InstallmentRepository) Create(scope domain.Scope, installment *domain.Installment) (*domain.Installment, error) {
	ctx := context.Background()

	totalAmount, err := decimalToPgNumeric(installment.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	monthlyAmount, err := decimalToPgNumeric(installment.MonthlyAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly amount: %w", err)
	}
	originalAmount, err := decimalPtrToPgNumeric(installment.OriginalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid original amount: %w", err)
	}
	exchangeRate, err := decimalPtrToPgNumeric(installment.ExchangeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange rate: %w", err)
	}

	var created *domain.Installment
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO installments (id, user_id, organization_id, name, total_amount, monthly_amount,
				number_of_payments, payments_completed, type, category_id, start_date, day_of_month,
				currency, original_amount, original_currency, exchange_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING %s`, installmentColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID), installment.Name,
			totalAmount, monthlyAmount, installment.NumberOfPayments, installment.PaymentsCompleted,
			string(installment.Type), uuidPtrToPg(installment.CategoryID),
			dateToPg(installment.StartDate), installment.DayOfMonth, installment.Currency,
			originalAmount, textPtrToPg(installment.OriginalCurrency), exchangeRate,
		)
		var err error
		created, err = scanInstallment(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "installments", created.ID, domain.AuditCreate, nil, installmentAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an installment plan under the ownership filter
func (r *InstallmentRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Installment, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM installments WHERE id = $1 AND %s",
		installmentColumns, scopeCondition(scope, &args))

	installment, err := scanInstallment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrInstallmentNotFound
		}
		return nil, err
	}
	return installment, nil
}

// List retrieves the scope's installment plans
func (r *InstallmentRepository) List(scope domain.Scope) ([]*domain.Installment, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM installments WHERE %s ORDER BY created_at DESC",
		installmentColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstallments(rows)
}

// Update updates an installment's editable fields and audits the diff
func (r *InstallmentRepository) Update(scope domain.Scope, installment *domain.Installment) (*domain.Installment, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, installment.ID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Installment
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{installment.ID, installment.Name, uuidPtrToPg(installment.CategoryID), installment.DayOfMonth}
		query := fmt.Sprintf(`
			UPDATE installments
			SET name = $2, category_id = $3, day_of_month = $4, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), installmentColumns)

		var err error
		updated, err = scanInstallment(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrInstallmentNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(installmentAuditValues(previous), installmentAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "installments", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an installment plan and audits it
func (r *InstallmentRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM installments WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrInstallmentNotFound
		}
		return appendAuditTx(ctx, tx, scope, "installments", id, domain.AuditDelete, installmentAuditValues(previous), nil)
	})
}

// Mutate loads the installment under an exclusive row lock, applies fn and
// persists the payment counter.
func (r *InstallmentRepository) Mutate(scope domain.Scope, id uuid.UUID, fn func(*domain.Installment) error) (*domain.Installment, error) {
	ctx := context.Background()

	var mutated *domain.Installment
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("SELECT %s FROM installments WHERE id = $1 AND %s FOR UPDATE",
			installmentColumns, scopeCondition(scope, &args))

		installment, err := scanInstallment(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrInstallmentNotFound
			}
			return err
		}
		before := installmentAuditValues(installment)

		if err := fn(installment); err != nil {
			return err
		}

		writeArgs := []any{id, installment.PaymentsCompleted}
		writeQuery := fmt.Sprintf(`
			UPDATE installments
			SET payments_completed = $2, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &writeArgs), installmentColumns)

		mutated, err = scanInstallment(tx.QueryRow(ctx, writeQuery, writeArgs...))
		if err != nil {
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(before, installmentAuditValues(mutated))
		return appendAuditTx(ctx, tx, scope, "installments", id, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

// Charge advances the payment counter and materialises the payment
// transaction in one database transaction. The row lock is taken before the
// guard check, so concurrent runs on the same installment serialise.
func (r *InstallmentRepository) Charge(scope domain.Scope, id uuid.UUID, guardDate *time.Time, fn func(*domain.Installment) (*domain.Transaction, error)) (*domain.Installment, *domain.Transaction, error) {
	ctx := context.Background()

	var mutated *domain.Installment
	var created *domain.Transaction
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("SELECT %s FROM installments WHERE id = $1 AND %s FOR UPDATE",
			installmentColumns, scopeCondition(scope, &args))

		installment, err := scanInstallment(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrInstallmentNotFound
			}
			return err
		}
		if guardDate != nil {
			exists, err := existsForSourceTx(ctx, tx, scope, domain.SourceInstallment, id, *guardDate)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrAlreadyExists
			}
		}
		before := installmentAuditValues(installment)

		transaction, err := fn(installment)
		if err != nil {
			return err
		}
		created, err = insertTransaction(ctx, tx, scope, transaction)
		if err != nil {
			return err
		}
		if err := appendAuditTx(ctx, tx, scope, "transactions", created.ID, domain.AuditCreate, nil, transactionAuditValues(created)); err != nil {
			return err
		}

		writeArgs := []any{id, installment.PaymentsCompleted}
		writeQuery := fmt.Sprintf(`
			UPDATE installments
			SET payments_completed = $2, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &writeArgs), installmentColumns)

		mutated, err = scanInstallment(tx.QueryRow(ctx, writeQuery, writeArgs...))
		if err != nil {
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(before, installmentAuditValues(mutated))
		return appendAuditTx(ctx, tx, scope, "installments", id, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, nil, err
	}
	return mutated, created, nil
}

// ListDue returns installments with remaining payments due on refDate's day
func (r *InstallmentRepository) ListDue(scope domain.Scope, refDate time.Time) ([]*domain.Installment, error) {
	ctx := context.Background()

	args := []any{refDate.Day(), refDate}
	query := fmt.Sprintf(`
		SELECT %s FROM installments
		WHERE payments_completed < number_of_payments
		  AND day_of_month = $1 AND start_date <= $2 AND %s
		ORDER BY created_at`, installmentColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInstallments(rows)
}

func collectInstallments(rows pgx.Rows) ([]*domain.Installment, error) {
	var out []*domain.Installment
	for rows.Next() {
		installment, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, installment)
	}
	return out, rows.Err()
}

func scanInstallment(row pgx.Row) (*domain.Installment, error) {
	var i domain.Installment
	var orgID, categoryID pgtype.UUID
	var totalAmount, monthlyAmount, originalAmount, exchangeRate pgtype.Numeric
	var startDate pgtype.Date
	var originalCurrency pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	var installmentType string

	err := row.Scan(&i.ID, &i.UserID, &orgID, &i.Name, &totalAmount, &monthlyAmount,
		&i.NumberOfPayments, &i.PaymentsCompleted, &installmentType, &categoryID,
		&startDate, &i.DayOfMonth, &i.Currency,
		&originalAmount, &originalCurrency, &exchangeRate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	i.OrganizationID = pgUUIDToPtr(orgID)
	i.TotalAmount = pgNumericToDecimal(totalAmount)
	i.MonthlyAmount = pgNumericToDecimal(monthlyAmount)
	i.Type = domain.TransactionType(installmentType)
	i.CategoryID = pgUUIDToPtr(categoryID)
	i.StartDate = startDate.Time
	i.OriginalAmount = pgNumericToDecimalPtr(originalAmount)
	i.OriginalCurrency = pgTextToPtr(originalCurrency)
	i.ExchangeRate = pgNumericToDecimalPtr(exchangeRate)
	i.CreatedAt = createdAt.Time
	i.UpdatedAt = updatedAt.Time
	return &i, nil
}

func installmentAuditValues(i *domain.Installment) map[string]interface{} {
	return map[string]interface{}{
		"name":               i.Name,
		"total_amount":       i.TotalAmount.String(),
		"payments_completed": i.PaymentsCompleted,
	}
}
