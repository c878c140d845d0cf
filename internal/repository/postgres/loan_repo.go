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

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `id, user_id, organization_id, name, original_amount, monthly_payment,
	interest_rate, total_payments, payments_made, remaining_balance, status,
	start_date, day_of_month, category_id, currency,
	original_amount_fx, original_currency, exchange_rate, created_at, updated_at`

// Create creates a new loan and audits it
func (r *LoanRepository) Create(scope domain.Scope, loan *domain.Loan) (*domain.Loan, error) {
	ctx := context.Background()

	originalAmount, err := decimalToPgNumeric(loan.OriginalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	monthlyPayment, err := decimalToPgNumeric(loan.MonthlyPayment)
	if err != nil {
		return nil, fmt.Errorf("invalid monthly payment: %w", err)
	}
	interestRate, err := decimalToPgNumeric(loan.InterestRate)
	if err != nil {
		return nil, fmt.Errorf("invalid interest rate: %w", err)
	}
	remainingBalance, err := decimalToPgNumeric(loan.RemainingBalance)
	if err != nil {
		return nil, fmt.Errorf("invalid remaining balance: %w", err)
	}
	originalAmountFX, err := decimalPtrToPgNumeric(loan.OriginalAmountFX)
	if err != nil {
		return nil, fmt.Errorf("invalid original amount: %w", err)
	}
	exchangeRate, err := decimalPtrToPgNumeric(loan.ExchangeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange rate: %w", err)
	}

	var created *domain.Loan
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO loans (id, user_id, organization_id, name, original_amount, monthly_payment,
				interest_rate, total_payments, payments_made, remaining_balance, status,
				start_date, day_of_month, category_id, currency,
				original_amount_fx, original_currency, exchange_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			RETURNING %s`, loanColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID), loan.Name,
			originalAmount, monthlyPayment, interestRate, loan.TotalPayments, loan.PaymentsMade,
			remainingBalance, string(loan.Status), dateToPg(loan.StartDate), loan.DayOfMonth,
			uuidPtrToPg(loan.CategoryID), loan.Currency,
			originalAmountFX, textPtrToPg(loan.OriginalCurrency), exchangeRate,
		)
		var err error
		created, err = scanLoan(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "loans", created.ID, domain.AuditCreate, nil, loanAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a loan under the ownership filter
func (r *LoanRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Loan, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM loans WHERE id = $1 AND %s", loanColumns, scopeCondition(scope, &args))

	loan, err := scanLoan(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// List retrieves loans filtered by status
func (r *LoanRepository) List(scope domain.Scope, filter domain.LoanFilter) ([]*domain.Loan, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM loans WHERE %s", loanColumns, scopeCondition(scope, &args))
	switch filter {
	case domain.LoanFilterActive:
		query += " AND status = 'active'"
	case domain.LoanFilterCompleted:
		query += " AND status = 'completed'"
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

// Update updates a loan's editable fields and audits the diff
func (r *LoanRepository) Update(scope domain.Scope, loan *domain.Loan) (*domain.Loan, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, loan.ID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Loan
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{loan.ID, loan.Name, uuidPtrToPg(loan.CategoryID), loan.DayOfMonth}
		query := fmt.Sprintf(`
			UPDATE loans
			SET name = $2, category_id = $3, day_of_month = $4, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), loanColumns)

		var err error
		updated, err = scanLoan(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrLoanNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(loanAuditValues(previous), loanAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "loans", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a loan and audits it
func (r *LoanRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM loans WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrLoanNotFound
		}
		return appendAuditTx(ctx, tx, scope, "loans", id, domain.AuditDelete, loanAuditValues(previous), nil)
	})
}

// Mutate loads the loan under an exclusive row lock, applies fn and persists
// the financial state. Concurrent payments on the same loan serialise here.
func (r *LoanRepository) Mutate(scope domain.Scope, id uuid.UUID, fn func(*domain.Loan) error) (*domain.Loan, error) {
	ctx := context.Background()

	var mutated *domain.Loan
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("SELECT %s FROM loans WHERE id = $1 AND %s FOR UPDATE",
			loanColumns, scopeCondition(scope, &args))

		loan, err := scanLoan(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrLoanNotFound
			}
			return err
		}
		before := loanAuditValues(loan)

		if err := fn(loan); err != nil {
			return err
		}

		remainingBalance, err := decimalToPgNumeric(loan.RemainingBalance)
		if err != nil {
			return fmt.Errorf("invalid remaining balance: %w", err)
		}
		writeArgs := []any{id, loan.PaymentsMade, remainingBalance, string(loan.Status)}
		writeQuery := fmt.Sprintf(`
			UPDATE loans
			SET payments_made = $2, remaining_balance = $3, status = $4, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &writeArgs), loanColumns)

		mutated, err = scanLoan(tx.QueryRow(ctx, writeQuery, writeArgs...))
		if err != nil {
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(before, loanAuditValues(mutated))
		return appendAuditTx(ctx, tx, scope, "loans", id, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

// Charge advances the loan and materialises the payment transaction in one
// database transaction. The row lock is taken before the guard check, so two
// concurrent runs on the same loan serialise and the loser sees the winner's
// transaction.
func (r *LoanRepository) Charge(scope domain.Scope, id uuid.UUID, guardDate *time.Time, fn func(*domain.Loan) (*domain.Transaction, error)) (*domain.Loan, *domain.Transaction, error) {
	ctx := context.Background()

	var mutated *domain.Loan
	var created *domain.Transaction
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("SELECT %s FROM loans WHERE id = $1 AND %s FOR UPDATE",
			loanColumns, scopeCondition(scope, &args))

		loan, err := scanLoan(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrLoanNotFound
			}
			return err
		}
		if guardDate != nil {
			exists, err := existsForSourceTx(ctx, tx, scope, domain.SourceLoan, id, *guardDate)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrAlreadyExists
			}
		}
		before := loanAuditValues(loan)

		transaction, err := fn(loan)
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

		remainingBalance, err := decimalToPgNumeric(loan.RemainingBalance)
		if err != nil {
			return fmt.Errorf("invalid remaining balance: %w", err)
		}
		writeArgs := []any{id, loan.PaymentsMade, remainingBalance, string(loan.Status)}
		writeQuery := fmt.Sprintf(`
			UPDATE loans
			SET payments_made = $2, remaining_balance = $3, status = $4, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &writeArgs), loanColumns)

		mutated, err = scanLoan(tx.QueryRow(ctx, writeQuery, writeArgs...))
		if err != nil {
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(before, loanAuditValues(mutated))
		return appendAuditTx(ctx, tx, scope, "loans", id, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, nil, err
	}
	return mutated, created, nil
}

// ListDue returns active loans with remaining payments due on refDate's day
func (r *LoanRepository) ListDue(scope domain.Scope, refDate time.Time) ([]*domain.Loan, error) {
	ctx := context.Background()

	args := []any{refDate.Day(), refDate}
	query := fmt.Sprintf(`
		SELECT %s FROM loans
		WHERE status = 'active' AND payments_made < total_payments
		  AND day_of_month = $1 AND start_date <= $2 AND %s
		ORDER BY created_at`, loanColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoans(rows)
}

func collectLoans(rows pgx.Rows) ([]*domain.Loan, error) {
	var out []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loan)
	}
	return out, rows.Err()
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var l domain.Loan
	var orgID, categoryID pgtype.UUID
	var originalAmount, monthlyPayment, interestRate, remainingBalance, originalAmountFX, exchangeRate pgtype.Numeric
	var startDate pgtype.Date
	var originalCurrency pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	var status string

	err := row.Scan(&l.ID, &l.UserID, &orgID, &l.Name, &originalAmount, &monthlyPayment,
		&interestRate, &l.TotalPayments, &l.PaymentsMade, &remainingBalance, &status,
		&startDate, &l.DayOfMonth, &categoryID, &l.Currency,
		&originalAmountFX, &originalCurrency, &exchangeRate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	l.OrganizationID = pgUUIDToPtr(orgID)
	l.OriginalAmount = pgNumericToDecimal(originalAmount)
	l.MonthlyPayment = pgNumericToDecimal(monthlyPayment)
	l.InterestRate = pgNumericToDecimal(interestRate)
	l.RemainingBalance = pgNumericToDecimal(remainingBalance)
	l.Status = domain.LoanStatus(status)
	l.StartDate = startDate.Time
	l.CategoryID = pgUUIDToPtr(categoryID)
	l.OriginalAmountFX = pgNumericToDecimalPtr(originalAmountFX)
	l.OriginalCurrency = pgTextToPtr(originalCurrency)
	l.ExchangeRate = pgNumericToDecimalPtr(exchangeRate)
	l.CreatedAt = createdAt.Time
	l.UpdatedAt = updatedAt.Time
	return &l, nil
}

func loanAuditValues(l *domain.Loan) map[string]interface{} {
	return map[string]interface{}{
		"name":              l.Name,
		"status":            string(l.Status),
		"payments_made":     l.PaymentsMade,
		"remaining_balance": l.RemainingBalance.String(),
	}
}
