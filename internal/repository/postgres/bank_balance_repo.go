package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// BankBalanceRepository implements domain.BankBalanceRepository using PostgreSQL
type BankBalanceRepository struct {
	pool *pgxpool.Pool
}

// NewBankBalanceRepository creates a new BankBalanceRepository
func NewBankBalanceRepository(pool *pgxpool.Pool) *BankBalanceRepository {
	return &BankBalanceRepository{pool: pool}
}

const bankBalanceColumns = `id, user_id, organization_id, balance, currency, effective_date,
	is_current, notes, bank_account_id, created_at, updated_at`

// Create creates a new balance snapshot. When the snapshot becomes current
// the previous current row is flipped in the same transaction. The unique
// (scope, effective_date) constraint reads as a date conflict.
func (r *BankBalanceRepository) Create(scope domain.Scope, balance *domain.BankBalance) (*domain.BankBalance, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(balance.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}

	var created *domain.BankBalance
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Serialise snapshot creation per owner scope. Without this, two
		// concurrent current inserts can each clear the other's flag before
		// either commits and both end up current.
		if err := lockScopeTx(ctx, tx, scope); err != nil {
			return err
		}
		if balance.IsCurrent {
			var clearArgs []any
			clearQuery := fmt.Sprintf("UPDATE bank_balances SET is_current = false, updated_at = now() WHERE is_current = true AND %s",
				scopeCondition(scope, &clearArgs))
			if _, err := tx.Exec(ctx, clearQuery, clearArgs...); err != nil {
				return err
			}
		}

		query := fmt.Sprintf(`
			INSERT INTO bank_balances (id, user_id, organization_id, balance, currency, effective_date,
				is_current, notes, bank_account_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING %s`, bankBalanceColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID), amount, balance.Currency,
			dateToPg(balance.EffectiveDate), balance.IsCurrent, balance.Notes,
			uuidPtrToPg(balance.BankAccountID),
		)
		var err error
		created, err = scanBankBalance(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return domain.ErrBalanceDateTaken
			}
			return err
		}
		return appendAuditTx(ctx, tx, scope, "bank_balances", created.ID, domain.AuditCreate, nil, balanceAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a balance snapshot under the ownership filter
func (r *BankBalanceRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.BankBalance, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM bank_balances WHERE id = $1 AND %s",
		bankBalanceColumns, scopeCondition(scope, &args))

	balance, err := scanBankBalance(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBankBalanceNotFound
		}
		return nil, err
	}
	return balance, nil
}

// GetCurrent retrieves the scope's current balance snapshot
func (r *BankBalanceRepository) GetCurrent(scope domain.Scope) (*domain.BankBalance, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM bank_balances WHERE is_current = true AND %s",
		bankBalanceColumns, scopeCondition(scope, &args))

	balance, err := scanBankBalance(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBankBalanceNotFound
		}
		return nil, err
	}
	return balance, nil
}

// List retrieves the scope's balance history, newest effective date first
func (r *BankBalanceRepository) List(scope domain.Scope) ([]*domain.BankBalance, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM bank_balances WHERE %s ORDER BY effective_date DESC",
		bankBalanceColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.BankBalance
	for rows.Next() {
		balance, err := scanBankBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, balance)
	}
	return out, rows.Err()
}

// Update updates a snapshot's amount and notes and audits the diff
func (r *BankBalanceRepository) Update(scope domain.Scope, balance *domain.BankBalance) (*domain.BankBalance, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, balance.ID)
	if err != nil {
		return nil, err
	}
	amount, err := decimalToPgNumeric(balance.Balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance: %w", err)
	}

	var updated *domain.BankBalance
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{balance.ID, amount, balance.Notes}
		query := fmt.Sprintf(`
			UPDATE bank_balances
			SET balance = $2, notes = $3, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), bankBalanceColumns)

		var err error
		updated, err = scanBankBalance(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrBankBalanceNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(balanceAuditValues(previous), balanceAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "bank_balances", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a snapshot. Deleting the current snapshot promotes the
// most recent remaining one.
func (r *BankBalanceRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM bank_balances WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrBankBalanceNotFound
		}

		if previous.IsCurrent {
			var promoteArgs []any
			condition := scopeCondition(scope, &promoteArgs)
			promoteQuery := fmt.Sprintf(`
				UPDATE bank_balances SET is_current = true, updated_at = now()
				WHERE id = (
					SELECT id FROM bank_balances WHERE %s
					ORDER BY effective_date DESC LIMIT 1
				)`, condition)
			if _, err := tx.Exec(ctx, promoteQuery, promoteArgs...); err != nil {
				return err
			}
		}
		return appendAuditTx(ctx, tx, scope, "bank_balances", id, domain.AuditDelete, balanceAuditValues(previous), nil)
	})
}

// lockScopeTx takes a transaction-scoped advisory lock on the owner scope,
// released automatically at commit or rollback.
func lockScopeTx(ctx context.Context, tx pgx.Tx, scope domain.Scope) error {
	owner := scope.UserID
	if scope.IsOrg() {
		owner = *scope.OrganizationID
	}
	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))", owner.String())
	return err
}

func scanBankBalance(row pgx.Row) (*domain.BankBalance, error) {
	var b domain.BankBalance
	var orgID, bankAccountID pgtype.UUID
	var amount pgtype.Numeric
	var effectiveDate pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&b.ID, &b.UserID, &orgID, &amount, &b.Currency, &effectiveDate,
		&b.IsCurrent, &b.Notes, &bankAccountID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	b.OrganizationID = pgUUIDToPtr(orgID)
	b.Balance = pgNumericToDecimal(amount)
	b.EffectiveDate = effectiveDate.Time
	b.BankAccountID = pgUUIDToPtr(bankAccountID)
	b.CreatedAt = createdAt.Time
	b.UpdatedAt = updatedAt.Time
	return &b, nil
}

func balanceAuditValues(b *domain.BankBalance) map[string]interface{} {
	return map[string]interface{}{
		"balance":        b.Balance.String(),
		"effective_date": b.EffectiveDate.Format("2006-01-02"),
		"is_current":     b.IsCurrent,
	}
}
