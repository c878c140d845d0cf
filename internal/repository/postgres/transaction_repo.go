package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository using PostgreSQL
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

const transactionColumns = `id, user_id, organization_id, amount, currency, type, category_id,
	description, date, entry_pattern, is_recurring, recurring_source_id,
	installment_id, installment_number, loan_id, credit_card_id, bank_account_id,
	original_amount, original_currency, exchange_rate, created_at, updated_at`

// Create creates a new transaction and audits it
func (r *TransactionRepository) Create(scope domain.Scope, transaction *domain.Transaction) (*domain.Transaction, error) {
	ctx := context.Background()

	var created *domain.Transaction
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		created, err = insertTransaction(ctx, tx, scope, transaction)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "transactions", created.ID, domain.AuditCreate, nil, transactionAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// BulkCreate creates a batch of transactions atomically with one rollup
// audit entry
func (r *TransactionRepository) BulkCreate(scope domain.Scope, transactions []*domain.Transaction) ([]*domain.Transaction, error) {
	ctx := context.Background()

	created := make([]*domain.Transaction, 0, len(transactions))
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, t := range transactions {
			row, err := insertTransaction(ctx, tx, scope, t)
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		if len(created) == 0 {
			return nil
		}
		return appendAuditTx(ctx, tx, scope, "transactions", created[0].ID, domain.AuditBulkCreate,
			nil, map[string]interface{}{"count": len(created)})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a transaction under the ownership filter
func (r *TransactionRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Transaction, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE id = $1 AND %s`,
		transactionColumns, scopeCondition(scope, &args))

	row := r.pool.QueryRow(ctx, query, args...)
	transaction, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return transaction, nil
}

// List retrieves transactions with filters, whitelisted sorting and capped
// pagination
func (r *TransactionRepository) List(scope domain.Scope, filters *domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	ctx := context.Background()

	page := int32(1)
	pageSize := int32(domain.DefaultPageSize)
	sortBy := "date"
	sortDesc := true

	var args []any
	where := []string{scopeCondition(scope, &args)}

	if filters != nil {
		if filters.Page > 0 {
			page = filters.Page
		}
		if filters.PageSize > 0 {
			pageSize = filters.PageSize
			if pageSize > domain.MaxPageSize {
				pageSize = domain.MaxPageSize
			}
		}
		if filters.SortBy != "" {
			sortBy = filters.SortBy
		}
		sortDesc = filters.SortDesc

		if filters.StartDate != nil {
			args = append(args, *filters.StartDate)
			where = append(where, fmt.Sprintf("date >= $%d", len(args)))
		}
		if filters.EndDate != nil {
			args = append(args, *filters.EndDate)
			where = append(where, fmt.Sprintf("date <= $%d", len(args)))
		}
		if filters.Type != nil {
			args = append(args, string(*filters.Type))
			where = append(where, fmt.Sprintf("type = $%d", len(args)))
		}
		if filters.CategoryID != nil {
			args = append(args, *filters.CategoryID)
			where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
		}
		if filters.EntryPattern != nil {
			args = append(args, string(*filters.EntryPattern))
			where = append(where, fmt.Sprintf("entry_pattern = $%d", len(args)))
		}
	}

	switch sortBy {
	case "date", "amount", "created_at":
	default:
		return nil, domain.ErrInvalidInput
	}
	direction := "ASC"
	if sortDesc {
		direction = "DESC"
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT count(*) FROM transactions WHERE %s", whereClause), args...,
	).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		transactionColumns, whereClause, sortBy, direction, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := collectTransactions(rows)
	if err != nil {
		return nil, err
	}

	pages := int32(total / int64(pageSize))
	if total%int64(pageSize) > 0 {
		pages++
	}
	return &domain.PaginatedTransactions{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

// ListByDateRange retrieves transactions in [start, end] ordered by date
func (r *TransactionRepository) ListByDateRange(scope domain.Scope, start, end time.Time) ([]*domain.Transaction, error) {
	ctx := context.Background()

	args := []any{start, end}
	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE date >= $1 AND date <= $2 AND %s ORDER BY date, created_at`,
		transactionColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// Update updates a transaction's editable fields and audits the diff
func (r *TransactionRepository) Update(scope domain.Scope, transaction *domain.Transaction) (*domain.Transaction, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, transaction.ID)
	if err != nil {
		return nil, err
	}

	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var updated *domain.Transaction
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{transaction.ID, amount, string(transaction.Type),
			uuidPtrToPg(transaction.CategoryID), transaction.Description, dateToPg(transaction.Date)}
		query := fmt.Sprintf(`
			UPDATE transactions
			SET amount = $2, type = $3, category_id = $4, description = $5, date = $6, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), transactionColumns)

		row := tx.QueryRow(ctx, query, args...)
		updated, err = scanTransaction(row)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrTransactionNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(transactionAuditValues(previous), transactionAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "transactions", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// BulkUpdate updates a batch of transactions atomically with one rollup
// audit entry. Any missing row aborts the whole batch.
func (r *TransactionRepository) BulkUpdate(scope domain.Scope, transactions []*domain.Transaction) ([]*domain.Transaction, error) {
	ctx := context.Background()

	updated := make([]*domain.Transaction, 0, len(transactions))
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, t := range transactions {
			amount, err := decimalToPgNumeric(t.Amount)
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}

			args := []any{t.ID, amount, string(t.Type),
				uuidPtrToPg(t.CategoryID), t.Description, dateToPg(t.Date)}
			query := fmt.Sprintf(`
				UPDATE transactions
				SET amount = $2, type = $3, category_id = $4, description = $5, date = $6, updated_at = now()
				WHERE id = $1 AND %s
				RETURNING %s`, scopeCondition(scope, &args), transactionColumns)

			row, err := scanTransaction(tx.QueryRow(ctx, query, args...))
			if err != nil {
				if err == pgx.ErrNoRows {
					return domain.ErrTransactionNotFound
				}
				return err
			}
			updated = append(updated, row)
		}
		if len(updated) == 0 {
			return nil
		}
		return appendAuditTx(ctx, tx, scope, "transactions", updated[0].ID, domain.AuditBulkUpdate,
			nil, map[string]interface{}{"count": len(updated)})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a transaction and audits it
func (r *TransactionRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM transactions WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTransactionNotFound
		}
		return appendAuditTx(ctx, tx, scope, "transactions", id, domain.AuditDelete, transactionAuditValues(previous), nil)
	})
}

// BulkDelete removes a batch of transactions with one rollup audit entry
func (r *TransactionRepository) BulkDelete(scope domain.Scope, ids []uuid.UUID) (int64, error) {
	ctx := context.Background()

	var deleted int64
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{ids}
		query := fmt.Sprintf("DELETE FROM transactions WHERE id = ANY($1) AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		if deleted == 0 {
			return nil
		}
		return appendAuditTx(ctx, tx, scope, "transactions", ids[0], domain.AuditBulkDelete,
			nil, map[string]interface{}{"count": deleted})
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// MaterialisedKeys returns the provenance fingerprints of transactions in
// [start, end]
func (r *TransactionRepository) MaterialisedKeys(scope domain.Scope, start, end time.Time) ([]domain.MaterialisedKey, error) {
	ctx := context.Background()

	args := []any{start, end}
	query := fmt.Sprintf(`
		SELECT recurring_source_id, installment_id, loan_id, date
		FROM transactions
		WHERE date >= $1 AND date <= $2 AND %s
		  AND (recurring_source_id IS NOT NULL OR installment_id IS NOT NULL OR loan_id IS NOT NULL)`,
		scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.MaterialisedKey
	for rows.Next() {
		var recurringID, installmentID, loanID pgtype.UUID
		var date pgtype.Date
		if err := rows.Scan(&recurringID, &installmentID, &loanID, &date); err != nil {
			return nil, err
		}
		key := domain.MaterialisedKey{Year: date.Time.Year(), Month: date.Time.Month()}
		switch {
		case recurringID.Valid:
			key.Kind = domain.SourceFixed
			key.SourceID = uuid.UUID(recurringID.Bytes)
		case installmentID.Valid:
			key.Kind = domain.SourceInstallment
			key.SourceID = uuid.UUID(installmentID.Bytes)
		case loanID.Valid:
			key.Kind = domain.SourceLoan
			key.SourceID = uuid.UUID(loanID.Bytes)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// ExistsForSource is the automation idempotency check
func (r *TransactionRepository) ExistsForSource(scope domain.Scope, kind domain.SourceKind, sourceID uuid.UUID, date time.Time) (bool, error) {
	ctx := context.Background()

	args, query, err := existsForSourceQuery(scope, kind, sourceID, date)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// existsForSourceTx is ExistsForSource inside an open transaction, used by
// the charge paths after they have locked the source row.
func existsForSourceTx(ctx context.Context, tx pgx.Tx, scope domain.Scope, kind domain.SourceKind, sourceID uuid.UUID, date time.Time) (bool, error) {
	args, query, err := existsForSourceQuery(scope, kind, sourceID, date)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func existsForSourceQuery(scope domain.Scope, kind domain.SourceKind, sourceID uuid.UUID, date time.Time) ([]any, string, error) {
	var column string
	switch kind {
	case domain.SourceFixed:
		column = "recurring_source_id"
	case domain.SourceInstallment:
		column = "installment_id"
	case domain.SourceLoan:
		column = "loan_id"
	default:
		return nil, "", domain.ErrInvalidInput
	}

	args := []any{sourceID, date}
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM transactions WHERE %s = $1 AND date = $2 AND %s)",
		column, scopeCondition(scope, &args))
	return args, query, nil
}

// CountByCategory reports how many transactions reference a category
func (r *TransactionRepository) CountByCategory(scope domain.Scope, categoryID uuid.UUID) (int64, error) {
	ctx := context.Background()

	args := []any{categoryID}
	query := fmt.Sprintf("SELECT count(*) FROM transactions WHERE category_id = $1 AND %s",
		scopeCondition(scope, &args))

	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, scope domain.Scope, transaction *domain.Transaction) (*domain.Transaction, error) {
	amount, err := decimalToPgNumeric(transaction.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	originalAmount, err := decimalPtrToPgNumeric(transaction.OriginalAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid original amount: %w", err)
	}
	exchangeRate, err := decimalPtrToPgNumeric(transaction.ExchangeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid exchange rate: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO transactions (id, user_id, organization_id, amount, currency, type, category_id,
			description, date, entry_pattern, is_recurring, recurring_source_id,
			installment_id, installment_number, loan_id, credit_card_id, bank_account_id,
			original_amount, original_currency, exchange_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING %s`, transactionColumns)

	row := tx.QueryRow(ctx, query,
		uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID), amount, transaction.Currency,
		string(transaction.Type), uuidPtrToPg(transaction.CategoryID), transaction.Description,
		dateToPg(transaction.Date), string(transaction.EntryPattern), transaction.IsRecurring,
		uuidPtrToPg(transaction.RecurringSourceID), uuidPtrToPg(transaction.InstallmentID),
		int32PtrToPg(transaction.InstallmentNumber), uuidPtrToPg(transaction.LoanID),
		uuidPtrToPg(transaction.CreditCardID), uuidPtrToPg(transaction.BankAccountID),
		originalAmount, textPtrToPg(transaction.OriginalCurrency), exchangeRate,
	)
	return scanTransaction(row)
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var orgID, categoryID, recurringSourceID, installmentID, loanID, creditCardID, bankAccountID pgtype.UUID
	var amount, originalAmount, exchangeRate pgtype.Numeric
	var date pgtype.Date
	var installmentNumber pgtype.Int4
	var originalCurrency pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	var txType, entryPattern string

	err := row.Scan(&t.ID, &t.UserID, &orgID, &amount, &t.Currency, &txType, &categoryID,
		&t.Description, &date, &entryPattern, &t.IsRecurring, &recurringSourceID,
		&installmentID, &installmentNumber, &loanID, &creditCardID, &bankAccountID,
		&originalAmount, &originalCurrency, &exchangeRate, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.OrganizationID = pgUUIDToPtr(orgID)
	t.Amount = pgNumericToDecimal(amount)
	t.Type = domain.TransactionType(txType)
	t.CategoryID = pgUUIDToPtr(categoryID)
	t.Date = date.Time
	t.EntryPattern = domain.EntryPattern(entryPattern)
	t.RecurringSourceID = pgUUIDToPtr(recurringSourceID)
	t.InstallmentID = pgUUIDToPtr(installmentID)
	t.InstallmentNumber = pgInt4ToPtr(installmentNumber)
	t.LoanID = pgUUIDToPtr(loanID)
	t.CreditCardID = pgUUIDToPtr(creditCardID)
	t.BankAccountID = pgUUIDToPtr(bankAccountID)
	t.OriginalAmount = pgNumericToDecimalPtr(originalAmount)
	t.OriginalCurrency = pgTextToPtr(originalCurrency)
	t.ExchangeRate = pgNumericToDecimalPtr(exchangeRate)
	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time
	return &t, nil
}

func transactionAuditValues(t *domain.Transaction) map[string]interface{} {
	values := map[string]interface{}{
		"amount":      t.Amount.String(),
		"type":        string(t.Type),
		"date":        t.Date.Format("2006-01-02"),
		"description": t.Description,
	}
	if t.CategoryID != nil {
		values["category_id"] = t.CategoryID.String()
	}
	return values
}
