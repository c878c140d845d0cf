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

// ApprovalRepository implements domain.ApprovalRepository using PostgreSQL
type ApprovalRepository struct {
	pool *pgxpool.Pool
}

// NewApprovalRepository creates a new ApprovalRepository
func NewApprovalRepository(pool *pgxpool.Pool) *ApprovalRepository {
	return &ApprovalRepository{pool: pool}
}

const approvalColumns = `id, organization_id, requested_by, status, amount, currency, category_id,
	description, rejection_reason, approved_by, transaction_id, requested_at, resolved_at`

// Create creates a new pending expense approval
func (r *ApprovalRepository) Create(approval *domain.ExpenseApproval) (*domain.ExpenseApproval, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(approval.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	scope := domain.OrgScope(approval.RequestedBy, approval.OrganizationID)
	var created *domain.ExpenseApproval
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO expense_approvals (id, organization_id, requested_by, status, amount, currency,
				category_id, description, requested_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+approvalColumns,
			uuid.New(), approval.OrganizationID, approval.RequestedBy, string(approval.Status),
			amount, approval.Currency, uuidPtrToPg(approval.CategoryID), approval.Description,
			approval.RequestedAt,
		)
		var err error
		created, err = scanApproval(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "expense_approvals", created.ID, domain.AuditCreate, nil, approvalAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an approval within its organization
func (r *ApprovalRepository) GetByID(orgID, id uuid.UUID) (*domain.ExpenseApproval, error) {
	ctx := context.Background()

	approval, err := scanApproval(r.pool.QueryRow(ctx,
		"SELECT "+approvalColumns+" FROM expense_approvals WHERE id = $1 AND organization_id = $2",
		id, orgID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrApprovalNotFound
		}
		return nil, err
	}
	return approval, nil
}

// List retrieves an organization's approvals, optionally filtered by status
func (r *ApprovalRepository) List(orgID uuid.UUID, status *domain.ApprovalStatus) ([]*domain.ExpenseApproval, error) {
	ctx := context.Background()

	args := []any{orgID}
	query := "SELECT " + approvalColumns + " FROM expense_approvals WHERE organization_id = $1"
	if status != nil {
		args = append(args, string(*status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY requested_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ExpenseApproval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, approval)
	}
	return out, rows.Err()
}

// Resolve persists a terminal transition. When the approval was approved the
// auto-created expense transaction inserts in the same database transaction
// and its id links back to the approval row.
func (r *ApprovalRepository) Resolve(approval *domain.ExpenseApproval, transaction *domain.Transaction) (*domain.ExpenseApproval, error) {
	ctx := context.Background()

	previous, err := r.GetByID(approval.OrganizationID, approval.ID)
	if err != nil {
		return nil, err
	}

	var resolved *domain.ExpenseApproval
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		transactionID := approval.TransactionID
		scope := domain.OrgScope(approval.RequestedBy, approval.OrganizationID)
		if transaction != nil {
			txScope := domain.OrgScope(transaction.UserID, approval.OrganizationID)
			created, err := insertTransaction(ctx, tx, txScope, transaction)
			if err != nil {
				return err
			}
			if err := appendAuditTx(ctx, tx, txScope, "transactions", created.ID, domain.AuditCreate, nil, transactionAuditValues(created)); err != nil {
				return err
			}
			transactionID = &created.ID
		}

		row := tx.QueryRow(ctx, `
			UPDATE expense_approvals
			SET status = $3, rejection_reason = $4, approved_by = $5, transaction_id = $6, resolved_at = $7
			WHERE id = $1 AND organization_id = $2 AND status = 'pending'
			RETURNING `+approvalColumns,
			approval.ID, approval.OrganizationID, string(approval.Status),
			textPtrToPg(approval.RejectionReason), uuidPtrToPg(approval.ApprovedBy),
			uuidPtrToPg(transactionID), timestampPtrToPg(approval.ResolvedAt),
		)
		var err error
		resolved, err = scanApproval(row)
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrApprovalResolved
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(approvalAuditValues(previous), approvalAuditValues(resolved))
		return appendAuditTx(ctx, tx, scope, "expense_approvals", resolved.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func scanApproval(row pgx.Row) (*domain.ExpenseApproval, error) {
	var a domain.ExpenseApproval
	var status string
	var amount pgtype.Numeric
	var categoryID, approvedBy, transactionID pgtype.UUID
	var rejectionReason pgtype.Text
	var requestedAt, resolvedAt pgtype.Timestamptz

	err := row.Scan(&a.ID, &a.OrganizationID, &a.RequestedBy, &status, &amount, &a.Currency,
		&categoryID, &a.Description, &rejectionReason, &approvedBy, &transactionID,
		&requestedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	a.Status = domain.ApprovalStatus(status)
	a.Amount = pgNumericToDecimal(amount)
	a.CategoryID = pgUUIDToPtr(categoryID)
	a.RejectionReason = pgTextToPtr(rejectionReason)
	a.ApprovedBy = pgUUIDToPtr(approvedBy)
	a.TransactionID = pgUUIDToPtr(transactionID)
	a.RequestedAt = requestedAt.Time
	a.ResolvedAt = pgTimestampToPtr(resolvedAt)
	return &a, nil
}

func approvalAuditValues(a *domain.ExpenseApproval) map[string]interface{} {
	return map[string]interface{}{
		"status":      string(a.Status),
		"amount":      a.Amount.String(),
		"description": a.Description,
	}
}
