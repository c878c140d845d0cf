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

// SubscriptionRepository implements domain.SubscriptionRepository using PostgreSQL
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `id, user_id, organization_id, name, amount, currency, billing_cycle,
	next_renewal_date, is_active, paused_at, auto_renew, provider, credit_card_id, category_id,
	created_at, updated_at`

// Create creates a new subscription
func (r *SubscriptionRepository) Create(scope domain.Scope, sub *domain.Subscription) (*domain.Subscription, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(sub.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var created *domain.Subscription
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO subscriptions (id, user_id, organization_id, name, amount, currency, billing_cycle,
				next_renewal_date, is_active, paused_at, auto_renew, provider, credit_card_id, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING %s`, subscriptionColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID), sub.Name, amount,
			sub.Currency, string(sub.BillingCycle), dateToPg(sub.NextRenewalDate), sub.IsActive,
			timestampPtrToPg(sub.PausedAt), sub.AutoRenew, sub.Provider,
			uuidPtrToPg(sub.CreditCardID), uuidPtrToPg(sub.CategoryID),
		)
		var err error
		created, err = scanSubscription(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "subscriptions", created.ID, domain.AuditCreate, nil, subscriptionAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a subscription under the ownership filter
func (r *SubscriptionRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Subscription, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM subscriptions WHERE id = $1 AND %s",
		subscriptionColumns, scopeCondition(scope, &args))

	sub, err := scanSubscription(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// List retrieves the scope's subscriptions
func (r *SubscriptionRepository) List(scope domain.Scope, activeOnly bool) ([]*domain.Subscription, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM subscriptions WHERE %s", subscriptionColumns, scopeCondition(scope, &args))
	if activeOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY next_renewal_date, name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Update updates a subscription and audits the diff
func (r *SubscriptionRepository) Update(scope domain.Scope, sub *domain.Subscription) (*domain.Subscription, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, sub.ID)
	if err != nil {
		return nil, err
	}
	amount, err := decimalToPgNumeric(sub.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var updated *domain.Subscription
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{sub.ID, sub.Name, amount, string(sub.BillingCycle), dateToPg(sub.NextRenewalDate),
			sub.IsActive, timestampPtrToPg(sub.PausedAt), sub.AutoRenew, sub.Provider,
			uuidPtrToPg(sub.CreditCardID), uuidPtrToPg(sub.CategoryID)}
		query := fmt.Sprintf(`
			UPDATE subscriptions
			SET name = $2, amount = $3, billing_cycle = $4, next_renewal_date = $5, is_active = $6,
				paused_at = $7, auto_renew = $8, provider = $9, credit_card_id = $10, category_id = $11,
				updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), subscriptionColumns)

		var err error
		updated, err = scanSubscription(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrSubscriptionNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(subscriptionAuditValues(previous), subscriptionAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "subscriptions", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a subscription and audits it
func (r *SubscriptionRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM subscriptions WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSubscriptionNotFound
		}
		return appendAuditTx(ctx, tx, scope, "subscriptions", id, domain.AuditDelete, subscriptionAuditValues(previous), nil)
	})
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	var orgID, creditCardID, categoryID pgtype.UUID
	var amount pgtype.Numeric
	var nextRenewal pgtype.Date
	var pausedAt, createdAt, updatedAt pgtype.Timestamptz
	var cycle string

	err := row.Scan(&s.ID, &s.UserID, &orgID, &s.Name, &amount, &s.Currency, &cycle,
		&nextRenewal, &s.IsActive, &pausedAt, &s.AutoRenew, &s.Provider,
		&creditCardID, &categoryID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	s.OrganizationID = pgUUIDToPtr(orgID)
	s.Amount = pgNumericToDecimal(amount)
	s.BillingCycle = domain.BillingCycle(cycle)
	s.NextRenewalDate = nextRenewal.Time
	s.PausedAt = pgTimestampToPtr(pausedAt)
	s.CreditCardID = pgUUIDToPtr(creditCardID)
	s.CategoryID = pgUUIDToPtr(categoryID)
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return &s, nil
}

func subscriptionAuditValues(s *domain.Subscription) map[string]interface{} {
	return map[string]interface{}{
		"name":          s.Name,
		"amount":        s.Amount.String(),
		"billing_cycle": string(s.BillingCycle),
		"is_active":     s.IsActive,
	}
}
