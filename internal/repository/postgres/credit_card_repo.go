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

// CreditCardRepository implements domain.CreditCardRepository using PostgreSQL
type CreditCardRepository struct {
	pool *pgxpool.Pool
}

// NewCreditCardRepository creates a new CreditCardRepository
func NewCreditCardRepository(pool *pgxpool.Pool) *CreditCardRepository {
	return &CreditCardRepository{pool: pool}
}

const creditCardColumns = `id, user_id, organization_id, name, last_four_digits, card_network,
	issuer, credit_limit, billing_day, currency, is_active, color, created_at, updated_at`

// Create creates a new credit card
func (r *CreditCardRepository) Create(scope domain.Scope, card *domain.CreditCard) (*domain.CreditCard, error) {
	ctx := context.Background()

	creditLimit, err := decimalToPgNumeric(card.CreditLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid credit limit: %w", err)
	}

	var created *domain.CreditCard
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO credit_cards (id, user_id, organization_id, name, last_four_digits, card_network,
				issuer, credit_limit, billing_day, currency, is_active, color)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING %s`, creditCardColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID), card.Name,
			card.LastFourDigits, card.CardNetwork, card.Issuer, creditLimit, card.BillingDay,
			card.Currency, card.IsActive, card.Color,
		)
		var err error
		created, err = scanCreditCard(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "credit_cards", created.ID, domain.AuditCreate, nil, creditCardAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a credit card under the ownership filter
func (r *CreditCardRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.CreditCard, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM credit_cards WHERE id = $1 AND %s",
		creditCardColumns, scopeCondition(scope, &args))

	card, err := scanCreditCard(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrCreditCardNotFound
		}
		return nil, err
	}
	return card, nil
}

// List retrieves the scope's credit cards
func (r *CreditCardRepository) List(scope domain.Scope, activeOnly bool) ([]*domain.CreditCard, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM credit_cards WHERE %s", creditCardColumns, scopeCondition(scope, &args))
	if activeOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.CreditCard
	for rows.Next() {
		card, err := scanCreditCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

// Update updates a credit card; last_four_digits is immutable
func (r *CreditCardRepository) Update(scope domain.Scope, card *domain.CreditCard) (*domain.CreditCard, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, card.ID)
	if err != nil {
		return nil, err
	}
	creditLimit, err := decimalToPgNumeric(card.CreditLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid credit limit: %w", err)
	}

	var updated *domain.CreditCard
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{card.ID, card.Name, card.CardNetwork, card.Issuer, creditLimit,
			card.BillingDay, card.IsActive, card.Color}
		query := fmt.Sprintf(`
			UPDATE credit_cards
			SET name = $2, card_network = $3, issuer = $4, credit_limit = $5, billing_day = $6,
				is_active = $7, color = $8, updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), creditCardColumns)

		var err error
		updated, err = scanCreditCard(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrCreditCardNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(creditCardAuditValues(previous), creditCardAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "credit_cards", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a credit card and audits it
func (r *CreditCardRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM credit_cards WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCreditCardNotFound
		}
		return appendAuditTx(ctx, tx, scope, "credit_cards", id, domain.AuditDelete, creditCardAuditValues(previous), nil)
	})
}

func scanCreditCard(row pgx.Row) (*domain.CreditCard, error) {
	var c domain.CreditCard
	var orgID pgtype.UUID
	var creditLimit pgtype.Numeric
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&c.ID, &c.UserID, &orgID, &c.Name, &c.LastFourDigits, &c.CardNetwork,
		&c.Issuer, &creditLimit, &c.BillingDay, &c.Currency, &c.IsActive, &c.Color,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	c.OrganizationID = pgUUIDToPtr(orgID)
	c.CreditLimit = pgNumericToDecimal(creditLimit)
	c.CreatedAt = createdAt.Time
	c.UpdatedAt = updatedAt.Time
	return &c, nil
}

func creditCardAuditValues(c *domain.CreditCard) map[string]interface{} {
	return map[string]interface{}{
		"name":         c.Name,
		"credit_limit": c.CreditLimit.String(),
		"billing_day":  c.BillingDay,
		"is_active":    c.IsActive,
	}
}
