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

// AlertRepository implements domain.AlertRepository using PostgreSQL. The
// alerts table carries a partial unique index on (scope, dedup_key) WHERE NOT
// is_dismissed: dismissed rows stay as tombstones without blocking a fresh
// insert of the same condition.
type AlertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(pool *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{pool: pool}
}

const alertColumns = `id, user_id, organization_id, alert_type, severity, title, message,
	related_entity_type, related_entity_id, related_month, dedup_key,
	is_read, is_dismissed, created_at`

// ListNonDismissed retrieves the live alerts of one regeneration family
func (r *AlertRepository) ListNonDismissed(scope domain.Scope, family domain.AlertFamily) ([]*domain.Alert, error) {
	ctx := context.Background()

	types := typesForFamily(family)
	args := []any{types}
	query := fmt.Sprintf(`
		SELECT %s FROM alerts
		WHERE is_dismissed = false AND alert_type = ANY($1) AND %s
		ORDER BY created_at`, alertColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// List retrieves the scope's non-dismissed alerts, newest first
func (r *AlertRepository) List(scope domain.Scope, unreadOnly bool) ([]*domain.Alert, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE is_dismissed = false AND %s",
		alertColumns, scopeCondition(scope, &args))
	if unreadOnly {
		query += " AND is_read = false"
	}
	// Dedup key breaks ties so alerts generated in one batch keep a stable order.
	query += " ORDER BY created_at DESC, dedup_key"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAlerts(rows)
}

// GetByID retrieves an alert under the ownership filter
func (r *AlertRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM alerts WHERE id = $1 AND %s", alertColumns, scopeCondition(scope, &args))

	alert, err := scanAlert(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// Apply commits one reconciliation pass atomically: refreshed rows update in
// place (is_read preserved by the caller), stale rows delete, new conditions
// insert unread.
func (r *AlertRepository) Apply(scope domain.Scope, updates, inserts []*domain.Alert, deleteIDs []uuid.UUID) error {
	ctx := context.Background()

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, alert := range updates {
			args := []any{alert.ID, string(alert.Severity), alert.Title, alert.Message, datePtrToPg(alert.RelatedMonth)}
			query := fmt.Sprintf(`
				UPDATE alerts SET severity = $2, title = $3, message = $4, related_month = $5
				WHERE id = $1 AND %s`, scopeCondition(scope, &args))
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return err
			}
		}
		if len(deleteIDs) > 0 {
			args := []any{deleteIDs}
			query := fmt.Sprintf("DELETE FROM alerts WHERE id = ANY($1) AND %s", scopeCondition(scope, &args))
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				return err
			}
		}
		for _, alert := range inserts {
			var relatedEntityType pgtype.Text
			if alert.RelatedEntityType != "" {
				relatedEntityType = pgtype.Text{String: alert.RelatedEntityType, Valid: true}
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO alerts (id, user_id, organization_id, alert_type, severity, title, message,
					related_entity_type, related_entity_id, related_month, dedup_key, is_read, is_dismissed)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, false, false)`,
				uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID),
				string(alert.AlertType), string(alert.Severity), alert.Title, alert.Message,
				relatedEntityType, uuidPtrToPg(alert.RelatedEntityID), datePtrToPg(alert.RelatedMonth),
				alert.DedupKey,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkRead marks an alert as read
func (r *AlertRepository) MarkRead(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("UPDATE alerts SET is_read = true WHERE id = $1 AND %s RETURNING %s",
		scopeCondition(scope, &args), alertColumns)

	alert, err := scanAlert(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

// MarkAllRead marks all of the scope's unread alerts as read
func (r *AlertRepository) MarkAllRead(scope domain.Scope) (int64, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("UPDATE alerts SET is_read = true WHERE is_read = false AND is_dismissed = false AND %s",
		scopeCondition(scope, &args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Dismiss tombstones an alert; the next reconciliation may insert a fresh
// unread row for the same condition
func (r *AlertRepository) Dismiss(scope domain.Scope, id uuid.UUID) (*domain.Alert, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("UPDATE alerts SET is_dismissed = true WHERE id = $1 AND %s RETURNING %s",
		scopeCondition(scope, &args), alertColumns)

	alert, err := scanAlert(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrAlertNotFound
		}
		return nil, err
	}
	return alert, nil
}

func typesForFamily(family domain.AlertFamily) []string {
	all := []domain.AlertType{
		domain.AlertNegativeCashflow, domain.AlertApproachingNegative, domain.AlertHighExpenses,
		domain.AlertHighSingleExpense, domain.AlertHighIncome, domain.AlertPaymentOverdue,
		domain.AlertUpcomingPayment, domain.AlertLoanEndingSoon, domain.AlertInstallmentEndingSoon,
	}
	var types []string
	for _, t := range all {
		if t.Family() == family {
			types = append(types, string(t))
		}
	}
	return types
}

func collectAlerts(rows pgx.Rows) ([]*domain.Alert, error) {
	var out []*domain.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, alert)
	}
	return out, rows.Err()
}

func scanAlert(row pgx.Row) (*domain.Alert, error) {
	var a domain.Alert
	var orgID, relatedEntityID pgtype.UUID
	var relatedEntityType pgtype.Text
	var relatedMonth pgtype.Date
	var createdAt pgtype.Timestamptz
	var alertType, severity string

	err := row.Scan(&a.ID, &a.UserID, &orgID, &alertType, &severity, &a.Title, &a.Message,
		&relatedEntityType, &relatedEntityID, &relatedMonth, &a.DedupKey,
		&a.IsRead, &a.IsDismissed, &createdAt)
	if err != nil {
		return nil, err
	}

	a.OrganizationID = pgUUIDToPtr(orgID)
	a.AlertType = domain.AlertType(alertType)
	a.Severity = domain.AlertSeverity(severity)
	if relatedEntityType.Valid {
		a.RelatedEntityType = relatedEntityType.String
	}
	a.RelatedEntityID = pgUUIDToPtr(relatedEntityID)
	a.RelatedMonth = pgDateToPtr(relatedMonth)
	a.CreatedAt = createdAt.Time
	return &a, nil
}
