package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// ActiveAutomationScopes returns every distinct ownership scope that still
// has a chargeable obligation: an active fixed schedule, an unfinished
// installment plan, or an active loan. The daily automation sweep iterates
// these so scopes with nothing due cost nothing.
func ActiveAutomationScopes(ctx context.Context, pool *pgxpool.Pool) ([]domain.Scope, error) {
	rows, err := pool.Query(ctx, `
		SELECT user_id, organization_id FROM fixed_schedules WHERE is_active = true
		UNION
		SELECT user_id, organization_id FROM installments WHERE payments_completed < number_of_payments
		UNION
		SELECT user_id, organization_id FROM loans WHERE status = 'active'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scopes []domain.Scope
	for rows.Next() {
		var scope domain.Scope
		var orgID pgtype.UUID
		if err := rows.Scan(&scope.UserID, &orgID); err != nil {
			return nil, err
		}
		scope.OrganizationID = pgUUIDToPtr(orgID)
		scopes = append(scopes, scope)
	}
	return scopes, rows.Err()
}
