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

// ReportRepository implements domain.ReportRepository using PostgreSQL
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

const reportColumns = `id, user_id, organization_id, kind, object_key, requested_by, created_at`

// Create records a generated report's metadata
func (r *ReportRepository) Create(scope domain.Scope, report *domain.Report) (*domain.Report, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO reports (id, user_id, organization_id, kind, object_key, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+reportColumns,
		uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID),
		string(report.Kind), report.ObjectKey, report.RequestedBy,
	)
	return scanReport(row)
}

// GetByID retrieves a report under the ownership filter
func (r *ReportRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.Report, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1 AND %s",
		reportColumns, scopeCondition(scope, &args))

	report, err := scanReport(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// List retrieves the scope's reports, newest first
func (r *ReportRepository) List(scope domain.Scope) ([]*domain.Report, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM reports WHERE %s ORDER BY created_at DESC",
		reportColumns, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// Delete removes a report's metadata row
func (r *ReportRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("DELETE FROM reports WHERE id = $1 AND %s", scopeCondition(scope, &args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var rep domain.Report
	var orgID pgtype.UUID
	var kind string
	var createdAt pgtype.Timestamptz

	err := row.Scan(&rep.ID, &rep.UserID, &orgID, &kind, &rep.ObjectKey, &rep.RequestedBy, &createdAt)
	if err != nil {
		return nil, err
	}

	rep.OrganizationID = pgUUIDToPtr(orgID)
	rep.Kind = domain.ReportKind(kind)
	rep.CreatedAt = createdAt.Time
	return &rep, nil
}
