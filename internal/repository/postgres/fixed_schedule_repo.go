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
	"github.com/tazrim/tazrim-backend/internal/util"
)

// FixedScheduleRepository implements domain.FixedScheduleRepository using PostgreSQL
type FixedScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewFixedScheduleRepository creates a new FixedScheduleRepository
func NewFixedScheduleRepository(pool *pgxpool.Pool) *FixedScheduleRepository {
	return &FixedScheduleRepository{pool: pool}
}

const fixedScheduleColumns = `id, user_id, organization_id, name, amount, currency, type,
	category_id, day_of_month, start_date, end_date, is_active, paused_at, resumed_at,
	created_at, updated_at`

// Create creates a new fixed schedule and audits it
func (r *FixedScheduleRepository) Create(scope domain.Scope, schedule *domain.FixedSchedule) (*domain.FixedSchedule, error) {
	ctx := context.Background()

	amount, err := decimalToPgNumeric(schedule.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var created *domain.FixedSchedule
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO fixed_schedules (id, user_id, organization_id, name, amount, currency, type,
				category_id, day_of_month, start_date, end_date, is_active, paused_at, resumed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING %s`, fixedScheduleColumns)

		row := tx.QueryRow(ctx, query,
			uuid.New(), scope.UserID, uuidPtrToPg(scope.OrganizationID), schedule.Name,
			amount, schedule.Currency, string(schedule.Type), uuidPtrToPg(schedule.CategoryID),
			schedule.DayOfMonth, dateToPg(schedule.StartDate), datePtrToPg(schedule.EndDate),
			schedule.IsActive, timestampPtrToPg(schedule.PausedAt), timestampPtrToPg(schedule.ResumedAt),
		)
		var err error
		created, err = scanFixedSchedule(row)
		if err != nil {
			return err
		}
		return appendAuditTx(ctx, tx, scope, "fixed_schedules", created.ID, domain.AuditCreate, nil, scheduleAuditValues(created))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a fixed schedule under the ownership filter
func (r *FixedScheduleRepository) GetByID(scope domain.Scope, id uuid.UUID) (*domain.FixedSchedule, error) {
	ctx := context.Background()

	args := []any{id}
	query := fmt.Sprintf("SELECT %s FROM fixed_schedules WHERE id = $1 AND %s",
		fixedScheduleColumns, scopeCondition(scope, &args))

	schedule, err := scanFixedSchedule(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrFixedScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

// List retrieves the scope's fixed schedules
func (r *FixedScheduleRepository) List(scope domain.Scope, activeOnly bool) ([]*domain.FixedSchedule, error) {
	ctx := context.Background()

	var args []any
	query := fmt.Sprintf("SELECT %s FROM fixed_schedules WHERE %s", fixedScheduleColumns, scopeCondition(scope, &args))
	if activeOnly {
		query += " AND is_active = true"
	}
	query += " ORDER BY day_of_month, name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFixedSchedules(rows)
}

// Update updates a fixed schedule and audits the diff
func (r *FixedScheduleRepository) Update(scope domain.Scope, schedule *domain.FixedSchedule) (*domain.FixedSchedule, error) {
	ctx := context.Background()

	previous, err := r.GetByID(scope, schedule.ID)
	if err != nil {
		return nil, err
	}
	amount, err := decimalToPgNumeric(schedule.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var updated *domain.FixedSchedule
	err = inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{schedule.ID, schedule.Name, amount, string(schedule.Type),
			uuidPtrToPg(schedule.CategoryID), schedule.DayOfMonth, dateToPg(schedule.StartDate),
			datePtrToPg(schedule.EndDate), schedule.IsActive,
			timestampPtrToPg(schedule.PausedAt), timestampPtrToPg(schedule.ResumedAt)}
		query := fmt.Sprintf(`
			UPDATE fixed_schedules
			SET name = $2, amount = $3, type = $4, category_id = $5, day_of_month = $6,
				start_date = $7, end_date = $8, is_active = $9, paused_at = $10, resumed_at = $11,
				updated_at = now()
			WHERE id = $1 AND %s
			RETURNING %s`, scopeCondition(scope, &args), fixedScheduleColumns)

		var err error
		updated, err = scanFixedSchedule(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrFixedScheduleNotFound
			}
			return err
		}
		oldDiff, newDiff := domain.AuditDiff(scheduleAuditValues(previous), scheduleAuditValues(updated))
		return appendAuditTx(ctx, tx, scope, "fixed_schedules", updated.ID, domain.AuditUpdate, oldDiff, newDiff)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a fixed schedule and audits it
func (r *FixedScheduleRepository) Delete(scope domain.Scope, id uuid.UUID) error {
	ctx := context.Background()

	previous, err := r.GetByID(scope, id)
	if err != nil {
		return err
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("DELETE FROM fixed_schedules WHERE id = $1 AND %s", scopeCondition(scope, &args))
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrFixedScheduleNotFound
		}
		return appendAuditTx(ctx, tx, scope, "fixed_schedules", id, domain.AuditDelete, scheduleAuditValues(previous), nil)
	})
}

// ListDue returns active schedules due on refDate. A day_of_month beyond the
// month's length clamps to the month's last day.
func (r *FixedScheduleRepository) ListDue(scope domain.Scope, refDate time.Time) ([]*domain.FixedSchedule, error) {
	ctx := context.Background()

	day := refDate.Day()
	lastDay := util.DaysInMonth(refDate.Year(), refDate.Month())

	args := []any{day, refDate}
	dueClause := "day_of_month = $1"
	if day == lastDay {
		dueClause = "day_of_month >= $1"
	}
	query := fmt.Sprintf(`
		SELECT %s FROM fixed_schedules
		WHERE is_active = true AND %s
		  AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
		  AND %s
		ORDER BY created_at`, fixedScheduleColumns, dueClause, scopeCondition(scope, &args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFixedSchedules(rows)
}

// Materialise inserts the occurrence transaction under an exclusive lock on
// the schedule row. Two concurrent runs on the same schedule serialise on the
// lock; the loser sees the winner's transaction and backs off.
func (r *FixedScheduleRepository) Materialise(scope domain.Scope, id uuid.UUID, refDate time.Time, transaction *domain.Transaction) (*domain.Transaction, error) {
	ctx := context.Background()

	var created *domain.Transaction
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		query := fmt.Sprintf("SELECT id FROM fixed_schedules WHERE id = $1 AND %s FOR UPDATE",
			scopeCondition(scope, &args))

		var lockedID uuid.UUID
		if err := tx.QueryRow(ctx, query, args...).Scan(&lockedID); err != nil {
			if err == pgx.ErrNoRows {
				return domain.ErrFixedScheduleNotFound
			}
			return err
		}
		exists, err := existsForSourceTx(ctx, tx, scope, domain.SourceFixed, id, refDate)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyExists
		}

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

func collectFixedSchedules(rows pgx.Rows) ([]*domain.FixedSchedule, error) {
	var out []*domain.FixedSchedule
	for rows.Next() {
		schedule, err := scanFixedSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, schedule)
	}
	return out, rows.Err()
}

func scanFixedSchedule(row pgx.Row) (*domain.FixedSchedule, error) {
	var s domain.FixedSchedule
	var orgID, categoryID pgtype.UUID
	var amount pgtype.Numeric
	var startDate, endDate pgtype.Date
	var pausedAt, resumedAt, createdAt, updatedAt pgtype.Timestamptz
	var scheduleType string

	err := row.Scan(&s.ID, &s.UserID, &orgID, &s.Name, &amount, &s.Currency, &scheduleType,
		&categoryID, &s.DayOfMonth, &startDate, &endDate, &s.IsActive, &pausedAt, &resumedAt,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	s.OrganizationID = pgUUIDToPtr(orgID)
	s.Amount = pgNumericToDecimal(amount)
	s.Type = domain.TransactionType(scheduleType)
	s.CategoryID = pgUUIDToPtr(categoryID)
	s.StartDate = startDate.Time
	s.EndDate = pgDateToPtr(endDate)
	s.PausedAt = pgTimestampToPtr(pausedAt)
	s.ResumedAt = pgTimestampToPtr(resumedAt)
	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time
	return &s, nil
}

func scheduleAuditValues(s *domain.FixedSchedule) map[string]interface{} {
	return map[string]interface{}{
		"name":         s.Name,
		"amount":       s.Amount.String(),
		"type":         string(s.Type),
		"day_of_month": s.DayOfMonth,
		"is_active":    s.IsActive,
	}
}
