package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// AuditRepository implements domain.AuditRepository using PostgreSQL. Entity
// repositories append entries inside their own transactions; this type serves
// standalone appends and the paged admin read path.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Append writes one audit entry
func (r *AuditRepository) Append(entry *domain.AuditLogEntry) error {
	ctx := context.Background()

	oldValues, newValues, err := marshalAuditValues(entry.OldValues, entry.NewValues)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, table_name, record_id, user_id, action, old_values, new_values, organization_id, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())`,
		uuid.New(), entry.TableName, entry.RecordID, entry.UserID, entry.Action,
		oldValues, newValues, uuidPtrToPg(entry.OrganizationID),
	)
	return err
}

// ListByOrganization retrieves an organization's audit trail, newest first
func (r *AuditRepository) ListByOrganization(orgID uuid.UUID, page, pageSize int32) ([]*domain.AuditLogEntry, int64, error) {
	ctx := context.Background()

	var total int64
	err := r.pool.QueryRow(ctx,
		"SELECT count(*) FROM audit_log WHERE organization_id = $1", orgID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	rows, err := r.pool.Query(ctx, `
		SELECT id, table_name, record_id, user_id, action, old_values, new_values, organization_id, changed_at
		FROM audit_log
		WHERE organization_id = $1
		ORDER BY changed_at DESC, id
		LIMIT $2 OFFSET $3`, orgID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.AuditLogEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, entry)
	}
	return out, total, rows.Err()
}

func marshalAuditValues(oldValues, newValues map[string]interface{}) ([]byte, []byte, error) {
	var oldJSON, newJSON []byte
	var err error
	if len(oldValues) > 0 {
		if oldJSON, err = json.Marshal(oldValues); err != nil {
			return nil, nil, err
		}
	}
	if len(newValues) > 0 {
		if newJSON, err = json.Marshal(newValues); err != nil {
			return nil, nil, err
		}
	}
	return oldJSON, newJSON, nil
}

func scanAuditEntry(row pgx.Row) (*domain.AuditLogEntry, error) {
	var e domain.AuditLogEntry
	var oldValues, newValues []byte
	var orgID pgtype.UUID
	var changedAt pgtype.Timestamptz

	err := row.Scan(&e.ID, &e.TableName, &e.RecordID, &e.UserID, &e.Action,
		&oldValues, &newValues, &orgID, &changedAt)
	if err != nil {
		return nil, err
	}

	if len(oldValues) > 0 {
		if err := json.Unmarshal(oldValues, &e.OldValues); err != nil {
			return nil, err
		}
	}
	if len(newValues) > 0 {
		if err := json.Unmarshal(newValues, &e.NewValues); err != nil {
			return nil, err
		}
	}
	e.OrganizationID = pgUUIDToPtr(orgID)
	e.ChangedAt = changedAt.Time
	return &e, nil
}
