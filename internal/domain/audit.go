package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions. Bulk operations write one rollup entry with a BULK_ action
// and the affected row count.
const (
	AuditCreate     = "CREATE"
	AuditUpdate     = "UPDATE"
	AuditDelete     = "DELETE"
	AuditBulkCreate = "BULK_CREATE"
	AuditBulkUpdate = "BULK_UPDATE"
	AuditBulkDelete = "BULK_DELETE"
)

// AuditLogEntry is an append-only record of a mutation. Diffs are shallow
// JSON maps of changed fields only.
type AuditLogEntry struct {
	ID             uuid.UUID              `json:"id"`
	TableName      string                 `json:"tableName"`
	RecordID       uuid.UUID              `json:"recordId"`
	UserID         uuid.UUID              `json:"userId"`
	Action         string                 `json:"action"`
	OldValues      map[string]interface{} `json:"oldValues,omitempty"`
	NewValues      map[string]interface{} `json:"newValues,omitempty"`
	OrganizationID *uuid.UUID             `json:"organizationId,omitempty"`
	ChangedAt      time.Time              `json:"changedAt"`
}

// AuditDiff returns the shallow diff between two field maps: only keys whose
// values differ appear, old on the left, new on the right.
func AuditDiff(oldValues, newValues map[string]interface{}) (map[string]interface{}, map[string]interface{}) {
	oldDiff := make(map[string]interface{})
	newDiff := make(map[string]interface{})
	for k, newV := range newValues {
		oldV, existed := oldValues[k]
		if !existed || oldV != newV {
			if existed {
				oldDiff[k] = oldV
			}
			newDiff[k] = newV
		}
	}
	for k, oldV := range oldValues {
		if _, stillThere := newValues[k]; !stillThere {
			oldDiff[k] = oldV
		}
	}
	return oldDiff, newDiff
}

// AuditRepository is the persistence contract for the audit log. Append is
// called by entity repositories inside the mutation's transaction.
type AuditRepository interface {
	Append(entry *AuditLogEntry) error
	ListByOrganization(orgID uuid.UUID, page, pageSize int32) ([]*AuditLogEntry, int64, error)
}
