package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

func TestListAuditLog_RoleGated(t *testing.T) {
	audits := testutil.NewMockAuditRepository()
	service := NewAuditService(audits)
	orgID := uuid.New()

	for i := 0; i < 3; i++ {
		require.NoError(t, audits.Append(&domain.AuditLogEntry{
			TableName:      "transactions",
			RecordID:       uuid.New(),
			UserID:         uuid.New(),
			Action:         domain.AuditCreate,
			OrganizationID: &orgID,
		}))
	}
	// Entry from another org stays invisible
	other := uuid.New()
	require.NoError(t, audits.Append(&domain.AuditLogEntry{
		TableName:      "loans",
		RecordID:       uuid.New(),
		UserID:         uuid.New(),
		Action:         domain.AuditUpdate,
		OrganizationID: &other,
	}))

	admin := domain.DataContext{UserID: uuid.New(), OrganizationID: &orgID, Role: domain.RoleAdmin}
	entries, total, err := service.ListAuditLog(admin, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 3)

	member := domain.DataContext{UserID: uuid.New(), OrganizationID: &orgID, Role: domain.RoleMember}
	_, _, err = service.ListAuditLog(member, 1, 50)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	personal := domain.DataContext{UserID: uuid.New()}
	_, _, err = service.ListAuditLog(personal, 1, 50)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListAuditLog_PaginationCaps(t *testing.T) {
	audits := testutil.NewMockAuditRepository()
	service := NewAuditService(audits)
	orgID := uuid.New()

	for i := 0; i < 5; i++ {
		require.NoError(t, audits.Append(&domain.AuditLogEntry{
			TableName:      "bank_balances",
			RecordID:       uuid.New(),
			UserID:         uuid.New(),
			Action:         domain.AuditCreate,
			OrganizationID: &orgID,
		}))
	}

	admin := domain.DataContext{UserID: uuid.New(), OrganizationID: &orgID, Role: domain.RoleAdmin}
	entries, total, err := service.ListAuditLog(admin, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, entries, 2)

	// Out-of-range values fall back to the defaults
	entries, _, err = service.ListAuditLog(admin, 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}
