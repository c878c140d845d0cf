package service

import (
	"github.com/tazrim/tazrim-backend/internal/domain"
)

// AuditService exposes the org-level audit view. Entries are appended by the
// repositories inside each mutation's transaction; this service only reads.
type AuditService struct {
	auditRepo domain.AuditRepository
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo domain.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// ListAuditLog retrieves an organization's audit entries, newest first;
// admin role and above.
func (s *AuditService) ListAuditLog(dc domain.DataContext, page, pageSize int32) ([]*domain.AuditLogEntry, int64, error) {
	if !dc.HasRole(domain.RoleAdmin) {
		return nil, 0, domain.ErrForbidden
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}
	return s.auditRepo.ListByOrganization(*dc.OrganizationID, page, pageSize)
}
