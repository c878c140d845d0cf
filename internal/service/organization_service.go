package service

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tazrim/tazrim-backend/internal/domain"
)

// OrganizationService handles organizations, membership and role changes
type OrganizationService struct {
	orgRepo  domain.OrganizationRepository
	userRepo domain.UserRepository
}

// NewOrganizationService creates a new OrganizationService
func NewOrganizationService(orgRepo domain.OrganizationRepository, userRepo domain.UserRepository) *OrganizationService {
	return &OrganizationService{
		orgRepo:  orgRepo,
		userRepo: userRepo,
	}
}

// CreateOrganization creates an organization with the caller as owner
func (s *OrganizationService) CreateOrganization(userID uuid.UUID, name string) (*domain.Organization, error) {
	org := &domain.Organization{
		Name:     strings.TrimSpace(name),
		OwnerID:  userID,
		IsActive: true,
	}
	if err := org.Validate(); err != nil {
		return nil, err
	}
	org.Slug = domain.Slugify(org.Name)
	if _, err := s.orgRepo.GetBySlug(org.Slug); err == nil {
		return nil, domain.ErrOrganizationNameTaken
	}

	owner := &domain.OrgMember{
		UserID:   userID,
		Role:     domain.RoleOwner,
		IsActive: true,
	}
	return s.orgRepo.Create(org, owner)
}

// GetOrganization retrieves an organization the caller belongs to
func (s *OrganizationService) GetOrganization(userID, orgID uuid.UUID) (*domain.Organization, error) {
	if _, err := s.orgRepo.GetMember(orgID, userID); err != nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return s.orgRepo.GetByID(orgID)
}

// ListOrganizations retrieves the organizations the caller belongs to
func (s *OrganizationService) ListOrganizations(userID uuid.UUID) ([]*domain.Organization, error) {
	return s.orgRepo.ListByUser(userID)
}

// UpdateOrganization renames an organization; admin and above
func (s *OrganizationService) UpdateOrganization(dc domain.DataContext, orgID uuid.UUID, name string) (*domain.Organization, error) {
	member, err := s.orgRepo.GetMember(orgID, dc.UserID)
	if err != nil {
		return nil, domain.ErrOrganizationNotFound
	}
	if !member.Role.AtLeast(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}

	org, err := s.orgRepo.GetByID(orgID)
	if err != nil {
		return nil, err
	}
	org.Name = strings.TrimSpace(name)
	if err := org.Validate(); err != nil {
		return nil, err
	}
	return s.orgRepo.Update(org)
}

// DeleteOrganization deletes an organization; owner only
func (s *OrganizationService) DeleteOrganization(dc domain.DataContext, orgID uuid.UUID) error {
	member, err := s.orgRepo.GetMember(orgID, dc.UserID)
	if err != nil {
		return domain.ErrOrganizationNotFound
	}
	if member.Role != domain.RoleOwner {
		return domain.ErrForbidden
	}
	return s.orgRepo.Delete(orgID)
}

// ListMembers retrieves the members of an organization the caller belongs to
func (s *OrganizationService) ListMembers(userID, orgID uuid.UUID) ([]*domain.OrgMember, error) {
	if _, err := s.orgRepo.GetMember(orgID, userID); err != nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return s.orgRepo.ListMembers(orgID)
}

// AddMember adds a user to an organization; admin and above. Admins cannot
// grant a role above their own.
func (s *OrganizationService) AddMember(dc domain.DataContext, orgID, userID uuid.UUID, role domain.OrgRole) (*domain.OrgMember, error) {
	actor, err := s.orgRepo.GetMember(orgID, dc.UserID)
	if err != nil {
		return nil, domain.ErrOrganizationNotFound
	}
	if !actor.Role.AtLeast(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	if !role.Valid() || role == domain.RoleOwner {
		return nil, domain.ErrRoleInvalid
	}
	if !actor.Role.AtLeast(role) {
		return nil, domain.ErrForbidden
	}
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, err
	}
	if _, err := s.orgRepo.GetMember(orgID, userID); err == nil {
		return nil, domain.ErrMemberAlreadyExists
	}

	return s.orgRepo.AddMember(&domain.OrgMember{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		IsActive:       true,
	})
}

// ChangeMemberRole changes a member's role; owner only, never your own role,
// and the owner role itself is not assignable here.
func (s *OrganizationService) ChangeMemberRole(dc domain.DataContext, orgID, userID uuid.UUID, role domain.OrgRole) (*domain.OrgMember, error) {
	actor, err := s.orgRepo.GetMember(orgID, dc.UserID)
	if err != nil {
		return nil, domain.ErrOrganizationNotFound
	}
	if actor.Role != domain.RoleOwner {
		return nil, domain.ErrForbidden
	}
	if userID == dc.UserID {
		return nil, domain.ErrCannotChangeOwnRole
	}
	if !role.Valid() || role == domain.RoleOwner {
		return nil, domain.ErrRoleInvalid
	}
	if _, err := s.orgRepo.GetMember(orgID, userID); err != nil {
		return nil, err
	}
	return s.orgRepo.UpdateMemberRole(orgID, userID, role)
}

// RemoveMember removes a member. Members may remove themselves unless they
// are the owner; otherwise the capability table applies: admins remove
// members and viewers, owners remove anyone but themselves.
func (s *OrganizationService) RemoveMember(dc domain.DataContext, orgID, userID uuid.UUID) error {
	actor, err := s.orgRepo.GetMember(orgID, dc.UserID)
	if err != nil {
		return domain.ErrOrganizationNotFound
	}
	target, err := s.orgRepo.GetMember(orgID, userID)
	if err != nil {
		return err
	}

	if userID == dc.UserID {
		if target.Role == domain.RoleOwner {
			return domain.ErrOwnerCannotLeave
		}
	} else if !domain.CanRemove(actor.Role, target.Role) {
		return domain.ErrCannotRemoveMember
	}

	if err := s.orgRepo.RemoveMember(orgID, userID); err != nil {
		return err
	}

	// Clear the removed member's current-organization pointer when it still
	// points at this org.
	if user, err := s.userRepo.GetByID(userID); err == nil {
		if user.CurrentOrganizationID != nil && *user.CurrentOrganizationID == orgID {
			if err := s.userRepo.SetCurrentOrganization(userID, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// SwitchOrganization moves the caller's active context into an organization,
// or back to the personal space when orgID is nil. Membership is verified.
func (s *OrganizationService) SwitchOrganization(userID uuid.UUID, orgID *uuid.UUID) error {
	if orgID != nil {
		if _, err := s.orgRepo.GetMember(*orgID, userID); err != nil {
			return domain.ErrNotOrganizationUser
		}
	}
	return s.userRepo.SetCurrentOrganization(userID, orgID)
}
