package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrOrganizationNotFound  = errors.New("organization not found")
	ErrOrganizationNameTaken = errors.New("organization name already taken")
	ErrMemberNotFound        = errors.New("organization member not found")
	ErrMemberAlreadyExists   = errors.New("user is already a member")
	ErrOwnerCannotLeave      = errors.New("owner must transfer ownership or delete the organization")
	ErrCannotRemoveMember    = errors.New("insufficient role to remove this member")
	ErrCannotChangeOwnRole   = errors.New("cannot change your own role")
	ErrRoleInvalid           = errors.New("invalid organization role")
)

// OrgRole is a closed enumeration of organization roles,
// ordered owner > admin > member > viewer.
type OrgRole string

const (
	RoleOwner  OrgRole = "owner"
	RoleAdmin  OrgRole = "admin"
	RoleMember OrgRole = "member"
	RoleViewer OrgRole = "viewer"
)

var roleRank = map[OrgRole]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Valid reports whether the role is one of the known values.
func (r OrgRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants the capabilities of min.
func (r OrgRole) AtLeast(min OrgRole) bool {
	return roleRank[r] >= roleRank[min]
}

// Organization groups users around shared financial data.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   uuid.UUID `json:"ownerId"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *Organization) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return ErrNameRequired
	}
	if len(o.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives the unique slug from an organization name.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// OrgMember is the membership relation; (org, user) is unique.
type OrgMember struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID uuid.UUID `json:"organizationId"`
	UserID         uuid.UUID `json:"userId"`
	Role           OrgRole   `json:"role"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CanRemove reports whether an actor with role actorRole may remove a member
// with role targetRole. Admins cannot remove owners or other admins; owners
// cannot remove themselves here (they must transfer or delete the org), and
// self-removal is handled separately.
func CanRemove(actorRole, targetRole OrgRole) bool {
	if !actorRole.AtLeast(RoleAdmin) {
		return false
	}
	if actorRole == RoleAdmin && targetRole.AtLeast(RoleAdmin) {
		return false
	}
	return targetRole != RoleOwner
}

// OrganizationRepository is the persistence contract for organizations and
// their memberships.
type OrganizationRepository interface {
	Create(org *Organization, ownerMember *OrgMember) (*Organization, error)
	GetByID(id uuid.UUID) (*Organization, error)
	GetBySlug(slug string) (*Organization, error)
	Update(org *Organization) (*Organization, error)
	Delete(id uuid.UUID) error

	GetMember(orgID, userID uuid.UUID) (*OrgMember, error)
	ListMembers(orgID uuid.UUID) ([]*OrgMember, error)
	AddMember(member *OrgMember) (*OrgMember, error)
	UpdateMemberRole(orgID, userID uuid.UUID, role OrgRole) (*OrgMember, error)
	RemoveMember(orgID, userID uuid.UUID) error
	ListByUser(userID uuid.UUID) ([]*Organization, error)
}
