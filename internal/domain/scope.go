package domain

import "github.com/google/uuid"

// Scope identifies who owns a row: a user's personal space or an
// organization. Every repository method takes a Scope and applies the
// ownership filter:
//
//	personal: user_id = $user AND organization_id IS NULL
//	org:      organization_id = $org
//
// Personal and organizational data are strictly disjoint views.
type Scope struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
}

// PersonalScope returns the personal scope for a user.
func PersonalScope(userID uuid.UUID) Scope {
	return Scope{UserID: userID}
}

// OrgScope returns the organizational scope for a user acting inside an org.
func OrgScope(userID, orgID uuid.UUID) Scope {
	return Scope{UserID: userID, OrganizationID: &orgID}
}

// IsOrg reports whether the scope is organizational.
func (s Scope) IsOrg() bool {
	return s.OrganizationID != nil
}

// DataContext is the per-request authorization context: the authenticated
// user, the organization they are currently acting in (if any), and their
// role in that organization. It is built by the auth middleware on every
// request and passed explicitly; it is never stashed in ambient state.
type DataContext struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	Role           OrgRole // zero value unless org context
	IsAdmin        bool    // platform admin flag from the user row
}

// Scope returns the ownership scope for this context.
func (d DataContext) Scope() Scope {
	return Scope{UserID: d.UserID, OrganizationID: d.OrganizationID}
}

// IsOrgContext reports whether the request operates on organizational data.
func (d DataContext) IsOrgContext() bool {
	return d.OrganizationID != nil
}

// HasRole reports whether the context's org role grants at least min.
// Always false outside an org context.
func (d DataContext) HasRole(min OrgRole) bool {
	if !d.IsOrgContext() {
		return false
	}
	return d.Role.AtLeast(min)
}
