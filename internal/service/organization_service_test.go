package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazrim/tazrim-backend/internal/domain"
	"github.com/tazrim/tazrim-backend/internal/testutil"
)

type orgFixture struct {
	orgs    *testutil.MockOrganizationRepository
	users   *testutil.MockUserRepository
	service *OrganizationService

	ownerID uuid.UUID
	org     *domain.Organization
}

func newOrgFixture(t *testing.T) *orgFixture {
	f := &orgFixture{
		orgs:    testutil.NewMockOrganizationRepository(),
		users:   testutil.NewMockUserRepository(),
		ownerID: uuid.New(),
	}
	f.service = NewOrganizationService(f.orgs, f.users)

	_, err := f.users.Create(&domain.User{ID: f.ownerID, Username: "owner", Email: "owner@example.com", IsActive: true})
	require.NoError(t, err)
	org, err := f.service.CreateOrganization(f.ownerID, "Acme Consulting")
	require.NoError(t, err)
	f.org = org
	return f
}

// addUser registers a user and adds them to the fixture org with the role.
func (f *orgFixture) addUser(t *testing.T, username string, role domain.OrgRole) uuid.UUID {
	id := uuid.New()
	_, err := f.users.Create(&domain.User{ID: id, Username: username, Email: username + "@example.com", IsActive: true})
	require.NoError(t, err)
	_, err = f.orgs.AddMember(&domain.OrgMember{
		OrganizationID: f.org.ID,
		UserID:         id,
		Role:           role,
		IsActive:       true,
	})
	require.NoError(t, err)
	return id
}

func dataContext(userID, orgID uuid.UUID) domain.DataContext {
	return domain.DataContext{UserID: userID, OrganizationID: &orgID}
}

func TestCreateOrganization_OwnerMembership(t *testing.T) {
	f := newOrgFixture(t)

	assert.Equal(t, "acme-consulting", f.org.Slug)
	member, err := f.orgs.GetMember(f.org.ID, f.ownerID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, member.Role)

	// Slug collisions read as a name conflict
	_, err = f.service.CreateOrganization(uuid.New(), "ACME   Consulting")
	assert.ErrorIs(t, err, domain.ErrOrganizationNameTaken)
}

func TestAddMember_RoleRules(t *testing.T) {
	f := newOrgFixture(t)
	adminID := f.addUser(t, "admin", domain.RoleAdmin)
	memberID := f.addUser(t, "worker", domain.RoleMember)

	newUser := uuid.New()
	_, err := f.users.Create(&domain.User{ID: newUser, Username: "newbie", Email: "newbie@example.com", IsActive: true})
	require.NoError(t, err)

	// A member cannot add anyone
	_, err = f.service.AddMember(dataContext(memberID, f.org.ID), f.org.ID, newUser, domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// An admin can add up to admin, never owner
	_, err = f.service.AddMember(dataContext(adminID, f.org.ID), f.org.ID, newUser, domain.RoleOwner)
	assert.ErrorIs(t, err, domain.ErrRoleInvalid)
	added, err := f.service.AddMember(dataContext(adminID, f.org.ID), f.org.ID, newUser, domain.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, added.Role)

	// Duplicate membership is rejected
	_, err = f.service.AddMember(dataContext(adminID, f.org.ID), f.org.ID, newUser, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrMemberAlreadyExists)
}

func TestChangeMemberRole_OwnerOnly(t *testing.T) {
	f := newOrgFixture(t)
	adminID := f.addUser(t, "admin", domain.RoleAdmin)
	memberID := f.addUser(t, "worker", domain.RoleMember)

	// Admins cannot change roles
	_, err := f.service.ChangeMemberRole(dataContext(adminID, f.org.ID), f.org.ID, memberID, domain.RoleViewer)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// The owner cannot change their own role
	_, err = f.service.ChangeMemberRole(dataContext(f.ownerID, f.org.ID), f.org.ID, f.ownerID, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrCannotChangeOwnRole)

	changed, err := f.service.ChangeMemberRole(dataContext(f.ownerID, f.org.ID), f.org.ID, memberID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, changed.Role)
}

func TestRemoveMember_CapabilityTable(t *testing.T) {
	f := newOrgFixture(t)
	adminID := f.addUser(t, "admin", domain.RoleAdmin)
	secondAdmin := f.addUser(t, "admin2", domain.RoleAdmin)
	memberID := f.addUser(t, "worker", domain.RoleMember)

	// Admins cannot remove other admins or the owner
	err := f.service.RemoveMember(dataContext(adminID, f.org.ID), f.org.ID, secondAdmin)
	assert.ErrorIs(t, err, domain.ErrCannotRemoveMember)
	err = f.service.RemoveMember(dataContext(adminID, f.org.ID), f.org.ID, f.ownerID)
	assert.ErrorIs(t, err, domain.ErrCannotRemoveMember)

	// Admins remove members
	err = f.service.RemoveMember(dataContext(adminID, f.org.ID), f.org.ID, memberID)
	require.NoError(t, err)
	_, err = f.orgs.GetMember(f.org.ID, memberID)
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)

	// Owners remove admins
	err = f.service.RemoveMember(dataContext(f.ownerID, f.org.ID), f.org.ID, secondAdmin)
	assert.NoError(t, err)
}

func TestRemoveMember_SelfRemoval(t *testing.T) {
	f := newOrgFixture(t)
	memberID := f.addUser(t, "worker", domain.RoleMember)
	require.NoError(t, f.users.SetCurrentOrganization(memberID, &f.org.ID))

	// A member may leave; their current-org pointer is cleared
	err := f.service.RemoveMember(dataContext(memberID, f.org.ID), f.org.ID, memberID)
	require.NoError(t, err)
	user, err := f.users.GetByID(memberID)
	require.NoError(t, err)
	assert.Nil(t, user.CurrentOrganizationID)

	// The owner cannot leave
	err = f.service.RemoveMember(dataContext(f.ownerID, f.org.ID), f.org.ID, f.ownerID)
	assert.ErrorIs(t, err, domain.ErrOwnerCannotLeave)
}

func TestSwitchOrganization_MembershipVerified(t *testing.T) {
	f := newOrgFixture(t)
	outsider := uuid.New()
	_, err := f.users.Create(&domain.User{ID: outsider, Username: "outsider", Email: "outsider@example.com", IsActive: true})
	require.NoError(t, err)

	err = f.service.SwitchOrganization(outsider, &f.org.ID)
	assert.ErrorIs(t, err, domain.ErrNotOrganizationUser)

	require.NoError(t, f.service.SwitchOrganization(f.ownerID, &f.org.ID))
	user, err := f.users.GetByID(f.ownerID)
	require.NoError(t, err)
	require.NotNil(t, user.CurrentOrganizationID)
	assert.Equal(t, f.org.ID, *user.CurrentOrganizationID)

	// Back to personal
	require.NoError(t, f.service.SwitchOrganization(f.ownerID, nil))
}

func TestDeleteOrganization_OwnerOnly(t *testing.T) {
	f := newOrgFixture(t)
	adminID := f.addUser(t, "admin", domain.RoleAdmin)

	err := f.service.DeleteOrganization(dataContext(adminID, f.org.ID), f.org.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.service.DeleteOrganization(dataContext(f.ownerID, f.org.ID), f.org.ID))
	_, err = f.orgs.GetByID(f.org.ID)
	assert.ErrorIs(t, err, domain.ErrOrganizationNotFound)
}
