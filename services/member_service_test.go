package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskhive/config"
	"taskhive/models"
)

type memberFixture struct {
	db        *gorm.DB
	orgs      *OrganizationService
	members   *MemberService
	directory *fakeDirectory
	publisher *fakePublisher
	org       *models.Organization
}

func newMemberFixture(t *testing.T) *memberFixture {
	t.Helper()
	db := setupDB(t)
	directory := newFakeDirectory()
	publisher := &fakePublisher{}
	logger := testLogger()

	orgs := NewOrganizationService(db, directory, publisher, logger)
	org, err := orgs.CreateOrganization(CreateOrganizationInput{Name: "Acme", OwnerAuthID: "auth-owner"})
	require.NoError(t, err)
	directory.addUser("auth-owner", "Olivia", "olivia@acme.io")

	return &memberFixture{
		db:        db,
		orgs:      orgs,
		members:   NewMemberService(db, directory, publisher, logger),
		directory: directory,
		publisher: publisher,
		org:       org,
	}
}

func (f *memberFixture) invite(t *testing.T, email string, role models.OrgRole) string {
	t.Helper()
	_, err := f.orgs.AddMember(f.org.ID, AddMemberInput{Email: email, Role: role, PerformedBy: "auth-owner"})
	require.NoError(t, err)

	var invitation models.OrganizationInvitation
	require.NoError(t, f.db.Where("org_id = ? AND email = ?", f.org.ID, email).First(&invitation).Error)
	return invitation.Token
}

func (f *memberFixture) addMember(t *testing.T, authID string, role models.OrgRole) {
	t.Helper()
	member := models.OrganizationMember{OrgID: f.org.ID, AuthID: authID, Role: role}
	require.NoError(t, f.db.Create(&member).Error)
}

func TestValidateToken(t *testing.T) {
	f := newMemberFixture(t)
	token := f.invite(t, "new@acme.io", models.OrgRoleManager)

	validation, err := f.members.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.Equal(t, "new@acme.io", validation.Email)
	assert.Equal(t, models.OrgRoleManager, validation.Role)
	assert.Equal(t, f.org.ID, validation.OrgID)
	assert.Equal(t, "Acme", validation.OrgName)

	_, err = f.members.ValidateToken("bogus")
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestAcceptInvitationCreatesMembership(t *testing.T) {
	f := newMemberFixture(t)
	token := f.invite(t, "new@acme.io", models.OrgRoleMember)

	member, err := f.members.AcceptInvitation(token, "auth-new")
	require.NoError(t, err)
	assert.Equal(t, f.org.ID, member.OrgID)
	assert.Equal(t, models.OrgRoleMember, member.Role)

	var invitation models.OrganizationInvitation
	require.NoError(t, f.db.Where("token = ?", token).First(&invitation).Error)
	assert.Equal(t, models.InvitationAccepted, invitation.Status)
}

func TestAcceptInvitationTokenIsSingleUse(t *testing.T) {
	f := newMemberFixture(t)
	token := f.invite(t, "new@acme.io", models.OrgRoleMember)

	_, err := f.members.AcceptInvitation(token, "auth-first")
	require.NoError(t, err)

	_, err = f.members.AcceptInvitation(token, "auth-second")
	assert.Equal(t, CodeConflict, CodeOf(err))

	// The second accept must not have created a membership.
	var count int64
	require.NoError(t, f.db.Model(&models.OrganizationMember{}).
		Where("org_id = ? AND auth_id = ?", f.org.ID, "auth-second").Count(&count).Error)
	assert.Zero(t, count)
}

func TestAcceptInvitationByExistingMember(t *testing.T) {
	f := newMemberFixture(t)
	f.addMember(t, "auth-bob", models.OrgRoleMember)
	token := f.invite(t, "bob-other@acme.io", models.OrgRoleMember)

	_, err := f.members.AcceptInvitation(token, "auth-bob")
	assert.Equal(t, CodeConflict, CodeOf(err))

	// The rejected accept must not consume the token.
	var invitation models.OrganizationInvitation
	require.NoError(t, f.db.Where("token = ?", token).First(&invitation).Error)
	assert.Equal(t, models.InvitationPending, invitation.Status)
}

func TestCancelInvitation(t *testing.T) {
	f := newMemberFixture(t)
	token := f.invite(t, "new@acme.io", models.OrgRoleMember)

	require.NoError(t, f.members.CancelInvitation(f.org.ID, "new@acme.io"))

	// Cancelled tokens no longer validate or accept.
	_, err := f.members.ValidateToken(token)
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	_, err = f.members.AcceptInvitation(token, "auth-new")
	assert.Equal(t, CodeConflict, CodeOf(err))

	// Cancelling twice is a conflict; cancelling the unknown is not found.
	assert.Equal(t, CodeConflict, CodeOf(f.members.CancelInvitation(f.org.ID, "new@acme.io")))
	assert.Equal(t, CodeNotFound, CodeOf(f.members.CancelInvitation(f.org.ID, "ghost@acme.io")))
}

func TestGetPendingInvitations(t *testing.T) {
	f := newMemberFixture(t)
	f.invite(t, "one@acme.io", models.OrgRoleMember)
	token := f.invite(t, "two@acme.io", models.OrgRoleManager)
	_, err := f.members.AcceptInvitation(token, "auth-two")
	require.NoError(t, err)

	pending, err := f.members.GetPendingInvitations(f.org.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "one@acme.io", pending[0].Email)
	assert.Equal(t, "Olivia", pending[0].InvitedBy)
}

func TestUpdateRolePublishesNotification(t *testing.T) {
	f := newMemberFixture(t)
	f.directory.addUser("auth-bob", "Bob", "bob@acme.io")
	f.addMember(t, "auth-bob", models.OrgRoleMember)
	f.publisher.events = nil

	require.NoError(t, f.members.UpdateRole(f.org.ID, "auth-bob", models.OrgRoleAdmin))

	var member models.OrganizationMember
	require.NoError(t, f.db.Where("org_id = ? AND auth_id = ?", f.org.ID, "auth-bob").First(&member).Error)
	assert.Equal(t, models.OrgRoleAdmin, member.Role)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, config.RoleUpdatedKey, f.publisher.events[0].RoutingKey)
}

func TestUpdateRoleLastOwnerGuard(t *testing.T) {
	f := newMemberFixture(t)

	err := f.members.UpdateRole(f.org.ID, "auth-owner", models.OrgRoleAdmin)
	assert.Equal(t, CodeConflict, CodeOf(err))

	// With a second owner present, the demotion goes through.
	f.addMember(t, "auth-second", models.OrgRoleOwner)
	f.directory.addUser("auth-second", "Sarah", "sarah@acme.io")
	require.NoError(t, f.members.UpdateRole(f.org.ID, "auth-owner", models.OrgRoleAdmin))

	var member models.OrganizationMember
	require.NoError(t, f.db.Where("org_id = ? AND auth_id = ?", f.org.ID, "auth-owner").First(&member).Error)
	assert.Equal(t, models.OrgRoleAdmin, member.Role)
}

func TestRemoveMemberLastOwnerGuard(t *testing.T) {
	f := newMemberFixture(t)

	err := f.members.RemoveMember(f.org.ID, "auth-owner")
	assert.Equal(t, CodeConflict, CodeOf(err))

	// Membership must be untouched after the rejected removal.
	var count int64
	require.NoError(t, f.db.Model(&models.OrganizationMember{}).
		Where("org_id = ?", f.org.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	f.addMember(t, "auth-second", models.OrgRoleOwner)
	f.directory.addUser("auth-second", "Sarah", "sarah@acme.io")
	require.NoError(t, f.members.RemoveMember(f.org.ID, "auth-owner"))

	owners, err := f.members.countOwners(f.db, f.org.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, owners)
}

func TestRemoveMemberNotFound(t *testing.T) {
	f := newMemberFixture(t)
	assert.Equal(t, CodeNotFound, CodeOf(f.members.RemoveMember(f.org.ID, "auth-ghost")))
}

func TestGetMembersEnrichment(t *testing.T) {
	f := newMemberFixture(t)
	f.directory.addUser("auth-bob", "Bob", "bob@acme.io")
	f.addMember(t, "auth-bob", models.OrgRoleMember)

	members, err := f.members.GetMembers(f.org.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	byAuth := map[string]MemberInfo{}
	for _, m := range members {
		byAuth[m.AuthID] = m
	}
	assert.Equal(t, "Olivia", byAuth["auth-owner"].Name)
	assert.Equal(t, "bob@acme.io", byAuth["auth-bob"].Email)

	f.directory.batchErr = errDirectoryDown
	_, err = f.members.GetMembers(f.org.ID)
	assert.Equal(t, CodeExternalService, CodeOf(err))
}

func TestGetMemberAndValidateOrg(t *testing.T) {
	f := newMemberFixture(t)

	member, err := f.members.GetMember(f.org.ID, "auth-owner")
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, models.OrgRoleOwner, member.Role)
	assert.Equal(t, "olivia@acme.io", member.Email)

	absent, err := f.members.GetMember(f.org.ID, "auth-ghost")
	require.NoError(t, err)
	assert.Nil(t, absent)

	ok, err := f.members.ValidateOrg(f.org.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.members.ValidateOrg("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
