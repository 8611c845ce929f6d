package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"taskhive/config"
	"taskhive/models"
)

type rosterFixture struct {
	db        *gorm.DB
	members   *ProjectMemberService
	directory *fakeDirectory
	publisher *fakePublisher
	project   *models.Project
}

func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()
	db := setupDB(t)
	tenant := newFakeTenant()
	directory := newFakeDirectory()
	publisher := &fakePublisher{}
	logger := testLogger()

	tenant.addMember(testOrg, "auth-admin", models.OrgRoleAdmin, "Ada", "ada@acme.io")
	tenant.addMember(testOrg, "auth-lead", models.OrgRoleMember, "Lee", "lee@acme.io")
	directory.addUser("auth-admin", "Ada", "ada@acme.io")
	directory.addUser("auth-lead", "Lee", "lee@acme.io")
	directory.addUser("auth-dev", "Dev", "dev@acme.io")

	projects := NewProjectService(db, tenant, directory, publisher, logger)
	project, err := projects.CreateProject(CreateProjectInput{
		OrgID:          testOrg,
		Name:           "Apollo",
		OwnerAuthID:    "auth-admin",
		TeamLeadAuthID: "auth-lead",
		Priority:       models.PriorityMedium,
		Status:         models.StatusActive,
	})
	require.NoError(t, err)
	publisher.events = nil

	return &rosterFixture{
		db:        db,
		members:   NewProjectMemberService(db, directory, publisher, logger),
		directory: directory,
		publisher: publisher,
		project:   project,
	}
}

func (f *rosterFixture) storedCount(t *testing.T) int {
	t.Helper()
	var project models.Project
	require.NoError(t, f.db.Where("id = ?", f.project.ID).First(&project).Error)
	return project.MemberCount
}

func TestAddProjectMember(t *testing.T) {
	f := newRosterFixture(t)

	member, err := f.members.AddMember(f.project.ID, "auth-dev", models.ProjectRoleMember, "auth-admin")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectRoleMember, member.Role)
	assert.Equal(t, 3, f.storedCount(t))

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, config.ProjectMemberAddedKey, f.publisher.events[0].RoutingKey)
}

func TestAddProjectMemberRequiresOwner(t *testing.T) {
	f := newRosterFixture(t)

	// The team lead is not an owner and cannot manage the roster.
	_, err := f.members.AddMember(f.project.ID, "auth-dev", models.ProjectRoleMember, "auth-lead")
	assert.Equal(t, CodeUnauthorized, CodeOf(err))

	_, err = f.members.AddMember(f.project.ID, "auth-dev", models.ProjectRoleMember, "auth-stranger")
	assert.Equal(t, CodeUnauthorized, CodeOf(err))
}

func TestAddProjectMemberDuplicate(t *testing.T) {
	f := newRosterFixture(t)

	_, err := f.members.AddMember(f.project.ID, "auth-dev", models.ProjectRoleMember, "auth-admin")
	require.NoError(t, err)

	_, err = f.members.AddMember(f.project.ID, "auth-dev", models.ProjectRoleMember, "auth-admin")
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Equal(t, 3, f.storedCount(t))
}

func TestAddProjectMemberUnknownDirectoryUserStillCommits(t *testing.T) {
	f := newRosterFixture(t)

	// The membership commit stands even when the notification lookup fails.
	_, err := f.members.AddMember(f.project.ID, "auth-ghost", models.ProjectRoleMember, "auth-admin")
	require.NoError(t, err)
	assert.Equal(t, 3, f.storedCount(t))
	assert.Empty(t, f.publisher.events)
}

func TestRemoveProjectMember(t *testing.T) {
	f := newRosterFixture(t)

	require.NoError(t, f.members.RemoveMember(f.project.ID, "auth-lead", "auth-admin"))
	assert.Equal(t, 1, f.storedCount(t))

	err := f.members.RemoveMember(f.project.ID, "auth-lead", "auth-admin")
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestRemoveProjectMemberSelfRemovalRejected(t *testing.T) {
	f := newRosterFixture(t)

	err := f.members.RemoveMember(f.project.ID, "auth-admin", "auth-admin")
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	assert.Equal(t, 2, f.storedCount(t))
}

func TestRemoveProjectMemberLastOwnerGuard(t *testing.T) {
	f := newRosterFixture(t)
	_, err := f.members.AddMember(f.project.ID, "auth-dev", models.ProjectRoleOwner, "auth-admin")
	require.NoError(t, err)

	// Two owners: removing one is allowed, removing the survivor is not.
	require.NoError(t, f.members.RemoveMember(f.project.ID, "auth-admin", "auth-dev"))
	err = f.members.RemoveMember(f.project.ID, "auth-dev", "auth-dev")
	assert.Equal(t, CodeInvalidInput, CodeOf(err))

	_, err = f.members.UpdateRole(f.project.ID, "auth-dev", models.ProjectRoleMember, "auth-dev")
	assert.Equal(t, CodeConflict, CodeOf(err))
}

func TestUpdateProjectMemberRole(t *testing.T) {
	f := newRosterFixture(t)

	member, err := f.members.UpdateRole(f.project.ID, "auth-lead", models.ProjectRoleCollaborator, "auth-admin")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectRoleCollaborator, member.Role)

	err2 := f.members.RemoveMember(f.project.ID, "auth-ghost", "auth-admin")
	assert.Equal(t, CodeNotFound, CodeOf(err2))
}

func TestUpdateProjectMemberRoleLastOwnerGuard(t *testing.T) {
	f := newRosterFixture(t)

	_, err := f.members.UpdateRole(f.project.ID, "auth-admin", models.ProjectRoleMember, "auth-admin")
	assert.Equal(t, CodeConflict, CodeOf(err))
}

func TestListProjectMembers(t *testing.T) {
	f := newRosterFixture(t)
	_, err := f.members.AddMember(f.project.ID, "auth-dev", models.ProjectRoleMember, "auth-admin")
	require.NoError(t, err)

	members, err := f.members.ListMembers(f.project.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)

	byAuth := map[string]ProjectMemberDetail{}
	for _, m := range members {
		byAuth[m.AuthID] = m
	}
	assert.Equal(t, "Ada", byAuth["auth-admin"].Name)
	assert.Equal(t, models.ProjectRoleLead, byAuth["auth-lead"].Role)

	// Directory outage degrades to bare rows.
	f.directory.batchErr = errDirectoryDown
	members, err = f.members.ListMembers(f.project.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Empty(t, members[0].Name)
}

func TestProjectMemberOpsOnUnknownProject(t *testing.T) {
	f := newRosterFixture(t)

	_, err := f.members.AddMember("missing", "auth-dev", models.ProjectRoleMember, "auth-admin")
	assert.Equal(t, CodeNotFound, CodeOf(err))
	_, err = f.members.ListMembers("missing")
	assert.Equal(t, CodeNotFound, CodeOf(err))
}
