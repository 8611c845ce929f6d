package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrgRole(t *testing.T) {
	role, err := ParseOrgRole("admin")
	require.NoError(t, err)
	assert.Equal(t, OrgRoleAdmin, role)

	role, err = ParseOrgRole("  OWNER ")
	require.NoError(t, err)
	assert.Equal(t, OrgRoleOwner, role)

	_, err = ParseOrgRole("superuser")
	assert.Error(t, err)
	_, err = ParseOrgRole("")
	assert.Error(t, err)
}

func TestParseProjectRole(t *testing.T) {
	role, err := ParseProjectRole("collaborator")
	require.NoError(t, err)
	assert.Equal(t, ProjectRoleCollaborator, role)

	_, err = ParseProjectRole("intern")
	assert.Error(t, err)
}

func TestParsePriority(t *testing.T) {
	priority, err := ParsePriority("critical")
	require.NoError(t, err)
	assert.Equal(t, PriorityCritical, priority)

	_, err = ParsePriority("urgent")
	assert.Error(t, err)
}

func TestParseProjectStatus(t *testing.T) {
	status, err := ParseProjectStatus("on_hold")
	require.NoError(t, err)
	assert.Equal(t, StatusOnHold, status)

	_, err = ParseProjectStatus("paused")
	assert.Error(t, err)
}
