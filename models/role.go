package models

import (
	"fmt"
	"strings"
)

// OrgRole is the closed set of roles a user can hold inside an organization.
type OrgRole string

const (
	OrgRoleOwner   OrgRole = "OWNER"
	OrgRoleAdmin   OrgRole = "ADMIN"
	OrgRoleManager OrgRole = "MANAGER"
	OrgRoleMember  OrgRole = "MEMBER"
)

// ParseOrgRole parses a role string case-insensitively. Unknown values are
// rejected here, at the API boundary, instead of defaulting silently.
func ParseOrgRole(s string) (OrgRole, error) {
	switch OrgRole(strings.ToUpper(strings.TrimSpace(s))) {
	case OrgRoleOwner:
		return OrgRoleOwner, nil
	case OrgRoleAdmin:
		return OrgRoleAdmin, nil
	case OrgRoleManager:
		return OrgRoleManager, nil
	case OrgRoleMember:
		return OrgRoleMember, nil
	}
	return "", fmt.Errorf("unknown organization role %q", s)
}

// ProjectRole is the closed set of roles inside a project.
type ProjectRole string

const (
	ProjectRoleOwner        ProjectRole = "OWNER"
	ProjectRoleLead         ProjectRole = "LEAD"
	ProjectRoleCollaborator ProjectRole = "COLLABORATOR"
	ProjectRoleMember       ProjectRole = "MEMBER"
)

func ParseProjectRole(s string) (ProjectRole, error) {
	switch ProjectRole(strings.ToUpper(strings.TrimSpace(s))) {
	case ProjectRoleOwner:
		return ProjectRoleOwner, nil
	case ProjectRoleLead:
		return ProjectRoleLead, nil
	case ProjectRoleCollaborator:
		return ProjectRoleCollaborator, nil
	case ProjectRoleMember:
		return ProjectRoleMember, nil
	}
	return "", fmt.Errorf("unknown project role %q", s)
}

// Priority of a project.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityCritical:
		return PriorityCritical, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// ProjectStatus of a project.
type ProjectStatus string

const (
	StatusActive    ProjectStatus = "ACTIVE"
	StatusOnHold    ProjectStatus = "ON_HOLD"
	StatusCompleted ProjectStatus = "COMPLETED"
	StatusArchived  ProjectStatus = "ARCHIVED"
)

func ParseProjectStatus(s string) (ProjectStatus, error) {
	switch ProjectStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusOnHold:
		return StatusOnHold, nil
	case StatusCompleted:
		return StatusCompleted, nil
	case StatusArchived:
		return StatusArchived, nil
	}
	return "", fmt.Errorf("unknown project status %q", s)
}

// InvitationStatus is the invitation lifecycle state. PENDING is the only
// non-terminal state.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "PENDING"
	InvitationAccepted  InvitationStatus = "ACCEPTED"
	InvitationCancelled InvitationStatus = "CANCELLED"
)
