package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project belongs to an organization. MemberCount is denormalized and is only
// ever adjusted in the same transaction as the matching ProjectMember
// insert/delete, so it always equals the real membership count.
type Project struct {
	ID             string        `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID          string        `gorm:"not null;index" json:"org_id"`
	Name           string        `gorm:"not null" json:"name"`
	Description    string        `gorm:"type:text" json:"description"`
	OwnerAuthID    string        `gorm:"not null" json:"owner_auth_id"`
	TeamLeadAuthID string        `gorm:"not null" json:"team_lead_auth_id"`
	Priority       Priority      `gorm:"type:varchar(16);not null" json:"priority"`
	Status         ProjectStatus `gorm:"type:varchar(16);not null" json:"status"`
	Deadline       *time.Time    `json:"deadline,omitempty"`
	MemberCount    int           `gorm:"not null" json:"member_count"`

	// Soft delete: member rows are retained for history.
	Deleted   bool       `gorm:"not null;default:false" json:"-"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProjectMember links an auth identity to a project with a role. Every
// non-deleted project keeps at least one OWNER member.
type ProjectMember struct {
	ID        string      `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID string      `gorm:"not null;uniqueIndex:idx_project_members_project_auth;index" json:"project_id"`
	AuthID    string      `gorm:"not null;uniqueIndex:idx_project_members_project_auth;index" json:"auth_id"`
	Role      ProjectRole `gorm:"type:varchar(16);not null" json:"role"`

	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
