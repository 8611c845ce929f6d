package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization is the top-level tenant boundary
type Organization struct {
	ID          string `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	OwnerAuthID string `gorm:"not null" json:"owner_auth_id"`
	Domain      string `gorm:"index" json:"domain,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrganizationMember links an auth identity to an organization with a role.
// Every organization keeps at least one OWNER member at all times.
type OrganizationMember struct {
	ID     string  `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID  string  `gorm:"not null;uniqueIndex:idx_org_members_org_auth;index" json:"org_id"`
	AuthID string  `gorm:"not null;uniqueIndex:idx_org_members_org_auth" json:"auth_id"`
	Role   OrgRole `gorm:"type:varchar(16);not null" json:"role"`

	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (m *OrganizationMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// OrganizationInvitation is a pending membership offer bound to an email and
// a single-use token. PENDING -> ACCEPTED | CANCELLED, never back.
type OrganizationInvitation struct {
	ID        string           `gorm:"type:uuid;primaryKey" json:"id"`
	OrgID     string           `gorm:"not null;index" json:"org_id"`
	OrgName   string           `json:"org_name"` // denormalized for the invite email
	Email     string           `gorm:"not null" json:"email"`
	Role      OrgRole          `gorm:"type:varchar(16);not null" json:"role"`
	InvitedBy string           `gorm:"not null" json:"invited_by"`
	Token     string           `gorm:"uniqueIndex;not null" json:"-"`
	Status    InvitationStatus `gorm:"type:varchar(16);not null" json:"status"`

	InvitedAt time.Time `gorm:"not null" json:"invited_at"`
}

func (i *OrganizationInvitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
