package services

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/clients"
	"taskhive/config"
	"taskhive/messaging"
	"taskhive/models"
)

// TenantDirectory is the narrow membership-lookup surface the project
// membership manager consumes from the tenant directory.
type TenantDirectory interface {
	// GetMember returns nil (no error) when the user is not a member.
	GetMember(orgID, authID string) (*MemberInfo, error)
	ValidateOrg(orgID string) (bool, error)
}

// TokenValidation is the read side of an invite token's single-use
// guarantee.
type TokenValidation struct {
	Valid   bool           `json:"valid"`
	Email   string         `json:"email"`
	Role    models.OrgRole `json:"role"`
	OrgID   string         `json:"org_id"`
	OrgName string         `json:"org_name"`
}

// PendingInvitation is one entry of an organization's open invitations.
type PendingInvitation struct {
	Email     string         `json:"email"`
	Role      models.OrgRole `json:"role"`
	Status    string         `json:"status"`
	InvitedBy string         `json:"invited_by"`
	InvitedAt time.Time      `json:"invited_at"`
}

// MemberService owns organization membership and the invitation lifecycle.
type MemberService struct {
	db        *gorm.DB
	directory clients.Directory
	publisher messaging.Publisher
	logger    *logrus.Logger
}

func NewMemberService(db *gorm.DB, directory clients.Directory, publisher messaging.Publisher, logger *logrus.Logger) *MemberService {
	return &MemberService{
		db:        db,
		directory: directory,
		publisher: publisher,
		logger:    logger,
	}
}

// ValidateToken checks a token against the invitation's current status.
// Tokens of consumed or cancelled invitations are rejected; the same check is
// re-executed as a compare-and-set inside AcceptInvitation.
func (s *MemberService) ValidateToken(token string) (*TokenValidation, error) {
	var invitation models.OrganizationInvitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, InvalidInput("invalid invitation token")
		}
		return nil, err
	}
	if invitation.Status != models.InvitationPending {
		return nil, InvalidInput("invitation is no longer valid")
	}
	return &TokenValidation{
		Valid:   true,
		Email:   invitation.Email,
		Role:    invitation.Role,
		OrgID:   invitation.OrgID,
		OrgName: invitation.OrgName,
	}, nil
}

// AcceptInvitation consumes the token: the PENDING -> ACCEPTED transition and
// the member insert commit together. The transition is a compare-and-set on
// status, so a second accept with the same token fails even under
// concurrency.
func (s *MemberService) AcceptInvitation(token, authID string) (*models.OrganizationMember, error) {
	var invitation models.OrganizationInvitation
	if err := s.db.Where("token = ?", token).First(&invitation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, InvalidInput("invalid invitation token")
		}
		return nil, err
	}

	member := models.OrganizationMember{
		OrgID:    invitation.OrgID,
		AuthID:   authID,
		Role:     invitation.Role,
		JoinedAt: time.Now(),
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Checked before the token transition so a rejected accept leaves
		// the invitation usable.
		var existing int64
		err := tx.Model(&models.OrganizationMember{}).
			Where("org_id = ? AND auth_id = ?", invitation.OrgID, authID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return Conflict("you are already a member of this organization")
		}

		res := tx.Model(&models.OrganizationInvitation{}).
			Where("token = ? AND status = ?", token, models.InvitationPending).
			Update("status", models.InvitationAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return Conflict("invitation has already been used or cancelled")
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(messaging.EmailEvent{
		Email:   invitation.Email,
		Subject: "You have been added to an organization",
		Message: "You have been added to the organization " + invitation.OrgName + " as " + string(invitation.Role),
	}, config.MemberAddedKey)

	return &member, nil
}

// CancelInvitation transitions PENDING -> CANCELLED. Terminal invitations
// stay terminal.
func (s *MemberService) CancelInvitation(orgID, email string) error {
	var invitation models.OrganizationInvitation
	err := s.db.Where("org_id = ? AND email = ?", orgID, email).
		Order("invited_at DESC").First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("invitation not found")
		}
		return err
	}

	res := s.db.Model(&models.OrganizationInvitation{}).
		Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
		Update("status", models.InvitationCancelled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return Conflict("invitation has already been used or cancelled")
	}
	return nil
}

// GetPendingInvitations lists an organization's open invitations with the
// inviter's directory name.
func (s *MemberService) GetPendingInvitations(orgID string) ([]PendingInvitation, error) {
	var invitations []models.OrganizationInvitation
	err := s.db.Where("org_id = ? AND status = ?", orgID, models.InvitationPending).
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}

	out := make([]PendingInvitation, 0, len(invitations))
	for _, inv := range invitations {
		invitedBy := inv.InvitedBy
		if user, err := s.directory.GetUserByID(inv.InvitedBy); err == nil {
			invitedBy = user.Name
		}
		out = append(out, PendingInvitation{
			Email:     inv.Email,
			Role:      inv.Role,
			Status:    string(inv.Status),
			InvitedBy: invitedBy,
			InvitedAt: inv.InvitedAt,
		})
	}
	return out, nil
}

// UpdateRole changes a member's role. Demoting the sole remaining OWNER is
// rejected so the organization never loses its last owner.
func (s *MemberService) UpdateRole(orgID, authID string, newRole models.OrgRole) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var member models.OrganizationMember
		err := tx.Where("org_id = ? AND auth_id = ?", orgID, authID).First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("member not found")
			}
			return err
		}
		if member.Role == models.OrgRoleOwner && newRole != models.OrgRoleOwner {
			owners, err := s.countOwners(tx, orgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return Conflict("cannot demote the last owner")
			}
		}
		return tx.Model(&member).Update("role", newRole).Error
	})
	if err != nil {
		return err
	}

	orgName := s.orgName(orgID)
	if user, err := s.directory.GetUserByID(authID); err == nil {
		s.publish(messaging.EmailEvent{
			Email:   user.Email,
			Subject: "Your role has been updated",
			Message: "Your role has been updated to " + string(newRole) + " in " + orgName,
		}, config.RoleUpdatedKey)
	} else {
		s.logger.WithField("auth_id", authID).Warn("skipping role-updated email, user lookup failed")
	}
	return nil
}

// RemoveMember deletes a membership, guarding the last owner.
func (s *MemberService) RemoveMember(orgID, authID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var member models.OrganizationMember
		err := tx.Where("org_id = ? AND auth_id = ?", orgID, authID).First(&member).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("member not found")
			}
			return err
		}
		if member.Role == models.OrgRoleOwner {
			owners, err := s.countOwners(tx, orgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return Conflict("cannot remove the last owner")
			}
		}
		return tx.Delete(&member).Error
	})
	if err != nil {
		return err
	}

	orgName := s.orgName(orgID)
	if user, err := s.directory.GetUserByID(authID); err == nil {
		s.publish(messaging.EmailEvent{
			Email:   user.Email,
			Subject: "You were removed from the organization",
			Message: "You are no longer a member of " + orgName,
		}, config.MemberRemovedKey)
	} else {
		s.logger.WithField("auth_id", authID).Warn("skipping member-removed email, user lookup failed")
	}
	return nil
}

// GetMembers lists an organization's members enriched with one batched
// directory call.
func (s *MemberService) GetMembers(orgID string) ([]MemberInfo, error) {
	var members []models.OrganizationMember
	if err := s.db.Where("org_id = ?", orgID).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return []MemberInfo{}, nil
	}

	authIDs := make([]string, 0, len(members))
	for _, m := range members {
		authIDs = append(authIDs, m.AuthID)
	}
	users, err := s.directory.GetUsersByIDs(authIDs)
	if err != nil {
		return nil, ExternalService("user lookup failed", err)
	}
	details := make(map[string]clients.UserDetail, len(users))
	for _, u := range users {
		details[u.AuthID] = u
	}

	out := make([]MemberInfo, 0, len(members))
	for _, m := range members {
		u := details[m.AuthID]
		out = append(out, MemberInfo{
			ID:       m.ID,
			OrgID:    m.OrgID,
			AuthID:   m.AuthID,
			Email:    u.Email,
			Name:     u.Name,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return out, nil
}

// GetMember implements TenantDirectory: nil result means not a member.
func (s *MemberService) GetMember(orgID, authID string) (*MemberInfo, error) {
	var member models.OrganizationMember
	err := s.db.Where("org_id = ? AND auth_id = ?", orgID, authID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	info := MemberInfo{
		ID:       member.ID,
		OrgID:    member.OrgID,
		AuthID:   member.AuthID,
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
	if user, err := s.directory.GetUserByID(authID); err == nil {
		info.Email = user.Email
		info.Name = user.Name
	}
	return &info, nil
}

// ValidateOrg implements TenantDirectory.
func (s *MemberService) ValidateOrg(orgID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Organization{}).Where("id = ?", orgID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MemberService) countOwners(tx *gorm.DB, orgID string) (int64, error) {
	var owners int64
	err := tx.Model(&models.OrganizationMember{}).
		Where("org_id = ? AND role = ?", orgID, models.OrgRoleOwner).
		Count(&owners).Error
	return owners, err
}

func (s *MemberService) orgName(orgID string) string {
	var org models.Organization
	if err := s.db.Where("id = ?", orgID).First(&org).Error; err != nil {
		return ""
	}
	return org.Name
}

func (s *MemberService) publish(event any, routingKey string) {
	if err := s.publisher.Publish(event, routingKey); err != nil {
		s.logger.WithFields(logrus.Fields{
			"routing_key": routingKey,
			"error":       err.Error(),
		}).Error("failed to publish notification event")
	}
}
