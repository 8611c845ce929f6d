package services

import (
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/clients"
	"taskhive/config"
	"taskhive/messaging"
	"taskhive/models"
)

// Add-member outcome statuses: the operation is keyed off directory
// existence, so the caller learns whether a member was created directly or an
// invitation went out.
const (
	StatusInvitationSent = "INVITATION_SENT"
	StatusMemberAdded    = "MEMBER_ADDED"
)

// MemberInfo is an organization member enriched with directory identity.
type MemberInfo struct {
	ID       string         `json:"id"`
	OrgID    string         `json:"org_id"`
	AuthID   string         `json:"auth_id"`
	Email    string         `json:"email"`
	Name     string         `json:"name"`
	Role     models.OrgRole `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`
}

// OrgMembership is one entry of a user's organization list.
type OrgMembership struct {
	OrgID    string         `json:"org_id"`
	OrgName  string         `json:"org_name"`
	Role     models.OrgRole `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`
}

type CreateOrganizationInput struct {
	Name        string
	OwnerAuthID string
	Domain      string
}

type AddMemberInput struct {
	Email       string
	Role        models.OrgRole
	PerformedBy string
}

type AddMemberResult struct {
	Status string         `json:"status"`
	Email  string         `json:"email"`
	Role   models.OrgRole `json:"role"`
	Member *MemberInfo    `json:"member,omitempty"`
}

// OrganizationService owns the organization aggregate and the invite-or-add
// entry point of the membership state machine.
type OrganizationService struct {
	db        *gorm.DB
	directory clients.Directory
	publisher messaging.Publisher
	logger    *logrus.Logger
}

func NewOrganizationService(db *gorm.DB, directory clients.Directory, publisher messaging.Publisher, logger *logrus.Logger) *OrganizationService {
	return &OrganizationService{
		db:        db,
		directory: directory,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateOrganization creates the organization and seeds its first OWNER
// member in the same transaction, so the at-least-one-owner invariant holds
// from the very first commit.
func (s *OrganizationService) CreateOrganization(input CreateOrganizationInput) (*models.Organization, error) {
	if strings.TrimSpace(input.OwnerAuthID) == "" {
		return nil, InvalidInput("owner authId is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, InvalidInput("organization name is required")
	}

	var existing models.Organization
	err := s.db.Where("name = ?", input.Name).First(&existing).Error
	if err == nil {
		return nil, Conflict("organization already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	org := models.Organization{
		Name:        input.Name,
		OwnerAuthID: input.OwnerAuthID,
		Domain:      input.Domain,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		owner := models.OrganizationMember{
			OrgID:    org.ID,
			AuthID:   org.OwnerAuthID,
			Role:     models.OrgRoleOwner,
			JoinedAt: time.Now(),
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// AddMember adds the target to the organization if the directory knows the
// email, otherwise creates a PENDING invitation with a fresh single-use
// token. The notification is published after the transaction commits; a
// publish failure never undoes the committed change.
func (s *OrganizationService) AddMember(orgID string, input AddMemberInput) (*AddMemberResult, error) {
	var org models.Organization
	if err := s.db.Where("id = ?", orgID).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("organization not found")
		}
		return nil, err
	}

	actorRole, err := s.roleOf(orgID, input.PerformedBy)
	if err != nil {
		return nil, err
	}
	if actorRole != models.OrgRoleOwner && actorRole != models.OrgRoleAdmin && actorRole != models.OrgRoleManager {
		return nil, Unauthorized("you are not authorized to add members")
	}

	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return nil, InvalidInput("invalid email address")
	}

	lookup, err := s.directory.LookupByEmail(input.Email)
	if err != nil {
		return nil, ExternalService("user lookup failed", err)
	}

	if !lookup.Exists {
		return s.inviteByEmail(&org, input)
	}

	var existing models.OrganizationMember
	err = s.db.Where("org_id = ? AND auth_id = ?", orgID, lookup.AuthID).First(&existing).Error
	if err == nil {
		return nil, Conflict("user is already a member of this organization")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := models.OrganizationMember{
		OrgID:    orgID,
		AuthID:   lookup.AuthID,
		Role:     input.Role,
		JoinedAt: time.Now(),
	}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}

	s.publish(messaging.EmailEvent{
		Email:   input.Email,
		Subject: "You have been added to an organization",
		Message: "You have been added to the organization " + org.Name + " as " + string(input.Role),
	}, config.MemberAddedKey)

	return &AddMemberResult{
		Status: StatusMemberAdded,
		Email:  input.Email,
		Role:   input.Role,
		Member: &MemberInfo{
			ID:       member.ID,
			OrgID:    member.OrgID,
			AuthID:   member.AuthID,
			Email:    input.Email,
			Role:     member.Role,
			JoinedAt: member.JoinedAt,
		},
	}, nil
}

func (s *OrganizationService) inviteByEmail(org *models.Organization, input AddMemberInput) (*AddMemberResult, error) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	invitation := models.OrganizationInvitation{
		OrgID:     org.ID,
		OrgName:   org.Name,
		Email:     input.Email,
		Role:      input.Role,
		InvitedBy: input.PerformedBy,
		Token:     token,
		Status:    models.InvitationPending,
		InvitedAt: time.Now(),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pending int64
		err := tx.Model(&models.OrganizationInvitation{}).
			Where("org_id = ? AND email = ? AND status = ?", org.ID, input.Email, models.InvitationPending).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return Conflict("an invitation is already pending for this email")
		}
		return tx.Create(&invitation).Error
	})
	if err != nil {
		return nil, err
	}

	s.publish(messaging.UserInvitedEvent{
		Email:       input.Email,
		Role:        string(input.Role),
		InviteToken: token,
		OrgID:       org.ID,
		OrgName:     org.Name,
	}, config.InviteKey)

	return &AddMemberResult{
		Status: StatusInvitationSent,
		Email:  input.Email,
		Role:   input.Role,
	}, nil
}

// GetMyOrganizations lists the organizations a user belongs to with role and
// join date.
func (s *OrganizationService) GetMyOrganizations(authID string) ([]OrgMembership, error) {
	var memberships []models.OrganizationMember
	if err := s.db.Where("auth_id = ?", authID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []OrgMembership{}, nil
	}

	orgIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		orgIDs = append(orgIDs, m.OrgID)
	}
	var orgs []models.Organization
	if err := s.db.Where("id IN ?", orgIDs).Find(&orgs).Error; err != nil {
		return nil, err
	}
	names := make(map[string]string, len(orgs))
	for _, o := range orgs {
		names[o.ID] = o.Name
	}

	out := make([]OrgMembership, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, OrgMembership{
			OrgID:    m.OrgID,
			OrgName:  names[m.OrgID],
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	return out, nil
}

// GetOrganization returns the organization or NotFound.
func (s *OrganizationService) GetOrganization(orgID string) (*models.Organization, error) {
	var org models.Organization
	if err := s.db.Where("id = ?", orgID).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("organization not found")
		}
		return nil, err
	}
	return &org, nil
}

func (s *OrganizationService) roleOf(orgID, authID string) (models.OrgRole, error) {
	var member models.OrganizationMember
	err := s.db.Where("org_id = ? AND auth_id = ?", orgID, authID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", Unauthorized("you are not a member of this organization")
		}
		return "", err
	}
	return member.Role, nil
}

// publish is fire-and-forget after commit: failures are logged, never
// returned, so the caller's success response stands.
func (s *OrganizationService) publish(event any, routingKey string) {
	if err := s.publisher.Publish(event, routingKey); err != nil {
		s.logger.WithFields(logrus.Fields{
			"routing_key": routingKey,
			"error":       err.Error(),
		}).Error("failed to publish notification event")
	}
}
