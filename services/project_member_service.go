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

// ProjectMemberDetail is a membership row enriched with the directory
// identity of the user, when available.
type ProjectMemberDetail struct {
	AuthID    string             `json:"auth_id"`
	Role      models.ProjectRole `json:"role"`
	JoinedAt  time.Time          `json:"joined_at"`
	Name      string             `json:"name,omitempty"`
	Email     string             `json:"email,omitempty"`
	AvatarURL string             `json:"avatar_url,omitempty"`
}

// ProjectMemberService manages the membership roster of a single project.
// Every mutation that touches the roster also adjusts the project's
// MemberCount with an atomic SQL increment in the same transaction.
type ProjectMemberService struct {
	db        *gorm.DB
	directory clients.Directory
	publisher messaging.Publisher
	logger    *logrus.Logger
}

func NewProjectMemberService(db *gorm.DB, directory clients.Directory, publisher messaging.Publisher, logger *logrus.Logger) *ProjectMemberService {
	return &ProjectMemberService{
		db:        db,
		directory: directory,
		publisher: publisher,
		logger:    logger,
	}
}

// AddMember adds a user to the project roster. Only a project OWNER may add
// members. The notification to the new member is sent after commit and
// failures there never roll back the membership.
func (s *ProjectMemberService) AddMember(projectID, authID string, role models.ProjectRole, performedBy string) (*models.ProjectMember, error) {
	project, err := s.project(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(projectID, performedBy); err != nil {
		return nil, err
	}

	var count int64
	err = s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND auth_id = ?", projectID, authID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, Conflict("user is already a member of this project")
	}

	member := models.ProjectMember{
		ProjectID: projectID,
		AuthID:    authID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Where("id = ?", projectID).
			UpdateColumn("member_count", gorm.Expr("member_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}

	s.sendMemberAddedNotification(project, authID, role)
	return &member, nil
}

// RemoveMember removes a user from the roster. Removing yourself and
// removing the last remaining OWNER are both rejected.
func (s *ProjectMemberService) RemoveMember(projectID, authID, performedBy string) error {
	if _, err := s.project(projectID); err != nil {
		return err
	}
	if err := s.requireOwner(projectID, performedBy); err != nil {
		return err
	}
	if authID == performedBy {
		return InvalidInput("you cannot remove yourself from the project")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var member models.ProjectMember
		err := tx.Where("project_id = ? AND auth_id = ?", projectID, authID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("member not found in project")
		}
		if err != nil {
			return err
		}
		if member.Role == models.ProjectRoleOwner {
			owners, err := s.countOwners(tx, projectID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return Conflict("cannot remove the last owner of the project")
			}
		}
		if err := tx.Delete(&member).Error; err != nil {
			return err
		}
		return tx.Model(&models.Project{}).Where("id = ?", projectID).
			UpdateColumn("member_count", gorm.Expr("member_count - ?", 1)).Error
	})
}

// UpdateRole changes a member's project role, refusing to demote the last
// remaining OWNER.
func (s *ProjectMemberService) UpdateRole(projectID, authID string, role models.ProjectRole, performedBy string) (*models.ProjectMember, error) {
	if _, err := s.project(projectID); err != nil {
		return nil, err
	}
	if err := s.requireOwner(projectID, performedBy); err != nil {
		return nil, err
	}

	var member models.ProjectMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("project_id = ? AND auth_id = ?", projectID, authID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotFound("member not found in project")
		}
		if err != nil {
			return err
		}
		if member.Role == models.ProjectRoleOwner && role != models.ProjectRoleOwner {
			owners, err := s.countOwners(tx, projectID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return Conflict("cannot demote the last owner of the project")
			}
		}
		member.Role = role
		return tx.Model(&member).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers returns the roster enriched with directory identities fetched
// in one batched call. A directory outage degrades to bare membership rows.
func (s *ProjectMemberService) ListMembers(projectID string) ([]ProjectMemberDetail, error) {
	if _, err := s.project(projectID); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	if err := s.db.Where("project_id = ?", projectID).Find(&members).Error; err != nil {
		return nil, err
	}

	authIDs := make([]string, 0, len(members))
	for _, m := range members {
		authIDs = append(authIDs, m.AuthID)
	}
	users := make(map[string]clients.UserDetail)
	if len(authIDs) > 0 {
		if details, err := s.directory.GetUsersByIDs(authIDs); err == nil {
			for _, u := range details {
				users[u.AuthID] = u
			}
		} else {
			s.logger.WithFields(logrus.Fields{
				"project_id": projectID,
				"error":      err.Error(),
			}).Warn("batch user lookup failed, returning bare membership rows")
		}
	}

	out := make([]ProjectMemberDetail, 0, len(members))
	for _, m := range members {
		detail := ProjectMemberDetail{
			AuthID:   m.AuthID,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
		if u, ok := users[m.AuthID]; ok {
			detail.Name = u.Name
			detail.Email = u.Email
			detail.AvatarURL = u.AvatarURL
		}
		out = append(out, detail)
	}
	return out, nil
}

func (s *ProjectMemberService) requireOwner(projectID, authID string) error {
	var actor models.ProjectMember
	err := s.db.Where("project_id = ? AND auth_id = ?", projectID, authID).First(&actor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Unauthorized("you are not a member of this project")
	}
	if err != nil {
		return err
	}
	if actor.Role != models.ProjectRoleOwner {
		return Unauthorized("only a project owner can manage members")
	}
	return nil
}

func (s *ProjectMemberService) countOwners(tx *gorm.DB, projectID string) (int64, error) {
	var owners int64
	err := tx.Model(&models.ProjectMember{}).
		Where("project_id = ? AND role = ?", projectID, models.ProjectRoleOwner).
		Count(&owners).Error
	return owners, err
}

func (s *ProjectMemberService) project(projectID string) (*models.Project, error) {
	var project models.Project
	err := s.db.Where("id = ? AND deleted = ?", projectID, false).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound("project not found")
		}
		return nil, err
	}
	return &project, nil
}

func (s *ProjectMemberService) sendMemberAddedNotification(project *models.Project, authID string, role models.ProjectRole) {
	user, err := s.directory.GetUserByID(authID)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"auth_id": authID,
			"error":   err.Error(),
		}).Warn("user lookup failed, skipping member added notification")
		return
	}

	event := messaging.EmailRequest{
		ToEmail:      user.Email,
		Subject:      "You have been added to " + project.Name,
		TemplateCode: "project-member-added",
		Variables: map[string]string{
			"recipientName": user.Name,
			"projectName":   project.Name,
			"role":          string(role),
			"dashboardLink": config.AppConfig.FrontendURL + "/orgs/" + project.OrgID + "/projects",
		},
	}
	if err := s.publisher.Publish(event, config.ProjectMemberAddedKey); err != nil {
		s.logger.WithFields(logrus.Fields{
			"routing_key": config.ProjectMemberAddedKey,
			"error":       err.Error(),
		}).Error("failed to publish notification event")
	}
}
