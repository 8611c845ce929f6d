package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/clients"
	"taskhive/config"
	"taskhive/messaging"
	"taskhive/models"
)

type CreateProjectInput struct {
	OrgID          string
	Name           string
	Description    string
	OwnerAuthID    string
	TeamLeadAuthID string
	Priority       models.Priority
	Status         models.ProjectStatus
	Deadline       *time.Time
}

// UpdateProjectInput is a patch: only non-nil fields are applied.
type UpdateProjectInput struct {
	Name           *string
	Description    *string
	Priority       *models.Priority
	Status         *models.ProjectStatus
	Deadline       *time.Time
	TeamLeadAuthID *string
}

// ProjectDetail is a project enriched with owner/lead directory identities.
type ProjectDetail struct {
	Project  models.Project      `json:"project"`
	Owner    *clients.UserDetail `json:"owner,omitempty"`
	TeamLead *clients.UserDetail `json:"team_lead,omitempty"`
}

// ProjectService owns the project aggregate: creation, the team-lead
// reassignment protocol, and soft deletion. Actor authorization is resolved
// through the tenant directory before any local commit.
type ProjectService struct {
	db        *gorm.DB
	tenant    TenantDirectory
	directory clients.Directory
	publisher messaging.Publisher
	logger    *logrus.Logger
}

func NewProjectService(db *gorm.DB, tenant TenantDirectory, directory clients.Directory, publisher messaging.Publisher, logger *logrus.Logger) *ProjectService {
	return &ProjectService{
		db:        db,
		tenant:    tenant,
		directory: directory,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateProject validates owner and lead against the tenant directory, then
// inserts the project row and its seed members in one transaction so
// MemberCount starts correct. Creation notifications go out per distinct
// recipient after commit and are best-effort.
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	owner, err := s.tenant.GetMember(input.OrgID, input.OwnerAuthID)
	if err != nil {
		return nil, ExternalService("tenant lookup failed", err)
	}
	if owner == nil {
		return nil, NotFound("owner not found in organization")
	}
	if owner.Role != models.OrgRoleAdmin && owner.Role != models.OrgRoleOwner {
		return nil, Unauthorized("you are not authorized to create a project")
	}

	sameUser := input.OwnerAuthID == input.TeamLeadAuthID
	teamLead := owner
	if !sameUser {
		teamLead, err = s.tenant.GetMember(input.OrgID, input.TeamLeadAuthID)
		if err != nil {
			return nil, ExternalService("tenant lookup failed", err)
		}
		if teamLead == nil {
			return nil, NotFound("team lead not found in organization")
		}
	}

	memberCount := 2
	if sameUser {
		memberCount = 1
	}
	project := models.Project{
		OrgID:          input.OrgID,
		Name:           input.Name,
		Description:    input.Description,
		OwnerAuthID:    input.OwnerAuthID,
		TeamLeadAuthID: input.TeamLeadAuthID,
		Priority:       input.Priority,
		Status:         input.Status,
		Deadline:       input.Deadline,
		MemberCount:    memberCount,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		ownerMember := models.ProjectMember{
			ProjectID: project.ID,
			AuthID:    input.OwnerAuthID,
			Role:      models.ProjectRoleOwner,
			JoinedAt:  time.Now(),
		}
		if err := tx.Create(&ownerMember).Error; err != nil {
			return err
		}
		if !sameUser {
			leadMember := models.ProjectMember{
				ProjectID: project.ID,
				AuthID:    input.TeamLeadAuthID,
				Role:      models.ProjectRoleLead,
				JoinedAt:  time.Now(),
			}
			if err := tx.Create(&leadMember).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendCreationNotification(&project, owner, "Project Created Successfully")
	if !sameUser {
		s.sendCreationNotification(&project, teamLead, "You have been assigned as Team Lead")
	}

	return &project, nil
}

// UpdateProject applies a patch. Changing the team lead runs the
// reassignment protocol: demote the old lead (unless they are the owner),
// promote or add the new lead, and adjust MemberCount — all inside the same
// transaction as the project update, so the count and the member set never
// diverge.
func (s *ProjectService) UpdateProject(projectID, performedBy string, patch UpdateProjectInput) (*models.Project, error) {
	project, err := s.activeProject(projectID)
	if err != nil {
		return nil, err
	}

	actor, err := s.tenant.GetMember(project.OrgID, performedBy)
	if err != nil {
		return nil, ExternalService("tenant lookup failed", err)
	}
	if actor == nil {
		return nil, NotFound("user not found in organization")
	}
	if actor.Role != models.OrgRoleAdmin && actor.Role != models.OrgRoleOwner {
		return nil, Unauthorized("you are not authorized to update this project")
	}

	changed := false
	if patch.Name != nil && *patch.Name != "" && *patch.Name != project.Name {
		project.Name = *patch.Name
		changed = true
	}
	if patch.Description != nil && *patch.Description != project.Description {
		project.Description = *patch.Description
		changed = true
	}
	if patch.Priority != nil && *patch.Priority != project.Priority {
		project.Priority = *patch.Priority
		changed = true
	}
	if patch.Status != nil && *patch.Status != project.Status {
		project.Status = *patch.Status
		changed = true
	}
	if patch.Deadline != nil {
		project.Deadline = patch.Deadline
		changed = true
	}

	leadChanged := patch.TeamLeadAuthID != nil && *patch.TeamLeadAuthID != project.TeamLeadAuthID
	var newLead *MemberInfo
	if leadChanged {
		// Authorization-grade validation happens before the commit.
		newLead, err = s.tenant.GetMember(project.OrgID, *patch.TeamLeadAuthID)
		if err != nil {
			return nil, ExternalService("tenant lookup failed", err)
		}
		if newLead == nil {
			return nil, InvalidInput("new team lead must be a member of the organization")
		}
		changed = true
	}

	if !changed {
		return project, nil
	}

	// member_count is excluded from the row write: it is only ever moved by
	// atomic increments, and the value read before this transaction may
	// already be stale.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if leadChanged {
			if err := s.reassignLead(tx, project, *patch.TeamLeadAuthID); err != nil {
				return err
			}
		}
		return tx.Omit("member_count").Save(project).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.activeProject(projectID)
	if err != nil {
		return nil, err
	}
	if leadChanged {
		s.sendLeadAssignedNotification(updated, newLead)
	}
	return updated, nil
}

// reassignLead mutates the member set for a lead swap. The counter is only
// touched through atomic increments; callers reload the row for the fresh
// value.
func (s *ProjectService) reassignLead(tx *gorm.DB, project *models.Project, newLeadID string) error {
	oldLeadID := project.TeamLeadAuthID

	var oldLead models.ProjectMember
	err := tx.Where("project_id = ? AND auth_id = ?", project.ID, oldLeadID).First(&oldLead).Error
	oldLeadExists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if oldLeadID != project.OwnerAuthID {
		if oldLeadExists {
			if err := tx.Model(&oldLead).Update("role", models.ProjectRoleCollaborator).Error; err != nil {
				return err
			}
		}
	} else if oldLeadExists && oldLead.Role != models.ProjectRoleOwner {
		// The owner keeps the OWNER role no matter what the row says.
		if err := tx.Model(&oldLead).Update("role", models.ProjectRoleOwner).Error; err != nil {
			return err
		}
	}

	if newLeadID != project.OwnerAuthID {
		var newLeadMember models.ProjectMember
		err := tx.Where("project_id = ? AND auth_id = ?", project.ID, newLeadID).First(&newLeadMember).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			member := models.ProjectMember{
				ProjectID: project.ID,
				AuthID:    newLeadID,
				Role:      models.ProjectRoleLead,
				JoinedAt:  time.Now(),
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Project{}).Where("id = ?", project.ID).
				UpdateColumn("member_count", gorm.Expr("member_count + ?", 1)).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := tx.Model(&newLeadMember).Update("role", models.ProjectRoleLead).Error; err != nil {
				return err
			}
		}
	}

	project.TeamLeadAuthID = newLeadID
	return nil
}

// SoftDeleteProject flags the project deleted; member rows are retained for
// history and all read paths filter on the flag.
func (s *ProjectService) SoftDeleteProject(projectID string) error {
	project, err := s.activeProject(projectID)
	if err != nil {
		return err
	}
	now := time.Now()
	return s.db.Model(project).Updates(map[string]any{
		"deleted":    true,
		"deleted_at": now,
	}).Error
}

// GetProject returns a non-deleted project.
func (s *ProjectService) GetProject(projectID string) (*models.Project, error) {
	return s.activeProject(projectID)
}

// ListByOrg returns the organization's non-deleted projects.
func (s *ProjectService) ListByOrg(orgID string) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.Where("org_id = ? AND deleted = ?", orgID, false).Find(&projects).Error
	return projects, err
}

// ListByUser returns the projects a user belongs to, enriched with owner and
// lead identities fetched in a single batched directory call.
func (s *ProjectService) ListByUser(authID string) ([]ProjectDetail, error) {
	var memberships []models.ProjectMember
	if err := s.db.Where("auth_id = ?", authID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []ProjectDetail{}, nil
	}

	projectIDs := make([]string, 0, len(memberships))
	for _, m := range memberships {
		projectIDs = append(projectIDs, m.ProjectID)
	}
	var projects []models.Project
	err := s.db.Where("id IN ? AND deleted = ?", projectIDs, false).Find(&projects).Error
	if err != nil {
		return nil, err
	}

	idSet := make(map[string]struct{})
	for _, p := range projects {
		idSet[p.OwnerAuthID] = struct{}{}
		idSet[p.TeamLeadAuthID] = struct{}{}
	}
	authIDs := make([]string, 0, len(idSet))
	for id := range idSet {
		authIDs = append(authIDs, id)
	}

	users := make(map[string]clients.UserDetail)
	if details, err := s.directory.GetUsersByIDs(authIDs); err == nil {
		for _, u := range details {
			users[u.AuthID] = u
		}
	} else {
		s.logger.WithField("error", err.Error()).Warn("batch user lookup failed, returning projects without identities")
	}

	out := make([]ProjectDetail, 0, len(projects))
	for _, p := range projects {
		detail := ProjectDetail{Project: p}
		if u, ok := users[p.OwnerAuthID]; ok {
			owner := u
			detail.Owner = &owner
		}
		if u, ok := users[p.TeamLeadAuthID]; ok {
			lead := u
			detail.TeamLead = &lead
		}
		out = append(out, detail)
	}
	return out, nil
}

// Validate reports whether a non-deleted project exists.
func (s *ProjectService) Validate(projectID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Project{}).
		Where("id = ? AND deleted = ?", projectID, false).
		Count(&count).Error
	return count > 0, err
}

func (s *ProjectService) activeProject(projectID string) (*models.Project, error) {
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

func (s *ProjectService) sendCreationNotification(project *models.Project, recipient *MemberInfo, subjectSuffix string) {
	deadline := ""
	if project.Deadline != nil {
		deadline = project.Deadline.Format("Jan 02, 2006")
	}
	s.publish(messaging.EmailRequest{
		ToEmail:      recipient.Email,
		Subject:      "Project Notification: " + subjectSuffix,
		TemplateCode: "project-created",
		Variables: map[string]string{
			"recipientName": recipient.Name,
			"projectName":   project.Name,
			"projectId":     project.ID,
			"priority":      string(project.Priority),
			"deadline":      deadline,
			"dashboardLink": s.dashboardLink(project.OrgID),
		},
	}, config.ProjectCreatedKey)
}

func (s *ProjectService) sendLeadAssignedNotification(project *models.Project, recipient *MemberInfo) {
	s.publish(messaging.EmailRequest{
		ToEmail:      recipient.Email,
		Subject:      "You are the new team lead of " + project.Name,
		TemplateCode: "new-lead-assigned",
		Variables: map[string]string{
			"recipientName": recipient.Name,
			"projectName":   project.Name,
			"priority":      string(project.Priority),
			"dashboardLink": s.dashboardLink(project.OrgID),
		},
	}, config.NewLeadAssignedKey)
}

func (s *ProjectService) dashboardLink(orgID string) string {
	return fmt.Sprintf("%s/orgs/%s/projects", config.AppConfig.FrontendURL, orgID)
}

func (s *ProjectService) publish(event any, routingKey string) {
	if err := s.publisher.Publish(event, routingKey); err != nil {
		s.logger.WithFields(logrus.Fields{
			"routing_key": routingKey,
			"error":       err.Error(),
		}).Error("failed to publish notification event")
	}
}
