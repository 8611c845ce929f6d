package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"taskhive/models"
	"taskhive/services"
	"taskhive/utils"
)

type CreateProjectRequest struct {
	OrgID          string `json:"org_id" validate:"required"`
	Name           string `json:"name" validate:"required,min=2,max=150"`
	Description    string `json:"description"`
	TeamLeadAuthID string `json:"team_lead_auth_id" validate:"required"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
	Deadline       string `json:"deadline"`
}

type UpdateProjectRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Priority       *string `json:"priority"`
	Status         *string `json:"status"`
	Deadline       *string `json:"deadline"`
	TeamLeadAuthID *string `json:"team_lead_auth_id"`
}

type ProjectController struct {
	projects *services.ProjectService
}

func NewProjectController(projects *services.ProjectService) *ProjectController {
	return &ProjectController{projects: projects}
}

func (ctl *ProjectController) Create(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	// Omitted enums fall back to defaults; unknown values are rejected.
	priority := models.PriorityMedium
	if req.Priority != "" {
		var err error
		if priority, err = models.ParsePriority(req.Priority); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
	}
	status := models.StatusActive
	if req.Status != "" {
		var err error
		if status, err = models.ParseProjectStatus(req.Status); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "deadline must be RFC3339 or YYYY-MM-DD", nil)
	}

	project, err := ctl.projects.CreateProject(services.CreateProjectInput{
		OrgID:          req.OrgID,
		Name:           req.Name,
		Description:    req.Description,
		OwnerAuthID:    authID(c),
		TeamLeadAuthID: req.TeamLeadAuthID,
		Priority:       priority,
		Status:         status,
		Deadline:       deadline,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(project))
}

func (ctl *ProjectController) Update(c *fiber.Ctx) error {
	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}

	patch := services.UpdateProjectInput{
		Name:           req.Name,
		Description:    req.Description,
		TeamLeadAuthID: req.TeamLeadAuthID,
	}
	if req.Priority != nil {
		priority, err := models.ParsePriority(*req.Priority)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		patch.Priority = &priority
	}
	if req.Status != nil {
		status, err := models.ParseProjectStatus(*req.Status)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		patch.Status = &status
	}
	if req.Deadline != nil {
		deadline, err := parseDeadline(*req.Deadline)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "deadline must be RFC3339 or YYYY-MM-DD", nil)
		}
		patch.Deadline = deadline
	}

	project, err := ctl.projects.UpdateProject(c.Params("projectId"), authID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(project))
}

func (ctl *ProjectController) Delete(c *fiber.Ctx) error {
	if err := ctl.projects.SoftDeleteProject(c.Params("projectId")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": true}))
}

func (ctl *ProjectController) Get(c *fiber.Ctx) error {
	project, err := ctl.projects.GetProject(c.Params("projectId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(project))
}

func (ctl *ProjectController) ListByOrg(c *fiber.Ctx) error {
	projects, err := ctl.projects.ListByOrg(c.Params("orgId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(projects))
}

func (ctl *ProjectController) Mine(c *fiber.Ctx) error {
	projects, err := ctl.projects.ListByUser(authID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(projects))
}

// Validate is used by other services to confirm a project exists.
func (ctl *ProjectController) Validate(c *fiber.Ctx) error {
	exists, err := ctl.projects.Validate(c.Params("projectId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"valid": exists}))
}

func parseDeadline(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
