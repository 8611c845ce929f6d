package controller

import (
	"github.com/gofiber/fiber/v2"

	"taskhive/models"
	"taskhive/services"
	"taskhive/utils"
)

type AddProjectMemberRequest struct {
	AuthID string `json:"auth_id" validate:"required"`
	Role   string `json:"role"`
}

type UpdateProjectRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type ProjectMemberController struct {
	members *services.ProjectMemberService
}

func NewProjectMemberController(members *services.ProjectMemberService) *ProjectMemberController {
	return &ProjectMemberController{members: members}
}

func (ctl *ProjectMemberController) Add(c *fiber.Ctx) error {
	var req AddProjectMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	role := models.ProjectRoleMember
	if req.Role != "" {
		var err error
		if role, err = models.ParseProjectRole(req.Role); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
	}

	member, err := ctl.members.AddMember(c.Params("projectId"), req.AuthID, role, authID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

func (ctl *ProjectMemberController) Remove(c *fiber.Ctx) error {
	err := ctl.members.RemoveMember(c.Params("projectId"), c.Params("authId"), authID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"removed": true}))
}

func (ctl *ProjectMemberController) UpdateRole(c *fiber.Ctx) error {
	var req UpdateProjectRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	role, err := models.ParseProjectRole(req.Role)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	member, err := ctl.members.UpdateRole(c.Params("projectId"), c.Params("authId"), role, authID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(member))
}

func (ctl *ProjectMemberController) List(c *fiber.Ctx) error {
	members, err := ctl.members.ListMembers(c.Params("projectId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(members))
}
