package controller

import (
	"github.com/gofiber/fiber/v2"

	"taskhive/models"
	"taskhive/services"
	"taskhive/utils"
)

type UpdateOrgRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

type MemberController struct {
	members *services.MemberService
}

func NewMemberController(members *services.MemberService) *MemberController {
	return &MemberController{members: members}
}

func (ctl *MemberController) List(c *fiber.Ctx) error {
	members, err := ctl.members.GetMembers(c.Params("orgId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(members))
}

func (ctl *MemberController) Get(c *fiber.Ctx) error {
	member, err := ctl.members.GetMember(c.Params("orgId"), c.Params("authId"))
	if err != nil {
		return respondError(c, err)
	}
	if member == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "member not found", nil)
	}
	return c.JSON(utils.SuccessResponse(member))
}

func (ctl *MemberController) UpdateRole(c *fiber.Ctx) error {
	var req UpdateOrgRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	role, err := models.ParseOrgRole(req.Role)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := ctl.members.UpdateRole(c.Params("orgId"), c.Params("authId"), role); err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"updated": true}))
}

func (ctl *MemberController) Remove(c *fiber.Ctx) error {
	if err := ctl.members.RemoveMember(c.Params("orgId"), c.Params("authId")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"removed": true}))
}

// Validate is used by other services to confirm an organization exists.
func (ctl *MemberController) Validate(c *fiber.Ctx) error {
	exists, err := ctl.members.ValidateOrg(c.Params("orgId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"valid": exists}))
}
