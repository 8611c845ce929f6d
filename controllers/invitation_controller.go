package controller

import (
	"github.com/gofiber/fiber/v2"

	"taskhive/services"
	"taskhive/utils"
)

type CancelInvitationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" validate:"required"`
}

type InvitationController struct {
	members *services.MemberService
}

func NewInvitationController(members *services.MemberService) *InvitationController {
	return &InvitationController{members: members}
}

// ValidateToken lets the signup page inspect an invitation before the user
// registers.
func (ctl *InvitationController) ValidateToken(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "token is required", nil)
	}
	validation, err := ctl.members.ValidateToken(token)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(validation))
}

func (ctl *InvitationController) Accept(c *fiber.Ctx) error {
	var req AcceptInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	member, err := ctl.members.AcceptInvitation(req.Token, authID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

func (ctl *InvitationController) Cancel(c *fiber.Ctx) error {
	var req CancelInvitationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := ctl.members.CancelInvitation(c.Params("orgId"), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"cancelled": true}))
}

func (ctl *InvitationController) Pending(c *fiber.Ctx) error {
	invitations, err := ctl.members.GetPendingInvitations(c.Params("orgId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(invitations))
}
