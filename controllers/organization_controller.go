package controller

import (
	"github.com/gofiber/fiber/v2"

	"taskhive/models"
	"taskhive/services"
	"taskhive/utils"
)

type CreateOrganizationRequest struct {
	Name   string `json:"name" validate:"required,min=2,max=100"`
	Domain string `json:"domain"`
}

type AddOrgMemberRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

type OrganizationController struct {
	orgs *services.OrganizationService
}

func NewOrganizationController(orgs *services.OrganizationService) *OrganizationController {
	return &OrganizationController{orgs: orgs}
}

func (ctl *OrganizationController) Create(c *fiber.Ctx) error {
	var req CreateOrganizationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	org, err := ctl.orgs.CreateOrganization(services.CreateOrganizationInput{
		Name:        req.Name,
		Domain:      req.Domain,
		OwnerAuthID: authID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(org))
}

func (ctl *OrganizationController) Get(c *fiber.Ctx) error {
	org, err := ctl.orgs.GetOrganization(c.Params("orgId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(org))
}

// AddMember invites by email or adds directly, depending on whether the
// address resolves to a registered user.
func (ctl *OrganizationController) AddMember(c *fiber.Ctx) error {
	var req AddOrgMemberRequest
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

	result, err := ctl.orgs.AddMember(c.Params("orgId"), services.AddMemberInput{
		Email:       req.Email,
		Role:        role,
		PerformedBy: authID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(result))
}

func (ctl *OrganizationController) MyOrganizations(c *fiber.Ctx) error {
	memberships, err := ctl.orgs.GetMyOrganizations(authID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(utils.SuccessResponse(memberships))
}
