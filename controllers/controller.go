package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"taskhive/services"
	"taskhive/utils"
)

// respondError maps service error codes onto HTTP statuses. Anything that is
// not an AppError is a 500.
func respondError(c *fiber.Ctx, err error) error {
	var appErr *services.AppError
	if !errors.As(err, &appErr) {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Internal server error", err)
	}

	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case services.CodeNotFound:
		status = fiber.StatusNotFound
	case services.CodeUnauthorized:
		status = fiber.StatusForbidden
	case services.CodeConflict:
		status = fiber.StatusConflict
	case services.CodeInvalidInput:
		status = fiber.StatusBadRequest
	case services.CodeExternalService:
		status = fiber.StatusBadGateway
	}
	return utils.ErrorResponse(c, status, appErr.Message, nil)
}

func authID(c *fiber.Ctx) string {
	id, _ := c.Locals("authID").(string)
	return id
}
