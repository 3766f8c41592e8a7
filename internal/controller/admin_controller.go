package controller

import (
	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/pkg/apperror"
	"atomics-registration-be/internal/pkg/serverutils"
	"atomics-registration-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	Login(ctx *fiber.Ctx) error
	GetLogs(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
	admin   fiber.Handler
}

func NewAdminController(service service.IAdminService, adminMiddleware fiber.Handler) IAdminController {
	return &adminController{service: service, admin: adminMiddleware}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin")
	h.Post("/login", c.Login)
	h.Get("/logs", c.admin, c.GetLogs)
}

func (c *adminController) Login(ctx *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Login(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Login successful", res))
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	var query dto.LogListQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperror.Validation("Invalid query", []apperror.FieldError{{Field: "query", Message: err.Error()}})
	}

	res, err := c.service.GetSystemLogs(ctx.UserContext(), &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get logs", res))
}
