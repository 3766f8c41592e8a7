package controller

import (
	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/apperror"
	"atomics-registration-be/internal/pkg/serverutils"
	"atomics-registration-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRegistrationController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
	UpdatePayment(ctx *fiber.Ctx) error
	BulkUpdateStatus(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

// registrationController serves one registration kind under /<kind>-registrations.
type registrationController struct {
	kind    entity.RegistrationKind
	service service.IRegistrationService
	admin   fiber.Handler
}

func NewRegistrationController(kind entity.RegistrationKind, service service.IRegistrationService, adminMiddleware fiber.Handler) IRegistrationController {
	return &registrationController{kind: kind, service: service, admin: adminMiddleware}
}

func (c *registrationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/" + string(c.kind) + "-registrations")
	h.Post("/", c.Create)

	// Static segments before /:id.
	h.Get("/stats", c.admin, c.Stats)
	h.Post("/bulk-update", c.admin, c.BulkUpdateStatus)
	h.Get("/", c.admin, c.List)

	h.Get("/:id", c.Show)
	h.Put("/:id", c.admin, c.Update)
	h.Patch("/:id/status", c.admin, c.UpdateStatus)
	h.Patch("/:id/payment", c.admin, c.UpdatePayment)
	h.Delete("/:id", c.admin, c.Delete)
}

func parseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return apperror.Validation("Invalid request body", []apperror.FieldError{{Field: "body", Message: err.Error()}})
	}
	return nil
}

func parseID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, apperror.Validation("Invalid registration id", []apperror.FieldError{{Field: "id", Message: "must be a valid UUID"}})
	}
	return id, nil
}

func (c *registrationController) Create(ctx *fiber.Ctx) error {
	var (
		res *dto.RegistrationResponse
		err error
	)

	switch c.kind {
	case entity.KindAcademy:
		var req dto.CreateAcademyRegistrationRequest
		if err := parseBody(ctx, &req); err != nil {
			return err
		}
		req.Normalize()
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
		res, err = c.service.CreateAcademy(ctx.UserContext(), &req)
	default:
		var req dto.CreateTournamentRegistrationRequest
		if err := parseBody(ctx, &req); err != nil {
			return err
		}
		req.Normalize()
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
		res, err = c.service.CreateTournament(ctx.UserContext(), &req)
	}
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Registration submitted successfully", res))
}

func (c *registrationController) Show(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Get(ctx.UserContext(), c.kind, id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show registration", res))
}

func (c *registrationController) List(ctx *fiber.Ctx) error {
	var query dto.ListRegistrationsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return apperror.Validation("Invalid query", []apperror.FieldError{{Field: "query", Message: err.Error()}})
	}

	res, err := c.service.List(ctx.UserContext(), c.kind, &query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success list registrations", res))
}

func (c *registrationController) Stats(ctx *fiber.Ctx) error {
	res, err := c.service.Stats(ctx.UserContext(), c.kind)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get statistics", res))
}

func (c *registrationController) Update(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	var req dto.UpdateRegistrationRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Update(ctx.UserContext(), c.kind, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Registration updated", res))
}

func (c *registrationController) UpdateStatus(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetStatus(ctx.UserContext(), c.kind, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Status updated", res))
}

func (c *registrationController) UpdatePayment(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}
	var req dto.UpdatePaymentRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.OverridePayment(ctx.UserContext(), c.kind, id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment status updated", res))
}

func (c *registrationController) BulkUpdateStatus(ctx *fiber.Ctx) error {
	var req dto.BulkUpdateStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.BulkSetStatus(ctx.UserContext(), c.kind, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Registrations updated", res))
}

func (c *registrationController) Delete(ctx *fiber.Ctx) error {
	id, err := parseID(ctx)
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.UserContext(), c.kind, id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Registration deleted", nil))
}
