package controller

import (
	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/pkg/serverutils"
	"atomics-registration-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	CreateIntent(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
}

type paymentController struct {
	service service.IPaymentService
}

func NewPaymentController(service service.IPaymentService) IPaymentController {
	return &paymentController{service: service}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payments")
	h.Post("/intent", c.CreateIntent)
	h.Post("/create-payment-intent", c.CreateIntent)
	h.Post("/webhook", c.Webhook)
	h.Get("/status/:intentId", c.GetStatus)
}

func (c *paymentController) CreateIntent(ctx *fiber.Ctx) error {
	var req dto.CreateIntentRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateIntent(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment intent created", res))
}

// Webhook needs the raw body: the signature covers the exact bytes the gateway sent.
func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	var signature string
	if header := c.service.SignatureHeader(); header != "" {
		signature = ctx.Get(header)
	}

	if err := c.service.HandleWebhook(ctx.UserContext(), ctx.Body(), signature); err != nil {
		return err
	}
	return ctx.JSON(dto.WebhookAck{Success: true, Received: true})
}

func (c *paymentController) GetStatus(ctx *fiber.Ctx) error {
	res, err := c.service.GetIntentStatus(ctx.UserContext(), ctx.Params("intentId"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get payment status", res))
}
