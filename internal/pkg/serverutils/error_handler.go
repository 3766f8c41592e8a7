package serverutils

import (
	"errors"

	"atomics-registration-be/internal/pkg/apperror"
	"atomics-registration-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

const internalErrorMessage = "Internal server error"

// WriteError maps err onto the response envelope. Unknown errors become a bare 500 and
// the detail only goes to the log.
func WriteError(ctx *fiber.Ctx, err error, log logger.ILogger) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status := apperror.StatusCode(appErr.Kind)
		message := appErr.Message
		if appErr.Kind == apperror.KindInternal {
			message = internalErrorMessage
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"path":   ctx.Path(),
				"method": ctx.Method(),
				"kind":   string(appErr.Kind),
				"error":  err.Error(),
			})
		}
		return ctx.Status(status).JSON(ErrorResponse(message, appErr.Fields...))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
	}

	log.Error("HTTP", "Unhandled error", map[string]interface{}{
		"path":   ctx.Path(),
		"method": ctx.Method(),
		"error":  err.Error(),
	})
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(internalErrorMessage))
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return WriteError(ctx, err, log)
		}
		return nil
	}
}

// FiberErrorHandler catches whatever escapes the middleware chain.
func FiberErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		return WriteError(ctx, err, log)
	}
}
