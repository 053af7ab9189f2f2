package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/passkey_wallet/internal/apperr"
)

// StatusOf returns the HTTP status an error will be rendered with.
func StatusOf(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return apperr.Status(err)
}

// ErrorHandler renders every handler error as {"success": false, "error": msg}.
// Store and unknown errors are logged with their cause and reported generically.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusOf(err)
		message := apperr.Message(err)

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			message = fiberErr.Message
		}
		if apperr.Internal(err) && fiberErr == nil {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", RequestIDFrom(c)),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "error": message})
	}
}
