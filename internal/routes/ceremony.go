package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/passkey_wallet/internal/ceremony"
)

// RegisterCeremonyRoutes wires passkey registration and login. limiter guards the login pair.
func RegisterCeremonyRoutes(r fiber.Router, h *ceremony.Handler, limiter fiber.Handler) {
	r.Post("/register/start", h.RegisterStart)
	r.Post("/register/complete", h.RegisterComplete)
	r.Post("/login/start", limiter, h.LoginStart)
	r.Post("/login/complete", limiter, h.LoginComplete)
}
