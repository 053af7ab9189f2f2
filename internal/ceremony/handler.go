package ceremony

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/passkey_wallet/internal/rpid"
)

// Handler exposes the registration and login endpoints.
type Handler struct {
	manager  *Manager
	resolver rpid.Resolver
}

// NewHandler builds the ceremony HTTP handler.
func NewHandler(manager *Manager, resolver rpid.Resolver) *Handler {
	return &Handler{manager: manager, resolver: resolver}
}

type startRequest struct {
	Username string `json:"username"`
}

type completeRequest struct {
	Username   string             `json:"username"`
	Credential CredentialResponse `json:"credential"`
}

// RegisterStart returns PublicKeyCredentialCreationOptions for a new username.
func (h *Handler) RegisterStart(c *fiber.Ctx) error {
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	opts, err := h.manager.BeginRegistration(c.UserContext(), req.Username, h.resolver.FromRequest(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(opts)
}

// RegisterComplete stores the credential and provisions the wallet.
func (h *Handler) RegisterComplete(c *fiber.Ctx) error {
	var req completeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	cred, err := h.manager.CompleteRegistration(c.UserContext(), req.Username, req.Credential)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":  true,
		"message":  "Registration successful",
		"username": cred.Username,
	})
}

// LoginStart returns PublicKeyCredentialRequestOptions for a registered username.
func (h *Handler) LoginStart(c *fiber.Ctx) error {
	var req startRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	opts, err := h.manager.BeginAuthentication(c.UserContext(), req.Username, h.resolver.FromRequest(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(opts)
}

// LoginComplete verifies the assertion.
func (h *Handler) LoginComplete(c *fiber.Ctx) error {
	var req completeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	result, err := h.manager.CompleteAuthentication(c.UserContext(), req.Username, req.Credential)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":   true,
		"message":   "Authentication successful",
		"username":  result.Username,
		"loginTime": result.LoginTime.Format(time.RFC3339Nano),
	})
}
