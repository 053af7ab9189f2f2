package identity

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Handler exposes read access to registered users.
type Handler struct {
	repo    Repository
	timeout time.Duration
}

// NewHandler constructs an identity HTTP handler. timeout bounds each store call.
func NewHandler(repo Repository, timeout time.Duration) *Handler {
	return &Handler{repo: repo, timeout: timeout}
}

type userResponse struct {
	Username     string    `json:"username"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Get returns the public profile of a registered user.
func (h *Handler) Get(c *fiber.Ctx) error {
	username := strings.TrimSpace(utils.CopyString(c.Params("username")))
	if username == "" {
		return fiber.NewError(http.StatusBadRequest, "username is required")
	}
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	cred, err := h.repo.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(userResponse{Username: cred.Username, RegisteredAt: cred.RegisteredAt})
}
