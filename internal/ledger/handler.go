package ledger

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Amount   int64  `json:"amount"`
}

func (r transferRequest) input() TransferInput {
	return TransferInput{Sender: r.Sender, Receiver: r.Receiver, Amount: r.Amount}
}

// Send processes POST /wallet/send.
func (h *Handler) Send(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.Send(c.UserContext(), req.input()); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Transfer successful",
	})
}

// Transfer processes POST /transfer and returns the transaction id.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	res, err := h.service.Transfer(c.UserContext(), req.input())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success":       true,
		"message":       fmt.Sprintf("Transferred %d from %s to %s", req.Amount, req.Sender, req.Receiver),
		"transactionId": res.TransactionID,
	})
}
