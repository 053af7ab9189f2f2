package wallet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Username     string          `json:"username"`
	Balance      *int64          `json:"balance"`
	Address      *string         `json:"address"`
	Transactions json.RawMessage `json:"transactions"`
}

type updateRequest struct {
	Balance      *int64          `json:"balance"`
	Address      *string         `json:"address"`
	Transactions json.RawMessage `json:"transactions"`
}

// walletResponse omits transactions: encodeWallet splices the stored list in
// verbatim, since encoding/json would compact and escape it.
type walletResponse struct {
	Username  string    `json:"username"`
	Balance   int64     `json:"balance"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type transactionResponse struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Get returns the wallet record for a username.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), usernameParam(c))
	if err != nil {
		return err
	}
	return sendWallet(c, http.StatusOK, w, false)
}

// Create provisions a wallet with optional explicit fields.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), CreateInput{
		Username:     req.Username,
		Balance:      req.Balance,
		Address:      req.Address,
		Transactions: dropNull(req.Transactions),
	})
	if err != nil {
		return err
	}
	return sendWallet(c, http.StatusCreated, w, true)
}

// Update replaces the supplied fields of an existing wallet.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Update(c.UserContext(), usernameParam(c), Patch{
		Balance:      req.Balance,
		Address:      req.Address,
		Transactions: dropNull(req.Transactions),
	})
	if err != nil {
		return err
	}
	return sendWallet(c, http.StatusOK, w, true)
}

// Transactions returns the transfer history of a wallet.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	username := usernameParam(c)
	history, err := h.service.History(c.UserContext(), username)
	if err != nil {
		return err
	}
	out := make([]transactionResponse, 0, len(history))
	for _, t := range history {
		out = append(out, transactionResponse{
			ID:        t.ID,
			Sender:    t.Sender,
			Receiver:  t.Receiver,
			Amount:    t.Amount,
			CreatedAt: t.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"username": username, "transactions": out})
}

// sendWallet writes w, wrapped in {"success":true,"wallet":...} when enveloped.
func sendWallet(c *fiber.Ctx, status int, w Wallet, enveloped bool) error {
	body, err := encodeWallet(w)
	if err != nil {
		return err
	}
	if enveloped {
		body = append(append([]byte(`{"success":true,"wallet":`), body...), '}')
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(status).Send(body)
}

func encodeWallet(w Wallet) ([]byte, error) {
	head, err := json.Marshal(walletResponse{
		Username:  w.Username,
		Balance:   w.Balance,
		Address:   w.Address,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	txs := w.Transactions
	if len(bytes.TrimSpace(txs)) == 0 {
		txs = emptyTransactions
	}
	out := make([]byte, 0, len(head)+len(txs)+len(`,"transactions":`))
	out = append(out, head[:len(head)-1]...)
	out = append(out, `,"transactions":`...)
	out = append(out, txs...)
	return append(out, '}'), nil
}

func dropNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

// usernameParam copies the route parameter out of the request buffer, which
// fasthttp reuses once the handler returns.
func usernameParam(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("username"))
}
