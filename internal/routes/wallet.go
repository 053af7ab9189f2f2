package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/passkey_wallet/internal/identity"
	"github.com/congo-pay/passkey_wallet/internal/ledger"
	"github.com/congo-pay/passkey_wallet/internal/wallet"
)

// RegisterWalletRoutes wires user lookup and wallet CRUD endpoints.
func RegisterWalletRoutes(r fiber.Router, wallets *wallet.Handler, users *identity.Handler) {
	r.Get("/user/:username", users.Get)
	r.Post("/wallet/create", wallets.Create)
	r.Get("/wallet/:username", wallets.Get)
	r.Put("/wallet/:username", wallets.Update)
	r.Get("/wallet/:username/transactions", wallets.Transactions)
}

// RegisterTransferRoutes wires both transfer variants behind the idempotency guard.
func RegisterTransferRoutes(r fiber.Router, h *ledger.Handler, idempotency fiber.Handler) {
	r.Post("/wallet/send", idempotency, h.Send)
	r.Post("/transfer", idempotency, h.Transfer)
}
