// Package ledger moves balance between wallets and records each transfer.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/passkey_wallet/internal/apperr"
	"github.com/congo-pay/passkey_wallet/internal/notification"
	"github.com/congo-pay/passkey_wallet/internal/wallet"
)

var (
	// ErrSenderRequired rejects a transfer without a sender.
	ErrSenderRequired = apperr.New(apperr.ErrValidation, "sender is required")
	// ErrReceiverRequired rejects a transfer without a receiver.
	ErrReceiverRequired = apperr.New(apperr.ErrValidation, "receiver is required")
)

// Options configures a ledger Service.
type Options struct {
	// Timeout bounds the atomic transfer call. Zero leaves the caller's deadline alone.
	Timeout  time.Duration
	Clock    func() time.Time
	Notifier notification.Notifier
	Logger   *slog.Logger
}

// Service validates transfers and hands them to the wallet repository,
// which applies the debit, credit and transaction record as one unit.
type Service struct {
	wallets  wallet.Repository
	notifier notification.Notifier
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time
	newID    func() string
}

// NewService constructs a transfer service.
func NewService(wallets wallet.Repository, opts Options) *Service {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		wallets:  wallets,
		notifier: opts.Notifier,
		logger:   logger,
		timeout:  opts.Timeout,
		now:      now,
		newID:    uuid.NewString,
	}
}

// TransferInput captures the data needed to move funds between wallets.
type TransferInput struct {
	Sender   string
	Receiver string
	Amount   int64
}

// TransferResult describes a committed transfer.
type TransferResult struct {
	TransactionID   string
	SenderBalance   int64
	ReceiverBalance int64
	CompletedAt     time.Time
}

// Send performs a transfer and reports only whether it succeeded.
func (s *Service) Send(ctx context.Context, input TransferInput) error {
	_, err := s.Transfer(ctx, input)
	return err
}

// Transfer debits sender and credits receiver by amount. Either both balances
// change and one transaction is recorded, or nothing changes.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	input.Sender = strings.TrimSpace(input.Sender)
	input.Receiver = strings.TrimSpace(input.Receiver)
	switch {
	case input.Sender == "":
		return TransferResult{}, ErrSenderRequired
	case input.Receiver == "":
		return TransferResult{}, ErrReceiverRequired
	case input.Amount <= 0:
		return TransferResult{}, wallet.ErrInvalidAmount
	case input.Sender == input.Receiver:
		return TransferResult{}, wallet.ErrSameWallet
	}

	tx := wallet.Transaction{
		ID:        s.newID(),
		Sender:    input.Sender,
		Receiver:  input.Receiver,
		Amount:    input.Amount,
		CreatedAt: s.now().UTC(),
	}

	callCtx, cancel := s.withTimeout(ctx)
	res, err := s.wallets.Transfer(callCtx, tx)
	cancel()
	if err != nil {
		s.logger.Warn("transfer rejected",
			slog.String("sender", tx.Sender),
			slog.String("receiver", tx.Receiver),
			slog.Int64("amount", tx.Amount),
			slog.Any("error", err),
		)
		return TransferResult{}, err
	}

	s.logger.Info("transfer completed",
		slog.String("transaction_id", tx.ID),
		slog.String("sender", tx.Sender),
		slog.String("receiver", tx.Receiver),
		slog.Int64("amount", tx.Amount),
	)
	s.notifyReceiver(ctx, tx)

	return TransferResult{
		TransactionID:   res.Transaction.ID,
		SenderBalance:   res.SenderBalance,
		ReceiverBalance: res.ReceiverBalance,
		CompletedAt:     tx.CreatedAt,
	}, nil
}

// notifyReceiver runs after commit. A delivery failure is logged only.
func (s *Service) notifyReceiver(ctx context.Context, tx wallet.Transaction) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindTransferReceived,
		Destination: tx.Receiver,
		Body:        fmt.Sprintf("You received %d from %s", tx.Amount, tx.Sender),
		Reference:   tx.ID,
	})
	if err != nil {
		s.logger.Error("transfer notification failed", slog.String("transaction_id", tx.ID), slog.Any("error", err))
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
