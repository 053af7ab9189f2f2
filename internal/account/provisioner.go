// Package account creates the credential and wallet of a new user as one unit.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/passkey_wallet/internal/apperr"
	"github.com/congo-pay/passkey_wallet/internal/identity"
	"github.com/congo-pay/passkey_wallet/internal/wallet"
)

const compensationTimeout = 5 * time.Second

// ErrPartialRegistration reports a credential left without a wallet because
// the compensating delete failed.
var ErrPartialRegistration = apperr.New(apperr.ErrPartialFailure, "registration left a user without a wallet")

// Provisioner stores a credential and its wallet so that either both exist or neither does.
type Provisioner interface {
	Provision(ctx context.Context, cred identity.Credential, w wallet.Wallet) error
}

// PostgresProvisioner inserts both rows in one transaction.
type PostgresProvisioner struct {
	db *pgxpool.Pool
}

// NewPostgresProvisioner builds a transactional provisioner.
func NewPostgresProvisioner(db *pgxpool.Pool) *PostgresProvisioner {
	return &PostgresProvisioner{db: db}
}

// Provision inserts the user and wallet rows and commits them together.
func (p *PostgresProvisioner) Provision(ctx context.Context, cred identity.Credential, w wallet.Wallet) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return apperr.Store("begin registration", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := identity.InsertCredential(ctx, tx, cred); err != nil {
		return err
	}
	if err := wallet.InsertWallet(ctx, tx, w); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Store("commit registration", err)
	}
	return nil
}

// CompensatingProvisioner works over any pair of repositories: it inserts the
// credential, then the wallet, and deletes the credential again when the
// wallet insert fails.
type CompensatingProvisioner struct {
	users   identity.Repository
	wallets wallet.Repository
	logger  *slog.Logger
}

// NewCompensatingProvisioner builds a provisioner for stores without multi-row transactions.
func NewCompensatingProvisioner(users identity.Repository, wallets wallet.Repository, logger *slog.Logger) *CompensatingProvisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompensatingProvisioner{users: users, wallets: wallets, logger: logger}
}

// Provision creates the credential then the wallet, compensating on wallet failure.
func (p *CompensatingProvisioner) Provision(ctx context.Context, cred identity.Credential, w wallet.Wallet) error {
	if err := p.users.Create(ctx, cred); err != nil {
		return err
	}
	walletErr := p.wallets.Create(ctx, w)
	if walletErr == nil {
		return nil
	}

	// The caller's deadline may be what failed the wallet insert.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := p.users.Delete(cleanupCtx, cred.Username); err != nil {
		p.logger.Error("registration compensation failed",
			slog.String("username", cred.Username),
			slog.Any("wallet_error", walletErr),
			slog.Any("error", err),
		)
		return apperr.Wrap(apperr.ErrPartialFailure, ErrPartialRegistration.Message, errors.Join(walletErr, err))
	}
	p.logger.Warn("registration rolled back",
		slog.String("username", cred.Username),
		slog.Any("error", walletErr),
	)
	return walletErr
}
