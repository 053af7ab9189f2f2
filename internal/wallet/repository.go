package wallet

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/passkey_wallet/internal/apperr"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	numericOutOfRange   = "22003"
)

// Repository persists wallets and the transfer audit log.
type Repository interface {
	Create(ctx context.Context, wallet Wallet) error
	Get(ctx context.Context, username string) (Wallet, error)
	Update(ctx context.Context, username string, patch Patch, at time.Time) (Wallet, error)
	// Transfer debits tx.Sender, credits tx.Receiver and appends tx as one
	// atomic unit. Nothing is written when any step fails.
	Transfer(ctx context.Context, tx Transaction) (TransferResult, error)
	Transactions(ctx context.Context, username string) ([]Transaction, error)
}

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Create inserts a wallet record.
func (r *PostgresRepository) Create(ctx context.Context, wallet Wallet) error {
	return InsertWallet(ctx, r.db, wallet)
}

// InsertWallet writes wallet through db, which may be a pool or an open transaction.
func InsertWallet(ctx context.Context, db Execer, wallet Wallet) error {
	if wallet.Balance < 0 {
		return ErrNegativeBalance
	}
	txs := wallet.Transactions
	if txs == nil {
		txs = emptyTransactions
	}
	_, err := db.Exec(ctx, `INSERT INTO wallets (username, balance, address, transactions, created_at, updated_at)
        VALUES ($1, $2, $3, $4::json, $5, $6)`,
		wallet.Username, wallet.Balance, wallet.Address, string(txs), wallet.CreatedAt.UTC(), wallet.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return ErrWalletExists
			case foreignKeyViolation:
				return ErrOwnerNotFound
			}
		}
		return apperr.Store("insert wallet", err)
	}
	return nil
}

// Get fetches a wallet by username.
func (r *PostgresRepository) Get(ctx context.Context, username string) (Wallet, error) {
	row := r.db.QueryRow(ctx, `SELECT username, balance, address, transactions::text, created_at, updated_at
        FROM wallets WHERE username = $1`, username)
	return scanWallet(row)
}

// Update applies patch and returns the stored wallet.
func (r *PostgresRepository) Update(ctx context.Context, username string, patch Patch, at time.Time) (Wallet, error) {
	if patch.Balance != nil && *patch.Balance < 0 {
		return Wallet{}, ErrNegativeBalance
	}
	var txs *string
	if patch.Transactions != nil {
		s := string(patch.Transactions)
		txs = &s
	}
	row := r.db.QueryRow(ctx, `UPDATE wallets SET
            balance = COALESCE($2, balance),
            address = COALESCE($3, address),
            transactions = COALESCE($4::json, transactions),
            updated_at = $5
        WHERE username = $1
        RETURNING username, balance, address, transactions::text, created_at, updated_at`,
		username, patch.Balance, patch.Address, txs, at.UTC())
	return scanWallet(row)
}

// Transfer locks both wallet rows in username order, checks the sender
// balance and commits the debit, credit and audit row together.
func (r *PostgresRepository) Transfer(ctx context.Context, t Transaction) (TransferResult, error) {
	if t.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if t.Sender == t.Receiver {
		return TransferResult{}, ErrSameWallet
	}
	txID, err := uuid.Parse(t.ID)
	if err != nil {
		return TransferResult{}, apperr.Wrap(apperr.ErrValidation, "invalid transaction id", err)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, apperr.Store("begin transfer", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	names := []string{t.Sender, t.Receiver}
	sort.Strings(names)
	balances := make(map[string]int64, 2)
	for _, name := range names {
		var balance int64
		err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE username = $1 FOR UPDATE`, name).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return TransferResult{}, apperr.Store("lock wallet", err)
		}
		balances[name] = balance
	}

	senderBalance, ok := balances[t.Sender]
	if !ok {
		return TransferResult{}, ErrWalletNotFound
	}
	receiverBalance, ok := balances[t.Receiver]
	if !ok {
		return TransferResult{}, ErrReceiverNotFound
	}
	if senderBalance < t.Amount {
		return TransferResult{}, ErrInsufficientBalance
	}
	if receiverBalance > math.MaxInt64-t.Amount {
		return TransferResult{}, ErrBalanceOverflow
	}

	at := t.CreatedAt.UTC()
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance - $2, updated_at = $3 WHERE username = $1`, t.Sender, t.Amount, at); err != nil {
		return TransferResult{}, apperr.Store("debit sender", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $2, updated_at = $3 WHERE username = $1`, t.Receiver, t.Amount, at); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == numericOutOfRange {
			return TransferResult{}, ErrBalanceOverflow
		}
		return TransferResult{}, apperr.Store("credit receiver", err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, sender, receiver, amount, created_at) VALUES ($1, $2, $3, $4, $5)`,
		txID, t.Sender, t.Receiver, t.Amount, at); err != nil {
		return TransferResult{}, apperr.Store("insert transaction", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, apperr.Store("commit transfer", err)
	}

	return TransferResult{
		Transaction:     t,
		SenderBalance:   senderBalance - t.Amount,
		ReceiverBalance: receiverBalance + t.Amount,
	}, nil
}

// Transactions lists every transfer sent or received by username, oldest first.
func (r *PostgresRepository) Transactions(ctx context.Context, username string) ([]Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT id, sender, receiver, amount, created_at FROM transactions
        WHERE sender = $1 OR receiver = $1 ORDER BY created_at, id`, username)
	if err != nil {
		return nil, apperr.Store("select transactions", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			id uuid.UUID
			t  Transaction
		)
		if err := rows.Scan(&id, &t.Sender, &t.Receiver, &t.Amount, &t.CreatedAt); err != nil {
			return nil, apperr.Store("scan transaction", err)
		}
		t.ID = id.String()
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("iterate transactions", err)
	}
	return out, nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w   Wallet
		txs string
	)
	if err := row.Scan(&w.Username, &w.Balance, &w.Address, &txs, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, apperr.Store("select wallet", err)
	}
	w.Transactions = []byte(txs)
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
