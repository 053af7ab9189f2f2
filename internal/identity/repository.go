package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/passkey_wallet/internal/apperr"
)

var (
	// ErrUserNotFound is returned when no credential exists for a username.
	ErrUserNotFound = apperr.New(apperr.ErrNotFound, "user not found")
	// ErrUserExists is returned when a username already holds a credential.
	ErrUserExists = apperr.New(apperr.ErrConflict, "user already exists")
)

const uniqueViolation = "23505"

// Repository persists credentials keyed by username.
type Repository interface {
	Create(ctx context.Context, cred Credential) error
	FindByUsername(ctx context.Context, username string) (Credential, error)
	Delete(ctx context.Context, username string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed credential repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new credential.
func (r *PostgresRepository) Create(ctx context.Context, cred Credential) error {
	return InsertCredential(ctx, r.db, cred)
}

// FindByUsername fetches the credential registered for username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (Credential, error) {
	row := r.db.QueryRow(ctx, `SELECT username, credential_id, public_key, registered_at
        FROM users WHERE username = $1`, username)
	var (
		cred         Credential
		registeredAt time.Time
	)
	if err := row.Scan(&cred.Username, &cred.CredentialID, &cred.PublicKey, &registeredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credential{}, ErrUserNotFound
		}
		return Credential{}, apperr.Store("select user", err)
	}
	cred.RegisteredAt = registeredAt.UTC()
	return cred, nil
}

// Delete removes the credential for username.
func (r *PostgresRepository) Delete(ctx context.Context, username string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return apperr.Store("delete user", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// InsertCredential writes cred through db, which may be a pool or an open transaction.
func InsertCredential(ctx context.Context, db Execer, cred Credential) error {
	_, err := db.Exec(ctx, `INSERT INTO users (username, credential_id, public_key, registered_at)
        VALUES ($1, $2, $3, $4)`, cred.Username, cred.CredentialID, cred.PublicKey, cred.RegisteredAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrUserExists
		}
		return apperr.Store("insert user", err)
	}
	return nil
}
