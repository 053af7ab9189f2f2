// Package ceremony runs the WebAuthn registration and login handshakes.
package ceremony

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/congo-pay/passkey_wallet/internal/account"
	"github.com/congo-pay/passkey_wallet/internal/challenge"
	"github.com/congo-pay/passkey_wallet/internal/identity"
	"github.com/congo-pay/passkey_wallet/internal/wallet"
)

// Config tunes a Manager.
type Config struct {
	RPName string
	// ChallengeTTL bounds how long a challenge stays live. Zero never expires.
	ChallengeTTL time.Duration
	// StoreTimeout bounds each store call. Zero leaves the caller's deadline alone.
	StoreTimeout time.Duration
	Clock        func() time.Time
}

// Deps are the collaborators a Manager drives.
type Deps struct {
	Users       identity.Repository
	Challenges  challenge.Store
	Provisioner account.Provisioner
	Wallets     *wallet.Service
	Verifier    Verifier
	Logger      *slog.Logger
}

// Manager issues challenges and completes ceremonies against them.
type Manager struct {
	users       identity.Repository
	challenges  challenge.Store
	provisioner account.Provisioner
	wallets     *wallet.Service
	verifier    Verifier
	logger      *slog.Logger
	cfg         Config
	now         func() time.Time
}

// NewManager wires a ceremony manager. A nil Verifier falls back to CredentialIDVerifier.
func NewManager(deps Deps, cfg Config) *Manager {
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	verifier := deps.Verifier
	if verifier == nil {
		verifier = CredentialIDVerifier{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		users:       deps.Users,
		challenges:  deps.Challenges,
		provisioner: deps.Provisioner,
		wallets:     deps.Wallets,
		verifier:    verifier,
		logger:      logger,
		cfg:         cfg,
		now:         now,
	}
}

// LoginResult describes a successful authentication.
type LoginResult struct {
	Username  string
	LoginTime time.Time
}

// BeginRegistration issues a registration challenge for an unregistered
// username. Calling it again before completion replaces the challenge.
func (m *Manager) BeginRegistration(ctx context.Context, username, rpID string) (*protocol.PublicKeyCredentialCreationOptions, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if _, err := m.findUser(ctx, username); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, identity.ErrUserNotFound) {
		return nil, err
	}

	ch, err := m.issue(ctx, username, challenge.KindRegistration)
	if err != nil {
		return nil, err
	}
	m.logger.Info("registration started", slog.String("username", username), slog.String("rp_id", rpID))
	return registrationOptions(m.rpName(rpID), rpID, username, ch), nil
}

// CompleteRegistration stores the credential and provisions the user's wallet.
// The challenge is consumed only once both are stored.
func (m *Manager) CompleteRegistration(ctx context.Context, username string, resp CredentialResponse) (identity.Credential, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return identity.Credential{}, ErrUsernameRequired
	}
	pending, err := m.pending(ctx, username, challenge.KindRegistration)
	if err != nil {
		return identity.Credential{}, err
	}
	credentialID := resp.CredentialID()
	if credentialID == "" {
		return identity.Credential{}, ErrCredentialRequired
	}

	cred := identity.Credential{
		Username:     username,
		CredentialID: credentialID,
		PublicKey:    resp.PublicKey(),
		RegisteredAt: m.now().UTC(),
	}
	w, err := m.wallets.NewWallet(username)
	if err != nil {
		return identity.Credential{}, err
	}
	if err := m.provision(ctx, cred, w); err != nil {
		return identity.Credential{}, err
	}

	if err := m.consume(ctx, pending); err != nil {
		// The account exists; a stale challenge only expires or gets replaced.
		m.logger.Warn("registration challenge not consumed", slog.String("username", username), slog.Any("error", err))
	}
	m.logger.Info("registration completed", slog.String("username", username), slog.String("address", w.Address))
	return cred, nil
}

// BeginAuthentication issues a login challenge restricted to the user's credential.
func (m *Manager) BeginAuthentication(ctx context.Context, username, rpID string) (*protocol.PublicKeyCredentialRequestOptions, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	cred, err := m.findUser(ctx, username)
	if err != nil {
		return nil, err
	}

	ch, err := m.issue(ctx, username, challenge.KindAuthentication)
	if err != nil {
		return nil, err
	}
	m.logger.Info("authentication started", slog.String("username", username), slog.String("rp_id", rpID))
	return authenticationOptions(rpID, cred.CredentialID, ch), nil
}

// CompleteAuthentication verifies the assertion and burns the challenge.
// A challenge can back at most one successful login.
func (m *Manager) CompleteAuthentication(ctx context.Context, username string, resp CredentialResponse) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return LoginResult{}, ErrUsernameRequired
	}
	stored, err := m.findUser(ctx, username)
	if err != nil {
		return LoginResult{}, err
	}
	pending, err := m.pending(ctx, username, challenge.KindAuthentication)
	if err != nil {
		return LoginResult{}, err
	}
	if resp.CredentialID() == "" {
		return LoginResult{}, ErrCredentialRequired
	}
	if err := m.verifier.Verify(ctx, stored, pending, resp); err != nil {
		m.logger.Warn("authentication rejected", slog.String("username", username), slog.Any("error", err))
		if errors.Is(err, ErrCredentialMismatch) {
			return LoginResult{}, ErrCredentialMismatch
		}
		return LoginResult{}, err
	}

	if err := m.consume(ctx, pending); err != nil {
		if errors.Is(err, challenge.ErrNotFound) {
			return LoginResult{}, ErrNoPendingChallenge
		}
		return LoginResult{}, err
	}
	result := LoginResult{Username: username, LoginTime: m.now().UTC()}
	m.logger.Info("authentication completed", slog.String("username", username))
	return result, nil
}

func (m *Manager) issue(ctx context.Context, username string, kind challenge.Kind) (protocol.URLEncodedBase64, error) {
	ch, err := challenge.Issue(username, kind, m.now(), m.cfg.ChallengeTTL)
	if err != nil {
		return nil, err
	}
	raw, err := ch.Bytes()
	if err != nil {
		return nil, err
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.challenges.Put(ctx, ch); err != nil {
		return nil, err
	}
	return raw, nil
}

// pending returns the live challenge of the expected kind. A challenge
// issued for the other ceremony counts as no challenge.
func (m *Manager) pending(ctx context.Context, username string, kind challenge.Kind) (challenge.Challenge, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	ch, err := m.challenges.Get(ctx, username)
	if errors.Is(err, challenge.ErrNotFound) {
		return challenge.Challenge{}, ErrNoPendingChallenge
	}
	if err != nil {
		return challenge.Challenge{}, err
	}
	if ch.Kind != kind {
		return challenge.Challenge{}, ErrNoPendingChallenge
	}
	return ch, nil
}

func (m *Manager) consume(ctx context.Context, ch challenge.Challenge) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.challenges.Consume(ctx, ch.Username, ch.Value)
}

func (m *Manager) findUser(ctx context.Context, username string) (identity.Credential, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.users.FindByUsername(ctx, username)
}

func (m *Manager) provision(ctx context.Context, cred identity.Credential, w wallet.Wallet) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.provisioner.Provision(ctx, cred, w)
}

func (m *Manager) rpName(rpID string) string {
	if m.cfg.RPName != "" {
		return m.cfg.RPName
	}
	return rpID
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.StoreTimeout)
}
