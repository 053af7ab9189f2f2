package routes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/passkey_wallet/internal/account"
	"github.com/congo-pay/passkey_wallet/internal/ceremony"
	"github.com/congo-pay/passkey_wallet/internal/challenge"
	"github.com/congo-pay/passkey_wallet/internal/config"
	"github.com/congo-pay/passkey_wallet/internal/identity"
	"github.com/congo-pay/passkey_wallet/internal/ledger"
	"github.com/congo-pay/passkey_wallet/internal/middleware"
	"github.com/congo-pay/passkey_wallet/internal/notification"
	"github.com/congo-pay/passkey_wallet/internal/rpid"
	"github.com/congo-pay/passkey_wallet/internal/wallet"
)

const challengeSweepInterval = time.Minute

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

type backends struct {
	users       identity.Repository
	wallets     wallet.Repository
	challenges  challenge.Store
	provisioner account.Provisioner
}

// Setup configures middlewares and all application routes. ctx bounds any
// background work started for the in-memory backends.
func Setup(ctx context.Context, app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	b := newBackends(ctx, d)
	walletSvc := wallet.NewService(b.wallets, wallet.Options{
		StartingBalance: d.Cfg.StartingBalance,
		Timeout:         d.Cfg.StoreTimeout,
		Owners:          b.users,
	})
	ledgerSvc := ledger.NewService(b.wallets, ledger.Options{
		Timeout:  d.Cfg.StoreTimeout,
		Notifier: notification.NewLoggerNotifier(d.Logger),
		Logger:   d.Logger,
	})
	manager := ceremony.NewManager(ceremony.Deps{
		Users:       b.users,
		Challenges:  b.challenges,
		Provisioner: b.provisioner,
		Wallets:     walletSvc,
		Verifier:    ceremony.CredentialIDVerifier{},
		Logger:      d.Logger,
	}, ceremony.Config{
		RPName:       d.Cfg.RPName,
		ChallengeTTL: d.Cfg.ChallengeTTL,
		StoreTimeout: d.Cfg.StoreTimeout,
	})

	RegisterCeremonyRoutes(app,
		ceremony.NewHandler(manager, rpid.New(d.Cfg.RPID)),
		middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit),
	)
	RegisterWalletRoutes(app,
		wallet.NewHandler(walletSvc),
		identity.NewHandler(b.users, d.Cfg.StoreTimeout),
	)
	RegisterTransferRoutes(app,
		ledger.NewHandler(ledgerSvc),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)
	return nil
}

func newBackends(ctx context.Context, d Deps) backends {
	var b backends
	if d.DB != nil {
		b.users = identity.NewPostgresRepository(d.DB)
		b.wallets = wallet.NewPostgresRepository(d.DB)
		b.provisioner = account.NewPostgresProvisioner(d.DB)
	} else {
		b.users = identity.NewMemoryRepository()
		b.wallets = wallet.NewMemoryRepository()
		b.provisioner = account.NewCompensatingProvisioner(b.users, b.wallets, d.Logger)
	}

	if d.Cache != nil {
		b.challenges = challenge.NewRedisStore(d.Cache, time.Now)
		return b
	}
	store := challenge.NewMemoryStore(time.Now)
	if d.Cfg.ChallengeTTL > 0 {
		go sweepChallenges(ctx, store, d.Logger)
	}
	b.challenges = store
	return b
}

func sweepChallenges(ctx context.Context, store *challenge.MemoryStore, logger *slog.Logger) {
	ticker := time.NewTicker(challengeSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.PurgeExpired(); n > 0 {
				logger.Debug("purged expired challenges", slog.Int("count", n))
			}
		}
	}
}
