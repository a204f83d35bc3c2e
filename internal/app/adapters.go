package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duriyam/operate/internal/auth"
	"github.com/duriyam/operate/internal/backend"
	"github.com/duriyam/operate/internal/branches"
	"github.com/duriyam/operate/internal/platform/db"
	"github.com/duriyam/operate/internal/rbac"
	"github.com/duriyam/operate/internal/shared"
	"github.com/duriyam/operate/jobs"
)

// Adapters bundles the remote ports for the selected backend driver.
type Adapters struct {
	Roles    rbac.Backend
	Identity auth.IdentityProvider
	Branches branches.Repository
	Audit    jobs.AuditRecorder
	pool     *pgxpool.Pool
}

// Close releases driver resources.
func (a *Adapters) Close() {
	if a != nil && a.pool != nil {
		a.pool.Close()
	}
}

// OpenAdapters connects the configured backend driver. Callers validate the
// configuration first; a missing endpoint never reaches this point.
func OpenAdapters(ctx context.Context, cfg *Config, catalog *rbac.Catalog, logger *slog.Logger) (*Adapters, error) {
	if err := cfg.ValidateBackend(); err != nil {
		return nil, err
	}
	if cfg.BackendDriver == DriverPostgres {
		return openPostgres(ctx, cfg, catalog, logger)
	}
	client, err := backend.NewClient(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx); err != nil {
		logger.Warn("backend ping", slog.Any("error", err))
	}
	logger.Info("backend driver ready", slog.String("driver", DriverREST), slog.String("url", cfg.BackendURL))
	return &Adapters{Roles: client, Identity: client, Branches: client, Audit: client}, nil
}

func openPostgres(ctx context.Context, cfg *Config, catalog *rbac.Catalog, logger *slog.Logger) (*Adapters, error) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, err
	}
	store := rbac.NewPGStore(pool)
	if cfg.SyncCatalog {
		if err := store.SyncCatalog(ctx, catalog); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("permission catalog synced", slog.Int("entries", catalog.Len()))
	}
	if remote, err := store.GetAllRoles(ctx); err != nil {
		logger.Warn("read role permissions", slog.Any("error", err))
	} else if drift := rbac.CompareRemote(catalog, remote); !drift.Empty() {
		logger.Warn("permission catalog drift",
			slog.Any("missing_remote", drift.MissingRemote),
			slog.Any("unknown_remote", drift.UnknownRemote))
	}
	logger.Info("backend driver ready", slog.String("driver", DriverPostgres))
	return &Adapters{
		Roles:    store,
		Identity: auth.NewRepository(pool),
		Branches: branches.NewPGRepository(pool),
		Audit:    shared.NewAuditLogger(pool),
		pool:     pool,
	}, nil
}
