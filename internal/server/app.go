// Package server initializes and runs the digest server. It opens the
// configured storage engine, loads credentials and access rules, starts
// the UDP listener, and handles shutdown and reload signals.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/digestry/digestry/internal/filex"
	"github.com/digestry/digestry/internal/logging"
	"github.com/digestry/digestry/internal/server/config"
	"github.com/digestry/digestry/internal/server/services"
	"github.com/digestry/digestry/internal/server/store"
	"github.com/digestry/digestry/internal/server/transport"
)

type App struct {
	config *config.Config
	logger logging.Logger
	auth   *services.AuthService
	store  *store.Store
	server *transport.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout)

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	st := store.New(backend, logger, store.Options{
		MaxRecordAge:  cfg.MaxRecordAge,
		SweepInterval: cfg.SweepInterval,
		FlushInterval: cfg.FlushInterval,
	})

	auth, err := services.NewAuthService(ctx, cfg.AccountsPath, cfg.AccessPath, cfg.SignatureDrift, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("credentials init error: %w", err)
	}

	srv := transport.NewServer(cfg.Address, auth, services.NewDigestService(st), logger)

	return &App{config: cfg, logger: logger, auth: auth, store: st, server: srv}, nil
}

// openBackend constructs the storage engine named in the config. The
// sqlite engine falls back to a file under DataDir when no DSN is given.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	switch cfg.Engine {
	case config.EngineMemory:
		return store.NewMemoryBackend(), nil
	case config.EngineBadger:
		return store.NewBadgerBackend(cfg.DataDir)
	case config.EngineSQLite:
		dsn := cfg.DatabaseDSN
		if dsn == "" {
			if err := filex.EnsureDir(cfg.DataDir); err != nil {
				return nil, err
			}
			dsn = filepath.Join(cfg.DataDir, "digests.db")
		}
		return store.NewSQLiteBackend(ctx, dsn)
	case config.EnginePostgres:
		return store.NewPostgresBackend(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown storage engine %q", cfg.Engine)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// initReloadHandler re-reads the accounts and access files on SIGHUP. A
// failed reload keeps the previous credentials in effect.
func (app *App) initReloadHandler(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				app.logger.Info(ctx, "reloading accounts and access rules")
				if err := app.auth.Reload(ctx); err != nil {
					app.logger.Error(ctx, "reload failed, previous credentials stay active", "error", err)
				}
			}
		}
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting server",
		"addr", app.config.Address, "engine", app.config.Engine)

	app.initSignalHandler(cancelFunc)
	app.initReloadHandler(ctx)

	app.store.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing store", "error", err)
	}
	app.logger.Info(ctx, "server stopped")
}
