package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-fileops/internal/batch"
	"go-fileops/internal/config"
	"go-fileops/internal/database"
	"go-fileops/internal/event"
	"go-fileops/internal/handler"
	"go-fileops/internal/middleware"
	"go-fileops/internal/repository"
	"go-fileops/internal/router"
	"go-fileops/internal/service"
	"go-fileops/internal/storage"
	"go-fileops/internal/trashstore"
	"go-fileops/internal/util"
	"go-fileops/internal/websocket"
)

type App struct {
	server       *http.Server
	cancel       context.CancelFunc
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.cleanup()
		}
	}()

	resolver, err := storage.NewResolver(cfg.WorkingDir, cfg.PermittedRoots)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path resolver: %w", err)
	}
	scanner := storage.NewScanner()

	store, err := trashstore.Default(cfg.TrashBackend, cfg.TrashRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trash store: %w", err)
	}
	stores := []trashstore.Store{store}
	if store.Name() != "dir" {
		// Records written while the directory store was active stay restorable.
		if legacy, legacyErr := trashstore.NewDirStore(cfg.TrashRoot); legacyErr == nil {
			stores = append(stores, legacy)
		}
	}
	slog.Info("trash store ready", "store", store.Name())

	records, checkIndex, err := a.openIndex(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("undelete index ready", "backend", cfg.IndexBackend)

	audit, err := service.NewAuditService(cfg.AuditLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit journal: %w", err)
	}

	bus := event.NewBus()
	index := service.NewUndeleteIndex(records, stores...)
	transfer := service.NewTransferService(resolver, service.TransferOptions{
		RenameMaxAttempts: cfg.RenameMaxAttempts,
		BufferSize:        cfg.CopyBufferSize,
		Verify:            cfg.VerifyCopies,
	})
	trash := service.NewTrashService(resolver, scanner, store, index)
	entries := service.NewEntryService(resolver, scanner, util.NewMimeSniffer(cfg.SniffBytes))
	operations := service.NewOperationsService(resolver, transfer, trash, batch.New(cfg.BatchWorkers), audit, bus)
	jobs := service.NewJobService(operations, entries, bus, cfg.JobQueueSize)

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	hub := websocket.NewHub(bus)
	go hub.Run(ctx)
	go jobs.Run(ctx)

	auth := middleware.NewAuthMiddleware(middleware.NewTokenValidator(cfg.JWTSecret))
	if !auth.Enabled() {
		slog.Warn("JWT_SECRET is empty, API authentication is disabled")
	}

	appRouter := router.New(router.Options{
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPM:   cfg.RateLimitRPM,
		HeavyRateRPM:   cfg.HeavyRateLimitRPM,
	}, auth, router.Handlers{
		Entries:    handler.NewEntriesHandler(entries),
		Operations: handler.NewOperationsHandler(operations),
		Trash:      handler.NewTrashHandler(operations),
		Jobs:       handler.NewJobsHandler(jobs),
		Audit:      handler.NewAuditHandler(audit),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"trash_store": storeCheck(store),
			"index":       checkIndex,
		}),
		Events: websocket.Handler(hub, cfg.CORSOrigins),
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	ok = true
	return a, nil
}

// openIndex opens the undelete index backend and registers its cleanup.
func (a *App) openIndex(cfg *config.Config) (service.TrashRepository, handler.HealthCheck, error) {
	alwaysHealthy := func(context.Context) error { return nil }

	switch cfg.IndexBackend {
	case config.IndexMemory:
		slog.Warn("undelete index is in memory, trash records are lost on restart")
		return repository.NewMemoryTrashRepository(), alwaysHealthy, nil

	case config.IndexFile:
		repo, err := repository.NewFileTrashRepository(cfg.TrashIndexFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trash index file: %w", err)
		}
		return repo, alwaysHealthy, nil

	case config.IndexSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite index: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = db.Close() })
		return repository.NewSQLiteTrashRepository(db), sqliteCheck(db), nil

	case config.IndexPostgres:
		slog.Info("connecting to PostgreSQL")
		pg, err := database.OpenPostgres(context.Background(), database.PoolOptions{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres index: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, pg.Close)
		return repository.NewPostgresTrashRepository(pg.Pool), pg.Health, nil

	default:
		return nil, nil, fmt.Errorf("unknown index backend %q", cfg.IndexBackend)
	}
}

func sqliteCheck(db *sql.DB) handler.HealthCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func storeCheck(store trashstore.Store) handler.HealthCheck {
	rooted, ok := store.(interface{ Root() string })
	return func(context.Context) error {
		if !ok {
			return nil
		}
		info, err := os.Stat(rooted.Root())
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", rooted.Root())
		}
		return nil
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		a.cleanup()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		slog.Info("shutdown requested", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// cleanup cancels background workers, then releases backends in reverse order.
func (a *App) cleanup() {
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
