package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/importer/internal/application/dedupe"
	importapp "github.com/erp/importer/internal/application/import"
	"github.com/erp/importer/internal/domain/invoice"
	"github.com/erp/importer/internal/infrastructure/cache"
	"github.com/erp/importer/internal/infrastructure/config"
	"github.com/erp/importer/internal/infrastructure/dgii"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/erp/importer/internal/infrastructure/persistence"
	"github.com/erp/importer/internal/infrastructure/storage"
	"github.com/erp/importer/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// app holds the wired dependencies of one command invocation
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *persistence.Database
	history *importapp.HistoryService
	service *importapp.Service
	merger  *dedupe.Merger
	locker  cache.Locker
	meters  *telemetry.Pipeline
}

func newApp(ctx context.Context, g *globalFlags) (a *app, err error) {
	cfg, err := config.LoadFrom(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	sqlLog := logger.NewSQLLogger(log, logger.ParseSQLLevel(cfg.Log.SQLLevel), cfg.Log.SlowQuery)
	a.db, err = persistence.Open(ctx, &cfg.Database, sqlLog)
	if err != nil {
		return nil, err
	}
	version, err := a.db.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
		zap.Uint("schema_version", version))

	a.locker, err = cache.NewLocker(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		return nil, err
	}

	a.meters, err = telemetry.Start(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, err
	}
	metrics, err := telemetry.NewImportMetrics(a.meters.Meter())
	if err != nil {
		return nil, err
	}

	serviceOpts := []importapp.ServiceOption{
		importapp.WithMetrics(metrics),
		importapp.WithRegistryFeed(dgii.NewFeed(cfg.DGII, dgii.WithLogger(log))),
	}
	if cfg.Storage.Enabled {
		archiver, err := storage.NewS3Archiver(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			log.Warn("Archive bucket check failed, uploads may fail", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, importapp.WithArchiver(archiver))
	}

	scope := persistence.NewGormTransactionScope(a.db.DB)
	a.history = importapp.NewHistoryService(persistence.NewGormImportHistoryRepository(a.db.DB))
	a.service = importapp.NewService(scope, a.history, importapp.Options{
		MaxErrors:         cfg.Import.MaxErrors,
		ProgressInterval:  cfg.Import.ProgressInterval,
		DefaultTaxRate:    decimal.NewFromFloat(cfg.Import.DefaultTaxRate),
		Subtypes:          invoice.SubtypeMap(cfg.Import.Subtypes),
		RegistryBatchSize: cfg.DGII.BatchSize,
	}, serviceOpts...)
	a.merger = dedupe.NewMerger(scope, a.history)
	return a, nil
}

// context returns ctx carrying the app logger
func (a *app) context(ctx context.Context) context.Context {
	return logger.WithContext(ctx, a.log)
}

// workspace returns the flag value or the configured default
func (a *app) workspace(g *globalFlags) string {
	if g.workspace != "" {
		return g.workspace
	}
	return a.cfg.Import.DefaultWorkspace
}

// withLock runs fn while holding the tenant's lock for kind
func (a *app) withLock(ctx context.Context, tenantID uuid.UUID, kind string, fn func(context.Context) error) error {
	key := cache.LockKey(tenantID, kind)
	release, err := a.locker.Acquire(ctx, key, a.cfg.Import.LockTTL)
	if err != nil {
		return err
	}
	defer func() {
		// the run context may already be canceled
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			a.log.Warn("Failed to release import lock", zap.String("key", key), zap.Error(rerr))
		}
	}()
	return fn(ctx)
}

// Close releases every resource; safe on a partially built app
func (a *app) Close() {
	var errs []error
	if a.meters != nil {
		errs = append(errs, a.meters.Flush(context.Background()))
	}
	if a.locker != nil {
		errs = append(errs, a.locker.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("Error during shutdown", zap.Error(err))
	}
	logger.Sync(a.log)
}
