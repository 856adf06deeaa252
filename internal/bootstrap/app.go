// Package bootstrap wires configuration, storage, telemetry and the billing
// services into a running application. Both binaries build on it.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	billingapp "github.com/netcollect/backend/internal/application/billing"
	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/infrastructure/auth"
	"github.com/netcollect/backend/internal/infrastructure/cache"
	"github.com/netcollect/backend/internal/infrastructure/config"
	"github.com/netcollect/backend/internal/infrastructure/event"
	"github.com/netcollect/backend/internal/infrastructure/logger"
	"github.com/netcollect/backend/internal/infrastructure/migration"
	"github.com/netcollect/backend/internal/infrastructure/persistence"
	"github.com/netcollect/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Version is stamped into telemetry resources
var Version = "dev"

const instrumentationName = "github.com/netcollect/backend"

// App holds the long-lived collaborators of a netcollect process
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *persistence.Database
	Location *time.Location
	Bus      *event.InMemoryEventBus
	Cache    cache.SummaryCache
	JWT      *auth.JWTService

	Ledger  *billingapp.LedgerService
	Batches *billingapp.BatchService
	Reports *billingapp.ReportService
	Roster  *billingapp.RosterService

	tracer      *telemetry.TracerProvider
	meter       *telemetry.MeterProvider
	poolMetrics *telemetry.DBPoolMetrics
}

// NewLogger builds the process logger from cfg.Log
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// New opens the database and builds every service. The caller owns the
// returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	loc, err := cfg.Billing.Location()
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: log, Location: loc}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	app.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	app.meter, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel), cfg.Database.SlowQueryThresh)
	app.DB, err = persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	log.Info("Database connected", zap.String("driver", app.DB.Dialect))

	dbSystem := "postgresql"
	if app.DB.Dialect == config.DriverSQLite {
		dbSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Database.SlowQueryThresh,
		DBSystem:        dbSystem,
	}, log).Register(app.DB.DB); err != nil {
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	meter := app.meter.Meter(instrumentationName)
	if sqlDB, err := app.DB.DB.DB(); err == nil {
		if app.poolMetrics, err = telemetry.NewDBPoolMetrics(meter, sqlDB); err != nil {
			log.Warn("database pool metrics unavailable", zap.Error(err))
		}
	}
	metrics, err := telemetry.NewBillingMetrics(meter)
	if err != nil {
		log.Warn("billing metrics unavailable", zap.Error(err))
		metrics = nil
	}

	app.Cache = cache.NewSummaryCache(cfg.Redis, log)
	app.Bus = event.NewInMemoryEventBus(log.Named("events"))
	app.Bus.Subscribe(cache.NewSummaryInvalidator(app.Cache))
	if metrics != nil {
		app.Bus.Subscribe(metrics)
	}
	if err := app.Bus.Start(ctx); err != nil {
		return nil, err
	}

	app.JWT = auth.NewJWTService(cfg.Auth)

	db := app.DB.DB
	tx := persistence.NewGormTxManager(db)
	customers := persistence.NewGormCustomerRepository(db)
	invoices := persistence.NewGormInvoiceRepository(db)
	batches := persistence.NewGormCashBatchRepository(db)
	reports := persistence.NewGormReportRepository(db)
	audit := persistence.NewGormAuditRepository(db)

	opts := []billingapp.Option{
		billingapp.WithLocation(loc),
		billingapp.WithEventBus(app.Bus),
		billingapp.WithLogger(log),
		billingapp.WithTracer(app.tracer.Tracer(instrumentationName)),
		billingapp.WithMetrics(metrics),
		billingapp.WithSummaryCache(app.Cache),
	}
	app.Ledger = billingapp.NewLedgerService(tx, customers, invoices, batches, reports, audit, opts...)
	app.Batches = billingapp.NewBatchService(tx, invoices, batches, audit, opts...)
	app.Reports = billingapp.NewReportService(reports, invoices, batches, audit, app.Ledger, opts...)
	app.Roster = billingapp.NewRosterService(tx, customers, audit, billing.RosterDefaults{
		Address:    cfg.Billing.DefaultAddress,
		MonthlyFee: cfg.Billing.DefaultFee,
	}, opts...)

	return app, nil
}

// Close releases everything New acquired, in reverse order
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Bus != nil {
		errs = append(errs, a.Bus.Stop(ctx))
	}
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	errs = append(errs, a.poolMetrics.Stop())
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.meter != nil {
		errs = append(errs, a.meter.Shutdown(ctx))
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// sqlDriverName maps a database driver to its database/sql driver name
func sqlDriverName(driver string) string {
	if driver == config.DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// NewMigrator opens a dedicated connection for golang-migrate. Closing the
// migrator closes that connection.
func NewMigrator(cfg *config.DatabaseConfig, log *zap.Logger) (*migration.Migrator, error) {
	dsn := cfg.DSN()
	dialect := migration.DialectPostgres
	if cfg.Driver == config.DriverSQLite {
		dsn = cfg.SQLiteDSN()
		dialect = migration.DialectSQLite
	}

	db, err := sql.Open(sqlDriverName(cfg.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := migration.New(db, dialect, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}
