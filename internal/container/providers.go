package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/stocktake/internal/application/dispatcher"
	"github.com/garyjia/stocktake/internal/application/port"
	"github.com/garyjia/stocktake/internal/application/service"
	"github.com/garyjia/stocktake/internal/domain/event"
	"github.com/garyjia/stocktake/internal/email"
	"github.com/garyjia/stocktake/internal/infrastructure/persistence/memory"
	"github.com/garyjia/stocktake/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/stocktake/internal/infrastructure/storage"
	"github.com/garyjia/stocktake/internal/metrics"
	"github.com/garyjia/stocktake/pkg/database"
)

// StoreBundle holds the run repository and, for the sqlite driver, its database.
type StoreBundle struct {
	Runs port.RunRepository

	// DB and Tx are nil for the memory driver
	DB *database.DB
	Tx port.TransactionManager
}

// ProvideStore creates the run repository selected by cfg.Driver.
// For sqlite it opens the database and applies pending migrations.
func ProvideStore(cfg *StoreConfig, logger *zap.Logger) (*StoreBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("store config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.Driver == "memory" {
		return &StoreBundle{Runs: memory.NewRunRepository()}, nil
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Up(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	sdb := sqlite.NewDB(db.DB, logger)
	return &StoreBundle{
		Runs: sqlite.NewRunRepository(sdb, logger),
		DB:   db,
		Tx:   sdb,
	}, nil
}

// ProvideMailer returns an SMTP sender, or email.Disabled when no host is set.
func ProvideMailer(cfg *email.Config, logger *zap.Logger) port.Mailer {
	if cfg == nil || !cfg.Enabled() {
		logger.Info("Email delivery disabled")
		return email.Disabled{}
	}

	logger.Info("Email delivery enabled",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
	)
	return email.NewSender(*cfg, logger)
}

// ProvideDispatcher creates the event dispatcher with the metrics and audit
// handlers registered for every event type.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	)
	d.SubscribeAll("metrics", metrics.HandleEvent)
	d.SubscribeAll("audit-log", createAuditHandler(logger.Named("audit")))

	return d, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Runs         port.RunRepository
	Mailer       port.Mailer
	Dispatcher   dispatcher.Dispatcher
	EmailSubject string
	Archive      port.FileStore
	Tx           port.TransactionManager
	Logger       *zap.Logger
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Stocktake service.StocktakeService
}

// ProvideServices creates the application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Runs == nil {
		return nil, fmt.Errorf("run repository is required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	opts := []service.Option{service.WithEmailSubject(deps.EmailSubject)}
	if deps.Archive != nil {
		opts = append(opts, service.WithArchive(deps.Archive))
	}
	if deps.Tx != nil {
		opts = append(opts, service.WithTransactions(deps.Tx))
	}

	return &ServiceBundle{
		Stocktake: service.NewStocktakeService(
			deps.Runs,
			deps.Mailer,
			deps.Dispatcher,
			&zapLoggerAdapter{logger: deps.Logger},
			opts...,
		),
	}, nil
}

// ProvideArchive returns the export archive for dir, or nil when dir is empty.
func ProvideArchive(dir string, logger *zap.Logger) port.FileStore {
	if dir == "" {
		return nil
	}
	logger.Info("Export archive enabled", zap.String("dir", dir))
	return storage.NewLocalFileStorage(dir, logger)
}

// createAuditHandler logs every run event at debug level.
func createAuditHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		fields := []zap.Field{
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.String("run_id", evt.RunID),
		}
		if evt.Area != "" {
			fields = append(fields, zap.String("area", evt.Area))
		}
		for k, v := range evt.Payload {
			fields = append(fields, zap.Any(k, v))
		}
		logger.Debug("Run event", fields...)
		return nil
	}
}
