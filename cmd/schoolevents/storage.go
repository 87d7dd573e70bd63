package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"schoolevents/config"
	"schoolevents/internal/domain"
	"schoolevents/internal/repository/memory"
	"schoolevents/internal/repository/postgres"
	"schoolevents/internal/repository/sqlite"
)

// storage bundles the ports of one storage driver.
type storage struct {
	events   domain.EventRepository
	users    domain.UserRepository
	capacity domain.CapacityStore
	ledger   domain.RegistrationLedger
	tx       domain.Transactor
	ping     func(ctx context.Context) error
	close    func() error
}

// openStorage opens the configured driver. With migrate set, schema migrations are
// applied before returning.
func openStorage(ctx context.Context, logger *slog.Logger, cfg *config.Config, migrate bool) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DBUrl)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := postgres.Migrate(db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		logger.Info("storage ready", "driver", cfg.StorageDriver)
		return &storage{
			events:   postgres.NewEventRepository(db),
			users:    postgres.NewUserDirectory(db),
			capacity: postgres.NewCapacityStore(db),
			ledger:   postgres.NewRegistrationLedger(db),
			tx:       postgres.NewTransactor(db),
			ping:     db.PingContext,
			close:    db.Close,
		}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if migrate {
			if err := sqlite.Migrate(db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		logger.Info("storage ready", "driver", cfg.StorageDriver, "path", cfg.SQLitePath)
		return sqliteStorage(db), nil
	case config.DriverMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			events:   store.Events(),
			users:    store.Users(),
			capacity: store.Capacity(),
			ledger:   store.Ledger(),
			tx:       store.Transactor(),
			close:    func() error { return nil },
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func sqliteStorage(db *sql.DB) *storage {
	return &storage{
		events:   sqlite.NewEventRepository(db),
		users:    sqlite.NewUserDirectory(db),
		capacity: sqlite.NewCapacityStore(db),
		ledger:   sqlite.NewRegistrationLedger(db),
		tx:       sqlite.NewTransactor(db),
		ping:     db.PingContext,
		close:    db.Close,
	}
}
