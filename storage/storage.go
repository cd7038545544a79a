// Package storage opens the repositories of the configured storage driver.
package storage

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studio/core"
	"github.com/trezcool/studio/core/payment"
	"github.com/trezcool/studio/core/roster"
	"github.com/trezcool/studio/storage/database"
	boltdb "github.com/trezcool/studio/storage/database/bolt"
	inmemdb "github.com/trezcool/studio/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studio/storage/database/sqlx"
)

const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverMemory   = "memory"
)

// Storage groups the repositories of one driver.
type Storage struct {
	Roster   roster.Repository
	Payments payment.Repository
	close    func() error
	sqlDB    *sqlx.DB
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// DB returns the SQL database of the postgres driver, nil for the others.
func (s *Storage) DB() *sql.DB {
	if s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.DB
}

// Open opens the storage selected by conf.Storage.Driver.
func Open(ctx context.Context, conf *core.Config, logger core.Logger) (*Storage, error) {
	switch conf.Storage.Driver {
	case DriverPostgres:
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening postgres")
		}
		logger.Info("storage: postgres " + conf.Database.Address() + "/" + conf.Database.Name)
		return &Storage{
			Roster:   sqlxrepos.NewRosterRepository(db),
			Payments: sqlxrepos.NewPaymentRepository(db),
			close:    db.Close,
			sqlDB:    db,
		}, nil

	case DriverBolt:
		db, err := boltdb.Open(conf.Storage.BoltPath)
		if err != nil {
			return nil, errors.Wrap(err, "opening bolt")
		}
		logger.Info("storage: bolt " + conf.Storage.BoltPath)
		return &Storage{
			Roster:   boltdb.NewRosterRepository(db),
			Payments: boltdb.NewPaymentRepository(db),
			close:    db.Close,
		}, nil

	case DriverMemory:
		logger.Warn("storage: memory, data is lost on exit")
		return NewMemory(), nil

	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
	}
}

// Setup opens the storage of a long running process.
// A postgres database is created when missing & migrated up.
func Setup(ctx context.Context, conf *core.Config, logger core.Logger) (*Storage, error) {
	if conf.Storage.Driver == DriverPostgres {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, errors.Wrap(err, "creating database")
		}
	}
	st, err := Open(ctx, conf, logger)
	if err != nil {
		return nil, err
	}
	if st.sqlDB != nil {
		if err = database.Migrate(st.sqlDB.DB, "up"); err != nil {
			_ = st.Close()
			return nil, errors.Wrap(err, "migrating database")
		}
	}
	return st, nil
}

// NewMemory returns a process local storage.
func NewMemory() *Storage {
	db := inmemdb.Open()
	return &Storage{
		Roster:   inmemdb.NewRosterRepository(db),
		Payments: inmemdb.NewPaymentRepository(db),
	}
}
