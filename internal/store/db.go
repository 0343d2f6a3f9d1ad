package store

import (
	"database/sql"
	"embed"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/hashicorp/go-multierror"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is a UNIQUE / PRIMARY KEY violation.
	ErrConflict = errors.New("already exists")
	// ErrInvalidReference is a FOREIGN KEY / NOT NULL violation.
	ErrInvalidReference = errors.New("invalid reference")
)

type DB struct {
	*sql.DB
	log *slog.Logger
}

func dsn(dbPath string) string {
	return dbPath + "?_foreign_keys=on&_busy_timeout=5000"
}

func NewDB(dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open db")
	}

	if err := db.Ping(); err != nil {
		return nil, multierror.Append(errors.Wrap(err, "failed to ping db"), db.Close()).ErrorOrNil()
	}

	return &DB{DB: db, log: logger.With("component", "store")}, nil
}

// Migrate creates the schema and seeds the default carriers. It runs on its
// own connection because the migrate driver closes the handle it is given.
func Migrate(dbPath string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "open migrations")
	}

	conn, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return errors.Wrap(err, "failed to open db")
	}

	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return multierror.Append(errors.Wrap(err, "migrate driver"), conn.Close()).ErrorOrNil()
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return multierror.Append(errors.Wrap(err, "migrate init"), conn.Close()).ErrorOrNil()
	}

	var result *multierror.Error
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		result = multierror.Append(result, errors.Wrap(err, "migrate up"))
	}
	srcErr, dbErr := m.Close()
	result = multierror.Append(result, srcErr, dbErr)
	return result.ErrorOrNil()
}

// classify maps engine constraint failures onto the package sentinels while
// keeping the engine message.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(ErrNotFound, op)
	}

	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errors.Wrap(ErrConflict, se.Error())
		case sqlite3.ErrConstraintForeignKey, sqlite3.ErrConstraintNotNull:
			return errors.Wrap(ErrInvalidReference, se.Error())
		}
	}
	return errors.Wrap(err, op)
}
