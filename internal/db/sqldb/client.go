package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/iamwavecut/groupwarden/internal/db"
	"github.com/iamwavecut/groupwarden/resources"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type sqlClient struct {
	db     *sqlx.DB
	driver string
}

var _ db.Client = (*sqlClient)(nil)

// NewSQLiteClient opens (creating if needed) a sqlite database file inside dir.
func NewSQLiteClient(ctx context.Context, dir, file string) (*sqlClient, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}
	dsn := "file:" + filepath.Join(dir, file) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_time_format=sqlite"
	return NewClient(ctx, DriverSQLite, dsn, 0)
}

// NewClient opens a database for one of the supported drivers and applies pending migrations.
func NewClient(ctx context.Context, driver, dsn string, maxOpenConns int) (*sqlClient, error) {
	var sqlDriver, migrateDialect string
	switch driver {
	case DriverSQLite:
		sqlDriver, migrateDialect = "sqlite", "sqlite3"
	case DriverPostgres:
		sqlDriver, migrateDialect = "pgx", "postgres"
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	dbx, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if maxOpenConns <= 0 {
		maxOpenConns = 42
	}
	dbx.SetMaxOpenConns(maxOpenConns)
	if err := dbx.PingContext(ctx); err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations/" + driver,
	}
	n, err := migrate.Exec(dbx.DB, migrateDialect, migrationsSource, migrate.Up)
	if err != nil {
		_ = dbx.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if n > 0 {
		log.WithField("driver", driver).Infof("applied %d migrations", n)
	}

	return &sqlClient{db: dbx, driver: driver}, nil
}

func (c *sqlClient) Close() error {
	return c.db.Close()
}

// q rebinds ?-style placeholders for the active driver.
func (c *sqlClient) q(query string) string {
	return c.db.Rebind(query)
}

func (c *sqlClient) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.WithError(rbErr).Warn("failed to rollback transaction")
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
