// Package store opens and migrates the relational store. SQLite is the
// default deployment target; MySQL and Postgres are supported through the
// same sqlx handle.
package store

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// PoolConfig sizes the connection pool. The pool is sized to the HTTP
// worker pool so a request never waits for a connection under normal load.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns sensible production defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// Open connects to the store. driver is one of "sqlite", "mysql" or
// "postgres". For sqlite an empty dsn means an in-memory database.
func Open(driver, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	driverName := driver
	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = ":memory:"
		}
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	case "postgres":
		driverName = "pgx"
	case "mysql":
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite doesn't support concurrent writes.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		db.SetMaxOpenConns(pool.MaxOpenConns)
		db.SetMaxIdleConns(pool.MaxIdleConns)
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}
	return db, nil
}
