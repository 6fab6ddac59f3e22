package config

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver for database/sql and sqlx
)

const (
	driverPostgres     = "postgres"
	stdMaxOpenConns    = 8
	stdMaxIdleConns    = 2
	stdConnMaxLifetime = time.Hour
	stdConnMaxIdleTime = time.Minute * 5
)

// OpenSQLDB opens a tuned database/sql connection using the lib/pq driver.
func OpenSQLDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open(driverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open sql db: %w", err)
	}

	tuneStdPool(db)

	return db, nil
}

// OpenSQLX opens a tuned sqlx connection using the lib/pq driver.
func OpenSQLX(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverPostgres, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open sqlx db: %w", err)
	}

	tuneStdPool(db.DB)

	return db, nil
}

func tuneStdPool(db *sql.DB) {
	db.SetMaxOpenConns(stdMaxOpenConns)
	db.SetMaxIdleConns(stdMaxIdleConns)
	db.SetConnMaxLifetime(stdConnMaxLifetime)
	db.SetConnMaxIdleTime(stdConnMaxIdleTime)
}
