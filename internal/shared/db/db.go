package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Connect abre o banco conforme o driver configurado ("postgres" ou "sqlite")
func Connect(driver, postgresDSN, sqlitePath string) (*sqlx.DB, error) {
	switch driver {
	case "postgres", "":
		return ConnectPostgres(postgresDSN)
	case "sqlite", DriverSQLite:
		return ConnectSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func ConnectPostgres(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// ConnectSQLite abre um arquivo SQLite para uso local e em testes.
// Transações começam com BEGIN IMMEDIATE e o pool fica em uma conexão,
// então escritas concorrentes são serializadas como o FOR UPDATE do Postgres.
func ConnectSQLite(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
	db, err := sqlx.Open(DriverSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}
