// Package database persists the quest catalog to SQLite or PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database wraps the SQL connection and provides catalog persistence.
type Database struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Database, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return openWithDialect(&SQLiteDialect{}, path)
}

// OpenPostgres connects to a PostgreSQL database with the given DSN.
func OpenPostgres(dsn string) (*Database, error) {
	return openWithDialect(&PostgresDialect{}, dsn)
}

func openWithDialect(dialect Dialect, dataSource string) (*Database, error) {
	db, err := sql.Open(dialect.DriverName(), dataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	d := &Database{db: db, dialect: dialect}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// migrate creates the schema if it doesn't exist.
func (d *Database) migrate() error {
	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS quest_catalog (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			definition TEXT NOT NULL,
			updated_at %s DEFAULT CURRENT_TIMESTAMP
		)`, d.dialect.TimestampType()),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS participant_journal (
			actor_id TEXT PRIMARY KEY,
			record TEXT NOT NULL,
			updated_at %s DEFAULT CURRENT_TIMESTAMP
		)`, d.dialect.TimestampType()),

		`CREATE TABLE IF NOT EXISTS participant_flags (
			actor_id TEXT NOT NULL,
			flag_key TEXT NOT NULL,
			flag_value TEXT NOT NULL,
			PRIMARY KEY (actor_id, flag_key)
		)`,
	}

	for _, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
