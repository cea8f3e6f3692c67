package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		username       TEXT    NOT NULL UNIQUE,
		password       TEXT    NOT NULL,
		business_type  TEXT    NOT NULL,
		business_hours TEXT    NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       TEXT    NOT NULL,
		address    TEXT    NOT NULL,
		latitude   REAL,
		longitude  REAL,
		notes      TEXT    NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id           INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id         INTEGER REFERENCES clients(id) ON DELETE SET NULL,
		address           TEXT    NOT NULL DEFAULT '',
		start_time        DATETIME NOT NULL,
		end_time          DATETIME,
		duration          INTEGER,
		latitude          REAL,
		longitude         REAL,
		is_known_location INTEGER NOT NULL DEFAULT 0,
		has_invoice       INTEGER NOT NULL DEFAULT 0,
		service_type      TEXT    NOT NULL DEFAULT '',
		service_details   TEXT    NOT NULL DEFAULT '',
		billable_amount   REAL
	)`,
	// One open visit per user, enforced at the storage layer.
	`CREATE UNIQUE INDEX IF NOT EXISTS visits_one_open
		ON visits(user_id) WHERE end_time IS NULL`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id        INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id      INTEGER REFERENCES clients(id) ON DELETE SET NULL,
		visit_id       INTEGER REFERENCES visits(id),
		invoice_number TEXT    NOT NULL,
		amount         TEXT    NOT NULL,
		date           DATETIME NOT NULL,
		is_paid        INTEGER NOT NULL DEFAULT 0,
		notes          TEXT    NOT NULL DEFAULT ''
	)`,
	// A visit can be referenced by at most one invoice.
	`CREATE UNIQUE INDEX IF NOT EXISTS invoices_visit
		ON invoices(visit_id) WHERE visit_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT     PRIMARY KEY,
		user_id    INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS passkey_credentials (
		id              TEXT    PRIMARY KEY,
		user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name            TEXT    NOT NULL DEFAULT '',
		credential_json TEXT    NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS visits_user ON visits(user_id)`,
	`CREATE INDEX IF NOT EXISTS invoices_user ON invoices(user_id)`,
	`CREATE INDEX IF NOT EXISTS clients_user ON clients(user_id)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
