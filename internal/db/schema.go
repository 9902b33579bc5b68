package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema. Decimal quantities and values are stored
// as TEXT so ledger sums stay exact.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id           INTEGER PRIMARY KEY,
    name         TEXT NOT NULL,
    default_unit TEXT NOT NULL,
    icon         TEXT,
    color        TEXT,
    is_active    INTEGER NOT NULL DEFAULT 1,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at   DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_active
    ON categories(name) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS donations (
    id              INTEGER PRIMARY KEY,
    category_id     INTEGER NOT NULL REFERENCES categories(id),
    donor_name      TEXT NOT NULL,
    donor_contact   TEXT,
    quantity        TEXT NOT NULL,
    unit            TEXT NOT NULL,
    estimated_value TEXT,
    description     TEXT,
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'received', 'distributed', 'expired')),
    received_date   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    recorded_by     INTEGER REFERENCES users(id),
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at      DATETIME
);

CREATE INDEX IF NOT EXISTS idx_donations_received
    ON donations(received_date) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS distributions (
    id                INTEGER PRIMARY KEY,
    donation_id       INTEGER NOT NULL REFERENCES donations(id),
    family_id         TEXT NOT NULL,
    quantity          TEXT NOT NULL,
    notes             TEXT,
    distribution_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    distributed_by    INTEGER REFERENCES users(id),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at        DATETIME
);

CREATE INDEX IF NOT EXISTS idx_distributions_donation
    ON distributions(donation_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
