// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// DriverName maps a configured database type to its database/sql driver.
// The driver itself must be imported by the caller.
func DriverName(dbType string) (string, error) {
	switch dbType {
	case TypeSQLite, "":
		return "sqlite", nil
	case TypePostgres, "postgresql":
		return "postgres", nil
	}
	return "", fmt.Errorf("unsupported database type %q", dbType)
}

// Open connects and pings
func Open(dbType, url string) (*sql.DB, error) {
	driver, err := DriverName(dbType)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite" {
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The statements are valid for both sqlite and postgres.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Games played by the crowd
CREATE TABLE IF NOT EXISTS game_record (
    id TEXT PRIMARY KEY,
    game_id TEXT NOT NULL UNIQUE,
    opponent TEXT NOT NULL,
    color TEXT NOT NULL CHECK (color IN ('white', 'black')),
    variant TEXT NOT NULL DEFAULT 'standard',
    status TEXT NOT NULL DEFAULT 'playing',
    winner TEXT,
    plies INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    ended_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_game_record_started_at ON game_record(started_at);

-- Chat moderators
CREATE TABLE IF NOT EXISTS moderator (
    username TEXT PRIMARY KEY,
    added_by TEXT,
    added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Users whose chat is ignored
CREATE TABLE IF NOT EXISTS banned_user (
    username TEXT PRIMARY KEY,
    banned_by TEXT,
    banned_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
