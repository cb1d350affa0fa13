// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections and schema creation.

# Connecting

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

The type is "sqlite" (modernc.org/sqlite, the default) or "postgres"
(github.com/lib/pq). Drivers are registered by blank imports in main.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - game_record: one row per game played, keyed by the server's game id
  - moderator: users allowed to run chat moderation commands
  - banned_user: users whose chat votes are ignored

Votes are never persisted; a round lives only in memory.
*/
package db
