// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the read-only HTTP handlers of the bot.

# Handler Types

  - StateHandler: the live game, round and challenge queue
  - GamesHandler: records of games already played

Handlers take small interfaces rather than concrete types:

	stateHandler := handlers.NewStateHandler(orch)
	gamesHandler := handlers.NewGamesHandler(store.New(db))

# Endpoints

	GET /state       → GetState
	GET /games       → ListGames (?limit=N, newest first, capped at 100)
	GET /games/{id}  → GetGame

Errors use middleware.ErrorResponse. GetState answers 503 once the
orchestrator has stopped.
*/
package handlers
