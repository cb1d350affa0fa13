// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists a record of every game the crowd plays.

	s := store.New(conn)
	s.StartGame(ctx, models.GameRecord{GameID: id, Opponent: "alice", Color: "white"})
	s.FinishGame(ctx, id, "mate", &winner, plies, time.Now())
	games, err := s.RecentGames(ctx, 20)

Only the game's outcome is kept. Votes live in memory for a single round
and are never written here.
*/
package store
