// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package game tracks the position of the bot's current game.

# Moves

The server sends the full move list with every update. The tracker applies
only the moves it has not seen yet and rebuilds the position from scratch
when the list does not extend its own history:

	tracker.Start(game.Snapshot{ID: id, Side: rules.White, Moves: moves})
	tracker.ApplyOpponentMove(state.MoveList())

Describe validates vote text against the live position without changing
it; Commit plays the crowd's winning move.

# Abort Safety

While fewer than two plies have been played the tracker can arm a timer
that asks for the game to be aborted. Any vote or opponent move disarms it.
Timers post back through Options.Post and carry a token, so a timer that
fires late does nothing.
*/
package game
