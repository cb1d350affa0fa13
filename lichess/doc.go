// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package lichess is a small client for the Lichess Bot API.

# Streams

The account and game streams are newline delimited JSON. Empty keep-alive
lines are skipped, and so are lines that fail to decode.

	client := lichess.NewClient("", token, nil)
	go client.Listen(ctx, func(ev lichess.Event) { ... })
	client.StreamGame(ctx, gameID, func(ev lichess.GameEvent) { ... })

Listen reconnects to the account stream after it closes; StreamGame returns
when the game stream ends.

# Actions

AcceptChallenge, DeclineChallenge, SendChat, MakeMove, Resign and Abort each
issue a single POST. A non-2xx response is returned as an error wrapping
ErrStatus. Nothing is retried.
*/
package lichess
