// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for votechess.

votechess is a Lichess bot whose moves are chosen by the crowd. Every time
it is the bot's turn a voting round opens; spectators vote through the
websocket endpoint or with /<move> in the game's spectator chat, and the
most popular legal move is played when the round ends.

# Starting the Server

	LICHESS_TOKEN=lip_... go run .

Or with flags:

	go run . -p 3318 -bot mybot -vote-seconds 20 -token lip_...

A .env file in the working directory is loaded first.

# Configuration

Required settings:

  - LICHESS_TOKEN (-token): Bot account API token
  - IDENTITY_SALT (-identity-salt): only when VOTE_IDENTITY=ip

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t), DATABASE_URL (-d): sqlite (default) or postgres
  - BOT_ID (-bot): Bot account id (default: votechess)
  - VOTE_SECONDS (-vote-seconds): Round length (default: 30)
  - ABORT_DELAY (-abort-delay), DRAIN_DELAY (-drain-delay)
  - VOTE_IDENTITY (-identity): connection or ip
  - TIEBREAK_SEED (-seed): Fixed seed for tie breaking
  - ALLOWED_ORIGINS (-origins), MODS (-mods): comma separated

# Architecture

  - orchestrator: single event loop driving games and rounds
  - game: position tracking for the bot's game
  - vote: round lifecycle and tallying
  - challenge: eligibility and the challenge queue
  - lichess: Lichess Bot API client
  - rules: chess rules over notnil/chess
  - gateway: websocket fan-out to voters
  - moderation: chat bans and mods
  - store, db: game records in sqlite or postgres
  - handlers, router, middleware: HTTP surface
  - metrics: Prometheus collectors
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
