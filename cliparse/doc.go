// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: connection string (default: file:votechess.db for sqlite)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - LichessURL: API base URL (default: https://lichess.org)
  - LichessToken: bot account token (required)
  - BotID: bot account id, lower case (default: votechess)
  - VoteSeconds: length of a voting round (default: 30)
  - AbortDelay: abort a game nobody has moved in (default: 60s)
  - DrainDelay: pause before taking the next queued challenge (default: 1s)
  - IdentityMode: one vote per connection or per client IP (default: connection)
  - IdentitySalt: HMAC salt for IP identities (required in ip mode)
  - TieBreakSeed: seeds tie-breaking; 0 seeds from the clock
  - AllowedOrigins: CORS and websocket origins; empty allows all
  - Mods: chat moderators added at startup

# CLI Flags

	-p              Server port
	-d              Database URL
	-t              Database type
	-lichess-url    Lichess base URL
	-token          Lichess API token
	-bot            Bot account id
	-vote-seconds   Round length in seconds
	-abort-delay    Abort delay (Go duration)
	-drain-delay    Queue drain delay (Go duration)
	-identity       connection or ip
	-identity-salt  IP identity salt
	-seed           Tie-break seed
	-origins        Allowed origins, comma separated
	-mods           Moderators, comma separated

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	LICHESS_URL     → -lichess-url
	LICHESS_TOKEN   → -token
	BOT_ID          → -bot
	VOTE_SECONDS    → -vote-seconds
	ABORT_DELAY     → -abort-delay
	DRAIN_DELAY     → -drain-delay
	VOTE_IDENTITY   → -identity
	IDENTITY_SALT   → -identity-salt
	TIEBREAK_SEED   → -seed
	ALLOWED_ORIGINS → -origins
	MODS            → -mods

CLI flags take precedence over environment variables. main loads a .env
file with godotenv before parsing, so the file fills in whatever the real
environment leaves unset.

# Validation

ParseFlags returns an error if:

  - LICHESS_TOKEN is missing
  - a postgres database has no URL
  - VOTE_SECONDS is not a positive integer
  - the identity mode is unknown, or ip mode has no salt
*/
package cliparse
