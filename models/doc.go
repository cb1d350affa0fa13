// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the wire and domain types shared by the gateway,
the HTTP handlers, and the store.

# Gateway Messages

Every server message is wrapped in a Message envelope:

	{"type": "on-connect",   "data": OnConnect}
	{"type": "vote-timer",   "data": 28500}
	{"type": "vote-results", "data": VoteResults}
	{"type": "game-ended"}

Clients send a single message type:

	{"type": "vote-cast", "move": {"from": "e2", "to": "e4"}, "draw": false, "resign": false}

# Client States

The on-connect payload tells the page what to show:

	StateNotPlaying    = "not-playing"
	StateWaiting       = "waiting"
	StateVoting        = "voting"
	StateVoteSubmitted = "vote-submitted"

# Response Types

  - StateResponse: current game and round, served at /state
  - GamesResponse: recent game records, served at /games
  - ErrorResponse: error, message

# Domain Types

  - GameRecord: one played game (opponent, color, status, plies). Votes are never stored.
*/
package models
