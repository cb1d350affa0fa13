// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Gateway message types
const (
	MsgOnConnect   = "on-connect"
	MsgVoteTimer   = "vote-timer"
	MsgVoteResults = "vote-results"
	MsgGameEnded   = "game-ended"
	MsgVoteCast    = "vote-cast"
)

// Client states shown by the voting page
const (
	StateNotPlaying    = "not-playing"
	StateWaiting       = "waiting"
	StateVoting        = "voting"
	StateVoteSubmitted = "vote-submitted"
)

// Message is the envelope for everything the gateway sends
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Wire types

type Move struct {
	SAN       string `json:"san,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// VoteCast is the only message a client sends
type VoteCast struct {
	Type   string `json:"type"`
	Move   *Move  `json:"move,omitempty"`
	Draw   bool   `json:"draw"`
	Resign bool   `json:"resign"`
}

// CastVote echoes a voter's own choice back to them
type CastVote struct {
	Move   *Move `json:"move,omitempty"`
	Draw   bool  `json:"draw"`
	Resign bool  `json:"resign"`
}

type VoteRow struct {
	Move     *Move   `json:"move,omitempty"`
	Resign   bool    `json:"resign,omitempty"`
	NumVotes int     `json:"numVotes"`
	Percent  float64 `json:"percent"`
	Winner   bool    `json:"winner,omitempty"`
}

type DrawResults struct {
	Number  int     `json:"number"`
	Percent float64 `json:"percent"`
}

type VoteResults struct {
	Votes       []VoteRow   `json:"votes"`
	DrawResults DrawResults `json:"drawResults"`
}

// OnConnect is sent once when a client connects
type OnConnect struct {
	Clock       int64       `json:"clock"` // ms left in the round
	State       string      `json:"state"`
	Playing     bool        `json:"playing"`
	Vote        *CastVote   `json:"vote,omitempty"`
	VoteResults VoteResults `json:"voteResults"`
}

// Response types

// StateResponse is served at GET /state
type StateResponse struct {
	Playing          bool        `json:"playing"`
	GameID           string      `json:"game_id,omitempty"`
	Side             string      `json:"side,omitempty"`
	Ply              int         `json:"ply"`
	Voting           bool        `json:"voting"`
	Round            uint64      `json:"round"`
	TimeLeftMS       int64       `json:"time_left_ms"`
	QueuedChallenges []string    `json:"queued_challenges"`
	VoteResults      VoteResults `json:"vote_results"`
}

type GamesResponse struct {
	Games []GameRecord `json:"games"`
}

// Domain types

// GameRecord is one game the crowd played. Votes are not kept.
type GameRecord struct {
	ID        string     `json:"id"`
	GameID    string     `json:"game_id"`
	Opponent  string     `json:"opponent"`
	Color     string     `json:"color"`
	Variant   string     `json:"variant"`
	Status    string     `json:"status"`
	Winner    *string    `json:"winner,omitempty"`
	Plies     int        `json:"plies"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Game record statuses set locally; finished games carry the server's status
const (
	GameStatusPlaying = "playing"
	GameStatusAborted = "aborted"
)

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
