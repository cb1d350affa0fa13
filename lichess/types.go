// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lichess

import "strings"

// Event types on the account event stream
const (
	EventChallenge         = "challenge"
	EventChallengeCanceled = "challengeCanceled"
	EventGameStart         = "gameStart"
	EventGameFinish        = "gameFinish"
)

// Event types on a game stream
const (
	EventGameFull  = "gameFull"
	EventGameState = "gameState"
	EventChatLine  = "chatLine"
)

// Chat rooms
const (
	RoomPlayer    = "player"
	RoomSpectator = "spectator"
)

// Game statuses that mean the game is still going
const (
	StatusCreated = "created"
	StatusStarted = "started"
)

// Event is one line of the account event stream
type Event struct {
	Type      string     `json:"type"`
	Challenge *Challenge `json:"challenge,omitempty"`
	Game      *GameRef   `json:"game,omitempty"`
}

type Variant struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

type TimeControl struct {
	Type      string `json:"type"` // clock, correspondence, unlimited
	Limit     int    `json:"limit,omitempty"`
	Increment int    `json:"increment,omitempty"`
	Show      string `json:"show,omitempty"`
}

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating,omitempty"`
	Title  string `json:"title,omitempty"`
}

// Challenge is an invitation to play
type Challenge struct {
	ID          string      `json:"id"`
	Status      string      `json:"status,omitempty"`
	Challenger  User        `json:"challenger"`
	DestUser    *User       `json:"destUser,omitempty"`
	Variant     Variant     `json:"variant"`
	Rated       bool        `json:"rated"`
	Speed       string      `json:"speed,omitempty"`
	TimeControl TimeControl `json:"timeControl"`
	Color       string      `json:"color,omitempty"`
}

// GameRef identifies a game on the event stream
type GameRef struct {
	ID       string  `json:"id"`
	GameID   string  `json:"gameId,omitempty"`
	Color    string  `json:"color,omitempty"`
	Variant  Variant `json:"variant,omitempty"`
	Opponent *User   `json:"opponent,omitempty"`
}

// Key returns the game id, whichever field the server filled in
func (g GameRef) Key() string {
	if g.GameID != "" {
		return g.GameID
	}
	return g.ID
}

// GameState is the mutable part of a game
type GameState struct {
	Type   string `json:"type,omitempty"`
	Moves  string `json:"moves"`
	WTime  int64  `json:"wtime"`
	BTime  int64  `json:"btime"`
	WInc   int64  `json:"winc"`
	BInc   int64  `json:"binc"`
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

// MoveList splits the space separated move string; an empty string is no moves
func (s GameState) MoveList() []string {
	return strings.Fields(s.Moves)
}

// Finished reports whether the status means the game is over
func (s GameState) Finished() bool {
	return s.Status != "" && s.Status != StatusCreated && s.Status != StatusStarted
}

// Clock is the game clock in milliseconds
type Clock struct {
	Initial   int64 `json:"initial"`
	Increment int64 `json:"increment"`
}

// GameEvent is one line of a game stream. Fields are filled according to Type.
type GameEvent struct {
	Type string `json:"type"`

	// gameFull
	ID      string    `json:"id,omitempty"`
	Variant Variant   `json:"variant,omitempty"`
	Clock   *Clock    `json:"clock,omitempty"`
	Rated   bool      `json:"rated,omitempty"`
	White   User      `json:"white,omitempty"`
	Black   User      `json:"black,omitempty"`
	State   GameState `json:"state,omitempty"`

	// gameState
	Moves  string `json:"moves,omitempty"`
	WTime  int64  `json:"wtime,omitempty"`
	BTime  int64  `json:"btime,omitempty"`
	WInc   int64  `json:"winc,omitempty"`
	BInc   int64  `json:"binc,omitempty"`
	Status string `json:"status,omitempty"`
	Winner string `json:"winner,omitempty"`

	// chatLine
	Username string `json:"username,omitempty"`
	Text     string `json:"text,omitempty"`
	Room     string `json:"room,omitempty"`
}

// CurrentState returns the state carried by the event: nested for gameFull, inline for gameState
func (e GameEvent) CurrentState() GameState {
	if e.Type == EventGameFull {
		return e.State
	}
	return GameState{
		Type:   e.Type,
		Moves:  e.Moves,
		WTime:  e.WTime,
		BTime:  e.BTime,
		WInc:   e.WInc,
		BInc:   e.BInc,
		Status: e.Status,
		Winner: e.Winner,
	}
}
