// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package game

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/votechess/rules"
	"github.com/danielhkuo/votechess/vote"
)

var (
	ErrNoLegalMove = errors.New("not a legal move")
	ErrNotActive   = errors.New("no active game")
)

// DefaultAbortDelay is how long an unplayed game waits before it is aborted
const DefaultAbortDelay = 60 * time.Second

// abortablePlies: the server only allows an abort before both sides have moved
const abortablePlies = 2

// Rules is the chess capability the tracker drives
type Rules interface {
	ApplyMove(text string) (rules.Descriptor, error)
	Describe(text string) (rules.Descriptor, error)
	UndoLastMove() error
	LegalMoves() []rules.Descriptor
	SideToMove() rules.Color
	IsTerminal() bool
}

// Snapshot is the state needed to attach to a game, new or in progress
type Snapshot struct {
	ID      string
	Side    rules.Color
	Variant string
	Moves   []string
}

// Options configures a Tracker
type Options struct {
	// NewRules builds a fresh position for a variant
	NewRules func(variant string) (Rules, error)
	// AbortDelay defaults to DefaultAbortDelay
	AbortDelay time.Duration
	// OnAbort is called with the game id when the abort-safety timer fires
	OnAbort func(gameID string)
	// Post runs fn on the owner's event loop. Nil runs fn on the timer goroutine.
	Post func(fn func())
}

// Tracker mirrors the active game. It is owned by a single event loop;
// only the abort token is shared with timer goroutines.
type Tracker struct {
	newRules   func(string) (Rules, error)
	abortDelay time.Duration
	onAbort    func(string)
	post       func(func())

	id      string
	side    rules.Color
	variant string
	moves   []string
	ply     int
	active  bool
	rules   Rules

	mu         sync.Mutex
	abortToken uint64
	abortTimer *time.Timer
}

func NewTracker(opts Options) *Tracker {
	t := &Tracker{
		newRules:   opts.NewRules,
		abortDelay: opts.AbortDelay,
		onAbort:    opts.OnAbort,
		post:       opts.Post,
	}
	if t.newRules == nil {
		t.newRules = func(variant string) (Rules, error) { return rules.NewBoard(variant) }
	}
	if t.abortDelay <= 0 {
		t.abortDelay = DefaultAbortDelay
	}
	if t.post == nil {
		t.post = func(fn func()) { fn() }
	}
	return t
}

// Start attaches to a game, replaying any moves already played
// (the process may have restarted mid-game)
func (t *Tracker) Start(s Snapshot) error {
	t.DisarmAbortSafety()

	r, err := t.newRules(s.Variant)
	if err != nil {
		return fmt.Errorf("failed to create rules for %s: %w", s.ID, err)
	}
	for i, m := range s.Moves {
		if _, err := r.ApplyMove(m); err != nil {
			return fmt.Errorf("failed to replay move %d (%s) of %s: %w", i+1, m, s.ID, err)
		}
	}

	t.id = s.ID
	t.side = s.Side
	t.variant = s.Variant
	t.moves = append([]string(nil), s.Moves...)
	t.rules = r
	t.ply = len(s.Moves)
	t.active = true
	return nil
}

// ApplyOpponentMove takes the full move list pushed by the server.
// A list one ply longer than ours is applied; shorter or equal lists are stale.
// A longer jump means a push was missed, so the position is rebuilt.
func (t *Tracker) ApplyOpponentMove(moves []string) (bool, error) {
	if !t.active {
		return false, ErrNotActive
	}

	switch {
	case len(moves) <= t.ply:
		return false, nil
	case len(moves) == t.ply+1:
		if _, err := t.rules.ApplyMove(moves[len(moves)-1]); err != nil {
			return false, fmt.Errorf("failed to apply %s: %w", moves[len(moves)-1], err)
		}
		t.moves = append(t.moves, moves[len(moves)-1])
		t.ply++
	default:
		slog.Warn("move list jumped, rebuilding position",
			"game_id", t.id, "tracked_ply", t.ply, "pushed_ply", len(moves))
		if err := t.resync(moves); err != nil {
			return false, err
		}
	}

	t.DisarmAbortSafety()
	return true, nil
}

func (t *Tracker) resync(moves []string) error {
	r, err := t.newRules(t.variant)
	if err != nil {
		return err
	}
	for _, m := range moves {
		if _, err := r.ApplyMove(m); err != nil {
			return fmt.Errorf("failed to resync at %s: %w", m, err)
		}
	}
	t.rules = r
	t.moves = append([]string(nil), moves...)
	t.ply = len(moves)
	return nil
}

// IsAgentTurn asks the position whose turn it is
func (t *Tracker) IsAgentTurn() bool {
	if !t.active {
		return false
	}
	return t.rules.SideToMove() == t.side
}

// IsAgentTurnAfter decides by parity: an even-length list means white to move
func (t *Tracker) IsAgentTurnAfter(moves []string) bool {
	if !t.active {
		return false
	}
	whiteToMove := len(moves)%2 == 0
	return whiteToMove == (t.side == rules.White)
}

// Describe normalizes raw move text against the current position without changing it
func (t *Tracker) Describe(text string) (vote.Vote, error) {
	if !t.active {
		return vote.Vote{}, ErrNotActive
	}

	s := strings.TrimSpace(text)
	if strings.EqualFold(s, vote.ResignKey) {
		return vote.ResignVote(), nil
	}

	d, err := t.rules.Describe(s)
	if err != nil {
		return vote.Vote{}, fmt.Errorf("%w: %q", ErrNoLegalMove, text)
	}

	return vote.MoveVote(vote.Move{
		Notation:  d.SAN,
		From:      d.From,
		To:        d.To,
		Promotion: d.Promotion,
	}, false), nil
}

// IsLegal re-checks a normalized vote against the current position
func (t *Tracker) IsLegal(v vote.Vote) bool {
	if !t.active {
		return false
	}
	if v.IsResign() {
		return true
	}
	got, err := t.Describe(v.Move.Notation)
	return err == nil && got.Move == v.Move
}

// Commit plays the winning move for the agent
func (t *Tracker) Commit(v vote.Vote) error {
	if !t.active {
		return ErrNotActive
	}
	if v.IsResign() {
		return nil
	}
	if _, err := t.rules.ApplyMove(v.Move.Notation); err != nil {
		return fmt.Errorf("failed to commit %s: %w", v.Move.Notation, err)
	}
	t.moves = append(t.moves, v.Move.UCI())
	t.ply++
	return nil
}

// ArmAbortSafety (re)starts the abort timer while the game is still abortable
func (t *Tracker) ArmAbortSafety() bool {
	if !t.active || t.ply >= abortablePlies {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.abortTimer != nil {
		t.abortTimer.Stop()
	}
	t.abortToken++
	token := t.abortToken
	gameID := t.id
	t.abortTimer = time.AfterFunc(t.abortDelay, func() {
		t.post(func() { t.fireAbort(token, gameID) })
	})
	return true
}

func (t *Tracker) fireAbort(token uint64, gameID string) {
	t.mu.Lock()
	current := t.abortToken == token
	if current {
		t.abortTimer = nil
	}
	t.mu.Unlock()

	if !current || !t.active || t.id != gameID || t.ply >= abortablePlies {
		return
	}
	slog.Info("abort timer fired", "game_id", gameID, "ply", t.ply)
	if t.onAbort != nil {
		t.onAbort(gameID)
	}
}

// DisarmAbortSafety is best effort; a timer already firing is neutralised by the token
func (t *Tracker) DisarmAbortSafety() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.abortTimer != nil {
		t.abortTimer.Stop()
		t.abortTimer = nil
	}
	t.abortToken++
}

// AbortArmed reports whether an abort timer is pending
func (t *Tracker) AbortArmed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.abortTimer != nil
}

// End marks the game finished
func (t *Tracker) End() {
	t.DisarmAbortSafety()
	t.active = false
}

func (t *Tracker) Active() bool { return t.active }

func (t *Tracker) GameID() string { return t.id }

func (t *Tracker) Side() rules.Color { return t.side }

func (t *Tracker) Ply() int { return t.ply }

// IsTerminal is true when the position has no continuation
func (t *Tracker) IsTerminal() bool {
	return t.active && t.rules.IsTerminal()
}

// LegalMoves lists the moves a voter can pick from
func (t *Tracker) LegalMoves() []rules.Descriptor {
	if !t.active {
		return nil
	}
	return t.rules.LegalMoves()
}
