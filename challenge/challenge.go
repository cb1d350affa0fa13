// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package challenge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/danielhkuo/votechess/lichess"
	"github.com/danielhkuo/votechess/rules"
)

// MinLimitSeconds is the shortest initial clock accepted
const MinLimitSeconds = 60

// clockTimeControl is the only time control type voting can keep up with
const clockTimeControl = "clock"

// Reason returns why a challenge cannot be played, as a lichess decline
// reason. An empty string means it is eligible. minIncrement is the
// vote duration in seconds: every move must earn back at least that much.
func Reason(c lichess.Challenge, minIncrement int) string {
	switch {
	case c.Rated:
		return lichess.DeclineCasual
	case !rules.SupportsVariant(c.Variant.Key):
		return lichess.DeclineVariant
	case c.TimeControl.Type != clockTimeControl:
		return lichess.DeclineTimeControl
	case c.TimeControl.Increment < minIncrement:
		return lichess.DeclineTimeControl
	case c.TimeControl.Limit < MinLimitSeconds:
		return lichess.DeclineTimeControl
	}
	return ""
}

// Eligible reports whether the crowd can play c
func Eligible(c lichess.Challenge, minIncrement int) bool {
	return Reason(c, minIncrement) == ""
}

// AcceptFunc tries to accept a challenge on the server
type AcceptFunc func(ctx context.Context, c lichess.Challenge) (bool, error)

// Queue holds eligible challenges that arrived while a game was in progress
type Queue struct {
	mu      sync.Mutex
	pending []lichess.Challenge
}

func NewQueue() *Queue {
	return &Queue{}
}

// Push appends c; a challenge already queued is not added twice
func (q *Queue) Push(c lichess.Challenge) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range q.pending {
		if p.ID == c.ID {
			return
		}
	}
	q.pending = append(q.pending, c)
}

// Remove drops a challenge the challenger withdrew
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, p := range q.pending {
		if p.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IDs lists queued challenge ids, oldest first
func (q *Queue) IDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]string, len(q.pending))
	for i, p := range q.pending {
		ids[i] = p.ID
	}
	return ids
}

func (q *Queue) pop() (lichess.Challenge, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return lichess.Challenge{}, false
	}
	c := q.pending[0]
	q.pending = q.pending[1:]
	return c, true
}

// Drain tries queued challenges oldest first and stops at the first one
// the server accepts. Failed acceptances are dropped; the challenger has
// usually gone away. The lock is not held while accept runs.
func (q *Queue) Drain(ctx context.Context, accept AcceptFunc) (lichess.Challenge, bool) {
	for {
		if ctx.Err() != nil {
			return lichess.Challenge{}, false
		}
		c, ok := q.pop()
		if !ok {
			return lichess.Challenge{}, false
		}

		accepted, err := accept(ctx, c)
		if err != nil {
			slog.Warn("queued challenge could not be accepted",
				"challenge_id", c.ID, "challenger", c.Challenger.ID, "error", err)
			continue
		}
		if accepted {
			slog.Info("accepted queued challenge", "challenge_id", c.ID, "challenger", c.Challenger.ID)
			return c, true
		}
	}
}
