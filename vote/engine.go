// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

var ErrRoundClosed = errors.New("no voting round is open")

// Options configures an Engine
type Options struct {
	// Rand breaks ties. Seed it in tests to force outcomes.
	Rand *rand.Rand
	// Post runs fn on the owner's event loop. Nil runs fn on the timer goroutine.
	Post func(fn func())
	// OnEngaged is called after every recorded vote
	OnEngaged func()
	// Now defaults to time.Now
	Now func() time.Time
}

// Engine owns a single voting round at a time.
// Each round gets a new token; a timer belonging to an older round does nothing.
type Engine struct {
	mu        sync.Mutex
	rng       *rand.Rand
	post      func(func())
	onEngaged func()
	now       func() time.Time

	token     uint64
	open      bool
	startedAt time.Time
	duration  time.Duration
	votes     map[string]Vote
	timer     *time.Timer
	last      Results
}

func NewEngine(opts Options) *Engine {
	e := &Engine{
		rng:       opts.Rand,
		post:      opts.Post,
		onEngaged: opts.OnEngaged,
		now:       opts.Now,
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if e.post == nil {
		e.post = func(fn func()) { fn() }
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Open starts a new round, discarding any previous one.
// When the duration elapses the votes are tallied against legal and done receives the outcome.
// legal must not call back into the engine.
func (e *Engine) Open(d time.Duration, legal func(Vote) bool, done func(Outcome)) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
	}
	e.token++
	token := e.token
	e.open = true
	e.votes = make(map[string]Vote)
	e.last = Results{}
	e.startedAt = e.now()
	e.duration = d
	e.timer = time.AfterFunc(d, func() {
		e.post(func() { e.resolve(token, legal, done) })
	})
	return token
}

func (e *Engine) resolve(token uint64, legal func(Vote) bool, done func(Outcome)) {
	e.mu.Lock()
	if !e.open || e.token != token {
		e.mu.Unlock()
		return
	}
	out := Tally(e.votes, legal, e.rng)
	out.Round = token
	e.open = false
	e.votes = nil
	e.timer = nil
	e.last = out.Results
	e.mu.Unlock()

	if done != nil {
		done(out)
	}
}

// Record stores identity's vote for the open round, replacing any earlier one
func (e *Engine) Record(identity string, v Vote) error {
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return ErrRoundClosed
	}
	e.votes[identity] = v
	e.mu.Unlock()

	if e.onEngaged != nil {
		e.onEngaged()
	}
	return nil
}

// Close cancels the open round without resolving it
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.token++
	e.open = false
	e.votes = nil
	e.last = Results{}
}

// TimeLeft is for display only; resolution is driven by the round timer
func (e *Engine) TimeLeft() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return 0
	}
	left := e.duration - e.now().Sub(e.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (e *Engine) IsOpen() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

// Token returns the current round token
func (e *Engine) Token() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.token
}

// Results returns the live tally, or the last resolved one between rounds.
// Legality is only re-checked at resolution.
func (e *Engine) Results() Results {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.open {
		return e.last
	}
	votes := make([]Vote, 0, len(e.votes))
	for _, v := range e.votes {
		votes = append(votes, v)
	}
	return buildResults(votes)
}

// VoteOf returns identity's vote in the open round
func (e *Engine) VoteOf(identity string) (Vote, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.votes[identity]
	return v, ok
}

// NumVotes is the number of identities that voted in the open round
func (e *Engine) NumVotes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.votes)
}
