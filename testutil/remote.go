// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/danielhkuo/votechess/lichess"
)

var ErrRemote = errors.New("remote call failed")

// Call is one request made to the fake server
type Call struct {
	Op     string
	ID     string
	Arg    string
	Draw   bool
	Room   string
	Reason string
}

// FakeRemote stands in for the lichess client. Game streams are fed
// with Push and closed with EndStream.
type FakeRemote struct {
	mu      sync.Mutex
	calls   []Call
	streams map[string]chan lichess.GameEvent

	// Accept decides each acceptance; nil accepts everything
	Accept func(challengeID string) (bool, error)
	// FailOps makes the named operations return ErrRemote
	FailOps map[string]bool
}

func NewFakeRemote() *FakeRemote {
	return &FakeRemote{streams: map[string]chan lichess.GameEvent{}}
}

func (f *FakeRemote) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.FailOps[c.Op] {
		return ErrRemote
	}
	return nil
}

func (f *FakeRemote) stream(gameID string) chan lichess.GameEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.streams[gameID]
	if !ok {
		ch = make(chan lichess.GameEvent, 64)
		f.streams[gameID] = ch
	}
	return ch
}

// Push delivers ev on gameID's stream
func (f *FakeRemote) Push(gameID string, ev lichess.GameEvent) {
	f.stream(gameID) <- ev
}

// EndStream closes gameID's stream as the server does when a game is over
func (f *FakeRemote) EndStream(gameID string) {
	close(f.stream(gameID))
}

func (f *FakeRemote) StreamGame(ctx context.Context, gameID string, fn func(lichess.GameEvent)) error {
	f.record(Call{Op: "stream", ID: gameID})
	ch := f.stream(gameID)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			fn(ev)
		}
	}
}

func (f *FakeRemote) AcceptChallenge(ctx context.Context, challengeID string) (bool, error) {
	if err := f.record(Call{Op: "accept", ID: challengeID}); err != nil {
		return false, err
	}
	if f.Accept == nil {
		return true, nil
	}
	return f.Accept(challengeID)
}

func (f *FakeRemote) DeclineChallenge(ctx context.Context, challengeID, reason string) error {
	return f.record(Call{Op: "decline", ID: challengeID, Reason: reason})
}

func (f *FakeRemote) SendChat(ctx context.Context, gameID, room, text string) error {
	return f.record(Call{Op: "chat", ID: gameID, Room: room, Arg: text})
}

func (f *FakeRemote) MakeMove(ctx context.Context, gameID, uci string, offerDraw bool) error {
	return f.record(Call{Op: "move", ID: gameID, Arg: uci, Draw: offerDraw})
}

func (f *FakeRemote) Resign(ctx context.Context, gameID string) error {
	return f.record(Call{Op: "resign", ID: gameID})
}

func (f *FakeRemote) Abort(ctx context.Context, gameID string) error {
	return f.record(Call{Op: "abort", ID: gameID})
}

// Calls returns the calls made so far with the given op, or all when op is empty
func (f *FakeRemote) Calls(op string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Chats returns the text of every chat sent to room
func (f *FakeRemote) Chats(room string) []string {
	var out []string
	for _, c := range f.Calls("chat") {
		if c.Room == room {
			out = append(out, c.Arg)
		}
	}
	return out
}
