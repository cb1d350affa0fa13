// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for round to resolve")
	}
	return Outcome{}
}

func TestEngineLastVoteWins(t *testing.T) {
	e := NewEngine(Options{Rand: seeded(1)})
	done := make(chan Outcome, 1)
	e.Open(50*time.Millisecond, nil, func(out Outcome) { done <- out })

	e.Record("alice", mv("e4"))
	e.Record("alice", mv("d4"))
	e.Record("alice", mv("c4"))
	e.Record("bob", mv("Nf3"))
	e.Record("bob", mv("c4"))

	if v, ok := e.VoteOf("alice"); !ok || v.Key() != "c4" {
		t.Errorf("Expected alice's vote to be c4, got %+v", v)
	}
	if e.NumVotes() != 2 {
		t.Errorf("Expected 2 voters, got %d", e.NumVotes())
	}

	out := waitOutcome(t, done)
	if out.Winner.Key() != "c4" || out.WinnerVotes != 2 {
		t.Errorf("Expected c4 with 2 votes, got %s with %d", out.Winner.Key(), out.WinnerVotes)
	}
	if len(out.Results.Votes) != 1 {
		t.Errorf("Overwritten votes should not be counted: %+v", out.Results.Votes)
	}
	if e.IsOpen() {
		t.Error("Round should be closed after resolution")
	}
}

func TestEngineRecordWithoutRound(t *testing.T) {
	e := NewEngine(Options{})
	if err := e.Record("alice", mv("e4")); !errors.Is(err, ErrRoundClosed) {
		t.Errorf("Expected ErrRoundClosed, got %v", err)
	}
}

func TestEngineOnEngaged(t *testing.T) {
	var engaged atomic.Int32
	e := NewEngine(Options{OnEngaged: func() { engaged.Add(1) }})

	e.Record("alice", mv("e4"))
	if engaged.Load() != 0 {
		t.Error("Rejected vote should not count as engagement")
	}

	e.Open(time.Hour, nil, nil)
	defer e.Close()
	e.Record("alice", mv("e4"))
	if engaged.Load() != 1 {
		t.Errorf("Expected 1 engagement, got %d", engaged.Load())
	}
}

func TestEngineStaleTimerIsIgnored(t *testing.T) {
	e := NewEngine(Options{})
	var stale atomic.Int32
	done := make(chan Outcome, 2)

	first := e.Open(20*time.Millisecond, nil, func(Outcome) { stale.Add(1) })
	second := e.Open(60*time.Millisecond, nil, func(out Outcome) { done <- out })
	if second <= first {
		t.Fatalf("Expected increasing round tokens, got %d then %d", first, second)
	}
	e.Record("alice", mv("e4"))

	out := waitOutcome(t, done)
	if out.Round != second {
		t.Errorf("Expected outcome for round %d, got %d", second, out.Round)
	}
	if stale.Load() != 0 {
		t.Error("Replaced round should never resolve")
	}
}

func TestEngineCloseCancelsRound(t *testing.T) {
	e := NewEngine(Options{})
	var fired atomic.Int32
	e.Open(20*time.Millisecond, nil, func(Outcome) { fired.Add(1) })
	e.Record("alice", mv("e4"))
	e.Close()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("Closed round resolved anyway")
	}
	if len(e.Results().Votes) != 0 {
		t.Error("Closed round should have no results")
	}
}

func TestEngineLateFireAfterClose(t *testing.T) {
	var pending []func()
	var mu sync.Mutex
	post := func(fn func()) {
		mu.Lock()
		pending = append(pending, fn)
		mu.Unlock()
	}

	e := NewEngine(Options{Post: post})
	var fired atomic.Int32
	e.Open(10*time.Millisecond, nil, func(Outcome) { fired.Add(1) })
	time.Sleep(40 * time.Millisecond)

	// The timer has fired and is queued on the loop; a new round starts first
	e.Open(time.Hour, nil, nil)
	defer e.Close()

	mu.Lock()
	queued := pending
	mu.Unlock()
	if len(queued) != 1 {
		t.Fatalf("Expected 1 queued resolution, got %d", len(queued))
	}
	queued[0]()

	if fired.Load() != 0 {
		t.Error("Late timer resolved a newer round")
	}
	if !e.IsOpen() {
		t.Error("Newer round should still be open")
	}
}

func TestEngineTimeLeft(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	e := NewEngine(Options{Now: clock})

	if e.TimeLeft() != 0 {
		t.Error("Expected no time left without a round")
	}

	e.Open(time.Hour, nil, nil)
	defer e.Close()

	now = now.Add(20 * time.Minute)
	if got := e.TimeLeft(); got != 40*time.Minute {
		t.Errorf("Expected 40m left, got %v", got)
	}

	now = now.Add(2 * time.Hour)
	if got := e.TimeLeft(); got != 0 {
		t.Errorf("Expected time left to clamp at 0, got %v", got)
	}
}

func TestEngineResultsBetweenRounds(t *testing.T) {
	e := NewEngine(Options{Rand: seeded(3)})
	done := make(chan Outcome, 1)
	e.Open(30*time.Millisecond, nil, func(out Outcome) { done <- out })
	e.Record("alice", mv("e4"))
	e.Record("bob", mv("d4"))
	e.Record("carol", mv("e4"))

	live := e.Results()
	if len(live.Votes) != 2 || live.Votes[0].Key != "e4" {
		t.Fatalf("Unexpected live results: %+v", live.Votes)
	}

	waitOutcome(t, done)
	final := e.Results()
	if len(final.Votes) != 2 || !final.Votes[0].Winner {
		t.Errorf("Expected resolved results with winner marked, got %+v", final.Votes)
	}

	e.Open(time.Hour, nil, nil)
	defer e.Close()
	if len(e.Results().Votes) != 0 {
		t.Error("A new round should start with an empty tally")
	}
}

// TestEngineConcurrentRecords checks that many voters racing on one round
// each end up with exactly one counted vote
func TestEngineConcurrentRecords(t *testing.T) {
	e := NewEngine(Options{Rand: seeded(9)})
	done := make(chan Outcome, 1)
	e.Open(200*time.Millisecond, nil, func(out Outcome) { done <- out })

	numVoters := 50
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			identity := fmt.Sprintf("voter-%d", idx)
			// Every voter changes their mind; only the last vote may count
			e.Record(identity, mv("a3"))
			e.Record(identity, mv("h3"))
		}(i)
	}
	wg.Wait()

	out := waitOutcome(t, done)
	if out.Winner.Key() != "h3" || out.WinnerVotes != numVoters {
		t.Errorf("Expected h3 with %d votes, got %s with %d", numVoters, out.Winner.Key(), out.WinnerVotes)
	}
}
