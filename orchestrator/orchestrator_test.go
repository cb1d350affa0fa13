// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package orchestrator

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/danielhkuo/votechess/game"
	"github.com/danielhkuo/votechess/lichess"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/moderation"
	"github.com/danielhkuo/votechess/store"
	"github.com/danielhkuo/votechess/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recListener records everything fanned out to the gateway
type recListener struct {
	mu      sync.Mutex
	timers  []int64
	results []models.VoteResults
	ended   int
}

func (l *recListener) VoteTimer(ms int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timers = append(l.timers, ms)
}

func (l *recListener) VoteResults(r models.VoteResults) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
}

func (l *recListener) GameEnded() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ended++
}

func (l *recListener) endedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ended
}

type harness struct {
	t        *testing.T
	o        *Orchestrator
	remote   *testutil.FakeRemote
	listener *recListener
}

func newHarness(t *testing.T, configure func(*Options)) *harness {
	t.Helper()

	h := &harness{
		t:        t,
		remote:   testutil.NewFakeRemote(),
		listener: &recListener{},
	}
	cfg := testutil.GetTestConfig()
	opts := Options{
		BotID:        cfg.BotID,
		VoteDuration: 200 * time.Millisecond,
		AbortDelay:   cfg.AbortDelay,
		DrainDelay:   cfg.DrainDelay,
		TickInterval: 20 * time.Millisecond,
		Rand:         rand.New(rand.NewPCG(cfg.TieBreakSeed, 2)),
		Remote:       h.remote,
		Listener:     h.listener,
	}
	if configure != nil {
		configure(&opts)
	}
	h.o = New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.o.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func gameFull(id, white, black, moves string) lichess.GameEvent {
	return lichess.GameEvent{
		Type:    lichess.EventGameFull,
		ID:      id,
		Variant: lichess.Variant{Key: "standard"},
		White:   lichess.User{ID: white},
		Black:   lichess.User{ID: black},
		State:   lichess.GameState{Type: lichess.EventGameState, Moves: moves, Status: lichess.StatusStarted},
	}
}

func gameState(moves, status string) lichess.GameEvent {
	return lichess.GameEvent{Type: lichess.EventGameState, Moves: moves, Status: status}
}

func chatLine(username, text string) lichess.GameEvent {
	return lichess.GameEvent{Type: lichess.EventChatLine, Username: username, Text: text, Room: lichess.RoomSpectator}
}

func casualChallenge(id string) lichess.Challenge {
	return lichess.Challenge{
		ID:          id,
		Challenger:  lichess.User{ID: "user-" + id},
		Variant:     lichess.Variant{Key: "standard"},
		TimeControl: lichess.TimeControl{Type: "clock", Limit: 300, Increment: 30},
	}
}

// start begins a game and feeds its gameFull
func (h *harness) start(id, white, black, moves string) {
	h.t.Helper()
	h.o.HandleEvent(lichess.Event{Type: lichess.EventGameStart, Game: &lichess.GameRef{ID: id}})
	h.remote.Push(id, gameFull(id, white, black, moves))
}

func (h *harness) waitState(want State) {
	h.t.Helper()
	testutil.WaitFor(h.t, "state "+want.String(), func() bool {
		s, err := h.o.CurrentState(context.Background())
		return err == nil && s == want
	})
}

func (h *harness) waitCalls(op string, n int) []testutil.Call {
	h.t.Helper()
	testutil.WaitFor(h.t, op+" calls", func() bool { return len(h.remote.Calls(op)) >= n })
	return h.remote.Calls(op)
}

func (h *harness) vote(identity, text string, draw bool) (models.VoteResults, error) {
	return h.o.SubmitVote(context.Background(), identity, Submission{Text: text, Draw: draw})
}

func countChats(h *harness, text string) int {
	n := 0
	for _, c := range h.remote.Chats(lichess.RoomSpectator) {
		if c == text {
			n++
		}
	}
	return n
}

func TestCrowdMoveSubmitted(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	if _, err := h.vote("conn:a", "e4", false); err != nil {
		t.Fatal(err)
	}
	res, err := h.vote("conn:b", "e2e4", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Votes) != 1 || res.Votes[0].NumVotes != 2 || res.Votes[0].Move.SAN != "e4" {
		t.Errorf("Both notations should count as one move: %+v", res.Votes)
	}

	moves := h.waitCalls("move", 1)
	if moves[0].ID != "g1" || moves[0].Arg != "e2e4" || moves[0].Draw {
		t.Errorf("Unexpected move submission: %+v", moves[0])
	}
	h.waitState(AwaitingOpponent)

	testutil.WaitFor(t, "winner announcement", func() bool {
		return countChats(h, "e4 won with 2 votes.") == 1
	})
	if countChats(h, msgInstructions) != 1 {
		t.Error("Expected voting instructions in spectator chat")
	}
	if !slices.Contains(h.remote.Chats(lichess.RoomPlayer), msgGreeting) {
		t.Error("Expected a greeting in player chat")
	}

	// Opponent replies, a new round opens
	h.remote.Push("g1", gameState("e2e4 e7e5", lichess.StatusStarted))
	h.waitState(Voting)
}

func TestSubmitVoteRejections(t *testing.T) {
	h := newHarness(t, nil)

	if _, err := h.vote("conn:a", "e4", false); !errors.Is(err, ErrVotingClosed) {
		t.Errorf("Expected ErrVotingClosed with no game, got %v", err)
	}

	// Agent is black, white to move
	h.start("g1", "alice", "votechess", "")
	h.waitState(AwaitingOpponent)
	if _, err := h.vote("conn:a", "e5", false); !errors.Is(err, ErrVotingClosed) {
		t.Errorf("Expected ErrVotingClosed on the opponent's turn, got %v", err)
	}

	h.remote.Push("g1", gameState("e2e4", lichess.StatusStarted))
	h.waitState(Voting)

	for _, text := range []string{"e4", "Ke2", "banana", ""} {
		if _, err := h.vote("conn:a", text, false); !errors.Is(err, game.ErrNoLegalMove) {
			t.Errorf("Expected ErrNoLegalMove for %q, got %v", text, err)
		}
	}

	res, err := h.vote("conn:a", "e5", false)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range res.Votes {
		if row.Move != nil && row.Move.SAN != "e5" {
			t.Errorf("Rejected vote leaked into the tally: %+v", row)
		}
	}
}

func TestLastVoteWins(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.vote("conn:a", "e4", false)
	h.vote("conn:a", "d4", false)
	h.vote("conn:b", "Nf3", false)
	h.vote("conn:c", "d4", false)

	moves := h.waitCalls("move", 1)
	if moves[0].Arg != "d2d4" {
		t.Errorf("Expected d2d4 (a's last vote plus c), got %s", moves[0].Arg)
	}
}

func TestEmptyRoundNoticeOnce(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.VoteDuration = 15 * time.Millisecond })
	h.start("g1", "votechess", "alice", "")

	testutil.WaitFor(t, "several empty rounds", func() bool {
		st, err := h.o.Status(context.Background())
		return err == nil && st.Round >= 6
	})
	testutil.WaitFor(t, "no-votes notice", func() bool { return countChats(h, msgNoVotes) >= 1 })

	if n := countChats(h, msgNoVotes); n != 1 {
		t.Errorf("Expected the notice once across empty rounds, got %d", n)
	}
	if len(h.remote.Calls("move")) != 0 {
		t.Error("Empty rounds must not submit a move")
	}

	// A vote ends the empty stretch
	testutil.WaitFor(t, "vote accepted", func() bool {
		_, err := h.vote("conn:a", "e4", false)
		return err == nil
	})
	h.waitCalls("move", 1)

	// The next stretch of empty rounds gets its own single notice
	h.remote.Push("g1", gameState("e2e4 e7e5", lichess.StatusStarted))
	testutil.WaitFor(t, "second notice", func() bool { return countChats(h, msgNoVotes) >= 2 })
	time.Sleep(50 * time.Millisecond)
	if n := countChats(h, msgNoVotes); n != 2 {
		t.Errorf("Expected exactly 2 notices, got %d", n)
	}
}

func TestDrawOfferAttached(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.vote("conn:a", "e4", false)
	h.vote("conn:b", "e4", true)
	h.vote("conn:c", "Nf3", true)

	moves := h.waitCalls("move", 1)
	if moves[0].Arg != "e2e4" || !moves[0].Draw {
		t.Errorf("Expected e2e4 with a draw offer, got %+v", moves[0])
	}
}

func TestResignation(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	for _, id := range []string{"conn:a", "conn:b", "conn:c"} {
		if _, err := h.o.SubmitVote(context.Background(), id, Submission{Resign: true}); err != nil {
			t.Fatal(err)
		}
	}
	h.vote("conn:d", "e4", false)

	resigns := h.waitCalls("resign", 1)
	if resigns[0].ID != "g1" {
		t.Errorf("Unexpected resign call: %+v", resigns[0])
	}
	if len(h.remote.Calls("move")) != 0 {
		t.Error("No move should be played after resigning")
	}
	testutil.WaitFor(t, "resign announcement", func() bool {
		return countChats(h, "Resignation won with 3 votes.") == 1
	})
}

func TestResumeGameInProgress(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "e2e4 e7e5")
	h.waitState(Voting)

	st, err := h.o.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.GameID != "g1" || st.Side != "white" || st.Ply != 2 {
		t.Errorf("Unexpected state after resume: %+v", st)
	}
}

func TestAbortWhenNobodyMoves(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AbortDelay = 30 * time.Millisecond })

	// Agent is black and white never moves
	h.start("g1", "alice", "votechess", "")

	aborts := h.waitCalls("abort", 1)
	if aborts[0].ID != "g1" {
		t.Errorf("Unexpected abort: %+v", aborts[0])
	}
}

func TestAbortDisarmedByVote(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.AbortDelay = 100 * time.Millisecond
		o.VoteDuration = 300 * time.Millisecond
	})
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	if _, err := h.vote("conn:a", "e4", false); err != nil {
		t.Fatal(err)
	}
	h.waitCalls("move", 1)

	// The vote landed before the abort delay, so no abort went out
	if n := len(h.remote.Calls("abort")); n != 0 {
		t.Errorf("Expected no abort after the crowd voted, got %d", n)
	}
}

func TestAbortRearmedAfterCrowdMove(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.AbortDelay = 100 * time.Millisecond
		o.VoteDuration = 50 * time.Millisecond
	})
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	if _, err := h.vote("conn:a", "e4", false); err != nil {
		t.Fatal(err)
	}
	h.waitCalls("move", 1)
	h.waitState(AwaitingOpponent)

	// One ply played and the opponent never answers: still abortable
	aborts := h.waitCalls("abort", 1)
	if aborts[0].ID != "g1" {
		t.Errorf("Unexpected abort: %+v", aborts[0])
	}
}

func TestGameEnd(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	records := store.New(conn)
	h := newHarness(t, func(o *Options) { o.Recorder = records })

	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.remote.Push("g1", gameState("", "aborted"))
	h.waitState(Idle)

	if h.listener.endedCount() != 1 {
		t.Errorf("Expected one game-ended broadcast, got %d", h.listener.endedCount())
	}
	if _, err := h.vote("conn:a", "e4", false); !errors.Is(err, ErrVotingClosed) {
		t.Errorf("Expected voting closed after the game, got %v", err)
	}
	testutil.WaitFor(t, "good game", func() bool {
		return slices.Contains(h.remote.Chats(lichess.RoomPlayer), msgGoodGame)
	})

	testutil.WaitFor(t, "game record", func() bool {
		rec, err := records.Game(context.Background(), "g1")
		return err == nil && rec.Status == "aborted"
	})
	rec, _ := records.Game(context.Background(), "g1")
	if rec.Opponent != "alice" || rec.Color != "white" || rec.EndedAt == nil {
		t.Errorf("Unexpected record: %+v", rec)
	}

	// The stream closing afterwards does not end anything twice
	h.remote.EndStream("g1")
	time.Sleep(20 * time.Millisecond)
	if h.listener.endedCount() != 1 {
		t.Errorf("Game ended twice: %d", h.listener.endedCount())
	}
}

func TestStreamClosedEndsGame(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.remote.EndStream("g1")
	h.waitState(Idle)
}

func TestChallengeHandling(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Remote.(*testutil.FakeRemote).Accept = func(id string) (bool, error) {
			switch id {
			case "gone":
				return false, nil
			case "failing":
				return false, errors.New("challenge canceled")
			}
			return true, nil
		}
	})
	ctx := context.Background()

	rated := casualChallenge("rated")
	rated.Rated = true
	h.o.HandleEvent(lichess.Event{Type: lichess.EventChallenge, Challenge: &rated})
	declines := h.waitCalls("decline", 1)
	if declines[0].ID != "rated" || declines[0].Reason != lichess.DeclineCasual {
		t.Errorf("Unexpected decline: %+v", declines[0])
	}

	// Idle: accepted straight away
	first := casualChallenge("first")
	h.o.HandleEvent(lichess.Event{Type: lichess.EventChallenge, Challenge: &first})
	h.waitCalls("accept", 1)

	h.start("g1", "votechess", "user-first", "")
	h.waitState(Voting)

	// During the game: queued, not accepted
	for _, id := range []string{"gone", "failing", "good", "later"} {
		c := casualChallenge(id)
		h.o.HandleEvent(lichess.Event{Type: lichess.EventChallenge, Challenge: &c})
	}
	st, err := h.o.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.QueuedChallenges, []string{"gone", "failing", "good", "later"}) {
		t.Errorf("Unexpected queue: %v", st.QueuedChallenges)
	}
	if n := len(h.remote.Calls("accept")); n != 1 {
		t.Errorf("Challenges during a game must not be accepted, got %d accepts", n)
	}

	// Game over: FIFO drain stops at the first acceptance
	h.remote.Push("g1", gameState("", "mate"))
	h.waitState(Idle)
	accepts := h.waitCalls("accept", 4)

	var ids []string
	for _, c := range accepts {
		ids = append(ids, c.ID)
	}
	if !reflect.DeepEqual(ids, []string{"first", "gone", "failing", "good"}) {
		t.Errorf("Unexpected acceptance order: %v", ids)
	}

	st, _ = h.o.Status(ctx)
	if !reflect.DeepEqual(st.QueuedChallenges, []string{"later"}) {
		t.Errorf("Expected later to stay queued, got %v", st.QueuedChallenges)
	}

	// While the accepted game has not started yet, new challenges wait too
	next := casualChallenge("next")
	h.o.HandleEvent(lichess.Event{Type: lichess.EventChallenge, Challenge: &next})
	st, _ = h.o.Status(ctx)
	if !slices.Contains(st.QueuedChallenges, "next") {
		t.Errorf("Expected next to be queued while an acceptance is pending, got %v", st.QueuedChallenges)
	}
}

func TestChallengeCanceledLeavesQueue(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	c := casualChallenge("c1")
	h.o.HandleEvent(lichess.Event{Type: lichess.EventChallenge, Challenge: &c})
	h.o.HandleEvent(lichess.Event{Type: lichess.EventChallengeCanceled, Challenge: &c})

	st, err := h.o.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(st.QueuedChallenges) != 0 {
		t.Errorf("Canceled challenge still queued: %v", st.QueuedChallenges)
	}
}

func TestChatVotesWithoutModerator(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.remote.Push("g1", chatLine("carol", "/Nf3"))
	h.remote.Push("g1", chatLine("dave", "just chatting"))

	moves := h.waitCalls("move", 1)
	if moves[0].Arg != "g1f3" {
		t.Errorf("Expected the chat vote to win, got %s", moves[0].Arg)
	}
}

func TestChatModeration(t *testing.T) {
	list := moderation.New(testutil.SetupTestDB(t))
	if err := list.Seed(context.Background(), []string{"owner"}); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, func(o *Options) {
		o.Moderator = list
		o.VoteDuration = 400 * time.Millisecond
	})
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.remote.Push("g1", chatLine("owner", "/ban troll"))
	testutil.WaitFor(t, "ban reply", func() bool { return countChats(h, "Banned troll.") == 1 })

	h.remote.Push("g1", chatLine("troll", "/e4"))
	h.remote.Push("g1", chatLine("Troll", "/e4"))
	h.remote.Push("g1", chatLine("carol", "/d4"))

	moves := h.waitCalls("move", 1)
	if moves[0].Arg != "d2d4" {
		t.Errorf("Banned votes were counted: got %s", moves[0].Arg)
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.VoteDuration = 500 * time.Millisecond })
	ctx := context.Background()

	snap, err := h.o.Snapshot(ctx, "conn:a")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Playing || snap.State != models.StateNotPlaying {
		t.Errorf("Unexpected idle snapshot: %+v", snap)
	}

	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	snap, _ = h.o.Snapshot(ctx, "conn:a")
	if !snap.Playing || snap.State != models.StateVoting || snap.Clock <= 0 || snap.Vote != nil {
		t.Errorf("Unexpected voting snapshot: %+v", snap)
	}

	h.vote("conn:a", "e4", true)
	snap, _ = h.o.Snapshot(ctx, "conn:a")
	if snap.State != models.StateVoteSubmitted || snap.Vote == nil || snap.Vote.Move.SAN != "e4" || !snap.Vote.Draw {
		t.Errorf("Unexpected snapshot after voting: %+v", snap)
	}
	if len(snap.VoteResults.Votes) != 1 || snap.VoteResults.DrawResults.Number != 1 {
		t.Errorf("Unexpected results in snapshot: %+v", snap.VoteResults)
	}

	// Another connection has not voted
	other, _ := h.o.Snapshot(ctx, "conn:b")
	if other.State != models.StateVoting {
		t.Errorf("Expected voting state for a fresh connection, got %s", other.State)
	}
}

func TestVoteTimerTicks(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	testutil.WaitFor(t, "timer ticks", func() bool {
		h.listener.mu.Lock()
		defer h.listener.mu.Unlock()
		return len(h.listener.timers) >= 3
	})

	h.listener.mu.Lock()
	defer h.listener.mu.Unlock()
	if h.listener.timers[0] != 200 {
		t.Errorf("Expected the first timer to carry the full round, got %d", h.listener.timers[0])
	}
	for _, ms := range h.listener.timers {
		if ms < 0 || ms > 200 {
			t.Errorf("Timer out of range: %d", ms)
		}
	}
}

func TestTieAnnounced(t *testing.T) {
	h := newHarness(t, nil)
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.vote("conn:a", "e4", false)
	h.vote("conn:b", "d4", false)

	moves := h.waitCalls("move", 1)
	if moves[0].Arg != "e2e4" && moves[0].Arg != "d2d4" {
		t.Errorf("Tie must resolve to a tied move, got %s", moves[0].Arg)
	}
	testutil.WaitFor(t, "tie announcement", func() bool {
		for _, c := range h.remote.Chats(lichess.RoomSpectator) {
			if strings.HasPrefix(c, "The following moves tied with 1 votes: ") {
				return true
			}
		}
		return false
	})
}

func TestRemoteFailureKeepsLocalState(t *testing.T) {
	h := newHarness(t, nil)
	h.remote.FailOps = map[string]bool{"move": true}
	h.start("g1", "votechess", "alice", "")
	h.waitState(Voting)

	h.vote("conn:a", "e4", false)
	h.waitCalls("move", 1)
	h.waitState(AwaitingOpponent)

	st, _ := h.o.Status(context.Background())
	if st.Ply != 1 {
		t.Errorf("Committed move should stand after a failed submission, ply=%d", st.Ply)
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(h.remote.Calls("move")); n != 1 {
		t.Errorf("Failed submissions must not be retried, got %d", n)
	}
}
