// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/danielhkuo/votechess/challenge"
	"github.com/danielhkuo/votechess/game"
	"github.com/danielhkuo/votechess/lichess"
	"github.com/danielhkuo/votechess/metrics"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/moderation"
	"github.com/danielhkuo/votechess/vote"
)

var (
	ErrVotingClosed = errors.New("voting is closed")
	ErrStopped      = errors.New("orchestrator stopped")
)

// Defaults
const (
	DefaultVoteDuration  = 30 * time.Second
	DefaultDrainDelay    = time.Second
	DefaultTickInterval  = time.Second
	DefaultAcceptTimeout = 30 * time.Second
	inboxSize            = 256
)

// Remote is the game server
type Remote interface {
	StreamGame(ctx context.Context, gameID string, fn func(lichess.GameEvent)) error
	AcceptChallenge(ctx context.Context, challengeID string) (bool, error)
	DeclineChallenge(ctx context.Context, challengeID, reason string) error
	SendChat(ctx context.Context, gameID, room, text string) error
	MakeMove(ctx context.Context, gameID, uci string, offerDraw bool) error
	Resign(ctx context.Context, gameID string) error
	Abort(ctx context.Context, gameID string) error
}

// Listener receives what the gateway fans out. Calls are made from the
// event loop and must not block.
type Listener interface {
	VoteTimer(ms int64)
	VoteResults(models.VoteResults)
	GameEnded()
}

// Recorder keeps a record of played games
type Recorder interface {
	StartGame(ctx context.Context, rec models.GameRecord) error
	FinishGame(ctx context.Context, gameID, status string, winner *string, plies int, endedAt time.Time) error
}

// Moderator screens spectator chat before it becomes a vote
type Moderator interface {
	HandleChat(ctx context.Context, username, text string) moderation.Action
}

// State is where the orchestrator is in the game lifecycle
type State int

const (
	Idle State = iota
	AwaitingOpponent
	Voting
	MoveCommitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingOpponent:
		return "awaiting-opponent"
	case Voting:
		return "voting"
	case MoveCommitted:
		return "move-committed"
	}
	return "unknown"
}

// Options configures an Orchestrator. Remote is required.
type Options struct {
	BotID         string
	VoteDuration  time.Duration
	AbortDelay    time.Duration
	DrainDelay    time.Duration
	TickInterval  time.Duration
	AcceptTimeout time.Duration
	Rand          *rand.Rand

	Remote    Remote
	Listener  Listener
	Recorder  Recorder
	Moderator Moderator
	Metrics   *metrics.Metrics
}

// Submission is raw vote input from any channel
type Submission struct {
	Text   string // SAN or coordinates
	Draw   bool
	Resign bool
}

// Orchestrator owns the tracker, the vote engine, and the challenge queue.
// Everything that mutates them runs on the loop started by Run.
type Orchestrator struct {
	botID         string
	voteDuration  time.Duration
	drainDelay    time.Duration
	tickInterval  time.Duration
	acceptTimeout time.Duration

	remote    Remote
	listener  Listener
	recorder  Recorder
	moderator Moderator
	metrics   *metrics.Metrics

	inbox chan func()
	done  chan struct{}
	ctx   context.Context
	wg    sync.WaitGroup

	tracker *game.Tracker
	engine  *vote.Engine
	queue   *challenge.Queue

	// loop-owned
	state           State
	gameToken       uint64
	gameID          string
	record          models.GameRecord
	recordStarted   chan struct{}
	cancelStream    context.CancelFunc
	pendingAccept   bool
	acceptToken     uint64
	acceptTimer     *time.Timer
	drainToken      uint64
	drainTimer      *time.Timer
	waitingForVotes bool
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		botID:         strings.ToLower(opts.BotID),
		voteDuration:  opts.VoteDuration,
		drainDelay:    opts.DrainDelay,
		tickInterval:  opts.TickInterval,
		acceptTimeout: opts.AcceptTimeout,
		remote:        opts.Remote,
		listener:      opts.Listener,
		recorder:      opts.Recorder,
		moderator:     opts.Moderator,
		metrics:       opts.Metrics,
		inbox:         make(chan func(), inboxSize),
		done:          make(chan struct{}),
		ctx:           context.Background(),
		queue:         challenge.NewQueue(),
	}
	if o.voteDuration <= 0 {
		o.voteDuration = DefaultVoteDuration
	}
	if o.drainDelay <= 0 {
		o.drainDelay = DefaultDrainDelay
	}
	if o.tickInterval <= 0 {
		o.tickInterval = DefaultTickInterval
	}
	if o.acceptTimeout <= 0 {
		o.acceptTimeout = DefaultAcceptTimeout
	}
	if o.listener == nil {
		o.listener = nopListener{}
	}
	if o.metrics == nil {
		o.metrics = metrics.NewUnregistered()
	}

	o.tracker = game.NewTracker(game.Options{
		AbortDelay: opts.AbortDelay,
		OnAbort:    o.onAbort,
		Post:       o.post,
	})
	o.engine = vote.NewEngine(vote.Options{
		Rand:      opts.Rand,
		Post:      o.post,
		OnEngaged: o.tracker.DisarmAbortSafety,
	})
	return o
}

// SetListener replaces the listener given in Options. Call it before Run.
func (o *Orchestrator) SetListener(l Listener) {
	if l == nil {
		l = nopListener{}
	}
	o.listener = l
}

// Run processes events until ctx is done. It must be called once.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx = ctx

	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()
	defer o.shutdown()

	slog.Info("orchestrator running", "bot_id", o.botID, "vote_duration", o.voteDuration)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-o.inbox:
			fn()
		case <-ticker.C:
			o.tick()
		}
	}
}

func (o *Orchestrator) shutdown() {
	close(o.done)
	o.engine.Close()
	o.tracker.End()
	if o.cancelStream != nil {
		o.cancelStream()
	}
	o.stopDrainTimer()
	o.stopAcceptTimer()
	o.wg.Wait()
	slog.Info("orchestrator stopped")
}

// post queues fn for the loop. After the loop stops fn is dropped.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.inbox <- fn:
	case <-o.done:
	}
}

// call runs fn on the loop and waits for it
func (o *Orchestrator) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	o.post(func() {
		fn()
		close(finished)
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrStopped
	}
}

// remoteCall runs a server request off the loop. Failures are logged and
// counted; nothing is retried and local state is left as it is.
func (o *Orchestrator) remoteCall(op string, fn func(ctx context.Context) error) {
	o.wg.Add(1)
	ctx := o.ctx
	go func() {
		defer o.wg.Done()
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			slog.Error("remote call failed", "op", op, "error", err)
			o.metrics.RemoteError(op)
		}
	}()
}

func (o *Orchestrator) chat(gameID, room, text string) {
	o.remoteCall("chat", func(ctx context.Context) error {
		return o.remote.SendChat(ctx, gameID, room, text)
	})
}

func (o *Orchestrator) tick() {
	if o.state == Voting {
		o.listener.VoteTimer(o.engine.TimeLeft().Milliseconds())
	}
}

// HandleEvent feeds one account event into the loop. Safe to call from any goroutine.
func (o *Orchestrator) HandleEvent(ev lichess.Event) {
	o.post(func() { o.onEvent(ev) })
}

func (o *Orchestrator) onEvent(ev lichess.Event) {
	switch ev.Type {
	case lichess.EventChallenge:
		if ev.Challenge != nil {
			o.onChallenge(*ev.Challenge)
		}
	case lichess.EventChallengeCanceled:
		if ev.Challenge != nil && o.queue.Remove(ev.Challenge.ID) {
			slog.Info("queued challenge canceled", "challenge_id", ev.Challenge.ID)
			o.metrics.Challenge(metrics.ChallengeCanceled)
		}
	case lichess.EventGameStart:
		if ev.Game != nil {
			o.startGame(*ev.Game)
		}
	case lichess.EventGameFinish:
		if ev.Game != nil && ev.Game.Key() == o.gameID {
			o.endGame(o.gameToken, lichess.GameState{})
		}
	default:
		slog.Debug("ignoring event", "type", ev.Type)
	}
}

func (o *Orchestrator) busy() bool {
	return o.state != Idle || o.pendingAccept
}
