// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielhkuo/votechess/challenge"
	"github.com/danielhkuo/votechess/lichess"
	"github.com/danielhkuo/votechess/metrics"
)

// minIncrement is the vote duration in whole seconds, rounded up
func (o *Orchestrator) minIncrement() int {
	return int((o.voteDuration + time.Second - 1) / time.Second)
}

func (o *Orchestrator) onChallenge(c lichess.Challenge) {
	log := slog.With("challenge_id", c.ID, "challenger", c.Challenger.ID)

	if reason := challenge.Reason(c, o.minIncrement()); reason != "" {
		log.Info("declining challenge", "reason", reason)
		o.metrics.Challenge(metrics.ChallengeDeclined)
		o.remoteCall("decline", func(ctx context.Context) error {
			return o.remote.DeclineChallenge(ctx, c.ID, reason)
		})
		return
	}

	if o.busy() {
		log.Info("queueing challenge", "state", o.state, "queued", o.queue.Len()+1)
		o.metrics.Challenge(metrics.ChallengeQueued)
		o.queue.Push(c)
		return
	}

	o.acceptNow(c)
}

// acceptNow accepts c off the loop. Until the game starts (or the accept
// fails or times out) further challenges are queued, so two games can
// never be accepted at once.
func (o *Orchestrator) acceptNow(c lichess.Challenge) {
	o.pendingAccept = true
	o.acceptToken++
	token := o.acceptToken

	o.wg.Add(1)
	ctx := o.ctx
	go func() {
		defer o.wg.Done()
		ok, err := o.acceptChallenge(ctx, c)
		o.post(func() { o.acceptFinished(token, ok, err) })
	}()
}

func (o *Orchestrator) acceptChallenge(ctx context.Context, c lichess.Challenge) (bool, error) {
	ok, err := o.remote.AcceptChallenge(ctx, c.ID)
	if err != nil || !ok {
		o.metrics.Challenge(metrics.ChallengeFailed)
		return false, err
	}
	o.metrics.Challenge(metrics.ChallengeAccepted)
	slog.Info("accepted challenge", "challenge_id", c.ID, "challenger", c.Challenger.ID)
	return true, nil
}

func (o *Orchestrator) acceptFinished(token uint64, ok bool, err error) {
	if token != o.acceptToken || !o.pendingAccept {
		return
	}
	if ok {
		// Hold the slot until gameStart arrives
		o.stopAcceptTimer()
		o.acceptTimer = time.AfterFunc(o.acceptTimeout, func() {
			o.post(func() { o.acceptExpired(token) })
		})
		return
	}

	if err != nil {
		slog.Warn("challenge acceptance failed", "error", err)
	}
	o.pendingAccept = false
	o.drainQueue()
}

func (o *Orchestrator) acceptExpired(token uint64) {
	if token != o.acceptToken || !o.pendingAccept || o.state != Idle {
		return
	}
	slog.Warn("accepted challenge never started a game")
	o.pendingAccept = false
	o.drainQueue()
}

func (o *Orchestrator) stopAcceptTimer() {
	if o.acceptTimer != nil {
		o.acceptTimer.Stop()
		o.acceptTimer = nil
	}
}

// scheduleDrain drains the queue after the debounce delay
func (o *Orchestrator) scheduleDrain() {
	o.stopDrainTimer()
	o.drainToken++
	token := o.drainToken
	o.drainTimer = time.AfterFunc(o.drainDelay, func() {
		o.post(func() {
			if token == o.drainToken {
				o.drainTimer = nil
				o.drainQueue()
			}
		})
	})
}

func (o *Orchestrator) stopDrainTimer() {
	if o.drainTimer != nil {
		o.drainTimer.Stop()
		o.drainTimer = nil
	}
	o.drainToken++
}

// drainQueue accepts the oldest queued challenge that still can be
func (o *Orchestrator) drainQueue() {
	if o.busy() || o.queue.Len() == 0 {
		return
	}

	o.pendingAccept = true
	o.acceptToken++
	token := o.acceptToken

	o.wg.Add(1)
	ctx := o.ctx
	go func() {
		defer o.wg.Done()
		_, ok := o.queue.Drain(ctx, o.acceptChallenge)
		o.post(func() { o.acceptFinished(token, ok, nil) })
	}()
}
