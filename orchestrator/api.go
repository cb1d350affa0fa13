// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package orchestrator

import (
	"context"
	"fmt"

	"github.com/danielhkuo/votechess/metrics"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/vote"
)

// SubmitVote validates a submission against the live position and records
// it for identity, replacing that identity's earlier vote. It returns the
// updated tally, ErrVotingClosed outside a round, or an error wrapping
// game.ErrNoLegalMove for text that is not a legal move.
func (o *Orchestrator) SubmitVote(ctx context.Context, identity string, sub Submission) (models.VoteResults, error) {
	var res models.VoteResults
	var err error
	if cerr := o.call(ctx, func() { res, err = o.submit(identity, sub) }); cerr != nil {
		return models.VoteResults{}, cerr
	}
	return res, err
}

func (o *Orchestrator) submit(identity string, sub Submission) (models.VoteResults, error) {
	if o.state != Voting || !o.engine.IsOpen() {
		o.metrics.Vote(metrics.VoteClosed)
		return models.VoteResults{}, ErrVotingClosed
	}

	var v vote.Vote
	if sub.Resign {
		v = vote.ResignVote()
	} else {
		var err error
		v, err = o.tracker.Describe(sub.Text)
		if err != nil {
			o.metrics.Vote(metrics.VoteIllegal)
			return models.VoteResults{}, fmt.Errorf("vote %q rejected: %w", sub.Text, err)
		}
		if !v.IsResign() {
			v.Draw = sub.Draw
		}
	}

	if err := o.engine.Record(identity, v); err != nil {
		o.metrics.Vote(metrics.VoteClosed)
		return models.VoteResults{}, ErrVotingClosed
	}
	o.metrics.Vote(metrics.VoteAccepted)

	res := toWire(o.engine.Results())
	o.listener.VoteResults(res)
	return res, nil
}

// Snapshot is what a newly connected client needs to render the round
func (o *Orchestrator) Snapshot(ctx context.Context, identity string) (models.OnConnect, error) {
	var snap models.OnConnect
	err := o.call(ctx, func() {
		snap = models.OnConnect{
			State:       models.StateNotPlaying,
			Playing:     o.state != Idle,
			VoteResults: toWire(o.engine.Results()),
		}
		switch o.state {
		case Idle:
		case Voting:
			snap.Clock = o.engine.TimeLeft().Milliseconds()
			snap.State = models.StateVoting
			if v, ok := o.engine.VoteOf(identity); ok {
				snap.State = models.StateVoteSubmitted
				snap.Vote = castVote(v)
			}
		default:
			snap.State = models.StateWaiting
		}
	})
	return snap, err
}

// Status reports the game and round for the state endpoint
func (o *Orchestrator) Status(ctx context.Context) (models.StateResponse, error) {
	var st models.StateResponse
	err := o.call(ctx, func() {
		st = models.StateResponse{
			Playing:          o.state != Idle,
			Voting:           o.state == Voting,
			Round:            o.engine.Token(),
			TimeLeftMS:       o.engine.TimeLeft().Milliseconds(),
			QueuedChallenges: o.queue.IDs(),
			VoteResults:      toWire(o.engine.Results()),
		}
		if o.state != Idle {
			st.GameID = o.gameID
			st.Side = o.tracker.Side().String()
			st.Ply = o.tracker.Ply()
		}
	})
	return st, err
}

// CurrentState is the lifecycle state, read on the loop
func (o *Orchestrator) CurrentState(ctx context.Context) (State, error) {
	var s State
	err := o.call(ctx, func() { s = o.state })
	return s, err
}

func castVote(v vote.Vote) *models.CastVote {
	if v.IsResign() {
		return &models.CastVote{Resign: true}
	}
	return &models.CastVote{Move: wireMove(v.Move), Draw: v.Draw}
}

type nopListener struct{}

func (nopListener) VoteTimer(int64)                {}
func (nopListener) VoteResults(models.VoteResults) {}
func (nopListener) GameEnded()                     {}
