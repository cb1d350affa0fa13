// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/danielhkuo/votechess/lichess"
	"github.com/danielhkuo/votechess/metrics"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/vote"
)

const msgNoVotes = "No votes received, waiting for votes."

func (o *Orchestrator) openRound() {
	o.state = Voting
	gameToken := o.gameToken
	round := o.engine.Open(o.voteDuration, o.tracker.IsLegal, func(out vote.Outcome) {
		o.resolveRound(gameToken, out)
	})

	slog.Debug("round opened", "game_id", o.gameID, "round", round, "ply", o.tracker.Ply())
	if !o.waitingForVotes {
		o.chat(o.gameID, lichess.RoomSpectator,
			fmt.Sprintf("Voting ends in %d seconds.", o.minIncrement()))
	}
	o.listener.VoteTimer(o.voteDuration.Milliseconds())
	o.listener.VoteResults(toWire(o.engine.Results()))
}

// resolveRound runs on the loop when a round's timer fires
func (o *Orchestrator) resolveRound(gameToken uint64, out vote.Outcome) {
	if gameToken != o.gameToken || o.state != Voting {
		return
	}
	log := slog.With("game_id", o.gameID, "round", out.Round)

	if out.Empty {
		o.metrics.Round(metrics.RoundEmpty)
		log.Debug("round ended without votes")
		if !o.waitingForVotes {
			o.chat(o.gameID, lichess.RoomSpectator, msgNoVotes)
			o.waitingForVotes = true
		}
		o.openRound()
		return
	}
	o.waitingForVotes = false
	o.listener.VoteResults(toWire(out.Results))

	if len(out.Tied) > 1 {
		o.metrics.Round(metrics.RoundTie)
		o.chat(o.gameID, lichess.RoomSpectator, fmt.Sprintf("The following moves tied with %d votes: %s.",
			out.WinnerVotes, strings.Join(out.Tied, ", ")))
		o.chat(o.gameID, lichess.RoomSpectator, fmt.Sprintf("Randomly chosen winner: %s.", out.Winner.Key()))
	}

	gameID := o.gameID
	if out.Winner.IsResign() {
		o.metrics.Round(metrics.RoundResign)
		log.Info("crowd voted to resign", "votes", out.WinnerVotes)
		o.chat(gameID, lichess.RoomSpectator, fmt.Sprintf("Resignation won with %d votes.", out.WinnerVotes))
		o.state = MoveCommitted
		o.tracker.DisarmAbortSafety()
		o.remoteCall("resign", func(ctx context.Context) error {
			return o.remote.Resign(ctx, gameID)
		})
		return
	}

	mv := out.Winner.Move
	if err := o.tracker.Commit(out.Winner); err != nil {
		// Legality was checked in the tally, so this means the tracker and
		// the board disagree; keep voting rather than stall the game
		log.Error("failed to commit winning move", "move", mv.Notation, "error", err)
		o.openRound()
		return
	}

	o.metrics.Round(metrics.RoundWinner)
	log.Info("crowd chose a move", "move", mv.Notation, "uci", mv.UCI(), "votes", out.WinnerVotes, "draw", out.Draw)

	msg := fmt.Sprintf("%s won with %d votes.", mv.Notation, out.WinnerVotes)
	if out.Draw {
		msg += " Offering a draw."
	}
	o.chat(gameID, lichess.RoomSpectator, msg)

	o.state = MoveCommitted
	uci, draw := mv.UCI(), out.Draw
	o.remoteCall("move", func(ctx context.Context) error {
		return o.remote.MakeMove(ctx, gameID, uci, draw)
	})
	o.advance()
}

// toWire converts a tally to the gateway format
func toWire(res vote.Results) models.VoteResults {
	rows := make([]models.VoteRow, 0, len(res.Votes))
	for _, r := range res.Votes {
		row := models.VoteRow{
			NumVotes: r.NumVotes,
			Percent:  r.Percent,
			Winner:   r.Winner,
		}
		if r.Vote.IsResign() {
			row.Resign = true
		} else {
			row.Move = wireMove(r.Vote.Move)
		}
		rows = append(rows, row)
	}
	return models.VoteResults{
		Votes: rows,
		DrawResults: models.DrawResults{
			Number:  res.DrawResults.Number,
			Percent: res.DrawResults.Percent,
		},
	}
}

func wireMove(m vote.Move) *models.Move {
	return &models.Move{
		SAN:       m.Notation,
		From:      m.From,
		To:        m.To,
		Promotion: m.Promotion,
	}
}
