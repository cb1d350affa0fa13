// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/danielhkuo/votechess/auth"
	"github.com/danielhkuo/votechess/game"
	"github.com/danielhkuo/votechess/lichess"
	"github.com/danielhkuo/votechess/models"
	"github.com/danielhkuo/votechess/moderation"
	"github.com/danielhkuo/votechess/rules"
)

// Chat lines
const (
	msgInstructions = "Use /<move> to vote for a move, e.g. /e4 or /O-O, or /resign to vote for resignation."
	msgGreeting     = "You're playing against the crowd - good luck!"
	msgGoodGame     = "Good game!"
)

// streamEndedStatus marks a game whose stream closed without a final status
const streamEndedStatus = "ended"

func (o *Orchestrator) startGame(ref lichess.GameRef) {
	id := ref.Key()
	if o.state != Idle {
		if id != o.gameID {
			slog.Warn("ignoring second game", "game_id", id, "active_game_id", o.gameID)
		}
		return
	}

	o.stopAcceptTimer()
	o.stopDrainTimer()
	o.pendingAccept = false
	o.acceptToken++

	o.gameToken++
	token := o.gameToken
	o.gameID = id
	o.state = AwaitingOpponent
	o.waitingForVotes = false
	o.record = models.GameRecord{}
	o.recordStarted = nil
	o.engine.Close()

	slog.Info("game started", "game_id", id)

	o.chat(id, lichess.RoomSpectator, msgInstructions)
	o.chat(id, lichess.RoomPlayer, msgGreeting)

	streamCtx, cancel := context.WithCancel(o.ctx)
	o.cancelStream = cancel

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		err := o.remote.StreamGame(streamCtx, id, func(ev lichess.GameEvent) {
			o.post(func() { o.onGameEvent(token, ev) })
		})
		o.post(func() { o.onStreamClosed(token, err) })
	}()
}

func (o *Orchestrator) onGameEvent(token uint64, ev lichess.GameEvent) {
	if token != o.gameToken || o.state == Idle {
		return
	}

	switch ev.Type {
	case lichess.EventGameFull:
		o.onGameFull(token, ev)
	case lichess.EventGameState:
		o.onGameState(token, ev.CurrentState())
	case lichess.EventChatLine:
		o.onChatLine(ev)
	}
}

func (o *Orchestrator) onGameFull(token uint64, ev lichess.GameEvent) {
	var side rules.Color
	var opponent lichess.User
	switch {
	case strings.EqualFold(ev.White.ID, o.botID):
		side, opponent = rules.White, ev.Black
	case strings.EqualFold(ev.Black.ID, o.botID):
		side, opponent = rules.Black, ev.White
	default:
		slog.Error("bot is not playing this game", "game_id", o.gameID, "white", ev.White.ID, "black", ev.Black.ID)
		o.endGame(token, lichess.GameState{Status: "error"})
		return
	}

	st := ev.State
	err := o.tracker.Start(game.Snapshot{
		ID:      o.gameID,
		Side:    side,
		Variant: ev.Variant.Key,
		Moves:   st.MoveList(),
	})
	if err != nil {
		slog.Error("failed to start game", "game_id", o.gameID, "error", err)
		o.endGame(token, lichess.GameState{Status: "error"})
		return
	}

	o.record = models.GameRecord{
		GameID:    o.gameID,
		Opponent:  opponent.ID,
		Color:     side.String(),
		Variant:   variantOrStandard(ev.Variant.Key),
		StartedAt: time.Now().UTC(),
	}
	if o.recorder != nil {
		rec := o.record
		started := make(chan struct{})
		o.recordStarted = started
		o.remoteCall("record", func(ctx context.Context) error {
			defer close(started)
			return o.recorder.StartGame(ctx, rec)
		})
	}

	slog.Info("game loaded", "game_id", o.gameID, "side", side, "opponent", opponent.ID, "ply", o.tracker.Ply())

	if st.Finished() {
		o.endGame(token, st)
		return
	}
	o.tracker.ArmAbortSafety()
	o.advance()
}

func (o *Orchestrator) onGameState(token uint64, st lichess.GameState) {
	if !o.tracker.Active() {
		return
	}

	if _, err := o.tracker.ApplyOpponentMove(st.MoveList()); err != nil {
		slog.Error("failed to apply move list", "game_id", o.gameID, "error", err)
	}

	if st.Finished() {
		o.endGame(token, st)
		return
	}
	o.advance()
}

// advance opens a round when it is the crowd's turn, otherwise waits for
// the opponent. The abort timer runs whenever fewer than two plies exist.
func (o *Orchestrator) advance() {
	if o.tracker.IsTerminal() {
		// The server reports the result in the next gameState
		return
	}

	if o.tracker.IsAgentTurn() {
		if o.state != Voting {
			o.tracker.ArmAbortSafety()
			o.openRound()
		}
		return
	}

	if o.state != AwaitingOpponent {
		o.state = AwaitingOpponent
		o.tracker.ArmAbortSafety()
	}
}

func (o *Orchestrator) onAbort(gameID string) {
	if gameID != o.gameID || o.state == Idle {
		return
	}
	slog.Info("aborting game nobody moved in", "game_id", gameID)
	o.remoteCall("abort", func(ctx context.Context) error {
		return o.remote.Abort(ctx, gameID)
	})
}

func (o *Orchestrator) onStreamClosed(token uint64, err error) {
	if token != o.gameToken || o.state == Idle {
		return
	}
	if err != nil {
		slog.Warn("game stream failed", "game_id", o.gameID, "error", err)
	}
	o.endGame(token, lichess.GameState{Status: streamEndedStatus})
}

// endGame is idempotent: only the first end for the current game acts
func (o *Orchestrator) endGame(token uint64, st lichess.GameState) {
	if token != o.gameToken || o.state == Idle {
		return
	}

	id := o.gameID
	plies := o.tracker.Ply()
	status := st.Status
	if status == "" {
		status = streamEndedStatus
	}

	o.engine.Close()
	o.tracker.End()
	o.state = Idle
	o.waitingForVotes = false
	if o.cancelStream != nil {
		o.cancelStream()
		o.cancelStream = nil
	}

	slog.Info("game ended", "game_id", id, "status", status, "winner", st.Winner, "plies", plies)
	o.metrics.GameFinished(status)
	o.listener.GameEnded()
	o.chat(id, lichess.RoomPlayer, msgGoodGame)

	if o.recorder != nil && o.record.GameID == id && o.recordStarted != nil {
		var winner *string
		if st.Winner != "" {
			w := st.Winner
			winner = &w
		}
		ended := time.Now().UTC()
		started := o.recordStarted
		o.remoteCall("record", func(ctx context.Context) error {
			// The row has to exist before it can be finished
			select {
			case <-started:
			case <-ctx.Done():
				return ctx.Err()
			}
			return o.recorder.FinishGame(ctx, id, status, winner, plies, ended)
		})
	}

	o.scheduleDrain()
}

func (o *Orchestrator) onChatLine(ev lichess.GameEvent) {
	if ev.Room != lichess.RoomSpectator {
		return
	}

	gameID := o.gameID
	username, text := ev.Username, ev.Text
	o.wg.Add(1)
	ctx := o.ctx
	go func() {
		defer o.wg.Done()

		var act moderation.Action
		if o.moderator != nil {
			act = o.moderator.HandleChat(ctx, username, text)
		} else if cmd, _, ok := moderation.ParseCommand(text); ok {
			act = moderation.Action{Kind: moderation.Vote, Text: cmd}
		}

		switch act.Kind {
		case moderation.Reply:
			o.post(func() { o.chat(gameID, lichess.RoomSpectator, act.Text) })
		case moderation.Vote:
			sub := Submission{Text: act.Text}
			if _, err := o.SubmitVote(ctx, auth.ChatIdentity(username), sub); err != nil {
				slog.Debug("chat vote rejected", "username", username, "text", act.Text, "error", err)
			}
		}
	}()
}

func variantOrStandard(v string) string {
	if v == "" {
		return rules.VariantStandard
	}
	return v
}
