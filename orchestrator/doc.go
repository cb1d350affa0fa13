// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package orchestrator runs the bot: it turns account and game stream events
into voting rounds, submits the crowd's choice, and moves on to the next
challenge when a game ends.

# Event Loop

All state lives on a single goroutine started by Run. Stream events, timer
expiries and vote submissions are posted to it as closures, so the tracker,
the vote engine and the lifecycle state never need their own locking:

	orch := orchestrator.New(orchestrator.Options{
		BotID:        cfg.BotID,
		VoteDuration: cfg.VoteDuration(),
		Remote:       client,
		Listener:     hub,
	})
	go orch.Run(ctx)
	client.Listen(ctx, orch.HandleEvent)

Requests to the game server run on their own goroutines. A failed request
is logged and counted, never retried.

# Lifecycle

	Idle -> AwaitingOpponent <-> Voting -> MoveCommitted -> ...
	  ^                                                      |
	  +---------------------- game over ---------------------+

A round opens whenever it is the crowd's turn. A round without votes
reopens at once; the spectators hear about it once per empty stretch.

# Challenges

Challenges that arrive while a game is running, or while an acceptance is
still pending, are queued. When the game ends the queue is drained after
a short delay, oldest first, until one acceptance succeeds.

# Votes

SubmitVote is the single entry point for web and chat votes:

	res, err := orch.SubmitVote(ctx, identity, orchestrator.Submission{Text: "e4"})
	if errors.Is(err, orchestrator.ErrVotingClosed) {
		// not the crowd's turn
	}
*/
package orchestrator
