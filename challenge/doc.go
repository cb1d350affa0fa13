// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package challenge decides which challenges the crowd can play and holds the
ones that arrive while a game is in progress.

# Eligibility

	if reason := challenge.Reason(c, voteSeconds); reason != "" {
		client.DeclineChallenge(ctx, c.ID, reason)
	}

A challenge is playable when it is casual, standard chess, on a real clock
with at least a minute on it, and its increment covers a full voting round.

# Queue

Eligible challenges received mid-game are pushed onto a FIFO queue. After
the game ends the queue is drained oldest first until one acceptance
succeeds:

	c, ok := queue.Drain(ctx, accept)

Challenges whose acceptance fails are dropped.
*/
package challenge
