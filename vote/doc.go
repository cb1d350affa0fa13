// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package vote holds the normalized vote and the engine that runs voting rounds.

# Votes

A Vote is either a move or a resignation, plus a draw flag. Votes are built
once, from validated input, and compared by Key:

	v := vote.MoveVote(vote.Move{Notation: "e4", From: "e2", To: "e4"}, false)
	r := vote.ResignVote()

# Rounds

The Engine holds at most one open round. Each identity has one vote per
round; recording again replaces it.

	token := engine.Open(30*time.Second, tracker.IsLegal, func(out vote.Outcome) {
		// runs through Options.Post when the round ends
	})
	engine.Record("conn:1234", v)

Close ends a round without an outcome. A timer from an earlier round sees a
stale token and does nothing.

# Tally

When a round ends every vote is re-checked for legality, then:

  - No votes: the outcome is Empty.
  - Resignation wins only with strictly more votes than every move.
  - Otherwise the most voted move wins; ties are broken at random among
    the tied moves.
  - A draw is offered with the winning move when more than half of all
    move votes asked for one.

Percent in Results is a fraction of the most voted entry, so the leader
always shows 1. The draw percent is over all counted votes.
*/
package vote
