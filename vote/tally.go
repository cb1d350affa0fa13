// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"math/rand/v2"
	"sort"
)

// drawThreshold is the share of draw offers needed to attach one to the winning move
const drawThreshold = 0.5

// Tally resolves a round's votes into an Outcome.
// Votes failing legal are dropped before counting; a nil legal counts everything.
// legal is asked once per distinct vote key, not once per voter.
// Ties are broken with rng, and resignation never wins a tie.
func Tally(votes map[string]Vote, legal func(Vote) bool, rng *rand.Rand) Outcome {
	counted := make([]Vote, 0, len(votes))
	verdicts := make(map[string]bool)
	for _, v := range votes {
		if legal == nil {
			counted = append(counted, v)
			continue
		}
		key := v.Key()
		ok, seen := verdicts[key]
		if !seen {
			ok = legal(v)
			verdicts[key] = ok
		}
		if ok {
			counted = append(counted, v)
		}
	}

	results := buildResults(counted)
	if len(results.Votes) == 0 {
		return Outcome{Empty: true, Results: results}
	}

	// Results are sorted, so the leaders are a prefix
	maxVotes := results.Votes[0].NumVotes
	leaders := 0
	for leaders < len(results.Votes) && results.Votes[leaders].NumVotes == maxVotes {
		leaders++
	}

	winner := 0
	var tied []string
	if leaders > 1 {
		candidates := make([]int, 0, leaders)
		for i := 0; i < leaders; i++ {
			if results.Votes[i].Vote.IsResign() {
				continue
			}
			candidates = append(candidates, i)
			tied = append(tied, results.Votes[i].Key)
		}
		if len(candidates) == 0 {
			return Outcome{Empty: true, Results: results}
		}
		winner = candidates[rng.IntN(len(candidates))]
	}

	results.Votes[winner].Winner = true
	out := Outcome{
		Winner:      results.Votes[winner].Vote,
		WinnerVotes: maxVotes,
		Tied:        tied,
		Results:     results,
	}
	if !out.Winner.IsResign() {
		out.Draw = moveDrawRatio(counted) > drawThreshold
	}
	return out
}

// buildResults groups votes by key, highest count first.
// Equal counts are ordered by key so a seeded rng picks reproducibly.
func buildResults(votes []Vote) Results {
	counts := make(map[string]int)
	reps := make(map[string]Vote)
	drawVotes := 0
	for _, v := range votes {
		key := v.Key()
		counts[key]++
		if _, ok := reps[key]; !ok {
			rep := v
			rep.Draw = false
			reps[key] = rep
		}
		if v.Draw {
			drawVotes++
		}
	}

	rows := make([]Result, 0, len(counts))
	for key, n := range counts {
		rows = append(rows, Result{Vote: reps[key], Key: key, NumVotes: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NumVotes != rows[j].NumVotes {
			return rows[i].NumVotes > rows[j].NumVotes
		}
		return rows[i].Key < rows[j].Key
	})

	if len(rows) > 0 {
		highest := float64(rows[0].NumVotes)
		for i := range rows {
			rows[i].Percent = float64(rows[i].NumVotes) / highest
		}
	}

	results := Results{Votes: rows}
	if len(votes) > 0 {
		results.DrawResults = DrawResults{
			Number:  drawVotes,
			Percent: float64(drawVotes) / float64(len(votes)),
		}
	}
	return results
}

// moveDrawRatio is the draw share among move votes; resignations are left out entirely
func moveDrawRatio(votes []Vote) float64 {
	total, draws := 0, 0
	for _, v := range votes {
		if v.IsResign() {
			continue
		}
		total++
		if v.Draw {
			draws++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(draws) / float64(total)
}
