// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

// ResignKey is the tally key shared by every resignation vote
const ResignKey = "resign"

// Kind tags the variant held by a Vote
type Kind int

const (
	KindMove Kind = iota
	KindResign
)

// Move is a legal move in both notations
type Move struct {
	Notation  string `json:"san"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI returns the coordinate form sent to the game server
func (m Move) UCI() string {
	return m.From + m.To + m.Promotion
}

// Vote is a normalized submission. Build one with MoveVote or ResignVote.
type Vote struct {
	Kind Kind
	Move Move
	Draw bool
}

func MoveVote(m Move, draw bool) Vote {
	return Vote{Kind: KindMove, Move: m, Draw: draw}
}

// ResignVote never carries a draw offer
func ResignVote() Vote {
	return Vote{Kind: KindResign}
}

func (v Vote) IsResign() bool {
	return v.Kind == KindResign
}

// Key groups votes for counting: SAN for moves, ResignKey otherwise
func (v Vote) Key() string {
	if v.IsResign() {
		return ResignKey
	}
	return v.Move.Notation
}

// Result is one row of the tally
type Result struct {
	Vote     Vote    `json:"-"`
	Key      string  `json:"key"`
	NumVotes int     `json:"numVotes"`
	Percent  float64 `json:"percent"` // relative to the leading move
	Winner   bool    `json:"winner,omitempty"`
}

// DrawResults summarizes draw offers
type DrawResults struct {
	Number  int     `json:"number"`
	Percent float64 `json:"percent"`
}

// Results is the tally shown to voters, highest count first
type Results struct {
	Votes       []Result    `json:"votes"`
	DrawResults DrawResults `json:"drawResults"`
}

// Outcome is what a resolved round produced
type Outcome struct {
	Round       uint64
	Empty       bool
	Winner      Vote
	Draw        bool
	WinnerVotes int
	Tied        []string // keys sharing the max count, only set on a tie
	Results     Results
}
