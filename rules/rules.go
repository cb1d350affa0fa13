// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

var (
	ErrIllegalMove        = errors.New("illegal move")
	ErrNothingToUndo      = errors.New("no move to undo")
	ErrUnsupportedVariant = errors.New("unsupported variant")
)

// Variants the board can play
const (
	VariantStandard = "standard"
)

// Color is the side to move
type Color int

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// ParseColor converts "white"/"black" (any case) to a Color
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(s) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

// Descriptor describes a single applied move
type Descriptor struct {
	SAN       string `json:"san"`
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// UCI returns the coordinate form (e2e4, e7e8q)
func (d Descriptor) UCI() string {
	return d.From + d.To + d.Promotion
}

// Board is a chess position with undo, backed by notnil/chess.
// The game before the latest move is kept for a constant-time undo;
// older moves are kept in coordinate form so deeper undos can rebuild.
type Board struct {
	game    *chess.Game
	prev    *chess.Game
	history []string
}

// NewBoard returns a board at the starting position of the variant
func NewBoard(variant string) (*Board, error) {
	if variant != "" && variant != VariantStandard {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVariant, variant)
	}
	return &Board{game: chess.NewGame()}, nil
}

// SupportsVariant reports whether NewBoard accepts the variant key
func SupportsVariant(variant string) bool {
	return variant == VariantStandard
}

// ApplyMove parses text in SAN, UCI, or long algebraic form and plays it.
func (b *Board) ApplyMove(text string) (Descriptor, error) {
	pos := b.game.Position()
	m, err := decode(pos, text)
	if err != nil {
		return Descriptor{}, err
	}

	d := describe(pos, m)
	prev := b.game.Clone()
	if err := b.game.Move(m); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrIllegalMove, text)
	}
	b.prev = prev
	b.history = append(b.history, d.UCI())
	return d, nil
}

// Describe parses text like ApplyMove but leaves the position untouched
func (b *Board) Describe(text string) (Descriptor, error) {
	pos := b.game.Position()
	m, err := decode(pos, text)
	if err != nil {
		return Descriptor{}, err
	}
	return describe(pos, m), nil
}

// UndoLastMove takes back the most recent move
func (b *Board) UndoLastMove() error {
	if len(b.history) == 0 {
		return ErrNothingToUndo
	}

	history := b.history[:len(b.history)-1]
	if b.prev != nil {
		b.game = b.prev
		b.prev = nil
		b.history = history
		return nil
	}

	g := chess.NewGame()
	for _, uci := range history {
		m, err := chess.UCINotation{}.Decode(g.Position(), uci)
		if err != nil {
			return fmt.Errorf("failed to replay %s: %w", uci, err)
		}
		if err := g.Move(m); err != nil {
			return fmt.Errorf("failed to replay %s: %w", uci, err)
		}
	}

	b.game = g
	b.history = history
	return nil
}

// LegalMoves lists every legal move in the current position
func (b *Board) LegalMoves() []Descriptor {
	pos := b.game.Position()
	valid := b.game.ValidMoves()
	out := make([]Descriptor, 0, len(valid))
	for _, m := range valid {
		out = append(out, describe(pos, m))
	}
	return out
}

func (b *Board) SideToMove() Color {
	if b.game.Position().Turn() == chess.Black {
		return Black
	}
	return White
}

// IsTerminal is true once the game has an outcome (mate, stalemate, automatic draw)
func (b *Board) IsTerminal() bool {
	return b.game.Outcome() != chess.NoOutcome
}

// Plies returns the number of moves played
func (b *Board) Plies() int {
	return len(b.history)
}

// FEN returns the current position
func (b *Board) FEN() string {
	return b.game.Position().String()
}

func describe(pos *chess.Position, m *chess.Move) Descriptor {
	uci := chess.UCINotation{}.Encode(pos, m)
	d := Descriptor{
		SAN:  chess.AlgebraicNotation{}.Encode(pos, m),
		From: uci[0:2],
		To:   uci[2:4],
	}
	if len(uci) > 4 {
		d.Promotion = uci[4:]
	}
	return d
}

// decode tries the notations a voter is likely to type
func decode(pos *chess.Position, text string) (*chess.Move, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrIllegalMove)
	}
	s = strings.ReplaceAll(s, "0-0-0", "O-O-O")
	s = strings.ReplaceAll(s, "0-0", "O-O")

	coord := strings.ToLower(strings.ReplaceAll(s, "-", ""))
	attempts := []struct {
		notation chess.Decoder
		text     string
	}{
		{chess.AlgebraicNotation{}, s},
		{chess.UCINotation{}, coord},
		{chess.LongAlgebraicNotation{}, s},
	}
	for _, a := range attempts {
		m, err := a.notation.Decode(pos, a.text)
		if err != nil || m == nil {
			continue
		}
		if valid := findValid(pos, m); valid != nil {
			return valid, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIllegalMove, text)
}

// findValid returns the position's own copy of m, which carries its tags.
// Coordinate decoding alone does not check legality.
func findValid(pos *chess.Position, m *chess.Move) *chess.Move {
	for _, v := range pos.ValidMoves() {
		if v.S1() == m.S1() && v.S2() == m.S2() && v.Promo() == m.Promo() {
			return v
		}
	}
	return nil
}
