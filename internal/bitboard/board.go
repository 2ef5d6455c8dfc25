// Package bitboard implements the Othello position: two 64-bit occupancy
// masks, move generation, move making and piece counting.
//
// Squares are numbered 0-63 with x = sq % 8 (file a-h) and y = sq / 8
// (rank 1-8).
package bitboard

import (
	"fmt"
	"math/bits"
	"strings"
)

// Side identifies the player to move.
type Side uint8

const (
	White Side = 0
	Black Side = 1
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	return s ^ 1
}

func (s Side) String() string {
	if s == White {
		return "white"
	}
	return "black"
}

// ParseSide parses "white"/"w"/"o" or "black"/"b"/"x".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w", "o":
		return White, nil
	case "black", "b", "x":
		return Black, nil
	}
	return White, fmt.Errorf("unknown side %q", s)
}

// Masks used to stop shifts from wrapping around the board edge.
const (
	notFileA uint64 = 0xfefefefefefefefe
	notFileH uint64 = 0x7f7f7f7f7f7f7f7f

	// CornerMask covers a1, h1, a8 and h8.
	CornerMask uint64 = 0x8100000000000081
	// EdgeMask covers the outer ring, corners included.
	EdgeMask uint64 = 0xFF818181818181FF
)

// Board is an immutable Othello position.
type Board struct {
	White uint64
	Black uint64
}

// Start returns the standard opening position (d4/e5 white, d5/e4 black).
func Start() Board {
	return Board{
		White: 1<<27 | 1<<36,
		Black: 1<<28 | 1<<35,
	}
}

// Pieces returns the occupancy mask for a side.
func (b Board) Pieces(side Side) uint64 {
	if side == White {
		return b.White
	}
	return b.Black
}

// Empty returns the mask of unoccupied squares.
func (b Board) Empty() uint64 {
	return ^(b.White | b.Black)
}

// Count returns the number of discs a side has on the board.
func (b Board) Count(side Side) int {
	return bits.OnesCount64(b.Pieces(side))
}

// Swap returns the same position with the colours exchanged.
func (b Board) Swap() Board {
	return Board{White: b.Black, Black: b.White}
}

// Hash mixes both masks into a 64-bit value.
func (b Board) Hash() uint64 {
	h := b.White*0x9e3779b97f4a7c15 ^ bits.RotateLeft64(b.Black*0xc2b2ae3d27d4eb4f, 31)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return h
}

type direction func(uint64) uint64

var directions = [8]direction{
	func(x uint64) uint64 { return x << 8 },              // north
	func(x uint64) uint64 { return x >> 8 },              // south
	func(x uint64) uint64 { return (x << 1) & notFileA }, // east
	func(x uint64) uint64 { return (x >> 1) & notFileH }, // west
	func(x uint64) uint64 { return (x << 9) & notFileA }, // north-east
	func(x uint64) uint64 { return (x << 7) & notFileH }, // north-west
	func(x uint64) uint64 { return (x >> 7) & notFileA }, // south-east
	func(x uint64) uint64 { return (x >> 9) & notFileH }, // south-west
}

// LegalMoves returns the mask of squares where side may place a disc.
func (b Board) LegalMoves(side Side) uint64 {
	own := b.Pieces(side)
	opp := b.Pieces(side.Opponent())
	empty := b.Empty()

	var moves uint64
	for _, shift := range directions {
		x := shift(own) & opp
		for i := 0; i < 5; i++ {
			x |= shift(x) & opp
		}
		moves |= shift(x) & empty
	}
	return moves
}

// LikelyMoves returns empty squares adjacent to an opposing disc. Every
// legal move is in this mask, but not every square in it is legal.
func (b Board) LikelyMoves(side Side) uint64 {
	opp := b.Pieces(side.Opponent())
	var around uint64
	for _, shift := range directions {
		around |= shift(opp)
	}
	return around & b.Empty()
}

// CanMove reports whether side has at least one legal move.
func (b Board) CanMove(side Side) bool {
	return b.LegalMoves(side) != 0
}

// IsLegal reports whether side may play m: the square must be a likely
// move and turn over at least one disc.
func (b Board) IsLegal(m Move, side Side) bool {
	if !m.Valid() {
		return false
	}
	sq := m.Mask()
	return b.LikelyMoves(side)&sq != 0 && b.flips(sq, side) != 0
}

// flips returns the discs turned over when side plays at sq.
func (b Board) flips(sq uint64, side Side) uint64 {
	own := b.Pieces(side)
	opp := b.Pieces(side.Opponent())

	var flipped uint64
	for _, shift := range directions {
		var line uint64
		c := shift(sq)
		for c&opp != 0 {
			line |= c
			c = shift(c)
		}
		if c&own != 0 {
			flipped |= line
		}
	}
	return flipped
}

// Apply returns the position after side plays m. The move is assumed legal;
// use IsLegal to check untrusted input.
func (b Board) Apply(m Move, side Side) Board {
	sq := m.Mask()
	f := b.flips(sq, side)
	if side == White {
		return Board{White: b.White | sq | f, Black: b.Black &^ f}
	}
	return Board{White: b.White &^ f, Black: b.Black | sq | f}
}

// Successors returns the legal moves of side in low-bit-first order
// together with the resulting positions.
func (b Board) Successors(side Side) ([]Move, []Board) {
	mask := b.LegalMoves(side)
	n := bits.OnesCount64(mask)
	if n == 0 {
		return nil, nil
	}
	moves := make([]Move, 0, n)
	boards := make([]Board, 0, n)
	for ; mask != 0; mask &= mask - 1 {
		m := Move(bits.TrailingZeros64(mask))
		moves = append(moves, m)
		boards = append(boards, b.Apply(m, side))
	}
	return moves, boards
}

// GameOver reports whether neither side can move.
func (b Board) GameOver() bool {
	return !b.CanMove(White) && !b.CanMove(Black)
}

// String renders the board with rank 8 on top. Black is X, white is O.
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for y := 7; y >= 0; y-- {
		fmt.Fprintf(&sb, "%d", y+1)
		for x := 0; x < 8; x++ {
			bit := uint64(1) << (y*8 + x)
			switch {
			case b.Black&bit != 0:
				sb.WriteString(" X")
			case b.White&bit != 0:
				sb.WriteString(" O")
			default:
				sb.WriteString(" .")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
