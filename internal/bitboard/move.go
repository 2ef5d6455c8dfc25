package bitboard

import (
	"fmt"
	"math/bits"
	"strings"
)

// Move is a square index 0-63.
type Move int8

// NoMove is returned when no move exists or none could be determined.
const NoMove Move = -1

// Valid reports whether m names a square.
func (m Move) Valid() bool {
	return m >= 0 && m < 64
}

// Mask returns the single-bit mask for m.
func (m Move) Mask() uint64 {
	return uint64(1) << uint(m)
}

// X returns the file (0 = a).
func (m Move) X() int { return int(m) % 8 }

// Y returns the rank index (0 = rank 1).
func (m Move) Y() int { return int(m) / 8 }

// String returns algebraic notation such as "d3", or "none".
func (m Move) String() string {
	if !m.Valid() {
		return "none"
	}
	return fmt.Sprintf("%c%d", 'a'+m.X(), m.Y()+1)
}

// ParseMove parses algebraic notation ("d3", "F5").
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoMove, fmt.Errorf("invalid move %q", s)
	}
	return Move(int(s[1]-'1')*8 + int(s[0]-'a')), nil
}

// MovesOf expands a move mask in low-bit-first order.
func MovesOf(mask uint64) []Move {
	moves := make([]Move, 0, bits.OnesCount64(mask))
	for ; mask != 0; mask &= mask - 1 {
		moves = append(moves, Move(bits.TrailingZeros64(mask)))
	}
	return moves
}
