// Package positionid implements text encodings for Othello positions.
//
// A position ID is a 22-character base64 string packing the black and white
// occupancy masks (16 bytes, big-endian, black first). An optional ":b" or
// ":w" suffix names the side to move, e.g. "AAAAEAgAAAAAAAAIEAAAAA:b".
//
// Diagrams are 64 cells listed from rank 8 down to rank 1, files a-h, using
// X (black), O (white) and '.' or '-' (empty). Whitespace is ignored.
package positionid

import (
	"errors"
	"strings"

	"github.com/yourusername/othello/internal/bitboard"
)

const (
	// PositionIDLength is the length of a position ID without side suffix
	PositionIDLength = 22

	keyBytes = 16
)

// Base64 alphabet used for position ID encoding
const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var (
	// ErrInvalidPositionID is returned when a position ID is invalid
	ErrInvalidPositionID = errors.New("invalid position ID")
	// ErrInvalidDiagram is returned when a board diagram cannot be parsed
	ErrInvalidDiagram = errors.New("invalid board diagram")
)

// makeKey packs a board into 16 bytes: black mask then white mask.
func makeKey(b bitboard.Board) [keyBytes]byte {
	var key [keyBytes]byte
	for i := 0; i < 8; i++ {
		key[i] = byte(b.Black >> (56 - 8*i))
		key[8+i] = byte(b.White >> (56 - 8*i))
	}
	return key
}

// boardFromKey is the inverse of makeKey.
func boardFromKey(key [keyBytes]byte) bitboard.Board {
	var b bitboard.Board
	for i := 0; i < 8; i++ {
		b.Black |= uint64(key[i]) << (56 - 8*i)
		b.White |= uint64(key[8+i]) << (56 - 8*i)
	}
	return b
}

// PositionID generates a base64 position ID string from a board
func PositionID(b bitboard.Board) string {
	key := makeKey(b)
	result := make([]byte, PositionIDLength)
	puch := key[:]

	for i := 0; i < 5; i++ {
		result[i*4] = base64Chars[puch[0]>>2]
		result[i*4+1] = base64Chars[((puch[0]&0x03)<<4)|(puch[1]>>4)]
		result[i*4+2] = base64Chars[((puch[1]&0x0F)<<2)|(puch[2]>>6)]
		result[i*4+3] = base64Chars[puch[2]&0x3F]
		puch = puch[3:]
	}

	result[20] = base64Chars[puch[0]>>2]
	result[21] = base64Chars[(puch[0]&0x03)<<4]

	return string(result)
}

// PositionIDWithSide appends the side-to-move suffix.
func PositionIDWithSide(b bitboard.Board, side bitboard.Side) string {
	if side == bitboard.Black {
		return PositionID(b) + ":b"
	}
	return PositionID(b) + ":w"
}

// base64Decode decodes a base64 character to its value
func base64Decode(ch byte) uint8 {
	if i := strings.IndexByte(base64Chars, ch); i >= 0 {
		return uint8(i)
	}
	return 255
}

// BoardFromPositionID decodes a position ID. The side suffix, if any, is
// ignored; use Parse to read it.
func BoardFromPositionID(posID string) (bitboard.Board, error) {
	if idx := strings.IndexByte(posID, ':'); idx >= 0 {
		posID = posID[:idx]
	}
	if len(posID) != PositionIDLength {
		return bitboard.Board{}, ErrInvalidPositionID
	}

	ach := make([]uint8, PositionIDLength)
	for i := 0; i < PositionIDLength; i++ {
		ach[i] = base64Decode(posID[i])
		if ach[i] == 255 {
			return bitboard.Board{}, ErrInvalidPositionID
		}
	}

	var key [keyBytes]byte
	pch := ach
	for i := 0; i < 5; i++ {
		key[i*3] = (pch[0] << 2) | (pch[1] >> 4)
		key[i*3+1] = (pch[1] << 4) | (pch[2] >> 2)
		key[i*3+2] = (pch[2] << 6) | pch[3]
		pch = pch[4:]
	}
	key[15] = (pch[0] << 2) | (pch[1] >> 4)

	b := boardFromKey(key)
	if !CheckPosition(b) {
		return b, ErrInvalidPositionID
	}
	return b, nil
}

// Parse decodes a position ID with an optional side suffix. Without a
// suffix the side defaults to black, who moves first in Othello.
func Parse(posID string) (bitboard.Board, bitboard.Side, error) {
	side := bitboard.Black
	if idx := strings.IndexByte(posID, ':'); idx >= 0 {
		s, err := bitboard.ParseSide(posID[idx+1:])
		if err != nil {
			return bitboard.Board{}, side, ErrInvalidPositionID
		}
		side = s
	}
	b, err := BoardFromPositionID(posID)
	return b, side, err
}

// CheckPosition validates that no square is claimed by both sides.
func CheckPosition(b bitboard.Board) bool {
	return b.White&b.Black == 0
}

// BoardFromDiagram parses a 64-cell diagram (rank 8 first).
func BoardFromDiagram(diagram string) (bitboard.Board, error) {
	var b bitboard.Board
	cell := 0
	for _, ch := range diagram {
		switch ch {
		case ' ', '\t', '\n', '\r':
			continue
		}
		if cell >= 64 {
			return bitboard.Board{}, ErrInvalidDiagram
		}
		x, y := cell%8, 7-cell/8
		bit := uint64(1) << (y*8 + x)
		switch ch {
		case 'X', 'x', 'B', 'b', '*':
			b.Black |= bit
		case 'O', 'o', 'W', 'w':
			b.White |= bit
		case '.', '-', '_':
		default:
			return bitboard.Board{}, ErrInvalidDiagram
		}
		cell++
	}
	if cell != 64 {
		return bitboard.Board{}, ErrInvalidDiagram
	}
	return b, nil
}

// Diagram renders a board in the format accepted by BoardFromDiagram.
func Diagram(b bitboard.Board) string {
	var sb strings.Builder
	for y := 7; y >= 0; y-- {
		for x := 0; x < 8; x++ {
			bit := uint64(1) << (y*8 + x)
			switch {
			case b.Black&bit != 0:
				sb.WriteByte('X')
			case b.White&bit != 0:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		if y > 0 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
