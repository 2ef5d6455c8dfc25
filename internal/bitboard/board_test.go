package bitboard

import (
	"testing"
)

func TestStartPosition(t *testing.T) {
	b := Start()
	if got := b.Count(White); got != 2 {
		t.Errorf("white count = %d, want 2", got)
	}
	if got := b.Count(Black); got != 2 {
		t.Errorf("black count = %d, want 2", got)
	}
}

func TestOpeningMoves(t *testing.T) {
	b := Start()
	moves := MovesOf(b.LegalMoves(Black))

	want := []string{"d3", "c4", "f5", "e6"}
	if len(moves) != len(want) {
		t.Fatalf("got %d opening moves, want %d", len(moves), len(want))
	}
	for i, m := range moves {
		if m.String() != want[i] {
			t.Errorf("move %d = %s, want %s", i, m, want[i])
		}
	}

	whiteMoves := MovesOf(b.LegalMoves(White))
	if len(whiteMoves) != 4 {
		t.Errorf("white has %d opening moves, want 4", len(whiteMoves))
	}
}

func TestApplyFlips(t *testing.T) {
	b := Start()
	m, _ := ParseMove("d3")
	next := b.Apply(m, Black)

	if got := next.Count(Black); got != 4 {
		t.Errorf("black count after d3 = %d, want 4", got)
	}
	if got := next.Count(White); got != 1 {
		t.Errorf("white count after d3 = %d, want 1", got)
	}
	if next.White&next.Black != 0 {
		t.Error("a square is occupied by both sides")
	}
	// Source board is unchanged.
	if b != Start() {
		t.Error("Apply modified the receiver")
	}
}

func TestNoWrapAcrossEdges(t *testing.T) {
	// Black on h1, white on a2: a move at b2 must not flip across the edge.
	b := Board{Black: 1 << 7, White: 1 << 8}
	if b.CanMove(Black) {
		t.Errorf("black should have no moves, got %v", MovesOf(b.LegalMoves(Black)))
	}
}

func TestPassPosition(t *testing.T) {
	// Black a1, white b1: black can play c1, white has nothing.
	b := Board{Black: 1 << 0, White: 1 << 1}
	if b.CanMove(White) {
		t.Error("white should not be able to move")
	}
	if !b.CanMove(Black) {
		t.Fatal("black should be able to move")
	}
	m, _ := ParseMove("c1")
	if !b.IsLegal(m, Black) {
		t.Error("c1 should be legal for black")
	}
	next := b.Apply(m, Black)
	if next.Count(White) != 0 || next.Count(Black) != 3 {
		t.Errorf("after c1: white=%d black=%d, want 0 and 3", next.Count(White), next.Count(Black))
	}
}

func TestGameOver(t *testing.T) {
	full := Board{White: 0xFFFFFFFF00000000, Black: 0x00000000FFFFFFFF}
	if !full.GameOver() {
		t.Error("full board should be game over")
	}
	if Start().GameOver() {
		t.Error("start position is not game over")
	}
}

func TestLikelyMovesContainLegal(t *testing.T) {
	b := Start()
	for _, side := range []Side{White, Black} {
		legal := b.LegalMoves(side)
		if legal&^b.LikelyMoves(side) != 0 {
			t.Errorf("%s: legal moves outside likely mask", side)
		}
	}
}

func TestSuccessorsOrder(t *testing.T) {
	moves, boards := Start().Successors(Black)
	if len(moves) != len(boards) {
		t.Fatalf("moves/boards length mismatch: %d vs %d", len(moves), len(boards))
	}
	for i := 1; i < len(moves); i++ {
		if moves[i] <= moves[i-1] {
			t.Errorf("moves not in ascending square order: %v", moves)
		}
	}
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		in      string
		want    Move
		wantErr bool
	}{
		{"a1", 0, false},
		{"h8", 63, false},
		{"D3", 19, false},
		{"i1", NoMove, true},
		{"a9", NoMove, true},
		{"", NoMove, true},
	}
	for _, tt := range tests {
		got, err := ParseMove(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMove(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMove(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSwapAndHash(t *testing.T) {
	b := Start()
	if b.Swap().Swap() != b {
		t.Error("double swap should be identity")
	}
	if b.Hash() == b.Swap().Hash() {
		t.Error("swapped board should hash differently")
	}
}

func TestIsLegalMatchesLegalMoves(t *testing.T) {
	b, side := Start(), Black
	for ply := 0; ply < 80 && !b.GameOver(); ply++ {
		for _, s := range []Side{White, Black} {
			legal := b.LegalMoves(s)
			for sq := Move(0); sq < 64; sq++ {
				if got, want := b.IsLegal(sq, s), legal&sq.Mask() != 0; got != want {
					t.Fatalf("ply %d: IsLegal(%s, %s) = %v, want %v", ply, sq, s, got, want)
				}
			}
		}

		moves := MovesOf(b.LegalMoves(side))
		if len(moves) > 0 {
			// alternate between the first and last move to reach varied positions
			m := moves[0]
			if ply%2 == 1 {
				m = moves[len(moves)-1]
			}
			b = b.Apply(m, side)
		}
		side = side.Opponent()
	}
	if b.IsLegal(NoMove, Black) {
		t.Error("NoMove should never be legal")
	}
}
