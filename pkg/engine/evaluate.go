package engine

import (
	"math/bits"

	"github.com/yourusername/othello/internal/bitboard"
)

// Evaluator scores a position from the point of view of side. It is called
// at depth 0 and must be safe for concurrent use.
type Evaluator interface {
	Evaluate(b bitboard.Board, side bitboard.Side) Score
}

// EvaluatorFunc adapts a plain function to the Evaluator interface
type EvaluatorFunc func(b bitboard.Board, side bitboard.Side) Score

// Evaluate calls f(b, side)
func (f EvaluatorFunc) Evaluate(b bitboard.Board, side bitboard.Side) Score {
	return f(b, side)
}

// HeuristicWeights are the weights of the default evaluator
type HeuristicWeights struct {
	Piece  int // Per disc
	Corner int // Extra per corner disc
	Edge   int // Extra per edge disc, corners included
}

// DefaultHeuristicWeights returns the standard weights: discs count one,
// edges one more and corners two more on top of that.
func DefaultHeuristicWeights() HeuristicWeights {
	return HeuristicWeights{Piece: 1, Corner: 2, Edge: 1}
}

// HeuristicEvaluator is the default leaf evaluator. It scores the material
// and positional value of side minus that of the opponent.
type HeuristicEvaluator struct {
	Weights HeuristicWeights
}

// NewHeuristicEvaluator creates an evaluator with the default weights
func NewHeuristicEvaluator() *HeuristicEvaluator {
	return &HeuristicEvaluator{Weights: DefaultHeuristicWeights()}
}

// Evaluate returns value(side) - value(opponent)
func (h *HeuristicEvaluator) Evaluate(b bitboard.Board, side bitboard.Side) Score {
	return h.value(b.Pieces(side)) - h.value(b.Pieces(side.Opponent()))
}

func (h *HeuristicEvaluator) value(discs uint64) Score {
	w := h.Weights
	v := w.Piece*bits.OnesCount64(discs) +
		w.Corner*bits.OnesCount64(discs&bitboard.CornerMask) +
		w.Edge*bits.OnesCount64(discs&bitboard.EdgeMask)
	return Score(v)
}

// EndScore scores a finished game for side. Wins and losses sit just inside
// the score range so that any win beats any heuristic value; among wins,
// fewer opposing discs is better, and among losses, more own discs.
func EndScore(b bitboard.Board, side bitboard.Side, draw Score) Score {
	own := b.Count(side)
	opp := b.Count(side.Opponent())
	switch {
	case own < opp:
		return Lowest + 1 + Score(own)
	case own == opp:
		return draw
	default:
		return Highest - 1 - Score(opp)
	}
}
