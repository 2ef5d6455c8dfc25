// Package api provides an HTTP/JSON API for the Othello search engine.
package api

import "github.com/yourusername/othello/pkg/engine"

// ============================================================================
// Request Types
// ============================================================================

// PositionRequest identifies a position. Either Position or Diagram must be
// set; Side overrides the side encoded in the position ID suffix.
type PositionRequest struct {
	Position string `json:"position,omitempty"` // Position ID, optional ":b"/":w" suffix
	Diagram  string `json:"diagram,omitempty"`  // 8x8 text diagram, rank 8 first
	Side     string `json:"side,omitempty"`     // "black" or "white" (default black)
}

// EvaluateRequest is the request body for a static evaluation.
type EvaluateRequest struct {
	PositionRequest
}

// MovesRequest is the request body for ranking the legal moves.
type MovesRequest struct {
	PositionRequest
	Depth    int `json:"depth,omitempty"`     // Search depth (default 4)
	NumMoves int `json:"num_moves,omitempty"` // Max moves to return (0 = all)
}

// SearchRequest is the request body for a root search.
type SearchRequest struct {
	PositionRequest
	Depth     int            `json:"depth,omitempty"`     // Search depth (default engine MaxDepth)
	Algorithm string         `json:"algorithm,omitempty"` // "alphabeta", "mtdf" or "iterative"
	Window    *engine.Window `json:"window,omitempty"`    // Root window for alphabeta
	Guess     int32          `json:"guess,omitempty"`     // First guess for the MTD(f) drivers
	Workers   int            `json:"workers,omitempty"`   // Worker goroutines (default 1)
}

// ============================================================================
// Response Types
// ============================================================================

// EvaluateResponse is the response for a static evaluation.
type EvaluateResponse struct {
	Score    engine.Score `json:"score"`     // Heuristic value for the side to move
	Side     string       `json:"side"`      // Side to move
	Black    int          `json:"black"`     // Black discs
	White    int          `json:"white"`     // White discs
	Empty    int          `json:"empty"`     // Empty squares
	Moves    []string     `json:"moves"`     // Legal moves for the side to move
	GameOver bool         `json:"game_over"` // Neither side can move
	Position string       `json:"position"`  // Canonical position ID with side
}

// MoveResponse is a single ranked move.
type MoveResponse struct {
	Move  string       `json:"move"`  // Algebraic notation, e.g. "d3"
	Score engine.Score `json:"score"` // Searched score after the move
}

// MovesResponse is the response for move ranking.
type MovesResponse struct {
	Moves    []MoveResponse `json:"moves"`     // Ranked moves, best first
	NumLegal int            `json:"num_legal"` // Total legal moves
	Depth    int            `json:"depth"`     // Depth used
	Position string         `json:"position"`  // Canonical position ID with side
}

// SearchResponse is the response for a root search.
type SearchResponse struct {
	Score     engine.Score `json:"score"`
	BestMove  string       `json:"best_move"`
	Depth     int          `json:"depth"`
	Algorithm string       `json:"algorithm"`
	Workers   int          `json:"workers"`
	ElapsedMS float64      `json:"elapsed_ms"`
	Position  string       `json:"position"`
	Stats     engine.Stats `json:"stats"`
}

// CacheResponse reports the shared transposition cache.
type CacheResponse struct {
	engine.CacheStats
	HitRate float64 `json:"hit_rate"` // Percentage of lookups that hit
	Enabled bool    `json:"enabled"`
}

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status  string     `json:"status"`         // "ok" or "error"
	Version string     `json:"version"`        // Engine version
	Ready   bool       `json:"ready"`          // Engine is ready
	Pool    *PoolStats `json:"pool,omitempty"` // Worker pool statistics
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`          // Error message
	Code  string `json:"code,omitempty"` // Error code
}

// SearchToResponse converts an engine search result to the API shape.
func SearchToResponse(res *engine.SearchResult, position string) SearchResponse {
	return SearchResponse{
		Score:     res.Score,
		BestMove:  res.BestMove.String(),
		Depth:     res.Depth,
		Algorithm: string(res.Algorithm),
		Workers:   res.Workers,
		ElapsedMS: float64(res.Elapsed.Microseconds()) / 1000,
		Position:  position,
		Stats:     res.Stats,
	}
}
