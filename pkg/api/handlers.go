package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/yourusername/othello/internal/bitboard"
	"github.com/yourusername/othello/internal/positionid"
	"github.com/yourusername/othello/pkg/engine"
)

// DefaultMovesDepth is the depth used by /api/moves when none is given.
const DefaultMovesDepth = 4

// Handlers holds the HTTP handlers and engine reference.
type Handlers struct {
	engine   *engine.Engine
	version  string
	pool     *WorkerPool
	maxDepth int
	log      zerolog.Logger
}

// NewHandlers creates a new Handlers instance without a worker pool.
func NewHandlers(e *engine.Engine, version string) *Handlers {
	return NewHandlersWithPool(e, version, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(e *engine.Engine, version string, pool *WorkerPool) *Handlers {
	return &Handlers{
		engine:   e,
		version:  version,
		pool:     pool,
		maxDepth: engine.MaxSearchDepth,
		log:      log.Logger.With().Str("component", "api").Logger(),
	}
}

// SetLogger replaces the handler logger.
func (h *Handlers) SetLogger(l zerolog.Logger) {
	h.log = l.With().Str("component", "api").Logger()
}

// SetMaxDepth caps the depth a request may ask for.
func (h *Handlers) SetMaxDepth(depth int) {
	if depth > 0 && depth <= engine.MaxSearchDepth {
		h.maxDepth = depth
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// requestError is a client error with its API code.
type requestError struct {
	code string
	msg  string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(code, format string, args ...interface{}) error {
	return &requestError{code: code, msg: fmt.Sprintf(format, args...)}
}

// writeRequestError maps err to a status and code.
func writeRequestError(w http.ResponseWriter, err error) {
	var re *requestError
	if errors.As(err, &re) {
		writeError(w, http.StatusBadRequest, re.msg, re.code)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error(), "SEARCH_ERROR")
}

// parsePosition decodes the board and side to move of a request.
func parsePosition(req PositionRequest) (bitboard.Board, bitboard.Side, error) {
	var (
		b    bitboard.Board
		side = bitboard.Black
		err  error
	)
	switch {
	case req.Position != "":
		b, side, err = positionid.Parse(req.Position)
		if err != nil {
			return b, side, badRequest("INVALID_POSITION", "invalid position ID: %v", err)
		}
	case req.Diagram != "":
		b, err = positionid.BoardFromDiagram(req.Diagram)
		if err != nil {
			return b, side, badRequest("INVALID_POSITION", "invalid diagram: %v", err)
		}
	default:
		return b, side, badRequest("MISSING_POSITION", "position or diagram is required")
	}

	if req.Side != "" {
		side, err = bitboard.ParseSide(req.Side)
		if err != nil {
			return b, side, badRequest("INVALID_SIDE", "%v", err)
		}
	}
	return b, side, nil
}

func (h *Handlers) checkDepth(depth int) error {
	if depth < 0 || depth > h.maxDepth {
		return badRequest("INVALID_DEPTH", "depth %d out of range [0, %d]", depth, h.maxDepth)
	}
	return nil
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   h.engine != nil,
	}

	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// evaluate builds the evaluation response for a position.
func (h *Handlers) evaluate(req EvaluateRequest) (*EvaluateResponse, error) {
	b, side, err := parsePosition(req.PositionRequest)
	if err != nil {
		return nil, err
	}
	return &EvaluateResponse{
		Score:    h.engine.Evaluate(b, side),
		Side:     side.String(),
		Black:    b.Count(bitboard.Black),
		White:    b.Count(bitboard.White),
		Empty:    64 - b.Count(bitboard.Black) - b.Count(bitboard.White),
		Moves:    formatMoves(bitboard.MovesOf(b.LegalMoves(side))),
		GameOver: b.GameOver(),
		Position: positionid.PositionIDWithSide(b, side),
	}, nil
}

// Evaluate handles POST /api/evaluate
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	resp, err := h.evaluate(req)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func formatMoves(moves []bitboard.Move) []string {
	return lo.Map(moves, func(m bitboard.Move, _ int) string {
		return m.String()
	})
}

// rankMoves builds the move ranking response for a request.
func (h *Handlers) rankMoves(req MovesRequest) (*MovesResponse, error) {
	b, side, err := parsePosition(req.PositionRequest)
	if err != nil {
		return nil, err
	}
	depth := req.Depth
	if depth == 0 {
		depth = min(DefaultMovesDepth, h.maxDepth)
	}
	if err := h.checkDepth(depth); err != nil {
		return nil, err
	}
	if depth < 1 {
		return nil, badRequest("INVALID_DEPTH", "move ranking needs depth >= 1")
	}

	ranked, err := h.engine.RankMoves(b, side, depth, req.NumMoves)
	if err != nil {
		return nil, err
	}
	return &MovesResponse{
		Moves: lo.Map(ranked, func(ms engine.MoveScore, _ int) MoveResponse {
			return MoveResponse{Move: ms.Move.String(), Score: ms.Score}
		}),
		NumLegal: len(bitboard.MovesOf(b.LegalMoves(side))),
		Depth:    depth,
		Position: positionid.PositionIDWithSide(b, side),
	}, nil
}

// Moves handles POST /api/moves
func (h *Handlers) Moves(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", "SERVER_BUSY")
			return
		}
		defer h.pool.ReleaseFast()
	}

	var req MovesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	resp, err := h.rankMoves(req)
	if err != nil {
		writeRequestError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// toEngineRequest validates an API search request.
func (h *Handlers) toEngineRequest(req SearchRequest) (engine.SearchRequest, string, error) {
	b, side, err := parsePosition(req.PositionRequest)
	if err != nil {
		return engine.SearchRequest{}, "", err
	}
	if err := h.checkDepth(req.Depth); err != nil {
		return engine.SearchRequest{}, "", err
	}
	algo, err := engine.ParseAlgorithm(req.Algorithm)
	if err != nil {
		return engine.SearchRequest{}, "", badRequest("INVALID_ALGORITHM", "%v", err)
	}
	if req.Window != nil && !req.Window.Valid() {
		return engine.SearchRequest{}, "", badRequest("INVALID_WINDOW", "window %s is empty", req.Window)
	}

	depth := req.Depth
	if depth == 0 {
		depth = min(h.engine.Config().MaxDepth, h.maxDepth)
	}
	return engine.SearchRequest{
		Board:     b,
		Side:      side,
		Depth:     depth,
		Algorithm: algo,
		Window:    req.Window,
		Guess:     engine.Score(req.Guess),
		Workers:   req.Workers,
	}, positionid.PositionIDWithSide(b, side), nil
}

// errBusy is returned when a search may not wait and no thread is free.
var errBusy = errors.New("server busy")

// runSearch reserves threads from the pool and runs the search. Unless wait
// is set it fails with errBusy instead of queueing for threads.
func (h *Handlers) runSearch(ctx context.Context, req engine.SearchRequest, wait bool) (*engine.SearchResult, error) {
	if h.pool != nil {
		var n int
		if wait {
			var err error
			if n, err = h.pool.AcquireSearch(ctx, req.Workers); err != nil {
				return nil, err
			}
		} else {
			var ok bool
			if n, ok = h.pool.TryAcquireSearch(req.Workers); !ok {
				return nil, errBusy
			}
		}
		defer h.pool.ReleaseSearch(n)
		req.Workers = n
	}

	res, err := h.engine.Analyze(ctx, req)
	if err != nil {
		h.log.Warn().Err(err).Int("depth", req.Depth).Str("algorithm", string(req.Algorithm)).Msg("search failed")
		return nil, err
	}
	h.log.Info().
		Int("depth", res.Depth).
		Str("algorithm", string(res.Algorithm)).
		Int("workers", res.Workers).
		Stringer("score", res.Score).
		Stringer("best", res.BestMove).
		Dur("elapsed", res.Elapsed).
		Msg("search complete")
	return res, nil
}

// Search handles POST /api/search
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", "INVALID_JSON")
		return
	}

	ereq, pos, err := h.toEngineRequest(req)
	if err != nil {
		writeRequestError(w, err)
		return
	}

	res, err := h.runSearch(r.Context(), ereq, true)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, SearchToResponse(res, pos))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "search cancelled", "CANCELLED")
	case errors.Is(err, engine.ErrInconsistentWindow):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_WINDOW")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "SEARCH_ERROR")
	}
}

// Cache handles GET /api/cache and DELETE /api/cache
func (h *Handlers) Cache(w http.ResponseWriter, r *http.Request) {
	c := h.engine.Cache()
	if r.Method == http.MethodDelete {
		h.engine.ClearCache()
		h.log.Info().Msg("cache cleared")
	}
	st := c.Stats()
	writeJSON(w, http.StatusOK, CacheResponse{
		CacheStats: st,
		HitRate:    st.HitRate(),
		Enabled:    c != nil,
	})
}

// searchParams reads a search request from query parameters.
func searchParams(r *http.Request) SearchRequest {
	q := r.URL.Query()
	return SearchRequest{
		PositionRequest: PositionRequest{
			Position: q.Get("position"),
			Diagram:  q.Get("diagram"),
			Side:     q.Get("side"),
		},
		Depth:     parseIntParam(q.Get("depth"), 0),
		Algorithm: strings.TrimSpace(q.Get("algorithm")),
		Guess:     int32(parseIntParam(q.Get("guess"), 0)),
		Workers:   parseIntParam(q.Get("workers"), 1),
	}
}
