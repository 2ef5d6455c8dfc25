package engine

import (
	"fmt"
	"math"
)

// Score is a negamax score from the point of view of the side to move.
type Score int32

const (
	// NoScore marks an unknown score. It is never a real result.
	NoScore Score = math.MinInt32
	// Lowest is the smallest real score; -Lowest == Highest.
	Lowest Score = math.MinInt32 + 1
	// Highest is the largest real score.
	Highest Score = math.MaxInt32
)

func (s Score) String() string {
	switch s {
	case NoScore:
		return "none"
	case Lowest:
		return "-inf"
	case Highest:
		return "+inf"
	}
	return fmt.Sprintf("%d", int32(s))
}

// Window is a closed score interval [Alpha, Beta]. A window stored in the
// cache is a bound on the true value of its key.
type Window struct {
	Alpha Score `json:"alpha"`
	Beta  Score `json:"beta"`
}

// FullWindow returns [Lowest, Highest].
func FullWindow() Window {
	return Window{Alpha: Lowest, Beta: Highest}
}

// Valid reports whether Alpha <= Beta.
func (w Window) Valid() bool {
	return w.Alpha <= w.Beta
}

// Exact reports whether the window has collapsed to a single score.
func (w Window) Exact() bool {
	return w.Alpha == w.Beta
}

// Narrow intersects two windows. The result may be invalid if they are
// disjoint.
func (w Window) Narrow(other Window) Window {
	return Window{Alpha: max(w.Alpha, other.Alpha), Beta: min(w.Beta, other.Beta)}
}

// Negate returns the window seen from the opponent.
func (w Window) Negate() Window {
	return Window{Alpha: -w.Beta, Beta: -w.Alpha}
}

// ChildWindow returns the window for a child search given the best score
// found so far among its siblings.
func (w Window) ChildWindow(best Score) Window {
	return Window{Alpha: -w.Beta, Beta: -max(w.Alpha, best)}
}

// Record converts a fail-soft result searched with window w into the bound
// that may be stored for it.
func (w Window) Record(score Score) Window {
	switch {
	case score <= w.Alpha:
		return Window{Alpha: Lowest, Beta: score}
	case score >= w.Beta:
		return Window{Alpha: score, Beta: Highest}
	default:
		return Window{Alpha: score, Beta: score}
	}
}

// Resolves checks whether a stored bound answers a search with window w.
// It returns the score to use and true when no search is needed.
func (w Window) Resolves(stored Window) (Score, bool) {
	if stored.Alpha >= w.Beta {
		return stored.Alpha, true
	}
	if stored.Beta <= w.Alpha {
		return stored.Beta, true
	}
	if m := w.Narrow(stored); m.Alpha >= m.Beta {
		return m.Alpha, true
	}
	return NoScore, false
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s]", w.Alpha, w.Beta)
}

// WindowError reports a window with Alpha > Beta reaching a search entry.
type WindowError struct {
	Window Window
	Depth  int
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%v: %s at depth %d", ErrInconsistentWindow, e.Window, e.Depth)
}

func (e *WindowError) Is(target error) bool {
	return target == ErrInconsistentWindow
}

// checkWindow panics with a *WindowError when w is not a valid window.
func checkWindow(w Window, depth int) {
	if w.Alpha > w.Beta {
		panic(&WindowError{Window: w, Depth: depth})
	}
}
