package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/yourusername/othello/pkg/engine"
)

// SSEEvent represents a Server-Sent Event.
type SSEEvent struct {
	Event string      `json:"event"` // Event type: "progress", "result", "error"
	Data  interface{} `json:"data"`  // Event data
}

// SearchSSE streams a search as Server-Sent Events. Iterative MTD(f)
// searches send a progress event per finished depth.
// GET /api/search/stream?position=...&depth=...&algorithm=...&workers=...
func (h *Handlers) SearchSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	ereq, pos, err := h.toEngineRequest(searchParams(r))
	if err != nil {
		writeSSEError(w, err.Error())
		return
	}

	// progress arrives on a worker goroutine
	var mu sync.Mutex
	ereq.Progress = func(p engine.Progress) {
		mu.Lock()
		defer mu.Unlock()
		writeSSEEvent(w, "progress", p)
		flusher.Flush()
	}

	res, err := h.runSearch(r.Context(), ereq, true)
	if err != nil {
		writeSSEError(w, "search failed: "+err.Error())
		return
	}

	mu.Lock()
	defer mu.Unlock()
	writeSSEEvent(w, "result", SearchToResponse(res, pos))
	flusher.Flush()

	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return defaultVal
	}
	return val
}
