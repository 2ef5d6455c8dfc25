package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yourusername/othello/pkg/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins - configure properly in production
	},
}

// WSMessage is a generic WebSocket message.
type WSMessage struct {
	Type    string          `json:"type"`    // Message type: "search", "evaluate", "moves", "ping"
	ID      string          `json:"id"`      // Request ID for correlating responses
	Payload json.RawMessage `json:"payload"` // Type-specific payload
}

// WSResponse is a generic WebSocket response.
type WSResponse struct {
	Type    string      `json:"type"`              // Response type: "result", "progress", "error", "pong"
	ID      string      `json:"id,omitempty"`      // Request ID
	Payload interface{} `json:"payload,omitempty"` // Response data
	Error   string      `json:"error,omitempty"`   // Error message if any
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	conn     *websocket.Conn
	handlers *Handlers
	sendChan chan WSResponse
	ctx      context.Context // cancelled when the connection closes
	cancel   context.CancelFunc
	wg       sync.WaitGroup // searches still running
}

// WebSocket handles WebSocket connections for interactive analysis. Searches
// run in the background so a client can keep pinging while one is running.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	client := &WSClient{conn: conn, handlers: h, sendChan: make(chan WSResponse, 256), ctx: ctx, cancel: cancel}
	go client.writePump()
	client.readPump()
}

func (c *WSClient) writePump() {
	defer c.conn.Close()
	for msg := range c.sendChan {
		if err := c.conn.WriteJSON(msg); err != nil {
			c.cancel()
			for range c.sendChan {
			}
			return
		}
	}
}

func (c *WSClient) readPump() {
	defer func() {
		c.cancel()
		c.wg.Wait()
		close(c.sendChan)
		c.conn.Close()
	}()
	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.handleMessage(msg)
	}
}

func (c *WSClient) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "search":
		c.handleSearch(msg)
	case "evaluate":
		c.handleEvaluate(msg)
	case "moves":
		c.handleMoves(msg)
	case "ping":
		c.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "unknown message type"}
	}
}

func (c *WSClient) handleSearch(msg WSMessage) {
	var req SearchRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"}
		return
	}
	ereq, pos, err := c.handlers.toEngineRequest(req)
	if err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error()}
		return
	}
	ereq.Progress = func(p engine.Progress) {
		c.sendChan <- WSResponse{Type: "progress", ID: msg.ID, Payload: p}
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.handlers.runSearch(c.ctx, ereq, false)
		switch {
		case errors.Is(err, errBusy):
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error()}
			return
		case err != nil:
			c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "search failed: " + err.Error()}
			return
		}
		c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: SearchToResponse(res, pos)}
	}()
}

// reserveFast takes a fast slot without waiting, telling the client when
// none is free.
func (c *WSClient) reserveFast(id string) bool {
	if c.handlers.pool == nil || c.handlers.pool.TryAcquireFast() {
		return true
	}
	c.sendChan <- WSResponse{Type: "error", ID: id, Error: errBusy.Error()}
	return false
}

func (c *WSClient) releaseFast() {
	if c.handlers.pool != nil {
		c.handlers.pool.ReleaseFast()
	}
}

func (c *WSClient) handleEvaluate(msg WSMessage) {
	if !c.reserveFast(msg.ID) {
		return
	}
	defer c.releaseFast()

	var req EvaluateRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"}
		return
	}
	resp, err := c.handlers.evaluate(req)
	if err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error()}
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: resp}
}

func (c *WSClient) handleMoves(msg WSMessage) {
	if !c.reserveFast(msg.ID) {
		return
	}
	defer c.releaseFast()

	var req MovesRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: "invalid payload"}
		return
	}
	resp, err := c.handlers.rankMoves(req)
	if err != nil {
		c.sendChan <- WSResponse{Type: "error", ID: msg.ID, Error: err.Error()}
		return
	}
	c.sendChan <- WSResponse{Type: "result", ID: msg.ID, Payload: resp}
}
