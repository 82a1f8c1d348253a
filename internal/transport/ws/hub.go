package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Message types pushed to quiz clients
const (
	MsgTick             MessageType = "tick"
	MsgQuizCompleted    MessageType = "quiz_completed"
	MsgPaymentConfirmed MessageType = "payment_confirmed"
	MsgSessionReset     MessageType = "session_reset"
	MsgError            MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans session events out to every connection watching that session.
// A player may have the quiz open in more than one tab.
type Hub struct {
	sessions map[string]map[*Connection]struct{}
	mu       sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage

	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

// Connection represents a WebSocket connection
type Connection struct {
	SessionID string
	PlayerID  string
	Send      chan []byte
}

// BroadcastMessage is a message to broadcast. A message with Disconnect
// set closes the session's connections instead; it shares the queue so
// everything broadcast before it is still delivered.
type BroadcastMessage struct {
	SessionID  string
	Message    *Message
	Disconnect bool
}

// NewHub creates a new WebSocket hub and starts its loop
func NewHub(logger *slog.Logger) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan *BroadcastMessage, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer h.closeAll()

	for {
		select {
		case <-h.done:
			return

		case conn := <-h.register:
			h.mu.Lock()
			conns, ok := h.sessions[conn.SessionID]
			if !ok {
				conns = make(map[*Connection]struct{})
				h.sessions[conn.SessionID] = conns
			}
			conns[conn] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("ws connected", "session_id", conn.SessionID, "player_id", conn.PlayerID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.sessions[conn.SessionID]; ok {
				if _, ok := conns[conn]; ok {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.sessions, conn.SessionID)
					}
					h.logger.Debug("ws disconnected", "session_id", conn.SessionID)
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			if msg.Disconnect {
				h.mu.Lock()
				for conn := range h.sessions[msg.SessionID] {
					close(conn.Send)
				}
				delete(h.sessions, msg.SessionID)
				h.mu.Unlock()
				continue
			}

			data, err := json.Marshal(msg.Message)
			if err != nil {
				h.logger.Error("ws marshal failed", "type", msg.Message.Type, "error", err)
				continue
			}
			h.mu.RLock()
			for conn := range h.sessions[msg.SessionID] {
				select {
				case conn.Send <- data:
				default:
					// Slow reader; it catches up from the next tick
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conns := range h.sessions {
		for conn := range conns {
			close(conn.Send)
		}
		delete(h.sessions, id)
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// BroadcastToSession sends a message to every connection on a session
// (implements service.Broadcaster). It never blocks: when the hub is
// backed up the message is dropped.
func (h *Hub) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("ws payload marshal failed", "type", msgType, "error", err)
		return
	}
	msg := &BroadcastMessage{
		SessionID: sessionID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("ws broadcast dropped", "session_id", sessionID, "type", msgType)
	}
}

// DisconnectSession closes every connection on a session (implements
// service.Broadcaster)
func (h *Hub) DisconnectSession(sessionID string) {
	select {
	case h.broadcast <- &BroadcastMessage{SessionID: sessionID, Disconnect: true}:
	case <-h.done:
	default:
		h.logger.Warn("ws disconnect dropped", "session_id", sessionID)
	}
}

// Connections returns how many connections are watching a session
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// Close stops the hub and closes every connection
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
