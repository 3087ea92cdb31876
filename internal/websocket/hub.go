package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// Message is one change-feed event. Type is "<entity>_<action>", for example
// "weight_created".
type Message struct {
	Type     string       `json:"type"`
	Entity   string       `json:"entity"`
	Action   string       `json:"action"`
	ID       string       `json:"id,omitempty"`
	MemberID string       `json:"member_id,omitempty"`
	Backup   *BackupEvent `json:"backup,omitempty"`
}

// BackupEvent carries the backup manager's state on "backup_*" events.
type BackupEvent struct {
	InProgress bool   `json:"in_progress"`
	Error      string `json:"error,omitempty"`
}

func newMessage(entity, action string) Message {
	return Message{Type: entity + "_" + action, Entity: entity, Action: action}
}

func MemberChanged(action, id string) Message {
	m := newMessage("member", action)
	m.ID = id
	return m
}

// WeightChanged describes a weight mutation. memberID is empty on delete,
// where only the weight id is known.
func WeightChanged(action, id, memberID string) Message {
	m := newMessage("weight", action)
	m.ID = id
	m.MemberID = memberID
	return m
}

// BackupChanged reports a backup state transition; state becomes the action.
func BackupChanged(state string, inProgress bool, errMsg string) Message {
	m := newMessage("backup", state)
	m.Backup = &BackupEvent{InProgress: inProgress, Error: errMsg}
	return m
}

// Hub fans change events out to the connected change-feed clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("feed client joined", "clients", n)
}

// Unregister drops c and closes its queue. Calling it twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("feed client left", "clients", n)
	}
}

// Broadcast queues msg for every client without blocking and returns how
// many clients accepted it. A client with a full queue misses the event.
func (h *Hub) Broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode feed event", "type", msg.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- data:
			delivered++
		default:
		}
	}
	if dropped := len(h.clients) - delivered; dropped > 0 {
		h.logger.Warn("feed event dropped for slow clients", "type", msg.Type, "dropped", dropped)
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
