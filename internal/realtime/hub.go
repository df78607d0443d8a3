package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RedisPublisher publishes user events for cross-instance broadcast.
type RedisPublisher interface {
	PublishUserEvent(userID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to a user's events from other instances.
type RedisSubscriber interface {
	SubscribeUser(userID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub tracks connected notification-stream clients per user and fans events
// out to them, bridging across instances via Redis pub/sub.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[string]*Client // userID -> clientID -> client
	cancels map[uuid.UUID]func()             // userID -> redis subscription cancel

	redisPub RedisPublisher
	redisSub RedisSubscriber
	logger   *zap.Logger
}

// NewHub creates a notification hub.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[uuid.UUID]map[string]*Client),
		cancels:  make(map[uuid.UUID]func()),
		redisPub: redisPub,
		redisSub: redisSub,
		logger:   logger,
	}
}

// Register adds a client and, for the user's first connection on this
// instance, subscribes to their Redis channel.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.UserID] == nil {
		h.clients[c.UserID] = make(map[string]*Client)
		if h.redisSub != nil {
			userID := c.UserID
			cancel, err := h.redisSub.SubscribeUser(userID, func(event string, payload []byte) {
				h.deliverLocal(userID, event, payload)
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.Error(err), zap.String("user_id", userID.String()))
			} else {
				h.cancels[userID] = cancel
			}
		}
	}
	h.clients[c.UserID][c.ID] = c
}

// Unregister removes a client, dropping the Redis subscription when the
// user's last connection on this instance goes away.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if cl, ok := conns[c.ID]; ok {
		delete(conns, c.ID)
		close(cl.send)
	}
	if len(conns) == 0 {
		delete(h.clients, c.UserID)
		if cancel, ok := h.cancels[c.UserID]; ok {
			cancel()
			delete(h.cancels, c.UserID)
		}
	}
}

// PublishToUser delivers an event to the user's local connections and
// publishes it for other instances. Failures are logged only.
func (h *Hub) PublishToUser(userID uuid.UUID, event string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal event payload failed", zap.Error(err), zap.String("event", event))
		return
	}
	h.deliverLocal(userID, event, raw)
	if h.redisPub != nil {
		if err := h.redisPub.PublishUserEvent(userID, event, raw); err != nil {
			h.logger.Warn("redis publish failed", zap.Error(err), zap.String("event", event))
		}
	}
}

func (h *Hub) deliverLocal(userID uuid.UUID, event string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients[userID] {
		select {
		case c.send <- WSMessage{Event: event, Data: payload}:
		default:
			// slow consumer, drop
		}
	}
}

// ConnectionCount returns the number of local connections for a user.
func (h *Hub) ConnectionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
