package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hearthside/hearthside-backend/internal/realtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const redisPubSubChannel = "chat:events"

var wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ws_connections",
	Help: "Number of currently connected WebSocket clients",
})

// Hub manages WebSocket clients and fans chat events out to them.
// It implements realtime.Broadcaster; with Redis configured, events reach
// clients connected to other instances too.
type Hub struct {
	// Registered clients grouped by user ID
	clients map[uint64]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Broadcast to a set of users
	broadcast chan *targetedEvent

	mu          sync.RWMutex
	redisClient *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
}

type targetedEvent struct {
	UserIDs []uint64
	Event   *realtime.Event
}

// NewHub creates a new Hub
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uint64]map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *targetedEvent, 256),
		redisClient: redisClient,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	// Start Redis subscriber if Redis is available
	if h.redisClient != nil {
		go h.subscribeRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mu.Unlock()
			wsConnections.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.userID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.userID)
					}
					wsConnections.Dec()
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliverLocal(msg)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) deliverLocal(msg *targetedEvent) {
	data, err := json.Marshal(msg.Event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, userID := range msg.UserIDs {
		clients, ok := h.clients[userID]
		if !ok {
			continue
		}
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// slow consumer, drop the connection
				close(client.send)
				delete(clients, client)
			}
		}
	}
}

// Publish sends an event to a set of users (local + Redis publish).
// Implements realtime.Broadcaster: at-most-once, best-effort.
func (h *Hub) Publish(userIDs []uint64, event *realtime.Event) {
	if len(userIDs) == 0 {
		return
	}

	// Local broadcast
	h.broadcast <- &targetedEvent{UserIDs: userIDs, Event: event}

	// Publish to Redis for multi-instance support
	if h.redisClient != nil {
		msg := &redisMessage{UserIDs: userIDs, Event: event}
		data, err := json.Marshal(msg)
		if err == nil {
			h.redisClient.Publish(h.ctx, redisPubSubChannel, data) //nolint:errcheck
		}
	}
}

type redisMessage struct {
	UserIDs []uint64        `json:"user_ids"`
	Event   *realtime.Event `json:"event"`
}

// subscribeRedis listens for events published by other instances
func (h *Hub) subscribeRedis() {
	pubsub := h.redisClient.Subscribe(h.ctx, redisPubSubChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var rm redisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &rm); err == nil {
				// Only local delivery (don't re-publish to Redis)
				h.broadcast <- &targetedEvent{UserIDs: rm.UserIDs, Event: rm.Event}
			}
		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}
