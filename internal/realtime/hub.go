package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one connected back-office dashboard.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans wallet transaction events out to connected dashboards. Events
// arrive over Redis Pub/Sub so every API instance sees commits from every
// other instance.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	pubsub *redis.PubSub

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates the feed hub. redisClient may be nil, in which case only
// locally broadcast events are delivered.
func NewHub(redisClient *redis.Client) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		ctx:        ctx,
		cancel:     cancel,
	}

	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, eventsChannel)
	}

	return h
}

// Run starts the hub loop (call in a goroutine).
func (h *Hub) Run() {
	if h.pubsub != nil {
		go h.runRedisSubscriber()
	}

	for {
		select {
		case <-h.ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().Int("clients", len(h.clients)).Msg("Dashboard connected to wallet feed")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			log.Debug().Msg("Dashboard disconnected from wallet feed")

		case payload := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Slow consumer, drop the event for this client.
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Shutdown stops the hub and its Redis subscription.
func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}

func (h *Hub) runRedisSubscriber() {
	ch := h.pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case h.broadcast <- []byte(msg.Payload):
			case <-h.ctx.Done():
				return
			}
		}
	}
}

func (c *Client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection; the feed is one-way but reads are needed
// for pong handling and close detection.
func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
