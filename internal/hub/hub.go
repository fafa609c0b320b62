// Package hub maintains the set of live WebSocket subscribers and fans
// typed board updates out to every open connection. Subscribers have no
// persisted identity: a reconnecting client is a brand-new subscriber.
package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"flowerboard.live/fbd/internal/logger"
	"flowerboard.live/fbd/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxInboundSize = 512
	sendBufferSize = 16
)

// Client is one connected subscriber. Outbound messages are queued on a
// buffered channel drained by a single writer goroutine, so a slow or
// dead connection never blocks a broadcast.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// enqueue queues a payload unless the client is closed or its buffer is
// full. Both cases are silent: disconnect races during a broadcast are
// expected.
func (c *Client) enqueue(payload []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- payload:
	default:
	}
}

// Send marshals and queues one message for this subscriber only.
// Messages sent through one client are delivered in call order.
func (c *Client) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	c.enqueue(data)
	return nil
}

func (c *Client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.Unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
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

// readPump discards inbound frames; the protocol is server-push only.
// Its real job is noticing the peer going away.
func (c *Client) readPump(h *Hub) {
	defer h.Unregister(c)

	c.conn.SetReadLimit(maxInboundSize)
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

// Hub owns the subscriber set.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *logger.Logger
}

// New creates an empty hub.
func New(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.New(100)
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log,
	}
}

// Register wraps an upgraded connection, adds it to the subscriber set,
// and starts its read/write pumps.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	online := len(h.clients)
	h.mu.Unlock()

	h.log.Info(fmt.Sprintf("Subscriber %s connected (%d online)", c.id, online))

	go c.writePump(h)
	go c.readPump(h)

	return c
}

// Unregister removes a client and closes its connection. Calling it for
// an already-removed client is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	online := len(h.clients)
	h.mu.Unlock()

	c.close()
	if present {
		h.log.Info(fmt.Sprintf("Subscriber %s disconnected (%d online)", c.id, online))
	}
}

// Count returns the number of registered subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// snapshot copies the subscriber set so broadcasts never iterate the
// live map while connect/disconnect events mutate it.
func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Broadcast marshals payload once and queues the same bytes to every
// subscriber registered at call time.
func (h *Hub) Broadcast(payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error(fmt.Sprintf("Failed to marshal broadcast: %v", err))
		return
	}

	for _, c := range h.snapshot() {
		c.enqueue(data)
	}
}

// BroadcastAnnouncement pushes a new announcement to all subscribers.
func (h *Hub) BroadcastAnnouncement(message string) {
	h.Broadcast(types.AnnouncementMessage{
		Type:    types.MessageAnnouncement,
		Message: message,
	})
}

// BroadcastRanks pushes a fresh aggregation to all subscribers.
func (h *Hub) BroadcastRanks(summary types.RankSummary) {
	h.Broadcast(types.RankUpdateMessage{
		Type:  types.MessageRankUpdate,
		Ranks: summary,
	})
}
