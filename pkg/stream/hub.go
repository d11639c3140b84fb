// Package stream broadcasts live market price snapshots to WebSocket
// subscribers: one message per settled trade plus a periodic refresh tick.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/forecastd/forecastd/pkg/types"
)

// Snapshot is one broadcast frame: the full price state of every market.
type Snapshot struct {
	Type    string          `json:"type"` // "prices"
	Markets []*types.Market `json:"markets"`
	Time    time.Time       `json:"time"`
}

// Config holds hub configuration.
type Config struct {
	TickInterval time.Duration // periodic refresh; 0 disables the ticker
	WriteTimeout time.Duration
	SendBuffer   int
	Logger       *zap.Logger
}

// Hub fans price snapshots out to connected clients. Slow clients are
// dropped rather than allowed to stall the broadcast path.
type Hub struct {
	upgrader     websocket.Upgrader
	logger       *zap.Logger
	tickInterval time.Duration
	writeTimeout time.Duration
	sendBuffer   int

	// mu guards clients and every send/close on a client's send channel.
	mu      sync.Mutex
	clients map[*client]struct{}

	snapshot func() []*types.Market
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. snapshot provides the current market state for
// ticker-driven broadcasts and client greetings.
func NewHub(cfg *Config, snapshot func() []*types.Market) *Hub {
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 8
	}

	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:       cfg.Logger,
		tickInterval: cfg.TickInterval,
		writeTimeout: writeTimeout,
		sendBuffer:   sendBuffer,
		clients:      make(map[*client]struct{}),
		snapshot:     snapshot,
	}
}

// Run drives the periodic refresh until ctx is cancelled, then closes
// every client connection.
func (h *Hub) Run(ctx context.Context) {
	if h.tickInterval <= 0 {
		<-ctx.Done()
		h.closeAll()
		return
	}

	ticker := time.NewTicker(h.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.Broadcast(h.snapshot())
		}
	}
}

// ServeHTTP upgrades the request, registers the client, and greets it
// with the current market state.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket-upgrade-failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}

	frame, err := h.encode(h.snapshot())

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if err == nil {
		c.send <- frame // buffer is empty, cannot block
	}
	count := len(h.clients)
	h.mu.Unlock()

	SubscribersGauge.Set(float64(count))
	h.logger.Info("stream-client-connected", zap.Int("clients", count))

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast sends a snapshot of the given markets to every client.
// Clients whose send buffer is full are disconnected.
func (h *Hub) Broadcast(markets []*types.Market) {
	frame, err := h.encode(markets)
	if err != nil {
		h.logger.Error("snapshot-encode-failed", zap.Error(err))
		return
	}

	var slow []*client

	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.drop(c, "send-buffer-full")
	}

	BroadcastsTotal.Inc()
}

func (h *Hub) encode(markets []*types.Market) ([]byte, error) {
	return json.Marshal(&Snapshot{Type: "prices", Markets: markets, Time: time.Now()})
}

func (h *Hub) writeLoop(c *client) {
	for frame := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			h.drop(c, "write-failed")
			return
		}
		MessagesSentTotal.Inc()
	}
}

// readLoop drains the connection so control frames are processed and
// the client going away is detected.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c, "read-closed")
			return
		}
	}
}

func (h *Hub) drop(c *client, reason string) {
	h.mu.Lock()
	_, present := h.clients[c]
	if present {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !present {
		return
	}

	c.conn.Close()
	SubscribersGauge.Set(float64(count))
	h.logger.Info("stream-client-disconnected",
		zap.String("reason", reason),
		zap.Int("clients", count))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c, "shutdown")
	}
}
