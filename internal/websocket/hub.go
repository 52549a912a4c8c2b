package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"marketlens/internal/infrastructure"
	"marketlens/pkg/contracts/events"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// Only the Run goroutine mutates the client set or closes send channels.
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	running bool
	quit    chan struct{}
	done    chan struct{}

	logger        *slog.Logger
	metrics       *infrastructure.BusinessMetrics
	datasetSource func() string

	messagesSent    atomic.Int64
	messagesDropped atomic.Int64
}

// NewHub creates a Hub. metrics may be nil.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// SetDatasetSource installs the lookup used to tell new clients which
// dataset is active.
func (h *Hub) SetDatasetSource(fn func() string) {
	h.mu.Lock()
	h.datasetSource = fn
	h.mu.Unlock()
}

// Start runs the hub loop in a goroutine. It is idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.Run()
}

// Stop ends the hub loop and disconnects every client. A stopped hub cannot
// be restarted.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// Running reports whether the hub loop is active.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			remaining := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.addConnections(context.Background(), -int64(remaining))
			h.logger.Info("hub stopped", slog.Int("disconnected", remaining))
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			ctx := client.context()
			h.addConnections(ctx, 1)
			h.logger.InfoContext(ctx, "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))
			h.welcome(client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if ok {
				ctx := client.context()
				h.addConnections(ctx, -1)
				h.logger.InfoContext(ctx, "client unregistered",
					slog.String("client_id", client.id),
					slog.Int("total_clients", count))
			}

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
			h.messagesSent.Add(1)
		default:
			// A client that cannot keep up is disconnected
			close(client.send)
			delete(h.clients, client)
			h.messagesDropped.Add(1)
			h.addConnections(context.Background(), -1)
			h.logger.Warn("client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}
}

func (h *Hub) welcome(client *Client) {
	h.mu.RLock()
	source := h.datasetSource
	h.mu.RUnlock()

	data := events.ConnectData{ClientID: client.id}
	if source != nil {
		data.DatasetID = source()
	}
	payload, err := json.Marshal(events.NewMessage(events.MessageTypeConnect, client.traceID, data))
	if err != nil {
		return
	}

	select {
	case client.send <- payload:
	default:
		h.logger.Warn("connect message dropped", slog.String("client_id", client.id))
	}
}

func (h *Hub) addConnections(ctx context.Context, delta int64) {
	if h.metrics != nil {
		h.metrics.WebSocketConnections.Add(ctx, delta)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// Publish broadcasts msg to every connected client. Messages published while
// the hub is not running are dropped.
func (h *Hub) Publish(ctx context.Context, msg events.Message) {
	if !h.Running() {
		h.logger.DebugContext(ctx, "hub not running, message dropped",
			slog.String("type", string(msg.Type)))
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- payload:
		h.logger.DebugContext(ctx, "message published",
			slog.String("type", string(msg.Type)),
			slog.Int("size", len(payload)))
	case <-h.quit:
	case <-ctx.Done():
		h.logger.WarnContext(ctx, "message not published",
			slog.String("type", string(msg.Type)),
			slog.String("error", ctx.Err().Error()))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns counters for the health endpoint
func (h *Hub) Stats() map[string]interface{} {
	return map[string]interface{}{
		"active_clients":   h.ClientCount(),
		"messages_sent":    h.messagesSent.Load(),
		"messages_dropped": h.messagesDropped.Load(),
	}
}
