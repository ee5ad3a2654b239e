package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/queries"
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/domain/core/entities"
)

// Server to client message types
const (
	TypeConnectionEstablished = "CONNECTION_ESTABLISHED"
	TypeProfilesSnapshot      = "PROFILES_SNAPSHOT"
	TypeAnalysis              = "ANALYSIS"
	TypeError                 = "ERROR"
	TypePing                  = "ping"
)

// Hub maintains active WebSocket connections and pushes history snapshots
// to every connection of a user
type Hub struct {
	// userID -> set of clients
	connections map[string]map[*Client]bool
	// userID -> cancels for the history listeners of that user
	listeners map[string][]func()
	mu        sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	ctx    context.Context
	cancel context.CancelFunc
	gauge  services.Gauge
	logger *zap.Logger

	metrics *HubMetrics
}

// HubMetrics tracks WebSocket metrics
type HubMetrics struct {
	ActiveConnections int64
	MessagesSent      int64
	MessagesFailed    int64
	mu                sync.RWMutex
}

// HubStats is a point-in-time copy of HubMetrics
type HubStats struct {
	ActiveConnections int64 `json:"activeConnections"`
	MessagesSent      int64 `json:"messagesSent"`
	MessagesFailed    int64 `json:"messagesFailed"`
}

// BroadcastMessage is the envelope of every server message
type BroadcastMessage struct {
	UserID    string          `json:"-"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewHub creates a new WebSocket hub; gauge may be nil
func NewHub(gauge services.Gauge, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		connections: make(map[string]map[*Client]bool),
		listeners:   make(map[string][]func()),
		register:    make(chan *Client, 100),
		unregister:  make(chan *Client, 100),
		broadcast:   make(chan *BroadcastMessage, 1000),
		ctx:         ctx,
		cancel:      cancel,
		gauge:       gauge,
		logger:      logger,
		metrics:     &HubMetrics{},
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToUser(message)

		case <-ticker.C:
			h.performHealthCheck()
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.logger.Info("Stopping WebSocket hub")
	h.cancel()
}

// SendToUser queues a message for every connection of userID
func (h *Hub) SendToUser(userID, messageType string, data interface{}) error {
	message, err := newMessage(messageType, data)
	if err != nil {
		return err
	}
	message.UserID = userID

	select {
	case h.broadcast <- message:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("hub stopped, message dropped")
	case <-time.After(5 * time.Second):
		return fmt.Errorf("broadcast channel full, message dropped")
	}
}

func newMessage(messageType string, data interface{}) (*BroadcastMessage, error) {
	message := &BroadcastMessage{Type: messageType, Timestamp: time.Now().Unix()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
		message.Data = raw
	}
	return message, nil
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	first := h.connections[client.userID] == nil
	if first {
		h.connections[client.userID] = make(map[*Client]bool)
	}
	h.connections[client.userID][client] = true
	h.mu.Unlock()

	if first {
		h.followHistory(client.userID, client.workbench)
	}
	client.enqueue(TypeProfilesSnapshot, queries.NewProfileViews(client.workbench.History().Profiles()))

	h.metrics.mu.Lock()
	h.metrics.ActiveConnections++
	active := h.metrics.ActiveConnections
	h.metrics.mu.Unlock()
	h.setGauge(active)

	h.logger.Info("Client registered",
		zap.String("userID", client.userID),
		zap.String("connectionID", client.id),
	)
}

// followHistory forwards every reconciliation and sync failure of the
// user's history to all of the user's connections
func (h *Hub) followHistory(userID string, wb *services.Workbench) {
	history := wb.History()
	cancelChange := history.OnChange(func(profiles []*entities.Profile) {
		if err := h.SendToUser(userID, TypeProfilesSnapshot, queries.NewProfileViews(profiles)); err != nil {
			h.logger.Warn("Failed to push profile snapshot", zap.String("userID", userID), zap.Error(err))
		}
	})
	cancelError := history.OnSyncError(func(err error) {
		_ = h.SendToUser(userID, TypeError, errorPayload(err))
	})

	h.mu.Lock()
	h.listeners[userID] = []func(){cancelChange, cancelError}
	h.mu.Unlock()
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	clients, ok := h.connections[client.userID]
	if !ok || !clients[client] {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	close(client.send)

	var cancels []func()
	if len(clients) == 0 {
		delete(h.connections, client.userID)
		cancels = h.listeners[client.userID]
		delete(h.listeners, client.userID)
	}
	remaining := len(clients)
	h.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	h.metrics.mu.Lock()
	h.metrics.ActiveConnections--
	active := h.metrics.ActiveConnections
	h.metrics.mu.Unlock()
	h.setGauge(active)

	h.logger.Info("Client unregistered",
		zap.String("userID", client.userID),
		zap.String("connectionID", client.id),
		zap.Int("remainingConnections", remaining),
	)
}

func (h *Hub) broadcastToUser(message *BroadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.connections[message.UserID]))
	for c := range h.connections[message.UserID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		h.logger.Debug("No active connections for user",
			zap.String("userID", message.UserID),
			zap.String("messageType", message.Type),
		)
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message",
			zap.Error(err),
			zap.String("messageType", message.Type),
		)
		return
	}

	for _, client := range clients {
		select {
		case client.send <- data:
			h.metrics.mu.Lock()
			h.metrics.MessagesSent++
			h.metrics.mu.Unlock()
		default:
			h.metrics.mu.Lock()
			h.metrics.MessagesFailed++
			h.metrics.mu.Unlock()

			h.logger.Warn("Closing slow client",
				zap.String("userID", client.userID),
				zap.String("connectionID", client.id),
			)
			h.unregisterClient(client)
			_ = client.conn.Close()
		}
	}
}

func (h *Hub) performHealthCheck() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ping, _ := json.Marshal(BroadcastMessage{Type: TypePing, Timestamp: time.Now().Unix()})
	total := 0
	for userID, clients := range h.connections {
		total += len(clients)
		for client := range clients {
			select {
			case client.send <- ping:
			default:
				h.logger.Warn("Failed to ping client",
					zap.String("userID", userID),
					zap.String("connectionID", client.id),
				)
			}
		}
	}

	h.logger.Debug("Health check performed",
		zap.Int("totalConnections", total),
		zap.Int("totalUsers", len(h.connections)),
	)
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.connections {
		for client := range clients {
			close(client.send)
			_ = client.conn.Close()
		}
		delete(h.connections, userID)
	}
	for userID, cancels := range h.listeners {
		for _, cancel := range cancels {
			cancel()
		}
		delete(h.listeners, userID)
	}
	h.logger.Info("All connections closed")
}

func (h *Hub) setGauge(active int64) {
	if h.gauge != nil {
		h.gauge.Set(float64(active))
	}
}

// GetMetrics returns current hub metrics
func (h *Hub) GetMetrics() HubStats {
	h.metrics.mu.RLock()
	defer h.metrics.mu.RUnlock()
	return HubStats{
		ActiveConnections: h.metrics.ActiveConnections,
		MessagesSent:      h.metrics.MessagesSent,
		MessagesFailed:    h.metrics.MessagesFailed,
	}
}

// GetConnectionCount returns the number of active connections for a user
func (h *Hub) GetConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}
