package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/commands"
	"github.com/Widerk/shapesbonding/application/commands/bus"
	"github.com/Widerk/shapesbonding/application/queries"
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/domain/geometry"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	sendBufferSize = 256

	// Time allowed for a save or delete issued from the socket
	commandTimeout = 10 * time.Second
)

// Client to server message types
const (
	ActionSetField  = "set_field"
	ActionSetSlider = "set_slider"
	ActionSave      = "save"
	ActionDelete    = "delete"
	ActionSelect    = "select"
	ActionPong      = "pong"
)

// ClientMessage is one command sent by the browser
type ClientMessage struct {
	Type   string  `json:"type"`
	Key    string  `json:"key,omitempty"`
	Value  string  `json:"value,omitempty"`
	Number float64 `json:"number,omitempty"`
	Name   string  `json:"name,omitempty"`
	ID     string  `json:"id,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	id         string
	userID     string
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	workbench  *services.Workbench
	release    func()
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewClient creates a new WebSocket client. release runs once the read pump
// stops and frees the session pin taken for the connection; it may be nil.
func NewClient(userID string, hub *Hub, conn *websocket.Conn, wb *services.Workbench, release func(), commandBus *bus.CommandBus, logger *zap.Logger) *Client {
	id := uuid.New().String()
	if release == nil {
		release = func() {}
	}
	return &Client{
		id:         id,
		userID:     userID,
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		workbench:  wb,
		release:    release,
		commandBus: commandBus,
		logger: logger.With(
			zap.String("userID", userID),
			zap.String("connectionID", id),
		),
	}
}

// Start queues the greeting, registers with the hub and starts the pumps
func (c *Client) Start() {
	if msg, err := newMessage(TypeConnectionEstablished, map[string]interface{}{
		"connectionId": c.id,
		"userId":       c.userID,
		"analysis":     analysisPayload(c.workbench),
	}); err != nil {
		c.logger.Error("Failed to build greeting", zap.Error(err))
	} else {
		data, _ := json.Marshal(msg)
		c.send <- data
	}

	c.hub.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		_ = c.conn.Close()
		c.release()
		c.logger.Debug("Read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Warn("Binary messages not supported")
			continue
		}
		c.handleTextMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.Debug("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) handleTextMessage(raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.enqueue(TypeError, errorPayload(pkgerrors.NewValidationError("malformed message")))
		return
	}

	switch msg.Type {
	case ActionPong:
		return
	case ActionSetField:
		c.respondAnalysis(c.workbench.SetField(msg.Key, msg.Value))
	case ActionSetSlider:
		c.respondAnalysis(c.workbench.SetSlider(msg.Key, msg.Number))
	case ActionSelect:
		c.respondAnalysis(c.workbench.Restore(msg.ID))
	case ActionSave:
		c.runCommand(commands.SaveProfileCommand{UserID: c.userID, Name: msg.Name, Workbench: c.workbench})
	case ActionDelete:
		c.runCommand(commands.DeleteProfileCommand{UserID: c.userID, ProfileID: msg.ID, Workbench: c.workbench})
	default:
		c.enqueue(TypeError, errorPayload(pkgerrors.NewValidationError("unknown message type "+msg.Type)))
	}
}

// respondAnalysis shares the new analysis with every connection of the user
// since they all edit the same workbench
func (c *Client) respondAnalysis(_ geometry.AnalysisResult, err error) {
	if err != nil {
		c.enqueue(TypeError, errorPayload(err))
		return
	}
	if err := c.hub.SendToUser(c.userID, TypeAnalysis, analysisPayload(c.workbench)); err != nil {
		c.logger.Warn("Failed to push analysis", zap.Error(err))
	}
}

// runCommand executes cmd; the resulting history change arrives as a
// PROFILES_SNAPSHOT, so only failures are answered here
func (c *Client) runCommand(cmd bus.Command) {
	ctx, cancel := context.WithTimeout(c.hub.ctx, commandTimeout)
	defer cancel()

	if _, err := c.commandBus.Send(ctx, cmd); err != nil {
		c.enqueue(TypeError, errorPayload(err))
	}
}

// enqueue sends to this connection only. The hub owns the send channel, so
// the message is dropped once the client has been unregistered.
func (c *Client) enqueue(messageType string, data interface{}) {
	msg, err := newMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to build message", zap.Error(err))
		return
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.connections[c.userID][c] {
		return
	}
	select {
	case c.send <- raw:
	default:
		c.logger.Warn("Send buffer full, message dropped", zap.String("type", messageType))
	}
}

func analysisPayload(wb *services.Workbench) queries.AnalysisView {
	params := wb.Params()
	return queries.NewAnalysisView(params, wb.Analysis())
}

func errorPayload(err error) map[string]interface{} {
	payload := map[string]interface{}{"message": err.Error()}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		payload["type"] = appErr.Type
		payload["code"] = appErr.Code
		payload["message"] = appErr.Message
	}
	return payload
}

// GetID returns the client's connection ID
func (c *Client) GetID() string {
	return c.id
}
