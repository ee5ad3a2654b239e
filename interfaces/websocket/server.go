package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/commands/bus"
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/pkg/auth"
)

// Server upgrades authenticated requests to workbench connections
type Server struct {
	hub        *Hub
	sessions   *services.SessionManager
	commandBus *bus.CommandBus
	validator  *auth.JWTValidator
	upgrader   websocket.Upgrader
	maxPerUser int
	logger     *zap.Logger
}

// ServerConfig holds WebSocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
	MaxPerUser      int
}

// DefaultServerConfig returns default WebSocket server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
		MaxPerUser:      10,
	}
}

// NewServer creates a new WebSocket server
func NewServer(
	hub *Hub,
	sessions *services.SessionManager,
	commandBus *bus.CommandBus,
	validator *auth.JWTValidator,
	config *ServerConfig,
	logger *zap.Logger,
) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		hub:        hub,
		sessions:   sessions,
		commandBus: commandBus,
		validator:  validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		maxPerUser: config.MaxPerUser,
		logger:     logger,
	}
}

// Handler routes /ws and /ws/stats
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.HandleWebSocket).Methods(http.MethodGet)
	r.HandleFunc("/ws/stats", s.handleStats).Methods(http.MethodGet)
	return r
}

// HandleWebSocket handles WebSocket upgrade requests
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticateRequest(r)
	if err != nil {
		s.logger.Warn("WebSocket authentication failed",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if s.maxPerUser > 0 && s.hub.GetConnectionCount(userID) >= s.maxPerUser {
		s.logger.Warn("Connection limit exceeded for user", zap.String("userID", userID))
		http.Error(w, "Connection limit exceeded", http.StatusTooManyRequests)
		return
	}

	wb, release, err := s.sessions.Pin(userID)
	if err != nil {
		s.logger.Error("Failed to open session", zap.String("userID", userID), zap.Error(err))
		http.Error(w, "Profile history unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		release()
		s.logger.Error("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr),
		)
		return
	}

	client := NewClient(userID, s.hub, conn, wb, release, s.commandBus, s.logger)
	client.Start()

	s.logger.Info("New WebSocket connection established",
		zap.String("userID", userID),
		zap.String("connectionID", client.GetID()),
	)
}

func (s *Server) authenticateRequest(r *http.Request) (string, error) {
	token := auth.ExtractToken(r)
	if token == "" {
		return "", errors.New("no authentication token provided")
	}
	claims, err := s.validator.ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return claims.UserID, nil
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.hub.GetMetrics())
}
