// Package apigateway pushes profile changes to clients connected through the
// API Gateway WebSocket API.
package apigateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/infrastructure/persistence/dynamodb"
)

// MessageProfilesChanged tells clients to refresh their profile history
const MessageProfilesChanged = "PROFILES_CHANGED"

// PostAPI is the subset of the management API client the broadcaster uses
type PostAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// ConnectionRepository lists and forgets stored connections
type ConnectionRepository interface {
	List(ctx context.Context) ([]dynamodb.Connection, error)
	Delete(ctx context.Context, connectionID string) error
}

// ClientFactory returns a management API client for one endpoint
type ClientFactory func(endpoint string) PostAPI

// NewClientFactory builds clients from cfg, one per endpoint
func NewClientFactory(cfg aws.Config) ClientFactory {
	return func(endpoint string) PostAPI {
		return apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
			o.BaseEndpoint = aws.String("https://" + endpoint)
		})
	}
}

// Message is the envelope pushed to each connection
type Message struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Broadcaster fans profile events out to every stored connection
type Broadcaster struct {
	connections ConnectionRepository
	clientFor   ClientFactory
	logger      *zap.Logger
}

// NewBroadcaster creates a broadcaster
func NewBroadcaster(connections ConnectionRepository, clientFor ClientFactory, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{connections: connections, clientFor: clientFor, logger: logger}
}

// HandleEvent pushes one EventBridge profile event. The profile collection is
// shared, so every connection is notified.
func (b *Broadcaster) HandleEvent(ctx context.Context, event lambdaevents.CloudWatchEvent) error {
	detail := event.Detail
	if len(detail) == 0 {
		detail = json.RawMessage("{}")
	}
	payload, err := json.Marshal(Message{
		Type:      MessageProfilesChanged,
		Timestamp: event.Time.UnixMilli(),
		Data:      json.RawMessage(fmt.Sprintf(`{"event":%q,"detail":%s}`, event.DetailType, detail)),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sent, failed, err := b.Broadcast(ctx, payload)
	if err != nil {
		return err
	}
	b.logger.Info("Broadcast complete",
		zap.String("event_type", event.DetailType),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	if failed > 0 && sent == 0 {
		return fmt.Errorf("all %d message sends failed", failed)
	}
	return nil
}

// Broadcast posts payload to every connection, grouped by endpoint. Gone
// connections are removed and count as neither sent nor failed.
func (b *Broadcaster) Broadcast(ctx context.Context, payload []byte) (sent, failed int, err error) {
	conns, err := b.connections.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list connections: %w", err)
	}

	byEndpoint := make(map[string][]string)
	for _, c := range conns {
		byEndpoint[c.Endpoint] = append(byEndpoint[c.Endpoint], c.ConnectionID)
	}

	for endpoint, ids := range byEndpoint {
		client := b.clientFor(endpoint)
		for _, id := range ids {
			gone, err := b.post(ctx, client, id, payload)
			switch {
			case gone:
				b.removeStale(ctx, id)
			case err != nil:
				b.logger.Warn("Failed to post to connection", zap.String("connection_id", id), zap.Error(err))
				failed++
			default:
				sent++
			}
		}
	}
	return sent, failed, nil
}

func (b *Broadcaster) post(ctx context.Context, client PostAPI, connectionID string, payload []byte) (gone bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	var goneErr *types.GoneException
	if errors.As(err, &goneErr) {
		return true, nil
	}
	return false, err
}

func (b *Broadcaster) removeStale(ctx context.Context, connectionID string) {
	if err := b.connections.Delete(ctx, connectionID); err != nil {
		b.logger.Warn("Failed to remove stale connection", zap.String("connection_id", connectionID), zap.Error(err))
		return
	}
	b.logger.Debug("Removed stale connection", zap.String("connection_id", connectionID))
}
