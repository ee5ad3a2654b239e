package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
)

const (
	connectionKeyPrefix  = "CONNECTION#"
	connectionEntityType = "CONNECTION"
	userKeyPrefix        = "USER#"
	userIndexName        = "GSI1"
	connectionTTL        = 24 * time.Hour
)

// ConnectionAPI is the subset of the DynamoDB client the connection store uses
type ConnectionAPI interface {
	API
	dynamodb.QueryAPIClient
}

// Connection is one API Gateway WebSocket connection
type Connection struct {
	ConnectionID string    `dynamodbav:"ConnectionID"`
	UserID       string    `dynamodbav:"UserID"`
	Endpoint     string    `dynamodbav:"Endpoint"`
	ConnectedAt  time.Time `dynamodbav:"ConnectedAt"`
}

type connectionItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	TTL        int64  `dynamodbav:"TTL"`
	Connection
}

// ConnectionStore keeps WebSocket connections in the single table layout:
// PK=CONNECTION#<id>, SK=METADATA and GSI1PK=USER#<user> for per-user lookups.
// Rows expire through the table TTL a day after connecting.
type ConnectionStore struct {
	client    ConnectionAPI
	tableName string
	logger    *zap.Logger
}

// NewConnectionStore creates a store over tableName
func NewConnectionStore(client ConnectionAPI, tableName string, logger *zap.Logger) *ConnectionStore {
	return &ConnectionStore{client: client, tableName: tableName, logger: logger}
}

// Put records conn
func (s *ConnectionStore) Put(ctx context.Context, conn Connection) error {
	if conn.ConnectionID == "" || conn.UserID == "" {
		return pkgerrors.NewValidationError("connection ID and user ID are required")
	}

	item := connectionItem{
		PK:         connectionKeyPrefix + conn.ConnectionID,
		SK:         profileSortKey,
		EntityType: connectionEntityType,
		GSI1PK:     userKeyPrefix + conn.UserID,
		GSI1SK:     connectionKeyPrefix + conn.ConnectionID,
		TTL:        conn.ConnectedAt.Add(connectionTTL).Unix(),
		Connection: conn,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		s.logger.Error("Failed to store connection", zap.String("connection_id", conn.ConnectionID), zap.Error(err))
		return pkgerrors.NewDatabaseError("put connection", err)
	}
	return nil
}

// Delete forgets connectionID
func (s *ConnectionStore) Delete(ctx context.Context, connectionID string) error {
	key, err := attributevalue.MarshalMap(map[string]string{
		"PK": connectionKeyPrefix + connectionID,
		"SK": profileSortKey,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}

	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       key,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete connection", err)
	}
	return nil
}

// List returns every stored connection
func (s *ConnectionStore) List(ctx context.Context) ([]Connection, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(connectionEntityType))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var conns []Connection
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan connections", err)
		}
		conns = append(conns, s.decode(page.Items)...)
	}
	return conns, nil
}

// ListByUser returns the connections opened by userID
func (s *ConnectionStore) ListByUser(ctx context.Context, userID string) ([]Connection, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(userKeyPrefix + userID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(userIndexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var conns []Connection
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query connections", err)
		}
		conns = append(conns, s.decode(page.Items)...)
	}
	return conns, nil
}

func (s *ConnectionStore) decode(items []map[string]types.AttributeValue) []Connection {
	conns := make([]Connection, 0, len(items))
	for _, raw := range items {
		var item connectionItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			s.logger.Warn("Skipping undecodable connection item", zap.Error(err))
			continue
		}
		conns = append(conns, item.Connection)
	}
	return conns
}
