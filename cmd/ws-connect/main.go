// Package main handles the $connect and $disconnect routes of the API Gateway
// WebSocket API by tracking connections in DynamoDB.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/infrastructure/config"
	"github.com/Widerk/shapesbonding/infrastructure/di"
	"github.com/Widerk/shapesbonding/infrastructure/persistence/dynamodb"
	"github.com/Widerk/shapesbonding/pkg/auth"
)

const maxConnectionsPerUser = 10

var (
	connections *dynamodb.ConnectionStore
	validator   *auth.JWTValidator
	logger      *zap.Logger
)

func init() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger, err = di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	validator, err = di.ProvideJWTValidator(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT validator: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	connections = dynamodb.NewConnectionStore(awsdynamodb.NewFromConfig(awsCfg), cfg.ConnectionsTable, logger)
}

func handler(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := req.RequestContext.ConnectionID

	if req.RequestContext.RouteKey == "$disconnect" {
		if err := connections.Delete(ctx, connectionID); err != nil {
			logger.Warn("Failed to remove connection", zap.String("connection_id", connectionID), zap.Error(err))
		}
		return respond(http.StatusOK, `{"status":"disconnected"}`), nil
	}

	userID, err := authenticate(req)
	if err != nil {
		logger.Info("WebSocket authentication failed", zap.String("connection_id", connectionID), zap.Error(err))
		return respond(http.StatusUnauthorized, `{"error":"unauthorized"}`), nil
	}

	existing, err := connections.ListByUser(ctx, userID)
	if err != nil {
		logger.Error("Failed to count user connections", zap.String("user_id", userID), zap.Error(err))
		return respond(http.StatusInternalServerError, `{"error":"internal server error"}`), nil
	}
	if len(existing) >= maxConnectionsPerUser {
		return respond(http.StatusTooManyRequests, `{"error":"too many connections"}`), nil
	}

	err = connections.Put(ctx, dynamodb.Connection{
		ConnectionID: connectionID,
		UserID:       userID,
		Endpoint:     fmt.Sprintf("%s/%s", req.RequestContext.DomainName, req.RequestContext.Stage),
		ConnectedAt:  time.Now().UTC(),
	})
	if err != nil {
		return respond(http.StatusInternalServerError, `{"error":"internal server error"}`), nil
	}

	logger.Info("WebSocket connection established",
		zap.String("connection_id", connectionID),
		zap.String("user_id", userID),
	)
	return respond(http.StatusOK, `{"status":"connected"}`), nil
}

// authenticate reads the token from the query string, where browsers can put
// it, or from the Authorization header
func authenticate(req events.APIGatewayWebsocketProxyRequest) (string, error) {
	token := req.QueryStringParameters["token"]
	if token == "" {
		for _, name := range []string{"Authorization", "authorization"} {
			if h := req.Headers[name]; h != "" {
				token = strings.TrimPrefix(h, "Bearer ")
				break
			}
		}
	}
	if token == "" {
		return "", fmt.Errorf("missing authentication token")
	}

	claims, err := validator.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func respond(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status, Body: body}
}

func main() {
	lambda.Start(handler)
}
