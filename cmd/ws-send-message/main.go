// Package main relays profile events from EventBridge to every client
// connected through the API Gateway WebSocket API.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/infrastructure/config"
	"github.com/Widerk/shapesbonding/infrastructure/di"
	"github.com/Widerk/shapesbonding/infrastructure/messaging/apigateway"
	"github.com/Widerk/shapesbonding/infrastructure/messaging/eventbridge"
	"github.com/Widerk/shapesbonding/infrastructure/persistence/dynamodb"
)

var (
	broadcaster *apigateway.Broadcaster
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

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	connections := dynamodb.NewConnectionStore(awsdynamodb.NewFromConfig(awsCfg), cfg.ConnectionsTable, logger)
	broadcaster = apigateway.NewBroadcaster(connections, apigateway.NewClientFactory(awsCfg), logger)
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	if event.Source != eventbridge.Source {
		logger.Warn("Ignoring event from unexpected source", zap.String("source", event.Source))
		return nil
	}
	return broadcaster.HandleEvent(ctx, event)
}

func main() {
	lambda.Start(handler)
}
