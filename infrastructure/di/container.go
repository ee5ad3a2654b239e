package di

import (
	"net/http"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/commands/bus"
	"github.com/Widerk/shapesbonding/application/ports"
	querybus "github.com/Widerk/shapesbonding/application/queries/bus"
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/domain/geometry"
	"github.com/Widerk/shapesbonding/infrastructure/config"
	"github.com/Widerk/shapesbonding/interfaces/websocket"
	"github.com/Widerk/shapesbonding/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *zap.Logger
	Collection     ports.RemoteCollection
	Publisher      ports.EventPublisher
	Engine         *geometry.Engine
	Sessions       *services.SessionManager
	CommandBus     *bus.CommandBus
	QueryBus       *querybus.QueryBus
	Collector      *observability.Collector
	TracerProvider *observability.TracerProvider
	Hub            *websocket.Hub
	Handler        http.Handler
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideCollector,
	ProvideMetricsRecorder,
	ProvideTracer,
	ProvideTracerProvider,
	ProvideClock,
	ProvideRemoteCollection,
	ProvideEventPublisher,
	ProvideEngine,
	ProvideSessionManager,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	ProvideErrorHandler,
	ProvideHub,
	ProvideWebSocketServer,
	ProvideRouter,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)
