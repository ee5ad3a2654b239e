package di

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Widerk/shapesbonding/application/commands/bus"
	commandhandlers "github.com/Widerk/shapesbonding/application/commands/handlers"
	"github.com/Widerk/shapesbonding/application/ports"
	querybus "github.com/Widerk/shapesbonding/application/queries/bus"
	queryhandlers "github.com/Widerk/shapesbonding/application/queries/handlers"
	"github.com/Widerk/shapesbonding/application/services"
	"github.com/Widerk/shapesbonding/domain/geometry"
	"github.com/Widerk/shapesbonding/infrastructure/config"
	"github.com/Widerk/shapesbonding/infrastructure/messaging"
	"github.com/Widerk/shapesbonding/infrastructure/messaging/eventbridge"
	"github.com/Widerk/shapesbonding/infrastructure/persistence/decorators"
	"github.com/Widerk/shapesbonding/infrastructure/persistence/dynamodb"
	"github.com/Widerk/shapesbonding/infrastructure/persistence/memory"
	"github.com/Widerk/shapesbonding/interfaces/http/rest"
	"github.com/Widerk/shapesbonding/interfaces/http/rest/middleware"
	"github.com/Widerk/shapesbonding/interfaces/websocket"
	"github.com/Widerk/shapesbonding/pkg/auth"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
	"github.com/Widerk/shapesbonding/pkg/observability"
)

const (
	serviceName      = "shapesbonding"
	metricsNamespace = "shapesbonding"
	devJWTSecret     = "development-secret-change-in-production"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", serviceName)), nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector(metricsNamespace)
}

// ProvideMetricsRecorder picks the metric sinks. Lambda functions also push
// to CloudWatch since nothing scrapes them.
func ProvideMetricsRecorder(cfg *config.Config, collector *observability.Collector, client *awscloudwatch.Client, logger *zap.Logger) ports.MetricsRecorder {
	if !cfg.EnableMetrics {
		return ports.NopMetrics{}
	}
	if cfg.IsLambda {
		return observability.MultiRecorder{collector, observability.NewCloudWatchRecorder(metricsNamespace, client, logger)}
	}
	return collector
}

// ProvideTracer creates the X-Ray tracer used by command handlers
func ProvideTracer() *observability.Tracer {
	return observability.NewTracer(serviceName)
}

// ProvideTracerProvider installs OpenTelemetry when tracing is enabled
func ProvideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	if !cfg.EnableTracing || cfg.OTLPEndpoint == "" {
		return nil, func() {}, nil
	}
	tp, err := observability.InitTracing(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

// ProvideClock returns the wall clock
func ProvideClock() ports.Clock {
	return ports.SystemClock{}
}

// ProvideRemoteCollection selects the profile store and wraps it with a
// circuit breaker and, when enabled, tracing
func ProvideRemoteCollection(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (ports.RemoteCollection, func()) {
	var collection ports.RemoteCollection
	cleanup := func() {}

	switch cfg.StoreBackend {
	case config.StoreMemory:
		collection = memory.NewProfileCollection()
	default:
		store := dynamodb.NewProfileCollection(client, cfg.DynamoDBTable, cfg.PollInterval, logger)
		collection = store
		cleanup = store.Close
	}

	collection = decorators.NewCircuitBreakerCollection(collection, decorators.DefaultCircuitBreakerConfig("profile-store"), logger)
	if cfg.EnableTracing {
		collection = decorators.NewTracingCollection(collection)
	}
	logger.Info("Profile store configured", zap.String("backend", cfg.StoreBackend))
	return collection, cleanup
}

// ProvideEventPublisher publishes to EventBridge, or to the log when no bus
// is configured
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" || cfg.StoreBackend == config.StoreMemory {
		return messaging.NewLogPublisher(logger)
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideEngine creates the geometry engine. In development a configured
// field range file is watched and reloaded.
func ProvideEngine(cfg *config.Config, logger *zap.Logger) (*geometry.Engine, func(), error) {
	if cfg.FieldRangesFile == "" {
		return geometry.NewEngine(nil), func() {}, nil
	}

	if !cfg.IsDevelopment() {
		ranges, err := config.LoadFieldRanges(cfg.FieldRangesFile)
		if err != nil {
			return nil, nil, err
		}
		return geometry.NewEngine(ranges), func() {}, nil
	}

	watcher, err := config.NewFieldRangesWatcher(cfg.FieldRangesFile, logger)
	if err != nil {
		return nil, nil, err
	}
	engine := geometry.NewEngine(watcher.Current())
	watcher.OnChange(engine.SetRanges)
	watcher.Start()
	return engine, watcher.Stop, nil
}

// ProvideSessionManager creates the workbench session registry
func ProvideSessionManager(
	cfg *config.Config,
	collection ports.RemoteCollection,
	engine *geometry.Engine,
	clock ports.Clock,
	metrics ports.MetricsRecorder,
	collector *observability.Collector,
	logger *zap.Logger,
) (*services.SessionManager, func()) {
	sessions := services.NewSessionManager(collection, engine, clock, metrics, collector.ActiveSessions, cfg.SessionIdleTimeout, logger)
	return sessions, sessions.Close
}

// ProvideCommandBus creates the command bus with all handlers registered
func ProvideCommandBus(
	sessions *services.SessionManager,
	publisher ports.EventPublisher,
	tracer *observability.Tracer,
	clock ports.Clock,
	metrics ports.MetricsRecorder,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(metrics),
	)
	err := commandhandlers.Register(commandBus,
		commandhandlers.NewSaveProfileHandler(sessions, publisher, tracer, clock, logger),
		commandhandlers.NewDeleteProfileHandler(sessions, publisher, tracer, clock, logger),
	)
	if err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates the query bus with all handlers registered
func ProvideQueryBus(sessions *services.SessionManager, engine *geometry.Engine) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	if err := queryhandlers.Register(queryBus, queryhandlers.NewProfileQueryHandler(sessions, engine)); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideJWTValidator creates the token validator. Outside production a
// development secret is used when none is configured.
func ProvideJWTValidator(cfg *config.Config, logger *zap.Logger) (*auth.JWTValidator, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		logger.Warn("JWT_SECRET not set, using development secret")
		secret = devJWTSecret
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: secret,
		Issuer:    cfg.JWTIssuer,
		Audience:  []string{cfg.JWTAudience},
	})
}

// ProvideErrorHandler creates the HTTP error renderer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideHub creates the WebSocket hub; the caller runs it
func ProvideHub(collector *observability.Collector, logger *zap.Logger) (*websocket.Hub, func()) {
	hub := websocket.NewHub(collector.WebSocketClients, logger)
	return hub, hub.Stop
}

// ProvideWebSocketServer creates the WebSocket endpoint
func ProvideWebSocketServer(
	hub *websocket.Hub,
	sessions *services.SessionManager,
	commandBus *bus.CommandBus,
	validator *auth.JWTValidator,
	logger *zap.Logger,
) *websocket.Server {
	return websocket.NewServer(hub, sessions, commandBus, validator, nil, logger)
}

// ProvideRouter creates the HTTP router. Lambda deployments trust API
// Gateway for authentication and serve no WebSocket endpoint.
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	validator *auth.JWTValidator,
	collector *observability.Collector,
	wsServer *websocket.Server,
	logger *zap.Logger,
) *rest.Router {
	options := rest.Options{EnableCORS: cfg.EnableCORS}
	if cfg.EnableMetrics {
		options.Metrics = collector
	}

	if cfg.IsLambda {
		options.Authenticate = middleware.AuthenticateForLambda(errs)
	} else {
		options.Authenticate = middleware.Authenticate(validator, errs, logger)
		options.WebSocket = wsServer.Handler()
	}
	return rest.NewRouter(commandBus, queryBus, errs, options, logger)
}

// ProvideHTTPHandler builds the routes
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}
