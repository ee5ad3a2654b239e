package rest

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
	"go.uber.org/zap"

	"github.com/Widerk/shapesbonding/application/commands/bus"
	querybus "github.com/Widerk/shapesbonding/application/queries/bus"
	"github.com/Widerk/shapesbonding/interfaces/http/rest/docs"
	"github.com/Widerk/shapesbonding/interfaces/http/rest/handlers"
	"github.com/Widerk/shapesbonding/interfaces/http/rest/middleware"
	pkgerrors "github.com/Widerk/shapesbonding/pkg/errors"
	"github.com/Widerk/shapesbonding/pkg/observability"
)

// Options selects the optional parts of the router
type Options struct {
	// Authenticate guards the profile routes
	Authenticate func(http.Handler) http.Handler
	// Metrics, when set, instruments every request and serves /metrics
	Metrics *observability.Collector
	// WebSocket, when set, is mounted at /ws and below
	WebSocket http.Handler
	// EnableCORS turns on the CORS handler
	EnableCORS bool
	// Ready reports whether dependencies are usable
	Ready func() bool
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	options    Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	options Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errs,
		options:    options,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errors.Middleware)
	router.Use(middleware.Logger(rt.logger))
	if rt.options.Metrics != nil {
		router.Use(middleware.Metrics(rt.options.Metrics))
	}
	if rt.options.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.shapesbonding.app"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.options.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.options.Metrics.Handler())
	}
	if rt.options.WebSocket != nil {
		router.Method(http.MethodGet, "/ws", rt.options.WebSocket)
		router.Method(http.MethodGet, "/ws/*", rt.options.WebSocket)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
			target := strings.Replace(req.URL.Path, "/api/v1", "/api/v2", 1)
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			http.Redirect(w, req, target, http.StatusPermanentRedirect)
		})
	})

	profileHandler := handlers.NewProfileHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
	router.Route("/api/v2", func(r chi.Router) {
		r.Get("/docs/doc.json", rt.apiDocs)
		r.Post("/analysis", profileHandler.Analyze)
		r.Get("/fields", profileHandler.Fields)

		r.Route("/profiles", func(r chi.Router) {
			if rt.options.Authenticate != nil {
				r.Use(rt.options.Authenticate)
			}
			r.Get("/", profileHandler.ListProfiles)
			r.Post("/", profileHandler.SaveProfile)
			r.Get("/{profileID}", profileHandler.GetProfile)
			r.Delete("/{profileID}", profileHandler.DeleteProfile)
		})
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// apiDocs serves the OpenAPI document registered by the docs package
func (rt *Router) apiDocs(w http.ResponseWriter, _ *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		rt.logger.Error("Failed to read API docs", zap.Error(err))
		http.Error(w, "docs unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if rt.options.Ready != nil && !rt.options.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
