package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/event-engine/cockpit-backend-go/cockpit"
)

const (
	apiBasePath     = "/api"
	operationRoute  = "/*operation"
	headerRequestID = "X-Request-Id"
)

// API dispatches cockpit requests to the schema aggregator and the read
// facades. All operations are read-only; routing happens on the trailing
// path segment, matching the cockpit UI's request layout.
type API struct {
	cfg              cockpit.CompiledConfig
	engine           cockpit.EventEngine
	store            cockpit.DocumentStore
	logger           cockpit.Logger
	contextualLogger cockpit.ContextualLogger
	metricsCollector cockpit.MetricsCollector
	tracingCollector cockpit.TracingCollector
}

// NewAPI creates a cockpit API over the given compiled configuration, event
// engine and document store, with optional observability configuration.
func NewAPI(
	cfg cockpit.CompiledConfig,
	engine cockpit.EventEngine,
	store cockpit.DocumentStore,
	options ...Option,
) (*API, error) {

	api := &API{
		cfg:    cfg,
		engine: engine,
		store:  store,
	}

	for _, option := range options {
		if err := option(api); err != nil {
			return nil, err
		}
	}

	return api, nil
}

// Router builds the gin engine serving the cockpit API under /api.
// Every path below /api is accepted and dispatched on its trailing segment;
// unknown segments are answered with an unresolved-route error.
func (a *API) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(cors.New(corsConfig()))

	router.Group(apiBasePath).Any(operationRoute, a.dispatch)

	router.NoRoute(func(c *gin.Context) {
		a.writeError(c, http.StatusNotFound, cockpit.ErrUnresolvedRoute)
	})

	return router
}

// corsConfig allows the cockpit UI, which is served from a different origin,
// to call the API.
func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Authorization", "Content-Type", headerRequestID}

	return cfg
}

// requestID tags every request and response with a request id for log and
// trace correlation. An id supplied by the caller is kept.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		c.Writer.Header().Set(headerRequestID, id)
		c.Next()
	}
}
