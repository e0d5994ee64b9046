package proxy

import (
	"github.com/gorilla/mux"
	"github.com/guided-traffic/request-body-parser/internal/monitoring"
	"github.com/guided-traffic/request-body-parser/internal/proxy/handlers/health"
	"github.com/guided-traffic/request-body-parser/internal/proxy/handlers/parse"
)

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *mux.Router) {
	// Add monitoring middleware if monitoring is enabled
	if s.config.Monitoring.Enabled {
		router.Use(monitoring.HTTPMiddleware)
	}

	healthHandler := health.NewHandler(s.logger, s.config.LogHealthRequests, s.buildInfo)
	healthHandler.SetShutdownStateHandler(s.shutdownState)

	// Health and version endpoints - outside the parsing chain
	healthRouter := router.NewRoute().Subrouter()
	healthRouter.HandleFunc("/health", healthHandler.Health).Methods("GET")
	healthRouter.HandleFunc("/version", healthHandler.Version).Methods("GET")

	// Request ID first so every later stage can log it, access log after the
	// body parser so it sees the decode result
	apiRouter := router.NewRoute().Subrouter()
	apiRouter.Use(s.requestID.Middleware)
	apiRouter.Use(s.requestTracker.Middleware)
	apiRouter.Use(s.bodyParser.Middleware)
	apiRouter.Use(s.httpLogger.Middleware)
	apiRouter.Use(s.corsHandler.Middleware)

	parseHandler := parse.NewHandler(s.logger)
	apiRouter.HandleFunc("/parse", parseHandler.Handle).Methods("POST", "PUT", "PATCH", "DELETE", "OPTIONS")

	// Everything else goes upstream untouched when a target is configured
	if s.upstream != nil {
		apiRouter.PathPrefix("/").Handler(s.upstream)
	}
}
