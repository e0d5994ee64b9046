package proxy

import (
	"github.com/guided-traffic/request-body-parser/internal/proxy/middleware"
)

// setupMiddleware sets up the middleware for the server
func (s *Server) setupMiddleware() {
	s.requestID = middleware.NewRequestID()
	s.requestTracker = middleware.NewRequestTracker(s.logger)
	s.httpLogger = middleware.NewLogger(s.logger.WithField("component", "http"), s.config.LogHealthRequests)
	s.corsHandler = middleware.NewCORS(s.logger, s.bodyParser.Registry().ContentTypes)
}
