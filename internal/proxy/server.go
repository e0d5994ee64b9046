package proxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/guided-traffic/request-body-parser/internal/config"
	"github.com/guided-traffic/request-body-parser/internal/monitoring"
	"github.com/guided-traffic/request-body-parser/internal/proxy/handlers/health"
	"github.com/guided-traffic/request-body-parser/internal/proxy/middleware"
	"github.com/guided-traffic/request-body-parser/pkg/bodyparser"
	"github.com/sirupsen/logrus"
)

// Server is the body parser proxy server
type Server struct {
	httpServer *http.Server
	bodyParser *bodyparser.Parser
	upstream   *httputil.ReverseProxy
	config     *config.Config
	buildInfo  health.BuildInfo
	logger     *logrus.Entry

	// Middleware
	requestID      *middleware.RequestID
	requestTracker *middleware.RequestTracker
	httpLogger     *middleware.Logger
	corsHandler    *middleware.CORS

	// Shutdown state
	shutdownMu        sync.RWMutex
	shutdownInitiated bool
	shutdownTime      time.Time
}

// NewServer creates a new proxy server instance
func NewServer(cfg *config.Config, buildInfo health.BuildInfo) (*Server, error) {
	logger := logrus.WithField("component", "proxy-server")

	registry := bodyparser.NewRegistry()
	if err := cfg.Parser.RegisterAliases(registry); err != nil {
		return nil, fmt.Errorf("failed to register parser aliases: %w", err)
	}

	var observer bodyparser.Observer = bodyparser.NopObserver{}
	if cfg.Monitoring.Enabled {
		observer = monitoring.DecodeObserver{}
		monitoring.SetRegisteredDecoders(registry.ContentTypes())
	}

	server := &Server{
		bodyParser: bodyparser.New(
			bodyparser.WithRegistry(registry),
			bodyparser.WithLogger(logrus.WithField("component", "body-parser")),
			bodyparser.WithMaxBodySize(cfg.Parser.MaxBodySize),
			bodyparser.WithObserver(observer),
		),
		config:    cfg,
		buildInfo: buildInfo,
		logger:    logger,
	}

	if cfg.Upstream.TargetEndpoint != "" {
		target, err := url.Parse(cfg.Upstream.TargetEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to parse upstream target: %w", err)
		}
		server.upstream = httputil.NewSingleHostReverseProxy(target)
		server.upstream.ErrorHandler = server.upstreamErrorHandler
	}

	logger.WithFields(logrus.Fields{
		"content_types": registry.ContentTypes(),
		"max_body_size": cfg.Parser.MaxBodySize,
		"upstream":      cfg.Upstream.TargetEndpoint,
	}).Info("Body parser configured")

	router := mux.NewRouter()
	server.setupMiddleware()
	server.setupRoutes(router)

	server.httpServer = &http.Server{
		Addr:              cfg.BindAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return server, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// RegisterParser registers an additional decoder on the running parser and
// publishes the updated content type set to the metrics
func (s *Server) RegisterParser(contentType string, decoder bodyparser.Decoder) error {
	if err := s.bodyParser.RegisterParser(contentType, decoder); err != nil {
		return err
	}

	s.logger.WithField("content_type", bodyparser.NormalizeContentType(contentType)).Info("Registered additional decoder")
	if s.config.Monitoring.Enabled {
		monitoring.SetRegisteredDecoders(s.bodyParser.Registry().ContentTypes())
	}
	return nil
}

// Start starts the proxy server and blocks until ctx is done
func (s *Server) Start(ctx context.Context) error {
	serverErrChan := make(chan error, 1)
	go func() {
		if s.config.TLS.Enabled {
			s.logger.WithFields(logrus.Fields{
				"address":   s.config.BindAddress,
				"cert_file": s.config.TLS.CertFile,
				"key_file":  s.config.TLS.KeyFile,
			}).Info("Starting HTTPS server")

			if err := s.httpServer.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTPS server failed: %w", err)
			}
		} else {
			s.logger.WithField("address", s.config.BindAddress).Info("Starting HTTP server")
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTP server failed: %w", err)
			}
		}
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

// shutdown reports unhealthy, waits for in-flight requests and stops the server
func (s *Server) shutdown() error {
	s.shutdownMu.Lock()
	s.shutdownInitiated = true
	s.shutdownTime = time.Now()
	s.shutdownMu.Unlock()

	timeout := time.Duration(s.config.ShutdownTimeout) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.WithFields(logrus.Fields{
		"active_requests": s.requestTracker.Active(),
		"timeout":         timeout,
	}).Info("Shutting down server")

	if err := s.requestTracker.Drain(shutdownCtx); err != nil {
		s.logger.WithError(err).Warn("Not all requests finished before shutdown")
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Failed to gracefully shutdown server")
		return err
	}

	s.logger.Info("Server stopped")
	return nil
}

// shutdownState reports whether shutdown has started and when
func (s *Server) shutdownState() (bool, time.Time) {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.shutdownInitiated, s.shutdownTime
}

// upstreamErrorHandler answers 502 when the upstream cannot be reached
func (s *Server) upstreamErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": middleware.RequestIDFromContext(r.Context()),
	}).Error("Upstream request failed")
	w.WriteHeader(http.StatusBadGateway)
}
