package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestTracker counts in-flight requests so shutdown can wait for them
type RequestTracker struct {
	logger *logrus.Entry
	active atomic.Int64
}

// NewRequestTracker creates a new request tracker middleware
func NewRequestTracker(logger *logrus.Entry) *RequestTracker {
	return &RequestTracker{
		logger: logger,
	}
}

// Start marks the beginning of a request
func (rt *RequestTracker) Start() {
	rt.active.Add(1)
}

// End marks the end of a request
func (rt *RequestTracker) End() {
	rt.active.Add(-1)
}

// Active returns the number of in-flight requests
func (rt *RequestTracker) Active() int64 {
	return rt.active.Load()
}

// Drain blocks until no request is in flight or ctx is done
func (rt *RequestTracker) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		active := rt.Active()
		if active == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			rt.logger.WithField("active_requests", active).Warn("Shutdown timeout reached with requests still in flight")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Middleware returns the HTTP middleware function
func (rt *RequestTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.Start()
		defer rt.End()

		next.ServeHTTP(w, r)
	})
}
