package middleware

import (
	"net/http"
	"time"

	"github.com/guided-traffic/request-body-parser/pkg/bodyparser"
	"github.com/sirupsen/logrus"
)

// Logger writes one access log entry per request, including what the body
// parser made of the request body. It must run after the body parser.
type Logger struct {
	logger            *logrus.Entry
	logHealthRequests bool
}

// NewLogger creates a new logging middleware
func NewLogger(logger *logrus.Entry, logHealthRequests bool) *Logger {
	return &Logger{
		logger:            logger,
		logHealthRequests: logHealthRequests,
	}
}

// Middleware returns the HTTP middleware function
func (l *Logger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.logHealthRequests && (r.URL.Path == "/health" || r.URL.Path == "/version") {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		fields := logrus.Fields{
			"method":         r.Method,
			"path":           r.URL.Path,
			"status":         recorder.statusCode,
			"response_bytes": recorder.written,
			"duration":       time.Since(start),
			"remote_addr":    r.RemoteAddr,
			"request_id":     RequestIDFromContext(r.Context()),
			"content_length": r.ContentLength,
		}

		contentType, hasContentType := bodyparser.ContentType(r)
		if hasContentType {
			fields["content_type"] = contentType
		}

		_, parsed := bodyparser.ParsedBody(r)
		fields["parsed"] = parsed

		entry := l.logger.WithFields(fields)
		if err := bodyparser.DecodeError(r); err != nil {
			entry.WithField("decode_error", err.Error()).Warn("HTTP request processed, body could not be decoded")
			return
		}
		entry.Info("HTTP request processed")
	})
}

// responseRecorder captures the status code and the number of body bytes written
type responseRecorder struct {
	http.ResponseWriter
	statusCode  int
	written     int
	wroteHeader bool
}

func (rw *responseRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}
