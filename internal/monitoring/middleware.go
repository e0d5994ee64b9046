package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// unmatchedEndpoint labels requests no route matched, keeping the label set bounded
const unmatchedEndpoint = "unmatched"

// instrumentedWriter captures the status code and response size
type instrumentedWriter struct {
	http.ResponseWriter
	statusCode  int
	written     int
	wroteHeader bool
}

func (w *instrumentedWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *instrumentedWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// routeTemplate returns the gorilla/mux path template of the matched route
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unmatchedEndpoint
	}
	template, err := route.GetPathTemplate()
	if err != nil {
		return unmatchedEndpoint
	}
	return template
}

// HTTPMiddleware records request counts, latency and body sizes per route template
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		writer := &instrumentedWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		ActiveConnections.Inc()
		defer ActiveConnections.Dec()

		next.ServeHTTP(writer, r)

		endpoint := routeTemplate(r)
		RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(writer.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		if r.ContentLength > 0 {
			RequestSize.WithLabelValues(r.Method, endpoint).Observe(float64(r.ContentLength))
		}
		ResponseSize.WithLabelValues(r.Method, endpoint).Observe(float64(writer.written))
	})
}
