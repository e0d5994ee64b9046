package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/guided-traffic/request-body-parser/pkg/bodyparser"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDecode(t *testing.T) {
	decoded := DecodeTotal.WithLabelValues("application/x-metrics-test", "decoded")
	skipped := DecodeTotal.WithLabelValues("application/x-metrics-test", "skipped")
	beforeDecoded := testutil.ToFloat64(decoded)
	beforeSkipped := testutil.ToFloat64(skipped)

	observer := DecodeObserver{}
	observer.ObserveDecode("application/x-metrics-test", bodyparser.OutcomeDecoded, 128, time.Millisecond)
	observer.ObserveDecode("application/x-metrics-test", bodyparser.OutcomeSkipped, 0, 0)

	assert.Equal(t, beforeDecoded+1, testutil.ToFloat64(decoded))
	assert.Equal(t, beforeSkipped+1, testutil.ToFloat64(skipped))
}

func TestSetRegisteredDecoders(t *testing.T) {
	SetRegisteredDecoders([]string{"application/json", "text/xml"})

	assert.Equal(t, float64(1), testutil.ToFloat64(RegisteredDecoders.WithLabelValues("application/json")))
	assert.Equal(t, float64(1), testutil.ToFloat64(RegisteredDecoders.WithLabelValues("text/xml")))
}

func TestHTTPMiddleware_RecordsRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(HTTPMiddleware)
	router.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}).Methods("POST")

	counter := RequestsTotal.WithLabelValues("POST", "/items/{id}", "201")
	before := testutil.ToFloat64(counter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/items/7", strings.NewReader(`{"a":1}`)))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(ActiveConnections))

	metrics, err := Registry().Gather()
	require.NoError(t, err)
	var sawRequestSize, sawResponseSize bool
	for _, family := range metrics {
		switch family.GetName() {
		case "bodyparser_request_size_bytes":
			sawRequestSize = true
		case "bodyparser_response_size_bytes":
			sawResponseSize = true
		}
	}
	assert.True(t, sawRequestSize)
	assert.True(t, sawResponseSize)
}

func TestInstrumentedWriter_KeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writer := &instrumentedWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	_, err := writer.Write([]byte("abc"))
	require.NoError(t, err)
	writer.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusOK, writer.statusCode)
	assert.Equal(t, 3, writer.written)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	RecordDecode("application/json", bodyparser.OutcomeDecoded, 10, time.Microsecond)
	server := NewServer(&Config{BindAddress: "127.0.0.1:0", MetricsPath: "/metrics"})

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "bodyparser_decode_total"), "metrics output should contain decode counter")
}

func TestServer_HealthAndInfo(t *testing.T) {
	server := NewServer(&Config{BindAddress: "127.0.0.1:0", MetricsPath: "/metrics"})

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, "OK", w.Body.String())

	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/info", nil))
	assert.JSONEq(t, `{"service":"body-parser-proxy","monitoring":"enabled"}`, w.Body.String())
}
