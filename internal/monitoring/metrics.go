package monitoring

import (
	"os"
	"time"

	"github.com/guided-traffic/request-body-parser/pkg/bodyparser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// KubernetesLabels holds Kubernetes metadata labels
var (
	kubernetesNamespace = os.Getenv("KUBERNETES_NAMESPACE")
	kubernetesPodName   = os.Getenv("KUBERNETES_POD_NAME")
	helmReleaseName     = os.Getenv("HELM_RELEASE_NAME")
	helmChartVersion    = os.Getenv("HELM_CHART_VERSION")
)

// getKubernetesLabels returns the Kubernetes labels for metrics
func getKubernetesLabels() prometheus.Labels {
	labels := prometheus.Labels{}

	if kubernetesNamespace != "" {
		labels["kubernetes_namespace"] = kubernetesNamespace
	}
	if kubernetesPodName != "" {
		labels["kubernetes_pod_name"] = kubernetesPodName
	}
	if helmReleaseName != "" {
		labels["helm_release"] = helmReleaseName
	}
	if helmChartVersion != "" {
		labels["helm_chart_version"] = helmChartVersion
	}

	return labels
}

// Registry with Kubernetes labels
var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(prometheus.WrapRegistererWith(getKubernetesLabels(), registry))
)

// Prometheus metrics for the body parser proxy
var (
	// HTTP Request metrics
	RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bodyparser_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bodyparser_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bodyparser_request_size_bytes",
			Help:    "Declared size of HTTP request bodies in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		},
		[]string{"method", "endpoint"},
	)

	ResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bodyparser_response_size_bytes",
			Help:    "Size of HTTP response bodies in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		},
		[]string{"method", "endpoint"},
	)

	ActiveConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "bodyparser_active_connections",
			Help: "Number of active connections",
		},
	)

	// Decoder metrics, content_type only carries registered content types
	DecodeTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bodyparser_decode_total",
			Help: "Total number of request body decode attempts",
		},
		[]string{"content_type", "outcome"},
	)

	DecodeDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bodyparser_decode_duration_seconds",
			Help:    "Time spent decoding request bodies in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"content_type"},
	)

	BodyBytes = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bodyparser_body_bytes",
			Help:    "Size of decoded request bodies in bytes",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		},
		[]string{"content_type"},
	)

	RegisteredDecoders = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bodyparser_registered_decoders",
			Help: "Content types with a registered decoder (1 = registered)",
		},
		[]string{"content_type"},
	)

	// Server metrics
	ServerInfo = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bodyparser_server_info",
			Help: "Server build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// Registry returns the registry all metrics are registered on
func Registry() *prometheus.Registry {
	return registry
}

// SetServerInfo sets server build information
func SetServerInfo(version, commit, buildTime string) {
	ServerInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// SetRegisteredDecoders publishes the content types known to the parser
func SetRegisteredDecoders(contentTypes []string) {
	for _, contentType := range contentTypes {
		RegisteredDecoders.WithLabelValues(contentType).Set(1)
	}
}

// RecordDecode records a decode attempt
func RecordDecode(contentType string, outcome bodyparser.Outcome, bodySize int, duration time.Duration) {
	DecodeTotal.WithLabelValues(contentType, string(outcome)).Inc()
	if outcome == bodyparser.OutcomeSkipped {
		return
	}
	DecodeDuration.WithLabelValues(contentType).Observe(duration.Seconds())
	BodyBytes.WithLabelValues(contentType).Observe(float64(bodySize))
}

// DecodeObserver forwards body parser observations to Prometheus
type DecodeObserver struct{}

// ObserveDecode implements bodyparser.Observer
func (DecodeObserver) ObserveDecode(contentType string, outcome bodyparser.Outcome, bodySize int, duration time.Duration) {
	RecordDecode(contentType, outcome, bodySize, duration)
}
