//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	// Default proxy endpoint for integration tests (IPv4 explicitly)
	DefaultProxyEndpoint = "http://127.0.0.1:8080"

	RequestTimeout = 10 * time.Second
)

// ProxyEndpoint returns the proxy under test, BODYPARSER_TEST_ENDPOINT overrides the default
func ProxyEndpoint() string {
	if endpoint := os.Getenv("BODYPARSER_TEST_ENDPOINT"); endpoint != "" {
		return strings.TrimSuffix(endpoint, "/")
	}
	return DefaultProxyEndpoint
}

func newClient() *http.Client {
	return &http.Client{Timeout: RequestTimeout}
}

// SkipIfProxyNotAvailable skips the test when the proxy health endpoint does not answer
func SkipIfProxyNotAvailable(t *testing.T) {
	t.Helper()

	resp, err := newClient().Get(ProxyEndpoint() + "/health")
	if err != nil {
		t.Skipf("Proxy not available: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Skipf("Proxy not healthy: status %d", resp.StatusCode)
	}
}

// ParseResponse mirrors the document returned by /parse
type ParseResponse struct {
	RequestID   string          `json:"request_id"`
	ContentType string          `json:"content_type"`
	Parsed      bool            `json:"parsed"`
	Body        json.RawMessage `json:"body"`
}

// PostParse sends body to /parse and decodes the echo
func PostParse(t *testing.T, contentType, body string) ParseResponse {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, ProxyEndpoint()+"/parse", strings.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := newClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed ParseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.Equal(t, resp.Header.Get("X-Request-ID"), parsed.RequestID)
	return parsed
}
