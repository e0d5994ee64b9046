package bodyparser

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxBodySize is the largest body the parser buffers by default (10 MiB)
const DefaultMaxBodySize int64 = 10 << 20

// Parser is an HTTP middleware that decodes request bodies by content type
// and attaches the result to the request. It never fails a request: unknown
// content types pass through, undecodable bodies get whatever the decoder
// returned on failure.
type Parser struct {
	registry    *Registry
	logger      *logrus.Entry
	maxBodySize int64
	observer    Observer
}

// Option configures a Parser
type Option func(*Parser)

// WithRegistry sets the decoder registry. The default is NewRegistry().
func WithRegistry(registry *Registry) Option {
	return func(p *Parser) {
		p.registry = registry
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Entry) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithMaxBodySize limits how many bytes are buffered for decoding.
// Larger bodies are forwarded untouched without being decoded; 0 disables the limit.
func WithMaxBodySize(size int64) Option {
	return func(p *Parser) {
		p.maxBodySize = size
	}
}

// WithObserver sets the observer notified about decode attempts
func WithObserver(observer Observer) Option {
	return func(p *Parser) {
		p.observer = observer
	}
}

// New creates a new body parser
func New(opts ...Option) *Parser {
	p := &Parser{
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.registry == nil {
		p.registry = NewRegistry()
	}
	if p.logger == nil {
		p.logger = logrus.WithField("component", "body-parser")
	}
	if p.observer == nil {
		p.observer = NopObserver{}
	}
	return p
}

// Registry returns the decoder registry used by the parser
func (p *Parser) Registry() *Registry {
	return p.registry
}

// RegisterParser registers a decoder for the content type
func (p *Parser) RegisterParser(contentType string, decoder Decoder) error {
	if err := p.registry.Register(contentType, decoder); err != nil {
		return fmt.Errorf("failed to register parser for %q: %w", contentType, err)
	}
	return nil
}

// Middleware returns the HTTP middleware function
func (p *Parser) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.Process(w, r, next)
	})
}

// Process decodes the body of r and always forwards to next
func (p *Parser) Process(w http.ResponseWriter, r *http.Request, next http.Handler) {
	next.ServeHTTP(w, p.Parse(r))
}

// Parse returns r, or a copy of r carrying the parsed body when a decoder
// matched its content type and the body is not empty. The body of the
// returned request still yields the original bytes.
func (p *Parser) Parse(r *http.Request) *http.Request {
	contentType, ok := ContentType(r)
	if !ok {
		return r
	}

	decoder, ok := p.registry.Lookup(contentType)
	if !ok {
		p.logger.WithField("content_type", contentType).Debug("No decoder registered for content type")
		return r
	}

	req, body, err := readBody(r, p.maxBodySize)
	if err != nil {
		// body holds only what was read before the limit or the read error
		p.logger.WithError(err).WithFields(logrus.Fields{
			"content_type":   contentType,
			"path":           r.URL.Path,
			"max_size":       p.maxBodySize,
			"bytes_read":     len(body),
			"content_length": r.ContentLength,
		}).Warn("Request body not decoded")
		p.observer.ObserveDecode(contentType, OutcomeSkipped, len(body), 0)
		return req
	}
	if len(body) == 0 {
		return req
	}

	value, ok, err := p.decode(contentType, decoder, body)
	if !ok {
		return req
	}
	return withDecodeResult(req, value, err)
}

// decode runs the decoder, turning a panic into "nothing to attach"
func (p *Parser) decode(contentType string, decoder Decoder, body []byte) (value any, attach bool, decodeErr error) {
	start := time.Now()
	logger := p.logger.WithFields(logrus.Fields{
		"content_type": contentType,
		"body_size":    len(body),
	})

	defer func() {
		if rec := recover(); rec != nil {
			logger.WithField("panic", rec).Error("Decoder panicked")
			p.observer.ObserveDecode(contentType, OutcomePanicked, len(body), time.Since(start))
			value, attach, decodeErr = nil, false, nil
		}
	}()

	decoded, err := decoder(body)
	duration := time.Since(start)
	if err != nil {
		logger.WithError(err).Debug("Failed to decode request body")
		p.observer.ObserveDecode(contentType, OutcomeFailed, len(body), duration)
		return decoded, true, err
	}

	logger.WithField("duration", duration).Debug("Request body decoded")
	p.observer.ObserveDecode(contentType, OutcomeDecoded, len(body), duration)
	return decoded, true, nil
}
