// Package bodyparser decodes HTTP request bodies by content type and attaches
// the decoded value to the request before handing it to the next handler.
package bodyparser

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// Built-in content types
const (
	ContentTypeJSON    = "application/json"
	ContentTypeXML     = "application/xml"
	ContentTypeTextXML = "text/xml"
	ContentTypeForm    = "application/x-www-form-urlencoded"
)

// ErrNilDecoder is returned when registering a nil decoder
var ErrNilDecoder = errors.New("bodyparser: decoder must not be nil")

// Decoder turns a raw request body into a structured value.
//
// On failure a decoder still returns the value that should be attached to the
// request (usually nil) together with the error. The error is diagnostic only.
type Decoder func(body []byte) (any, error)

// Registry maps normalized content types to decoders
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates a registry holding the default decoders
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	for contentType, decoder := range DefaultDecoders() {
		r.decoders[NormalizeContentType(contentType)] = decoder
	}
	return r
}

// NewEmptyRegistry creates a registry without any decoders
func NewEmptyRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
	}
}

// DefaultDecoders returns the built-in decoders keyed by content type
func DefaultDecoders() map[string]Decoder {
	return map[string]Decoder{
		ContentTypeJSON:    DecodeJSON,
		ContentTypeXML:     DecodeXML,
		ContentTypeTextXML: DecodeXML,
		ContentTypeForm:    DecodeForm,
	}
}

// NormalizeContentType lower-cases and trims a content type key
func NormalizeContentType(contentType string) string {
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Register stores the decoder for the content type, replacing any previous one.
// The empty string is a valid key.
func (r *Registry) Register(contentType string, decoder Decoder) error {
	if decoder == nil {
		return ErrNilDecoder
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[NormalizeContentType(contentType)] = decoder
	return nil
}

// MustRegister is like Register but panics on a nil decoder
func (r *Registry) MustRegister(contentType string, decoder Decoder) {
	if err := r.Register(contentType, decoder); err != nil {
		panic(err)
	}
}

// Lookup returns the decoder registered for the content type
func (r *Registry) Lookup(contentType string) (Decoder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decoder, ok := r.decoders[NormalizeContentType(contentType)]
	return decoder, ok
}

// ContentTypes returns the registered content types in sorted order
func (r *Registry) ContentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.decoders))
	for contentType := range r.decoders {
		out = append(out, contentType)
	}
	sort.Strings(out)
	return out
}
