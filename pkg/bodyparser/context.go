package bodyparser

import (
	"context"
	"net/http"
)

type parsedBodyKey struct{}

// parsedBody wraps the value so an attached nil can be told apart from no value
type parsedBody struct {
	value any
	err   error
}

// WithParsedBody returns a shallow copy of r carrying the parsed body
func WithParsedBody(r *http.Request, value any) *http.Request {
	return r.WithContext(ContextWithParsedBody(r.Context(), value))
}

// ContextWithParsedBody returns a copy of ctx carrying the parsed body
func ContextWithParsedBody(ctx context.Context, value any) context.Context {
	return context.WithValue(ctx, parsedBodyKey{}, parsedBody{value: value})
}

// withDecodeResult attaches the decoder's value together with its error
func withDecodeResult(r *http.Request, value any, err error) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), parsedBodyKey{}, parsedBody{value: value, err: err}))
}

// ParsedBody returns the parsed body attached to the request.
// The second return value is false when no decoder ran for the request.
func ParsedBody(r *http.Request) (any, bool) {
	return ParsedBodyFromContext(r.Context())
}

// ParsedBodyFromContext returns the parsed body stored in ctx
func ParsedBodyFromContext(ctx context.Context) (any, bool) {
	pb, ok := ctx.Value(parsedBodyKey{}).(parsedBody)
	if !ok {
		return nil, false
	}
	return pb.value, true
}

// DecodeError returns the error the decoder reported for the attached body,
// nil when decoding succeeded or no decoder ran
func DecodeError(r *http.Request) error {
	pb, ok := r.Context().Value(parsedBodyKey{}).(parsedBody)
	if !ok {
		return nil
	}
	return pb.err
}
