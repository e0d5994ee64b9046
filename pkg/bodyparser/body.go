package bodyparser

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// ErrBodyTooLarge is returned when a body exceeds the configured limit
var ErrBodyTooLarge = errors.New("request body exceeds the parser limit")

// replayBody serves the buffered prefix followed by whatever is left of the
// original body, and closes the original body
type replayBody struct {
	io.Reader
	io.Closer
}

// readBody buffers the request body, up to limit bytes when limit > 0.
// The returned request is a shallow copy whose body yields exactly the bytes
// the client sent, whether or not reading succeeded. On error the returned
// slice holds the bytes read before giving up.
func readBody(r *http.Request, limit int64) (*http.Request, []byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return r, nil, nil
	}

	original := r.Body
	reader := io.Reader(original)
	if limit > 0 {
		reader = io.LimitReader(original, limit+1)
	}

	data, err := io.ReadAll(reader)
	if err == nil && limit > 0 && int64(len(data)) > limit {
		err = ErrBodyTooLarge
	}

	out := r.WithContext(r.Context())
	if err != nil {
		out.Body = &replayBody{
			Reader: io.MultiReader(bytes.NewReader(data), original),
			Closer: original,
		}
		return out, data, err
	}

	resetBody(out, data)
	return out, data, nil
}

// resetBody replaces the request body with the buffered content
func resetBody(r *http.Request, body []byte) {
	r.Body = io.NopCloser(bytes.NewReader(body))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
}
