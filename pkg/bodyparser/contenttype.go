package bodyparser

import (
	"net/http"
	"strings"

	"github.com/umisama/go-regexpcache"
)

// HeaderContentType is the header the parser dispatches on
const HeaderContentType = "Content-Type"

// ContentType extracts the media type of the request without its parameters.
// Multiple header lines are joined with ", " before splitting on ";" or ",".
// The second return value is false when the request has no Content-Type header.
func ContentType(r *http.Request) (string, bool) {
	lines := r.Header.Values(HeaderContentType)
	if len(lines) == 0 {
		return "", false
	}

	segments := regexpcache.MustCompile(`\s*[;,]\s*`).Split(strings.Join(lines, ", "), -1)
	if len(segments) == 0 {
		return "", false
	}
	return NormalizeContentType(segments[0]), true
}
