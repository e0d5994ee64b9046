package bodyparser

import (
	"fmt"
	"net/url"
)

// DecodeForm decodes an application/x-www-form-urlencoded body.
//
// Repeated keys collect every value in order. Pairs that fail to unescape are
// skipped; the values parsed so far are returned alongside the first error.
func DecodeForm(body []byte) (any, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return values, fmt.Errorf("invalid form body: %w", err)
	}
	return values, nil
}
