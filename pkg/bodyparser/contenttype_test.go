package bodyparser

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		name        string
		headers     []string
		expected    string
		expectedSet bool
	}{
		{name: "absent", headers: nil, expected: "", expectedSet: false},
		{name: "plain", headers: []string{"application/json"}, expected: "application/json", expectedSet: true},
		{name: "charset parameter", headers: []string{"application/json; charset=utf-8"}, expected: "application/json", expectedSet: true},
		{name: "no space before parameter", headers: []string{"text/xml;charset=UTF-8"}, expected: "text/xml", expectedSet: true},
		{name: "upper case", headers: []string{"Application/X-WWW-Form-Urlencoded"}, expected: "application/x-www-form-urlencoded", expectedSet: true},
		{name: "comma separated", headers: []string{"text/xml , application/json"}, expected: "text/xml", expectedSet: true},
		{name: "multiple lines", headers: []string{"application/xml", "application/json"}, expected: "application/xml", expectedSet: true},
		{name: "leading whitespace", headers: []string{"  application/json"}, expected: "application/json", expectedSet: true},
		{name: "empty value", headers: []string{""}, expected: "", expectedSet: true},
		{name: "only parameters", headers: []string{"; charset=utf-8"}, expected: "", expectedSet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", nil)
			for _, h := range tt.headers {
				req.Header.Add("Content-Type", h)
			}

			contentType, ok := ContentType(req)
			assert.Equal(t, tt.expectedSet, ok)
			assert.Equal(t, tt.expected, contentType)
		})
	}
}
