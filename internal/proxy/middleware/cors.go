package middleware

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	corsAllowedMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowedHeaders = "Content-Type, Content-Length, " + RequestIDHeader
	corsExposedHeaders = "Content-Length, " + RequestIDHeader
)

// CORS answers preflight requests and advertises which request body content
// types are decoded, via Accept-Post and Accept-Patch
type CORS struct {
	logger       *logrus.Entry
	contentTypes func() []string
}

// NewCORS creates a new CORS middleware. contentTypes lists the decodable
// content types at request time; it may be nil.
func NewCORS(logger *logrus.Entry, contentTypes func() []string) *CORS {
	return &CORS{
		logger:       logger,
		contentTypes: contentTypes,
	}
}

// Middleware returns the HTTP middleware function
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Expose-Headers", corsExposedHeaders)

		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		header.Set("Access-Control-Allow-Methods", corsAllowedMethods)
		header.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
		header.Set("Access-Control-Max-Age", "3600")

		if accepted := c.acceptedContentTypes(); accepted != "" {
			header.Set("Accept-Post", accepted)
			header.Set("Accept-Patch", accepted)
		}

		c.logger.WithFields(logrus.Fields{
			"path":   r.URL.Path,
			"origin": r.Header.Get("Origin"),
			"method": r.Header.Get("Access-Control-Request-Method"),
		}).Debug("Answered CORS preflight request")
		w.WriteHeader(http.StatusOK)
	})
}

// acceptedContentTypes joins the decodable content types, skipping the empty key
func (c *CORS) acceptedContentTypes() string {
	if c.contentTypes == nil {
		return ""
	}

	var accepted []string
	for _, contentType := range c.contentTypes() {
		if contentType != "" {
			accepted = append(accepted, contentType)
		}
	}
	return strings.Join(accepted, ", ")
}
