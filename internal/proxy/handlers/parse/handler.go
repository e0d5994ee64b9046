package parse

import (
	"encoding/json"
	"net/http"

	"github.com/guided-traffic/request-body-parser/internal/proxy/middleware"
	"github.com/guided-traffic/request-body-parser/pkg/bodyparser"
	"github.com/sirupsen/logrus"
)

// Response is the document returned by the parse endpoint
type Response struct {
	RequestID   string `json:"request_id,omitempty"`
	ContentType string `json:"content_type"`
	Parsed      bool   `json:"parsed"`
	Body        any    `json:"body"`
}

// Handler reports the body the parser attached to the request
type Handler struct {
	logger *logrus.Entry
}

// NewHandler creates a new parse handler
func NewHandler(logger *logrus.Entry) *Handler {
	return &Handler{
		logger: logger,
	}
}

// Handle writes the parsed body of the request as JSON
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	contentType, _ := bodyparser.ContentType(r)
	body, parsed := bodyparser.ParsedBody(r)

	response := Response{
		RequestID:   middleware.RequestIDFromContext(r.Context()),
		ContentType: contentType,
		Parsed:      parsed,
		Body:        body,
	}

	h.logger.WithFields(logrus.Fields{
		"content_type": contentType,
		"parsed":       parsed,
		"request_id":   response.RequestID,
	}).Debug("Echoing parsed request body")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.WithError(err).Error("Failed to write parse response")
	}
}
