// Package http provides the HTTP API for optimd.
package http

import (
	"github.com/fyrsmithlabs/optimd/internal/optimizer"
)

// OptimizePromptRequest is the request body for POST /api/v1/optimize/prompt.
type OptimizePromptRequest struct {
	Prompt string `json:"prompt"`
}

// OptimizeMessageRequest is the request body for POST /api/v1/optimize/message.
type OptimizeMessageRequest struct {
	Message string `json:"message"`
}

// OptimizeSessionRequest is the request body for POST /api/v1/optimize/session.
// MaxRecentMessages zero or omitted uses the server default.
type OptimizeSessionRequest struct {
	Messages          []optimizer.Message `json:"messages"`
	MaxRecentMessages int                 `json:"max_recent_messages,omitempty"`
}

// OptimizeFileRequest is the request body for POST /api/v1/optimize/file.
type OptimizeFileRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// ContentResponse is the response body for GET /api/v1/content/:id.
type ContentResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// ClearExpiredRequest is the optional request body for
// POST /api/v1/content/expired. MaxAge is a Go duration string; empty uses
// the server's configured maximum entry age.
type ClearExpiredRequest struct {
	MaxAge string `json:"max_age,omitempty"`
}

// ClearExpiredResponse is the response body for POST /api/v1/content/expired.
type ClearExpiredResponse struct {
	Removed int `json:"removed"`
}

// RegisterTemplateRequest is the request body for POST /api/v1/templates.
type RegisterTemplateRequest struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Template  string   `json:"template"`
	Variables []string `json:"variables"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}
