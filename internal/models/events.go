package models

import "github.com/google/uuid"

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ProgressEvent struct {
	Step       string     `json:"step"`
	Message    string     `json:"message,omitempty"`
	FileHash   string     `json:"file_hash,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Cached     bool       `json:"cached,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
