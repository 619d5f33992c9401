package handler

import (
	"time"

	"github.com/yndnr/sessbox-go/internal/core/syncer"
)

// Response is the standard API response envelope.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
	}
}

// HealthResponse is the body of GET /healthz and GET /readyz.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	syncer.State

	Version  string `json:"version"`
	Remote   string `json:"remote"`
	Sessions int    `json:"sessions"`
}

// SyncResponse is the body of POST /v1/sync.
type SyncResponse struct {
	// Scheduled is set when the cycle was only requested.
	Scheduled bool           `json:"scheduled"`
	Report    *syncer.Report `json:"report,omitempty"`
	Error     string         `json:"error,omitempty"`
}
