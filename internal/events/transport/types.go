// Package transport provides HTTP response types for the event log.
package transport

import "encoding/json"

// EventItem is a committed event in a list response.
type EventItem struct {
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

// ListResponse is the response for listing events.
type ListResponse struct {
	Events []EventItem `json:"events"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
