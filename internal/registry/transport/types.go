// Package transport provides HTTP request/response types for the registry domain.
package transport

// AddTreeRequest is the request body for registering a merkle root.
// Payment is a decimal wei amount; empty means zero.
type AddTreeRequest struct {
	Caller      string `json:"caller"`
	Root        string `json:"root"`
	Description string `json:"description"`
	ListSize    uint64 `json:"listSize"`
	Payment     string `json:"payment,omitempty"`
}

// RemoveTreeRequest is the request body for deactivating a root.
type RemoveTreeRequest struct {
	Caller string `json:"caller"`
}

// UpdateTreeRequest is the request body for replacing a tree description.
type UpdateTreeRequest struct {
	Caller      string `json:"caller"`
	Description string `json:"description"`
}

// TreeResponse is a registered tree record.
type TreeResponse struct {
	Root        string `json:"root"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
	ListSize    uint64 `json:"listSize"`
	Creator     string `json:"creator"`
	IsActive    bool   `json:"isActive"`
}

// ValidityResponse reports whether a root is registered and active.
type ValidityResponse struct {
	Root  string `json:"root"`
	Valid bool   `json:"valid"`
}

// FeeResponse is the current platform fee state.
type FeeResponse struct {
	Fee      string `json:"fee"`
	Treasury string `json:"treasury,omitempty"`
}

// NewcomerResponse reports whether an address still has its fee waiver.
type NewcomerResponse struct {
	Address  string `json:"address"`
	Newcomer bool   `json:"newcomer"`
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
