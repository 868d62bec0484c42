// Package transport provides HTTP request/response types for the analyzer domain.
package transport

// AnalyzeRequest is the HTTP request body for analyzing an account.
type AnalyzeRequest struct {
	Address string `json:"address"`
}

// AnalyzeResponse is the response for an account analysis.
type AnalyzeResponse struct {
	Address                string `json:"address"`
	IsContract             bool   `json:"isContract"`
	CodeSize               int64  `json:"codeSize"`
	ContractSize           int64  `json:"contractSize"`
	EstimatedDeploymentGas string `json:"estimatedDeploymentGas"`
	GasPrice               uint64 `json:"gasPrice"`
}

// BasicInfoResponse is the response for a basic account lookup.
type BasicInfoResponse struct {
	Address    string `json:"address"`
	CodeSize   int64  `json:"codeSize"`
	Balance    string `json:"balance"`
	IsContract bool   `json:"isContract"`
}

// DeploymentCostRequest is the request body for a deployment cost quote.
// GasPrice is optional; zero means use the oracle price.
type DeploymentCostRequest struct {
	CodeSize uint64 `json:"codeSize"`
	GasPrice uint64 `json:"gasPrice,omitempty"`
}

// DeploymentCostResponse is the response for a deployment cost quote.
type DeploymentCostResponse struct {
	CodeSize uint64 `json:"codeSize"`
	GasPrice uint64 `json:"gasPrice"`
	Cost     string `json:"cost"`
}

// HasFunctionResponse reports whether an account can dispatch a selector.
type HasFunctionResponse struct {
	Address     string `json:"address"`
	Selector    string `json:"selector"`
	HasFunction bool   `json:"hasFunction"`
}

// EstimateGasRequest is the request body for a gas estimate.
type EstimateGasRequest struct {
	Address  string `json:"address"`
	Selector string `json:"selector"`
	CallData string `json:"callData,omitempty"`
}

// EstimateGasResponse is the response for a gas estimate. Success is
// false when the simulated call reverted; GasUsed still reports the gas
// consumed up to the revert.
type EstimateGasResponse struct {
	Success  bool   `json:"success"`
	GasUsed  uint64 `json:"gasUsed"`
	GasPrice uint64 `json:"gasPrice"`
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
