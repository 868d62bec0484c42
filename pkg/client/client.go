// Package client provides a Go client for the Ledgerlens API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a Ledgerlens API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new Ledgerlens client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Analysis is the result of analyzing an account
type Analysis struct {
	Address                string `json:"address"`
	IsContract             bool   `json:"isContract"`
	CodeSize               int64  `json:"codeSize"`
	ContractSize           int64  `json:"contractSize"`
	EstimatedDeploymentGas string `json:"estimatedDeploymentGas"`
	GasPrice               uint64 `json:"gasPrice"`
}

// AccountInfo is basic account information
type AccountInfo struct {
	Address    string `json:"address"`
	CodeSize   int64  `json:"codeSize"`
	Balance    string `json:"balance"`
	IsContract bool   `json:"isContract"`
}

// DeploymentCost is a deployment cost quote
type DeploymentCost struct {
	CodeSize uint64 `json:"codeSize"`
	GasPrice uint64 `json:"gasPrice"`
	Cost     string `json:"cost"`
}

// GasEstimate is the result of a simulated call
type GasEstimate struct {
	Success  bool   `json:"success"`
	GasUsed  uint64 `json:"gasUsed"`
	GasPrice uint64 `json:"gasPrice"`
}

// Tree is a registered merkle tree record
type Tree struct {
	Root        string `json:"root"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
	ListSize    uint64 `json:"listSize"`
	Creator     string `json:"creator"`
	IsActive    bool   `json:"isActive"`
}

// FeeState is the current platform fee state
type FeeState struct {
	Fee      string `json:"fee"`
	Treasury string `json:"treasury,omitempty"`
}

// Event is a committed event log entry
type Event struct {
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"createdAt"`
}

// AddTreeRequest is the request for registering a merkle root
type AddTreeRequest struct {
	Caller      string `json:"caller"`
	Root        string `json:"root"`
	Description string `json:"description"`
	ListSize    uint64 `json:"listSize"`
	Payment     string `json:"payment,omitempty"`
}

// EstimateGasRequest is the request for a gas estimate
type EstimateGasRequest struct {
	Address  string `json:"address"`
	Selector string `json:"selector"`
	CallData string `json:"callData,omitempty"`
}

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Analyze analyzes an account
func (c *Client) Analyze(ctx context.Context, address string) (*Analysis, error) {
	var resp Analysis
	if err := c.post(ctx, "/api/v1/analyzer/analyze", map[string]string{"address": address}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccount gets basic account info
func (c *Client) GetAccount(ctx context.Context, address string) (*AccountInfo, error) {
	var resp AccountInfo
	if err := c.get(ctx, "/api/v1/analyzer/accounts/"+url.PathEscape(address), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeploymentCost quotes the cost of deploying code of the given size.
// A zero gasPrice uses the server's oracle price.
func (c *Client) DeploymentCost(ctx context.Context, codeSize, gasPrice uint64) (*DeploymentCost, error) {
	var resp DeploymentCost
	body := map[string]uint64{"codeSize": codeSize, "gasPrice": gasPrice}
	if err := c.post(ctx, "/api/v1/analyzer/deployment-cost", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HasFunction reports whether the account can dispatch the selector
func (c *Client) HasFunction(ctx context.Context, address, selector string) (bool, error) {
	var resp struct {
		HasFunction bool `json:"hasFunction"`
	}
	path := fmt.Sprintf("/api/v1/analyzer/accounts/%s/has-function?selector=%s",
		url.PathEscape(address), url.QueryEscape(selector))
	if err := c.get(ctx, path, &resp); err != nil {
		return false, err
	}
	return resp.HasFunction, nil
}

// EstimateGas runs a simulated call and returns the gas estimate
func (c *Client) EstimateGas(ctx context.Context, req EstimateGasRequest) (*GasEstimate, error) {
	var resp GasEstimate
	if err := c.post(ctx, "/api/v1/analyzer/estimate-gas", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddTree registers a merkle root
func (c *Client) AddTree(ctx context.Context, req AddTreeRequest) error {
	return c.post(ctx, "/api/v1/registry/trees", req, nil)
}

// RemoveTree deactivates a merkle root
func (c *Client) RemoveTree(ctx context.Context, caller, root string) error {
	path := "/api/v1/registry/trees/" + url.PathEscape(root)
	return c.doJSON(ctx, http.MethodDelete, path, map[string]string{"caller": caller}, nil)
}

// UpdateTree replaces a tree's description
func (c *Client) UpdateTree(ctx context.Context, caller, root, description string) error {
	path := "/api/v1/registry/trees/" + url.PathEscape(root)
	body := map[string]string{"caller": caller, "description": description}
	return c.doJSON(ctx, http.MethodPatch, path, body, nil)
}

// GetTree gets a tree record by root
func (c *Client) GetTree(ctx context.Context, root string) (*Tree, error) {
	var resp Tree
	if err := c.get(ctx, "/api/v1/registry/trees/"+url.PathEscape(root), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsRootValid reports whether a root is registered and active
func (c *Client) IsRootValid(ctx context.Context, root string) (bool, error) {
	var resp struct {
		Valid bool `json:"valid"`
	}
	path := "/api/v1/registry/trees/" + url.PathEscape(root) + "/valid"
	if err := c.get(ctx, path, &resp); err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// GetFee gets the current platform fee state
func (c *Client) GetFee(ctx context.Context) (*FeeState, error) {
	var resp FeeState
	if err := c.get(ctx, "/api/v1/registry/fee", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsNewcomer reports whether the address still has its fee waiver
func (c *Client) IsNewcomer(ctx context.Context, address string) (bool, error) {
	var resp struct {
		Newcomer bool `json:"newcomer"`
	}
	if err := c.get(ctx, "/api/v1/registry/newcomers/"+url.PathEscape(address), &resp); err != nil {
		return false, err
	}
	return resp.Newcomer, nil
}

// ListEvents lists committed events after the given sequence number
func (c *Client) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]Event, error) {
	var resp struct {
		Events []Event `json:"events"`
	}
	path := fmt.Sprintf("/api/v1/events?after=%d&limit=%d", afterSeq, limit)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// SetFee sets the platform fee and treasury (admin)
func (c *Client) SetFee(ctx context.Context, fee, treasury string) error {
	body := map[string]string{"fee": fee, "treasury": treasury}
	return c.doJSON(ctx, http.MethodPut, "/api/v1/admin/fee", body, nil)
}

// SeedAccount writes code and balance for an address (admin)
func (c *Client) SeedAccount(ctx context.Context, address, code, balance string) error {
	body := map[string]string{"code": code, "balance": balance}
	path := "/api/v1/admin/accounts/" + url.PathEscape(address)
	return c.doJSON(ctx, http.MethodPut, path, body, nil)
}

// Version gets the server build information
func (c *Client) Version(ctx context.Context) (map[string]string, error) {
	var resp map[string]string
	if err := c.get(ctx, "/api/v1/version", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return &errResp.Error
}
