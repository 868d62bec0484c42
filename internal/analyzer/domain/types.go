// Package domain contains the business logic for contract analysis.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Analysis is the result of inspecting an address. It is computed per query
// and never persisted.
type Analysis struct {
	Address    common.Address
	IsContract bool
	CodeSize   uint64
	// ContractSize mirrors CodeSize today. It is kept as a separate field so
	// a later split of raw code length vs. logical contract size does not
	// change the result shape.
	ContractSize uint64
	// EstimatedDeploymentGas is the estimated cost in wei to deploy code of
	// this size at the sampled gas price. Zero for non-contracts.
	EstimatedDeploymentGas *uint256.Int
	// GasPrice is the price (wei per gas) the estimate was computed with.
	GasPrice uint64
}

// BasicInfo is a lighter read-only view of an address.
type BasicInfo struct {
	Address    common.Address
	CodeSize   uint64
	Balance    *uint256.Int
	IsContract bool
}

// GasEstimate is the outcome of a simulated call. A simulated revert is a
// normal result with Success=false, not a failure of the estimator.
type GasEstimate struct {
	Success  bool
	GasUsed  uint64
	GasPrice uint64
}
