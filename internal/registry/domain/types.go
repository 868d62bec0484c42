// Package domain contains the business logic for the merkle root registry.
package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TreeRecord is a registered merkle root and its lifecycle state.
// Creator is immutable once the record exists; deactivated records are
// retained with IsActive=false.
type TreeRecord struct {
	Root        common.Hash
	Description string
	Timestamp   int64
	ListSize    uint64
	Creator     common.Address
	IsActive    bool
}

// FeeState is the current platform fee and the treasury receiving it.
type FeeState struct {
	Fee      *uint256.Int
	Treasury common.Address
}
