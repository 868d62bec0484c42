// Package gas holds the deployment cost model and the gas price oracle.
package gas

import (
	"errors"

	"github.com/holiman/uint256"
)

// Deployment cost constants. The formula is a deliberate approximation of
// real deployment cost (transaction base cost plus a flat per-byte charge),
// not an opcode-level replica.
const (
	BaseGas    = 21000
	PerByteGas = 200
)

// ErrOverflow is returned when a cost computation would exceed the integer
// width instead of silently wrapping.
var ErrOverflow = errors.New("gas cost overflows")

// maxCodeSize is the largest code size whose deployment gas fits in uint64.
const maxCodeSize = (^uint64(0) - BaseGas) / PerByteGas

// DeploymentGas returns the estimated gas to deploy codeSize bytes.
func DeploymentGas(codeSize uint64) (uint64, error) {
	if codeSize > maxCodeSize {
		return 0, ErrOverflow
	}
	return BaseGas + codeSize*PerByteGas, nil
}

// DeploymentCost returns the estimated deployment cost in wei:
// (BaseGas + codeSize*PerByteGas) * gasPrice. The product of two uint64
// values always fits in 256 bits, so the only overflow point is the gas
// term itself.
func DeploymentCost(codeSize, gasPrice uint64) (*uint256.Int, error) {
	g, err := DeploymentGas(codeSize)
	if err != nil {
		return nil, err
	}
	cost := new(uint256.Int).Mul(uint256.NewInt(g), uint256.NewInt(gasPrice))
	return cost, nil
}
