package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Simulation is the raw outcome of a simulated call.
type Simulation struct {
	Success bool
	GasUsed uint64
}

// CallSimulator performs a non-mutating simulated invocation of an address.
// A revert in the simulated call is reported via Success=false; the error
// return is reserved for simulator infrastructure failures.
type CallSimulator interface {
	Simulate(ctx context.Context, target common.Address, selector [4]byte, callData []byte) (Simulation, error)
}

// Intrinsic cost constants for the bundled simulator, matching transaction
// intrinsic gas rules: a flat base charge plus per-byte calldata charges,
// and a cold account access surcharge when the target carries code.
const (
	simBaseGas        = 21000
	simDataZeroGas    = 4
	simDataNonZeroGas = 16
	simDispatchGas    = 2600
)

// intrinsicSimulator estimates call gas from intrinsic costs alone. It does
// not execute code; it is the seam where a VM-backed simulator would plug
// in. Its one revert rule: a call carrying data but no selector to a code-
// bearing address has no handler to dispatch to.
type intrinsicSimulator struct {
	codes CodeReader
}

// NewIntrinsicSimulator creates the bundled intrinsic-cost simulator.
func NewIntrinsicSimulator(codes CodeReader) CallSimulator {
	return &intrinsicSimulator{codes: codes}
}

func (s *intrinsicSimulator) Simulate(ctx context.Context, target common.Address, selector [4]byte, callData []byte) (Simulation, error) {
	size, err := s.codes.CodeSize(ctx, addressKey(target))
	if err != nil {
		return Simulation{}, err
	}
	hasCode := size > 0

	gas := uint64(simBaseGas)
	if selector != ([4]byte{}) {
		gas += dataGas(selector[:])
	}
	gas += dataGas(callData)

	if !hasCode {
		// Plain value-style call to an account without code always succeeds.
		return Simulation{Success: true, GasUsed: gas}, nil
	}

	gas += simDispatchGas

	if selector == ([4]byte{}) && len(callData) > 0 {
		// Data sent with no selector: nothing to dispatch to, the call
		// reverts after consuming the intrinsic portion.
		return Simulation{Success: false, GasUsed: gas}, nil
	}

	return Simulation{Success: true, GasUsed: gas}, nil
}

// dataGas charges calldata bytes at the zero/non-zero byte rates.
func dataGas(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += simDataZeroGas
		} else {
			gas += simDataNonZeroGas
		}
	}
	return gas
}
