package domain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ledgerlens/ledgerlens/internal/events"
	"github.com/ledgerlens/ledgerlens/internal/gas"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// Common errors returned by the analyzer service.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrOverflow       = gas.ErrOverflow
)

// CodeReader is the read-only view of the ledger's code table.
type CodeReader interface {
	CodeSize(ctx context.Context, address string) (int64, error)
}

// LedgerReader extends CodeReader with full account reads for balances.
type LedgerReader interface {
	CodeReader
	GetAccount(ctx context.Context, address string) (*storage.Account, error)
}

// EventSink persists emitted events.
type EventSink interface {
	AppendEvent(ctx context.Context, ev storage.EventInput) (int64, error)
}

type service struct {
	ledger LedgerReader
	sink   EventSink
	bus    *events.Bus
	prices gas.PriceSource
	sim    CallSimulator
}

// NewService creates a new analyzer service. When sim is nil the bundled
// intrinsic-cost simulator is used.
func NewService(ledger LedgerReader, sink EventSink, bus *events.Bus, prices gas.PriceSource, sim CallSimulator) *service {
	if sim == nil {
		sim = NewIntrinsicSimulator(ledger)
	}
	return &service{
		ledger: ledger,
		sink:   sink,
		bus:    bus,
		prices: prices,
		sim:    sim,
	}
}

// Analyze inspects an address: contract or EOA, code size, and estimated
// deployment cost at the current gas price. Repeated calls with unchanged
// code yield identical results apart from gas price drift.
func (s *service) Analyze(ctx context.Context, addr common.Address) (*Analysis, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}

	size, err := s.ledger.CodeSize(ctx, addressKey(addr))
	if err != nil {
		return nil, fmt.Errorf("reading code size: %w", err)
	}

	analysis := &Analysis{
		Address:                addr,
		IsContract:             size > 0,
		CodeSize:               uint64(size),
		ContractSize:           uint64(size),
		EstimatedDeploymentGas: uint256.NewInt(0),
		GasPrice:               s.prices.GasPrice(),
	}

	if analysis.IsContract {
		cost, err := gas.DeploymentCost(analysis.CodeSize, analysis.GasPrice)
		if err != nil {
			return nil, err
		}
		analysis.EstimatedDeploymentGas = cost
	}

	if err := s.emit(ctx, events.TypeContractAnalyzed, analyzedPayload(analysis)); err != nil {
		return nil, err
	}

	return analysis, nil
}

// BasicInfo returns code size, balance, and the contract flag. Unlike
// Analyze it tolerates the zero address; the asymmetry is preserved from
// the observed service behavior rather than unified.
func (s *service) BasicInfo(ctx context.Context, addr common.Address) (*BasicInfo, error) {
	info := &BasicInfo{
		Address: addr,
		Balance: uint256.NewInt(0),
	}

	acct, err := s.ledger.GetAccount(ctx, addressKey(addr))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("reading account: %w", err)
	}
	if acct != nil {
		info.CodeSize = uint64(len(acct.Code))
		balance, perr := uint256.FromDecimal(acct.Balance)
		if perr != nil {
			return nil, fmt.Errorf("parsing balance %q: %w", acct.Balance, perr)
		}
		info.Balance = balance
	}
	info.IsContract = info.CodeSize > 0

	return info, nil
}

// DeploymentCost prices a hypothetical deployment without touching the
// ledger. Exposed so callers can quote costs for code they have not
// deployed yet.
func (s *service) DeploymentCost(codeSize, gasPrice uint64) (*uint256.Int, error) {
	return gas.DeploymentCost(codeSize, gasPrice)
}

// HasFunction reports whether the address could expose the selector. The
// current implementation is a coarse any-code-present check and does not
// consult a selector table; the signature is kept stable so a real
// selector lookup can replace the body without an interface break.
func (s *service) HasFunction(ctx context.Context, addr common.Address, selector [4]byte) (bool, error) {
	_ = selector
	size, err := s.ledger.CodeSize(ctx, addressKey(addr))
	if err != nil {
		return false, fmt.Errorf("reading code size: %w", err)
	}
	return size > 0, nil
}

// EstimateGas performs a non-mutating simulated call. A simulated revert
// surfaces as Success=false with the gas consumed up to the revert point;
// only simulator infrastructure failures return an error.
func (s *service) EstimateGas(ctx context.Context, addr common.Address, selector [4]byte, callData []byte) (*GasEstimate, error) {
	sim, err := s.sim.Simulate(ctx, addr, selector, callData)
	if err != nil {
		return nil, fmt.Errorf("simulating call: %w", err)
	}

	est := &GasEstimate{
		Success:  sim.Success,
		GasUsed:  sim.GasUsed,
		GasPrice: s.prices.GasPrice(),
	}

	if err := s.emit(ctx, events.TypeGasEstimated, estimatedPayload(addr, selector, est)); err != nil {
		return nil, err
	}

	return est, nil
}

// emit appends an event to the log and publishes it to live subscribers.
func (s *service) emit(ctx context.Context, eventType string, payload []byte) error {
	seq, err := s.sink.AppendEvent(ctx, storage.EventInput{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("appending %s event: %w", eventType, err)
	}
	s.bus.Publish(events.Event{Seq: seq, Type: eventType, Payload: payload})
	return nil
}

func analyzedPayload(a *Analysis) []byte {
	p, _ := json.Marshal(map[string]any{
		"address":                strings.ToLower(a.Address.Hex()),
		"isContract":             a.IsContract,
		"codeSize":               a.CodeSize,
		"contractSize":           a.ContractSize,
		"estimatedDeploymentGas": a.EstimatedDeploymentGas.Dec(),
		"gasPrice":               a.GasPrice,
	})
	return p
}

func estimatedPayload(addr common.Address, selector [4]byte, est *GasEstimate) []byte {
	p, _ := json.Marshal(map[string]any{
		"address":  strings.ToLower(addr.Hex()),
		"selector": "0x" + hex.EncodeToString(selector[:]),
		"success":  est.Success,
		"gasUsed":  est.GasUsed,
		"gasPrice": est.GasPrice,
	})
	return p
}

// addressKey normalizes an address to its storage key form.
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}
