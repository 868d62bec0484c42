package domain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// PolicyStore is the storage view the fee policy needs.
type PolicyStore interface {
	HasRegistered(ctx context.Context, address string) (bool, error)
	GetFeeState(ctx context.Context) (*storage.FeeState, error)
}

// FeePolicy decides whether a registration requires payment. An address
// that has never completed a registration gets one fee-free registration.
type FeePolicy struct {
	store PolicyStore
}

// NewFeePolicy creates a fee policy over the given store.
func NewFeePolicy(store PolicyStore) *FeePolicy {
	return &FeePolicy{store: store}
}

// RequiredFee returns the fee the caller must pay: zero for newcomers,
// the platform fee otherwise.
func (p *FeePolicy) RequiredFee(ctx context.Context, caller common.Address) (*uint256.Int, error) {
	registered, err := p.store.HasRegistered(ctx, addressKey(caller))
	if err != nil {
		return nil, fmt.Errorf("checking registrant: %w", err)
	}
	if !registered {
		return uint256.NewInt(0), nil
	}
	fs, err := p.currentFeeState(ctx)
	if err != nil {
		return nil, err
	}
	return fs.Fee, nil
}

// Charge validates that the payment covers the required fee. Surplus is
// accepted and forwarded in full to the treasury; there is no refund path.
func (p *FeePolicy) Charge(ctx context.Context, caller common.Address, payment *uint256.Int) error {
	required, err := p.RequiredFee(ctx, caller)
	if err != nil {
		return err
	}
	if payment.Lt(required) {
		return fmt.Errorf("%w: payment %s below required fee %s", ErrInsufficientFee, payment.Dec(), required.Dec())
	}
	return nil
}

// IsNewcomer reports whether the address still qualifies for the fee-free
// first registration.
func (p *FeePolicy) IsNewcomer(ctx context.Context, addr common.Address) (bool, error) {
	registered, err := p.store.HasRegistered(ctx, addressKey(addr))
	if err != nil {
		return false, fmt.Errorf("checking registrant: %w", err)
	}
	return !registered, nil
}

// currentFeeState reads and parses the persisted fee state.
func (p *FeePolicy) currentFeeState(ctx context.Context) (*FeeState, error) {
	fs, err := p.store.GetFeeState(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading fee state: %w", err)
	}
	fee := uint256.NewInt(0)
	if fs.Fee != "" {
		fee, err = uint256.FromDecimal(fs.Fee)
		if err != nil {
			return nil, fmt.Errorf("parsing platform fee %q: %w", fs.Fee, err)
		}
	}
	state := &FeeState{Fee: fee}
	if fs.Treasury != "" {
		state.Treasury = common.HexToAddress(fs.Treasury)
	}
	return state, nil
}
