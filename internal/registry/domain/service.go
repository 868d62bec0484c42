package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/ledgerlens/ledgerlens/internal/events"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// Common errors returned by the registry service.
var (
	ErrInvalidRoot     = errors.New("invalid merkle root")
	ErrDuplicateRoot   = errors.New("merkle root already registered")
	ErrRootNotFound    = errors.New("merkle root not found")
	ErrUnauthorized    = errors.New("caller is not the tree creator")
	ErrInactiveTree    = errors.New("tree is inactive")
	ErrInsufficientFee = errors.New("insufficient fee")
)

// RegistryStore defines the storage operations needed by the registry domain.
type RegistryStore interface {
	RegisterTree(ctx context.Context, rec *storage.TreeRecord, reg storage.Registration) (int64, error)
	DeactivateTree(ctx context.Context, root string, ev storage.EventInput) (int64, error)
	UpdateTreeDescription(ctx context.Context, root, description string, ev storage.EventInput) (int64, error)
	GetTree(ctx context.Context, root string) (*storage.TreeRecord, error)
	HasRegistered(ctx context.Context, address string) (bool, error)
	GetFeeState(ctx context.Context) (*storage.FeeState, error)
}

type service struct {
	// mu serializes mutations. The design assumes one-mutation-at-a-time
	// ordering; running as a standalone process, the service provides it
	// itself so two concurrent registrations of the same root cannot both
	// observe it as unregistered.
	mu     sync.Mutex
	store  RegistryStore
	policy *FeePolicy
	bus    *events.Bus
	now    func() time.Time
}

// NewService creates a new registry service.
func NewService(store RegistryStore, policy *FeePolicy, bus *events.Bus) *service {
	return &service{
		store:  store,
		policy: policy,
		bus:    bus,
		now:    time.Now,
	}
}

// AddTree registers a merkle root. The record creation, newcomer flag
// clear, treasury credit, and event append commit atomically; on any
// failure no state changes.
func (s *service) AddTree(ctx context.Context, caller common.Address, root common.Hash, description string, listSize uint64, payment *uint256.Int) error {
	if root == (common.Hash{}) {
		return fmt.Errorf("%w: zero root", ErrInvalidRoot)
	}
	if payment == nil {
		payment = uint256.NewInt(0)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Duplicate check covers inactive records too: deactivation is
	// terminal, a removed root can never be re-registered.
	if _, err := s.store.GetTree(ctx, rootKey(root)); err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateRoot, root.Hex())
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("checking root: %w", err)
	}

	if err := s.policy.Charge(ctx, caller, payment); err != nil {
		return err
	}

	feeState, err := s.policy.currentFeeState(ctx)
	if err != nil {
		return err
	}

	rec := &storage.TreeRecord{
		Root:        rootKey(root),
		Description: description,
		Timestamp:   s.now().Unix(),
		ListSize:    int64(listSize),
		Creator:     addressKey(caller),
		IsActive:    true,
	}

	payload, _ := json.Marshal(map[string]any{
		"root":     rec.Root,
		"creator":  rec.Creator,
		"listSize": listSize,
		"payment":  payment.Dec(),
	})

	reg := storage.Registration{
		Payment: payment.Dec(),
		Event:   storage.EventInput{Type: events.TypeTreeAdded, Payload: payload},
	}
	if feeState.Treasury != (common.Address{}) {
		reg.Treasury = addressKey(feeState.Treasury)
	}

	seq, err := s.store.RegisterTree(ctx, rec, reg)
	if err != nil {
		if errors.Is(err, storage.ErrRootExists) {
			return fmt.Errorf("%w: %s", ErrDuplicateRoot, root.Hex())
		}
		return fmt.Errorf("registering tree: %w", err)
	}

	s.bus.Publish(events.Event{Seq: seq, Type: events.TypeTreeAdded, Payload: payload})
	return nil
}

// RemoveTree deactivates a root. Only the creator may remove it; the
// record is kept for audit with IsActive=false.
func (s *service) RemoveTree(ctx context.Context, caller common.Address, root common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.GetTree(ctx, rootKey(root))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, root.Hex())
		}
		return fmt.Errorf("reading tree: %w", err)
	}
	if rec.Creator != addressKey(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}

	payload, _ := json.Marshal(map[string]any{
		"root":    rec.Root,
		"creator": rec.Creator,
	})

	seq, err := s.store.DeactivateTree(ctx, rec.Root, storage.EventInput{Type: events.TypeTreeRemoved, Payload: payload})
	if err != nil {
		return fmt.Errorf("deactivating tree: %w", err)
	}

	s.bus.Publish(events.Event{Seq: seq, Type: events.TypeTreeRemoved, Payload: payload})
	return nil
}

// UpdateDescription replaces an active tree's description. Creator only.
func (s *service) UpdateDescription(ctx context.Context, caller common.Address, root common.Hash, newDescription string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.GetTree(ctx, rootKey(root))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, root.Hex())
		}
		return fmt.Errorf("reading tree: %w", err)
	}
	if rec.Creator != addressKey(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller.Hex())
	}
	if !rec.IsActive {
		return fmt.Errorf("%w: %s", ErrInactiveTree, root.Hex())
	}

	payload, _ := json.Marshal(map[string]any{
		"root":    rec.Root,
		"creator": rec.Creator,
	})

	seq, err := s.store.UpdateTreeDescription(ctx, rec.Root, newDescription, storage.EventInput{Type: events.TypeTreeUpdated, Payload: payload})
	if err != nil {
		return fmt.Errorf("updating tree: %w", err)
	}

	s.bus.Publish(events.Event{Seq: seq, Type: events.TypeTreeUpdated, Payload: payload})
	return nil
}

// IsRootValid reports whether a root is registered and active. The zero
// root is invalid by definition, whatever the table holds.
func (s *service) IsRootValid(ctx context.Context, root common.Hash) (bool, error) {
	if root == (common.Hash{}) {
		return false, nil
	}
	rec, err := s.store.GetTree(ctx, rootKey(root))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("reading tree: %w", err)
	}
	return rec.IsActive, nil
}

// TreeInfo returns the full record for a root, including inactive ones so
// auditors can inspect deactivated trees.
func (s *service) TreeInfo(ctx context.Context, root common.Hash) (*TreeRecord, error) {
	rec, err := s.store.GetTree(ctx, rootKey(root))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root.Hex())
		}
		return nil, fmt.Errorf("reading tree: %w", err)
	}
	return toRecord(rec), nil
}

// PlatformFee returns the current fee state.
func (s *service) PlatformFee(ctx context.Context) (*FeeState, error) {
	return s.policy.currentFeeState(ctx)
}

// IsNewcomer reports whether the address still has its fee waiver.
func (s *service) IsNewcomer(ctx context.Context, addr common.Address) (bool, error) {
	return s.policy.IsNewcomer(ctx, addr)
}

func toRecord(rec *storage.TreeRecord) *TreeRecord {
	return &TreeRecord{
		Root:        common.HexToHash(rec.Root),
		Description: rec.Description,
		Timestamp:   rec.Timestamp,
		ListSize:    uint64(rec.ListSize),
		Creator:     common.HexToAddress(rec.Creator),
		IsActive:    rec.IsActive,
	}
}

// addressKey and rootKey normalize identifiers to their storage key form.
func addressKey(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func rootKey(h common.Hash) string {
	return strings.ToLower(h.Hex())
}
