package domain

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/ledgerlens/internal/events"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// mockRegistryStore implements RegistryStore for testing
type mockRegistryStore struct {
	trees       map[string]*storage.TreeRecord
	registrants map[string]bool
	feeState    storage.FeeState
	credits     map[string]string
	events      []storage.EventInput
	nextSeq     int64
}

func newMockRegistryStore() *mockRegistryStore {
	return &mockRegistryStore{
		trees:       make(map[string]*storage.TreeRecord),
		registrants: make(map[string]bool),
		feeState:    storage.FeeState{Fee: "0"},
		credits:     make(map[string]string),
	}
}

func (m *mockRegistryStore) append(ev storage.EventInput) int64 {
	m.events = append(m.events, ev)
	m.nextSeq++
	return m.nextSeq
}

func (m *mockRegistryStore) RegisterTree(ctx context.Context, rec *storage.TreeRecord, reg storage.Registration) (int64, error) {
	if _, exists := m.trees[rec.Root]; exists {
		return 0, storage.ErrRootExists
	}
	m.trees[rec.Root] = rec
	m.registrants[rec.Creator] = true
	if reg.Treasury != "" && reg.Payment != "0" {
		m.credits[reg.Treasury] = reg.Payment
	}
	return m.append(reg.Event), nil
}

func (m *mockRegistryStore) DeactivateTree(ctx context.Context, root string, ev storage.EventInput) (int64, error) {
	rec, ok := m.trees[root]
	if !ok {
		return 0, storage.ErrNotFound
	}
	rec.IsActive = false
	return m.append(ev), nil
}

func (m *mockRegistryStore) UpdateTreeDescription(ctx context.Context, root, description string, ev storage.EventInput) (int64, error) {
	rec, ok := m.trees[root]
	if !ok {
		return 0, storage.ErrNotFound
	}
	rec.Description = description
	return m.append(ev), nil
}

func (m *mockRegistryStore) GetTree(ctx context.Context, root string) (*storage.TreeRecord, error) {
	if rec, ok := m.trees[root]; ok {
		return rec, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockRegistryStore) HasRegistered(ctx context.Context, address string) (bool, error) {
	return m.registrants[address], nil
}

func (m *mockRegistryStore) GetFeeState(ctx context.Context) (*storage.FeeState, error) {
	fs := m.feeState
	return &fs, nil
}

var (
	creator  = common.HexToAddress("0xAAAA00000000000000000000000000000000AAAA")
	stranger = common.HexToAddress("0xBBBB00000000000000000000000000000000BBBB")
	treasury = common.HexToAddress("0xCCCC00000000000000000000000000000000CCCC")

	rootA = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	rootB = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

func newTestRegistry(store *mockRegistryStore) *service {
	return NewService(store, NewFeePolicy(store), events.NewBus())
}

func TestService_AddTree(t *testing.T) {
	t.Run("first registration is free", func(t *testing.T) {
		store := newMockRegistryStore()
		store.feeState.Fee = "1000"
		svc := newTestRegistry(store)

		err := svc.AddTree(context.Background(), creator, rootA, "allowlist", 100, nil)
		require.NoError(t, err)

		rec := store.trees[rootKey(rootA)]
		require.NotNil(t, rec)
		assert.True(t, rec.IsActive)
		assert.Equal(t, addressKey(creator), rec.Creator)
		assert.Equal(t, int64(100), rec.ListSize)
	})

	t.Run("zero root rejected", func(t *testing.T) {
		svc := newTestRegistry(newMockRegistryStore())
		err := svc.AddTree(context.Background(), creator, common.Hash{}, "", 0, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRoot)
	})

	t.Run("duplicate root rejected", func(t *testing.T) {
		store := newMockRegistryStore()
		svc := newTestRegistry(store)

		require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))
		err := svc.AddTree(context.Background(), stranger, rootA, "", 1, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateRoot)
	})

	t.Run("removed root cannot be re-registered", func(t *testing.T) {
		store := newMockRegistryStore()
		svc := newTestRegistry(store)

		require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))
		require.NoError(t, svc.RemoveTree(context.Background(), creator, rootA))

		err := svc.AddTree(context.Background(), creator, rootA, "", 1, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDuplicateRoot)
	})

	t.Run("repeat registration requires the fee", func(t *testing.T) {
		store := newMockRegistryStore()
		store.feeState.Fee = "1000"
		svc := newTestRegistry(store)

		require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))

		err := svc.AddTree(context.Background(), creator, rootB, "", 1, uint256.NewInt(999))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientFee)

		err = svc.AddTree(context.Background(), creator, rootB, "", 1, uint256.NewInt(1000))
		require.NoError(t, err)
	})

	t.Run("surplus payment accepted and forwarded", func(t *testing.T) {
		store := newMockRegistryStore()
		store.feeState = storage.FeeState{Fee: "1000", Treasury: addressKey(treasury)}
		svc := newTestRegistry(store)

		require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))
		require.NoError(t, svc.AddTree(context.Background(), creator, rootB, "", 1, uint256.NewInt(1500)))

		assert.Equal(t, "1500", store.credits[addressKey(treasury)])
	})

	t.Run("no treasury configured drops the credit", func(t *testing.T) {
		store := newMockRegistryStore()
		store.feeState.Fee = "1000"
		svc := newTestRegistry(store)

		require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))
		require.NoError(t, svc.AddTree(context.Background(), creator, rootB, "", 1, uint256.NewInt(1000)))

		assert.Empty(t, store.credits)
	})

	t.Run("emits TreeAdded event", func(t *testing.T) {
		store := newMockRegistryStore()
		svc := newTestRegistry(store)

		require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))
		require.Len(t, store.events, 1)
		assert.Equal(t, events.TypeTreeAdded, store.events[0].Type)
	})
}

func TestService_RemoveTree(t *testing.T) {
	store := newMockRegistryStore()
	svc := newTestRegistry(store)
	require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))

	t.Run("stranger cannot remove", func(t *testing.T) {
		err := svc.RemoveTree(context.Background(), stranger, rootA)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("creator removes, record retained inactive", func(t *testing.T) {
		require.NoError(t, svc.RemoveTree(context.Background(), creator, rootA))
		rec := store.trees[rootKey(rootA)]
		require.NotNil(t, rec)
		assert.False(t, rec.IsActive)
	})

	t.Run("removing an already inactive tree is allowed", func(t *testing.T) {
		require.NoError(t, svc.RemoveTree(context.Background(), creator, rootA))
	})

	t.Run("unknown root", func(t *testing.T) {
		err := svc.RemoveTree(context.Background(), creator, rootB)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRootNotFound)
	})
}

func TestService_UpdateDescription(t *testing.T) {
	store := newMockRegistryStore()
	svc := newTestRegistry(store)
	require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "v1", 1, nil))

	t.Run("creator updates", func(t *testing.T) {
		require.NoError(t, svc.UpdateDescription(context.Background(), creator, rootA, "v2"))
		assert.Equal(t, "v2", store.trees[rootKey(rootA)].Description)
	})

	t.Run("stranger cannot update", func(t *testing.T) {
		err := svc.UpdateDescription(context.Background(), stranger, rootA, "v3")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("inactive tree cannot be updated", func(t *testing.T) {
		require.NoError(t, svc.RemoveTree(context.Background(), creator, rootA))
		err := svc.UpdateDescription(context.Background(), creator, rootA, "v3")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInactiveTree)
	})

	t.Run("unknown root", func(t *testing.T) {
		err := svc.UpdateDescription(context.Background(), creator, rootB, "v1")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRootNotFound)
	})
}

func TestService_IsRootValid(t *testing.T) {
	store := newMockRegistryStore()
	svc := newTestRegistry(store)
	require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))

	t.Run("active root is valid", func(t *testing.T) {
		valid, err := svc.IsRootValid(context.Background(), rootA)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("unknown root is invalid without error", func(t *testing.T) {
		valid, err := svc.IsRootValid(context.Background(), rootB)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("zero root is invalid by definition", func(t *testing.T) {
		valid, err := svc.IsRootValid(context.Background(), common.Hash{})
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("deactivated root is invalid", func(t *testing.T) {
		require.NoError(t, svc.RemoveTree(context.Background(), creator, rootA))
		valid, err := svc.IsRootValid(context.Background(), rootA)
		require.NoError(t, err)
		assert.False(t, valid)
	})
}

func TestService_TreeInfo(t *testing.T) {
	store := newMockRegistryStore()
	svc := newTestRegistry(store)
	require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "allowlist", 42, nil))

	t.Run("existing tree", func(t *testing.T) {
		rec, err := svc.TreeInfo(context.Background(), rootA)
		require.NoError(t, err)
		assert.Equal(t, rootA, rec.Root)
		assert.Equal(t, "allowlist", rec.Description)
		assert.Equal(t, uint64(42), rec.ListSize)
		assert.Equal(t, creator, rec.Creator)
	})

	t.Run("inactive tree still readable", func(t *testing.T) {
		require.NoError(t, svc.RemoveTree(context.Background(), creator, rootA))
		rec, err := svc.TreeInfo(context.Background(), rootA)
		require.NoError(t, err)
		assert.False(t, rec.IsActive)
	})

	t.Run("unknown root", func(t *testing.T) {
		_, err := svc.TreeInfo(context.Background(), rootB)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRootNotFound)
	})
}

func TestService_PlatformFee(t *testing.T) {
	store := newMockRegistryStore()
	store.feeState = storage.FeeState{Fee: "5000", Treasury: addressKey(treasury)}
	svc := newTestRegistry(store)

	fs, err := svc.PlatformFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5000", fs.Fee.Dec())
	assert.Equal(t, treasury, fs.Treasury)
}

func TestService_IsNewcomer(t *testing.T) {
	store := newMockRegistryStore()
	svc := newTestRegistry(store)

	newcomer, err := svc.IsNewcomer(context.Background(), creator)
	require.NoError(t, err)
	assert.True(t, newcomer)

	require.NoError(t, svc.AddTree(context.Background(), creator, rootA, "", 1, nil))

	newcomer, err = svc.IsNewcomer(context.Background(), creator)
	require.NoError(t, err)
	assert.False(t, newcomer)
}
