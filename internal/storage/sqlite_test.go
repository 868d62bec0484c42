package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"log/slog"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "ledgerlens-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	dbPath := filepath.Join(tmpDir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewSQLiteStore(dbPath, logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	return store
}

func TestSQLiteStore_Accounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr := "0x1111111111111111111111111111111111111111"

	t.Run("UpsertAndGet", func(t *testing.T) {
		code := []byte{0x60, 0x80, 0x60, 0x40}
		if err := store.UpsertAccount(ctx, addr, code, "1000"); err != nil {
			t.Fatalf("UpsertAccount() error = %v", err)
		}

		got, err := store.GetAccount(ctx, addr)
		if err != nil {
			t.Fatalf("GetAccount() error = %v", err)
		}
		if len(got.Code) != 4 {
			t.Errorf("GetAccount().Code length = %d, want 4", len(got.Code))
		}
		if got.Balance != "1000" {
			t.Errorf("GetAccount().Balance = %v, want 1000", got.Balance)
		}
	})

	t.Run("UpsertReplaces", func(t *testing.T) {
		if err := store.UpsertAccount(ctx, addr, nil, "2000"); err != nil {
			t.Fatalf("UpsertAccount() error = %v", err)
		}

		got, err := store.GetAccount(ctx, addr)
		if err != nil {
			t.Fatalf("GetAccount() error = %v", err)
		}
		if len(got.Code) != 0 {
			t.Errorf("GetAccount().Code length = %d, want 0", len(got.Code))
		}
		if got.Balance != "2000" {
			t.Errorf("GetAccount().Balance = %v, want 2000", got.Balance)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.GetAccount(ctx, "0x2222222222222222222222222222222222222222")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetAccount() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("CodeSize", func(t *testing.T) {
		if err := store.UpsertAccount(ctx, addr, []byte{1, 2, 3}, "0"); err != nil {
			t.Fatalf("UpsertAccount() error = %v", err)
		}

		size, err := store.CodeSize(ctx, addr)
		if err != nil {
			t.Fatalf("CodeSize() error = %v", err)
		}
		if size != 3 {
			t.Errorf("CodeSize() = %d, want 3", size)
		}
	})

	t.Run("CodeSizeMissingIsZero", func(t *testing.T) {
		size, err := store.CodeSize(ctx, "0x3333333333333333333333333333333333333333")
		if err != nil {
			t.Fatalf("CodeSize() error = %v", err)
		}
		if size != 0 {
			t.Errorf("CodeSize() = %d, want 0", size)
		}
	})
}

func TestSQLiteStore_Trees(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	creator := "0xaaaa00000000000000000000000000000000aaaa"
	root := "0x1111111111111111111111111111111111111111111111111111111111111111"

	rec := &TreeRecord{
		Root:        root,
		Description: "allowlist",
		Timestamp:   1700000000,
		ListSize:    100,
		Creator:     creator,
		IsActive:    true,
	}
	reg := Registration{
		Payment: "0",
		Event:   EventInput{Type: "TreeAdded", Payload: []byte(`{"root":"` + root + `"}`)},
	}

	t.Run("RegisterAndGet", func(t *testing.T) {
		seq, err := store.RegisterTree(ctx, rec, reg)
		if err != nil {
			t.Fatalf("RegisterTree() error = %v", err)
		}
		if seq <= 0 {
			t.Errorf("RegisterTree() seq = %d, want > 0", seq)
		}

		got, err := store.GetTree(ctx, root)
		if err != nil {
			t.Fatalf("GetTree() error = %v", err)
		}
		if got.Creator != creator {
			t.Errorf("GetTree().Creator = %v, want %v", got.Creator, creator)
		}
		if !got.IsActive {
			t.Error("GetTree().IsActive = false, want true")
		}
		if got.ListSize != 100 {
			t.Errorf("GetTree().ListSize = %d, want 100", got.ListSize)
		}
	})

	t.Run("DuplicateRoot", func(t *testing.T) {
		_, err := store.RegisterTree(ctx, rec, reg)
		if !errors.Is(err, ErrRootExists) {
			t.Errorf("RegisterTree() error = %v, want ErrRootExists", err)
		}
	})

	t.Run("HasRegistered", func(t *testing.T) {
		registered, err := store.HasRegistered(ctx, creator)
		if err != nil {
			t.Fatalf("HasRegistered() error = %v", err)
		}
		if !registered {
			t.Error("HasRegistered() = false, want true")
		}

		registered, err = store.HasRegistered(ctx, "0xbbbb00000000000000000000000000000000bbbb")
		if err != nil {
			t.Fatalf("HasRegistered() error = %v", err)
		}
		if registered {
			t.Error("HasRegistered() = true, want false")
		}
	})

	t.Run("UpdateDescription", func(t *testing.T) {
		_, err := store.UpdateTreeDescription(ctx, root, "allowlist v2", EventInput{Type: "TreeUpdated"})
		if err != nil {
			t.Fatalf("UpdateTreeDescription() error = %v", err)
		}

		got, err := store.GetTree(ctx, root)
		if err != nil {
			t.Fatalf("GetTree() error = %v", err)
		}
		if got.Description != "allowlist v2" {
			t.Errorf("GetTree().Description = %v, want allowlist v2", got.Description)
		}
	})

	t.Run("Deactivate", func(t *testing.T) {
		_, err := store.DeactivateTree(ctx, root, EventInput{Type: "TreeRemoved"})
		if err != nil {
			t.Fatalf("DeactivateTree() error = %v", err)
		}

		got, err := store.GetTree(ctx, root)
		if err != nil {
			t.Fatalf("GetTree() error = %v", err)
		}
		if got.IsActive {
			t.Error("GetTree().IsActive = true after deactivation")
		}
	})

	t.Run("DeactivateMissing", func(t *testing.T) {
		_, err := store.DeactivateTree(ctx, "0x9999999999999999999999999999999999999999999999999999999999999999", EventInput{Type: "TreeRemoved"})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("DeactivateTree() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteStore_TreasuryCredit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	treasury := "0xcccc00000000000000000000000000000000cccc"
	rec := &TreeRecord{
		Root:      "0x2222222222222222222222222222222222222222222222222222222222222222",
		Timestamp: 1700000000,
		Creator:   "0xaaaa00000000000000000000000000000000aaaa",
		IsActive:  true,
	}

	_, err := store.RegisterTree(ctx, rec, Registration{
		Payment:  "1500",
		Treasury: treasury,
		Event:    EventInput{Type: "TreeAdded"},
	})
	if err != nil {
		t.Fatalf("RegisterTree() error = %v", err)
	}

	acct, err := store.GetAccount(ctx, treasury)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if acct.Balance != "1500" {
		t.Errorf("treasury balance = %v, want 1500", acct.Balance)
	}

	// Second payment accumulates
	rec2 := &TreeRecord{
		Root:      "0x3333333333333333333333333333333333333333333333333333333333333333",
		Timestamp: 1700000001,
		Creator:   rec.Creator,
		IsActive:  true,
	}
	_, err = store.RegisterTree(ctx, rec2, Registration{
		Payment:  "500",
		Treasury: treasury,
		Event:    EventInput{Type: "TreeAdded"},
	})
	if err != nil {
		t.Fatalf("RegisterTree() error = %v", err)
	}

	acct, err = store.GetAccount(ctx, treasury)
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if acct.Balance != "2000" {
		t.Errorf("treasury balance = %v, want 2000", acct.Balance)
	}
}

func TestSQLiteStore_FeeState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("DefaultIsZero", func(t *testing.T) {
		fs, err := store.GetFeeState(ctx)
		if err != nil {
			t.Fatalf("GetFeeState() error = %v", err)
		}
		if fs.Fee != "0" {
			t.Errorf("GetFeeState().Fee = %v, want 0", fs.Fee)
		}
		if fs.UpdatedAt != "" {
			t.Errorf("GetFeeState().UpdatedAt = %v, want empty before first write", fs.UpdatedAt)
		}
	})

	t.Run("SetAndGet", func(t *testing.T) {
		treasury := "0xcccc00000000000000000000000000000000cccc"
		seq, err := store.SetFeeState(ctx, "1000000000000000", treasury, EventInput{Type: "FeeUpdated"})
		if err != nil {
			t.Fatalf("SetFeeState() error = %v", err)
		}
		if seq <= 0 {
			t.Errorf("SetFeeState() seq = %d, want > 0", seq)
		}

		fs, err := store.GetFeeState(ctx)
		if err != nil {
			t.Fatalf("GetFeeState() error = %v", err)
		}
		if fs.Fee != "1000000000000000" {
			t.Errorf("GetFeeState().Fee = %v", fs.Fee)
		}
		if fs.Treasury != treasury {
			t.Errorf("GetFeeState().Treasury = %v", fs.Treasury)
		}
		if fs.UpdatedAt == "" {
			t.Error("GetFeeState().UpdatedAt empty after write")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if _, err := store.SetFeeState(ctx, "5", "", EventInput{Type: "FeeUpdated"}); err != nil {
			t.Fatalf("SetFeeState() error = %v", err)
		}
		fs, err := store.GetFeeState(ctx)
		if err != nil {
			t.Fatalf("GetFeeState() error = %v", err)
		}
		if fs.Fee != "5" {
			t.Errorf("GetFeeState().Fee = %v, want 5", fs.Fee)
		}
	})
}

func TestSQLiteStore_Events(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := store.AppendEvent(ctx, EventInput{Type: "ContractAnalyzed", Payload: []byte(`{"n":1}`)})
		if err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
		seqs = append(seqs, seq)
	}

	t.Run("SequencesAreMonotonic", func(t *testing.T) {
		for i := 1; i < len(seqs); i++ {
			if seqs[i] <= seqs[i-1] {
				t.Errorf("seq %d = %d not greater than previous %d", i, seqs[i], seqs[i-1])
			}
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		events, err := store.ListEvents(ctx, 0, 100)
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if len(events) != 5 {
			t.Errorf("ListEvents() returned %d events, want 5", len(events))
		}
		if events[0].ID == "" {
			t.Error("ListEvents() event missing ID")
		}
	})

	t.Run("ListAfter", func(t *testing.T) {
		events, err := store.ListEvents(ctx, seqs[2], 100)
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if len(events) != 2 {
			t.Errorf("ListEvents() returned %d events, want 2", len(events))
		}
	})

	t.Run("Limit", func(t *testing.T) {
		events, err := store.ListEvents(ctx, 0, 2)
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if len(events) != 2 {
			t.Errorf("ListEvents() returned %d events, want 2", len(events))
		}
	})

	t.Run("EmptyPayloadStoredAsObject", func(t *testing.T) {
		seq, err := store.AppendEvent(ctx, EventInput{Type: "TreeRemoved"})
		if err != nil {
			t.Fatalf("AppendEvent() error = %v", err)
		}
		events, err := store.ListEvents(ctx, seq-1, 1)
		if err != nil {
			t.Fatalf("ListEvents() error = %v", err)
		}
		if len(events) != 1 || string(events[0].Payload) != "{}" {
			t.Errorf("ListEvents() payload = %q, want {}", events[0].Payload)
		}
	})
}

func TestSQLiteStore_APIKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key, err := store.CreateAPIKey(ctx, "test-key")
	if err != nil {
		t.Fatalf("CreateAPIKey() error = %v", err)
	}
	if len(key) == 0 {
		t.Fatal("CreateAPIKey() returned empty key")
	}

	t.Run("Validate", func(t *testing.T) {
		k, err := store.ValidateAPIKey(ctx, key)
		if err != nil {
			t.Fatalf("ValidateAPIKey() error = %v", err)
		}
		if k.Name != "test-key" {
			t.Errorf("ValidateAPIKey().Name = %v, want test-key", k.Name)
		}
	})

	t.Run("ValidateWrongKey", func(t *testing.T) {
		_, err := store.ValidateAPIKey(ctx, "ll_key_0000")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("ValidateAPIKey() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		keys, err := store.ListAPIKeys(ctx)
		if err != nil {
			t.Fatalf("ListAPIKeys() error = %v", err)
		}
		if len(keys) != 1 {
			t.Fatalf("ListAPIKeys() returned %d keys, want 1", len(keys))
		}
		if keys[0].KeyHash == key {
			t.Error("ListAPIKeys() stored the plaintext key")
		}
	})

	t.Run("Revoke", func(t *testing.T) {
		keys, err := store.ListAPIKeys(ctx)
		if err != nil {
			t.Fatalf("ListAPIKeys() error = %v", err)
		}
		if err := store.RevokeAPIKey(ctx, keys[0].ID); err != nil {
			t.Fatalf("RevokeAPIKey() error = %v", err)
		}

		if _, err := store.ValidateAPIKey(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("ValidateAPIKey() after revoke error = %v, want ErrNotFound", err)
		}
	})

	t.Run("RevokeMissing", func(t *testing.T) {
		if err := store.RevokeAPIKey(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
			t.Errorf("RevokeAPIKey() error = %v, want ErrNotFound", err)
		}
	})
}
