package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Ledger accounts: code table plus native balances
	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		code BLOB,
		balance TEXT NOT NULL DEFAULT '0',
		updated_at TEXT DEFAULT (datetime('now'))
	);

	-- Merkle tree records, keyed by root hash
	CREATE TABLE IF NOT EXISTS merkle_trees (
		root TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		list_size INTEGER NOT NULL,
		creator TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT DEFAULT (datetime('now')),
		updated_at TEXT DEFAULT (datetime('now'))
	);

	-- Addresses that have completed a registration (newcomer flag inverse)
	CREATE TABLE IF NOT EXISTS registrants (
		address TEXT PRIMARY KEY,
		first_root TEXT NOT NULL,
		registered_at TEXT DEFAULT (datetime('now'))
	);

	-- Singleton platform fee state
	CREATE TABLE IF NOT EXISTS fee_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		fee TEXT NOT NULL DEFAULT '0',
		treasury TEXT NOT NULL DEFAULT '',
		updated_at TEXT DEFAULT (datetime('now'))
	);

	-- Append-only event log
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now'))
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TEXT DEFAULT (datetime('now')),
		last_used_at TEXT,
		revoked_at TEXT
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_merkle_trees_creator ON merkle_trees(creator);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Info("database migrations complete")
	return nil
}

// UpsertAccount writes an account's code and balance
func (s *SQLiteStore) UpsertAccount(ctx context.Context, address string, code []byte, balance string) error {
	query := `
		INSERT INTO accounts (address, code, balance, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(address) DO UPDATE SET
			code = excluded.code,
			balance = excluded.balance,
			updated_at = datetime('now')
	`
	_, err := s.db.ExecContext(ctx, query, address, code, balance)
	return err
}

// GetAccount retrieves an account by address
func (s *SQLiteStore) GetAccount(ctx context.Context, address string) (*Account, error) {
	query := `SELECT address, code, balance, updated_at FROM accounts WHERE address = ?`
	var acct Account
	err := s.db.QueryRowContext(ctx, query, address).Scan(
		&acct.Address, &acct.Code, &acct.Balance, &acct.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &acct, err
}

// CodeSize returns the byte length of an account's code, 0 when the address
// has no row or no code.
func (s *SQLiteStore) CodeSize(ctx context.Context, address string) (int64, error) {
	query := `SELECT COALESCE(length(code), 0) FROM accounts WHERE address = ?`
	var size int64
	err := s.db.QueryRowContext(ctx, query, address).Scan(&size)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return size, err
}

// RegisterTree atomically creates a tree record with its side effects
func (s *SQLiteStore) RegisterTree(ctx context.Context, rec *TreeRecord, reg Registration) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Duplicate check inside the transaction. The domain layer serializes
	// mutations, so this cannot race with another registration.
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM merkle_trees WHERE root = ?`, rec.Root).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking root: %w", err)
	}
	if err == nil {
		return 0, ErrRootExists
	}

	active := 0
	if rec.IsActive {
		active = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO merkle_trees (root, description, timestamp, list_size, creator, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'), datetime('now'))
	`, rec.Root, rec.Description, rec.Timestamp, rec.ListSize, rec.Creator, active)
	if err != nil {
		return 0, fmt.Errorf("inserting tree: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registrants (address, first_root, registered_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(address) DO NOTHING
	`, rec.Creator, rec.Root)
	if err != nil {
		return 0, fmt.Errorf("marking registrant: %w", err)
	}

	if reg.Payment != "" && reg.Payment != "0" && reg.Treasury != "" {
		if err := s.creditTx(ctx, tx, reg.Treasury, reg.Payment); err != nil {
			return 0, fmt.Errorf("crediting treasury: %w", err)
		}
	}

	seq, err := appendEventTx(ctx, tx, reg.Event)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// creditTx adds amount to an account's balance within a transaction
func (s *SQLiteStore) creditTx(ctx context.Context, tx *sql.Tx, address, amount string) error {
	var balance string
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE address = ?`, address).Scan(&balance)
	if err == sql.ErrNoRows {
		balance = "0"
	} else if err != nil {
		return err
	}

	newBalance, err := addWei(balance, amount)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (address, code, balance, updated_at)
		VALUES (?, NULL, ?, datetime('now'))
		ON CONFLICT(address) DO UPDATE SET
			balance = excluded.balance,
			updated_at = datetime('now')
	`, address, newBalance)
	return err
}

// DeactivateTree marks a tree inactive, keeping the record for audit
func (s *SQLiteStore) DeactivateTree(ctx context.Context, root string, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE merkle_trees SET is_active = 0, updated_at = datetime('now') WHERE root = ?
	`, root)
	if err != nil {
		return 0, fmt.Errorf("deactivating tree: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	seq, err := appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// UpdateTreeDescription replaces a tree's description
func (s *SQLiteStore) UpdateTreeDescription(ctx context.Context, root, description string, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE merkle_trees SET description = ?, updated_at = datetime('now') WHERE root = ?
	`, description, root)
	if err != nil {
		return 0, fmt.Errorf("updating description: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	seq, err := appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// GetTree retrieves a tree record by root, including inactive records
func (s *SQLiteStore) GetTree(ctx context.Context, root string) (*TreeRecord, error) {
	query := `
		SELECT root, description, timestamp, list_size, creator, is_active, created_at, updated_at
		FROM merkle_trees
		WHERE root = ?
	`
	var rec TreeRecord
	var active int
	err := s.db.QueryRowContext(ctx, query, root).Scan(
		&rec.Root, &rec.Description, &rec.Timestamp, &rec.ListSize, &rec.Creator, &active, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	rec.IsActive = active != 0
	return &rec, err
}

// HasRegistered reports whether an address has completed a registration before
func (s *SQLiteStore) HasRegistered(ctx context.Context, address string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM registrants WHERE address = ?`, address).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetFeeState retrieves the platform fee state, defaulting to a zero fee
func (s *SQLiteStore) GetFeeState(ctx context.Context) (*FeeState, error) {
	query := `SELECT fee, treasury, updated_at FROM fee_state WHERE id = 1`
	var fs FeeState
	err := s.db.QueryRowContext(ctx, query).Scan(&fs.Fee, &fs.Treasury, &fs.UpdatedAt)
	if err == sql.ErrNoRows {
		return &FeeState{Fee: "0"}, nil
	}
	return &fs, err
}

// SetFeeState writes the platform fee state and appends the event
func (s *SQLiteStore) SetFeeState(ctx context.Context, fee, treasury string, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fee_state (id, fee, treasury, updated_at)
		VALUES (1, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			fee = excluded.fee,
			treasury = excluded.treasury,
			updated_at = datetime('now')
	`, fee, treasury)
	if err != nil {
		return 0, fmt.Errorf("writing fee state: %w", err)
	}

	seq, err := appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// AppendEvent appends a standalone event outside any mutation transaction
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// appendEventTx inserts an event row and returns its sequence number
func appendEventTx(ctx context.Context, tx *sql.Tx, ev EventInput) (int64, error) {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, type, payload, created_at)
		VALUES (?, ?, ?, datetime('now'))
	`, generateID(), ev.Type, string(payload))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListEvents returns events with seq greater than afterSeq, oldest first
func (s *SQLiteStore) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT seq, id, type, payload, created_at
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var payload string
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.Type, &payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CreateAPIKey creates a new API key and returns the plaintext key
func (s *SQLiteStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	query := `
		INSERT INTO api_keys (id, key_hash, name, created_at)
		VALUES (?, ?, ?, datetime('now'))
	`
	if _, err := s.db.ExecContext(ctx, query, generateID(), hashAPIKey(key), name); err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey checks a key and returns its record if valid
func (s *SQLiteStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	query := `
		SELECT id, key_hash, name, created_at, COALESCE(last_used_at, ''), COALESCE(revoked_at, '')
		FROM api_keys
		WHERE key_hash = ?
	`
	var k APIKey
	err := s.db.QueryRowContext(ctx, query, hashAPIKey(key)).Scan(
		&k.ID, &k.KeyHash, &k.Name, &k.CreatedAt, &k.LastUsedAt, &k.RevokedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if k.RevokedAt != "" {
		return nil, ErrNotFound
	}

	// Best-effort last-used update
	_, _ = s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = datetime('now') WHERE id = ?`, k.ID)

	return &k, nil
}

// ListAPIKeys returns all API keys
func (s *SQLiteStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	query := `
		SELECT id, key_hash, name, created_at, COALESCE(last_used_at, ''), COALESCE(revoked_at, '')
		FROM api_keys
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.KeyHash, &k.Name, &k.CreatedAt, &k.LastUsedAt, &k.RevokedAt); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey marks a key as revoked
func (s *SQLiteStore) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
