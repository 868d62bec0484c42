package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Ledger accounts: code table plus native balances
	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		code BYTEA,
		balance TEXT NOT NULL DEFAULT '0',
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- Merkle tree records, keyed by root hash
	CREATE TABLE IF NOT EXISTS merkle_trees (
		root TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		timestamp BIGINT NOT NULL,
		list_size BIGINT NOT NULL,
		creator TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- Addresses that have completed a registration (newcomer flag inverse)
	CREATE TABLE IF NOT EXISTS registrants (
		address TEXT PRIMARY KEY,
		first_root TEXT NOT NULL,
		registered_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- Singleton platform fee state
	CREATE TABLE IF NOT EXISTS fee_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		fee TEXT NOT NULL DEFAULT '0',
		treasury TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- Append-only event log
	CREATE TABLE IF NOT EXISTS events (
		seq BIGSERIAL PRIMARY KEY,
		id UUID NOT NULL,
		type TEXT NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- API keys
	CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY,
		key_hash TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW(),
		last_used_at TIMESTAMPTZ,
		revoked_at TIMESTAMPTZ
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
func (s *PostgresStore) UpsertAccount(ctx context.Context, address string, code []byte, balance string) error {
	query := `
		INSERT INTO accounts (address, code, balance, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (address) DO UPDATE SET
			code = EXCLUDED.code,
			balance = EXCLUDED.balance,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query, address, code, balance)
	return err
}

// GetAccount retrieves an account by address
func (s *PostgresStore) GetAccount(ctx context.Context, address string) (*Account, error) {
	query := `SELECT address, code, balance, updated_at::TEXT FROM accounts WHERE address = $1`
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
func (s *PostgresStore) CodeSize(ctx context.Context, address string) (int64, error) {
	query := `SELECT COALESCE(octet_length(code), 0) FROM accounts WHERE address = $1`
	var size int64
	err := s.db.QueryRowContext(ctx, query, address).Scan(&size)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return size, err
}

// RegisterTree atomically creates a tree record with its side effects
func (s *PostgresStore) RegisterTree(ctx context.Context, rec *TreeRecord, reg Registration) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM merkle_trees WHERE root = $1 FOR UPDATE`, rec.Root).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("checking root: %w", err)
	}
	if err == nil {
		return 0, ErrRootExists
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO merkle_trees (root, description, timestamp, list_size, creator, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Root, rec.Description, rec.Timestamp, rec.ListSize, rec.Creator, rec.IsActive)
	if err != nil {
		return 0, fmt.Errorf("inserting tree: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registrants (address, first_root)
		VALUES ($1, $2)
		ON CONFLICT (address) DO NOTHING
	`, rec.Creator, rec.Root)
	if err != nil {
		return 0, fmt.Errorf("marking registrant: %w", err)
	}

	if reg.Payment != "" && reg.Payment != "0" && reg.Treasury != "" {
		if err := s.creditTx(ctx, tx, reg.Treasury, reg.Payment); err != nil {
			return 0, fmt.Errorf("crediting treasury: %w", err)
		}
	}

	seq, err := s.appendEventTx(ctx, tx, reg.Event)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// creditTx adds amount to an account's balance within a transaction
func (s *PostgresStore) creditTx(ctx context.Context, tx *sql.Tx, address, amount string) error {
	var balance string
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE address = $1 FOR UPDATE`, address).Scan(&balance)
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
		VALUES ($1, NULL, $2, NOW())
		ON CONFLICT (address) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = NOW()
	`, address, newBalance)
	return err
}

// DeactivateTree marks a tree inactive, keeping the record for audit
func (s *PostgresStore) DeactivateTree(ctx context.Context, root string, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE merkle_trees SET is_active = FALSE, updated_at = NOW() WHERE root = $1
	`, root)
	if err != nil {
		return 0, fmt.Errorf("deactivating tree: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	seq, err := s.appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// UpdateTreeDescription replaces a tree's description
func (s *PostgresStore) UpdateTreeDescription(ctx context.Context, root, description string, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE merkle_trees SET description = $1, updated_at = NOW() WHERE root = $2
	`, description, root)
	if err != nil {
		return 0, fmt.Errorf("updating description: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	seq, err := s.appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// GetTree retrieves a tree record by root, including inactive records
func (s *PostgresStore) GetTree(ctx context.Context, root string) (*TreeRecord, error) {
	query := `
		SELECT root, description, timestamp, list_size, creator, is_active, created_at::TEXT, updated_at::TEXT
		FROM merkle_trees
		WHERE root = $1
	`
	var rec TreeRecord
	err := s.db.QueryRowContext(ctx, query, root).Scan(
		&rec.Root, &rec.Description, &rec.Timestamp, &rec.ListSize, &rec.Creator, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &rec, err
}

// HasRegistered reports whether an address has completed a registration before
func (s *PostgresStore) HasRegistered(ctx context.Context, address string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM registrants WHERE address = $1`, address).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetFeeState retrieves the platform fee state, defaulting to a zero fee
func (s *PostgresStore) GetFeeState(ctx context.Context) (*FeeState, error) {
	query := `SELECT fee, treasury, updated_at::TEXT FROM fee_state WHERE id = 1`
	var fs FeeState
	err := s.db.QueryRowContext(ctx, query).Scan(&fs.Fee, &fs.Treasury, &fs.UpdatedAt)
	if err == sql.ErrNoRows {
		return &FeeState{Fee: "0"}, nil
	}
	return &fs, err
}

// SetFeeState writes the platform fee state and appends the event
func (s *PostgresStore) SetFeeState(ctx context.Context, fee, treasury string, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO fee_state (id, fee, treasury, updated_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			fee = EXCLUDED.fee,
			treasury = EXCLUDED.treasury,
			updated_at = NOW()
	`, fee, treasury)
	if err != nil {
		return 0, fmt.Errorf("writing fee state: %w", err)
	}

	seq, err := s.appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, fmt.Errorf("appending event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// AppendEvent appends a standalone event outside any mutation transaction
func (s *PostgresStore) AppendEvent(ctx context.Context, ev EventInput) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	seq, err := s.appendEventTx(ctx, tx, ev)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return seq, nil
}

// appendEventTx inserts an event row and returns its sequence number
func (s *PostgresStore) appendEventTx(ctx context.Context, tx *sql.Tx, ev EventInput) (int64, error) {
	payload := ev.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var seq int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO events (id, type, payload)
		VALUES ($1, $2, $3)
		RETURNING seq
	`, generateID(), ev.Type, string(payload)).Scan(&seq)
	return seq, err
}

// ListEvents returns events with seq greater than afterSeq, oldest first
func (s *PostgresStore) ListEvents(ctx context.Context, afterSeq int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT seq, id::TEXT, type, payload::TEXT, created_at::TEXT
		FROM events
		WHERE seq > $1
		ORDER BY seq ASC
		LIMIT $2
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
func (s *PostgresStore) CreateAPIKey(ctx context.Context, name string) (string, error) {
	key := generateAPIKey()
	query := `
		INSERT INTO api_keys (id, key_hash, name)
		VALUES ($1, $2, $3)
	`
	if _, err := s.db.ExecContext(ctx, query, generateID(), hashAPIKey(key), name); err != nil {
		return "", err
	}
	return key, nil
}

// ValidateAPIKey checks a key and returns its record if valid
func (s *PostgresStore) ValidateAPIKey(ctx context.Context, key string) (*APIKey, error) {
	query := `
		SELECT id::TEXT, key_hash, name, created_at::TEXT, COALESCE(last_used_at::TEXT, ''), COALESCE(revoked_at::TEXT, '')
		FROM api_keys
		WHERE key_hash = $1
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

	_, _ = s.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1::UUID`, k.ID)

	return &k, nil
}

// ListAPIKeys returns all API keys
func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	query := `
		SELECT id::TEXT, key_hash, name, created_at::TEXT, COALESCE(last_used_at::TEXT, ''), COALESCE(revoked_at::TEXT, '')
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
func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE api_keys SET revoked_at = NOW() WHERE id = $1::UUID`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
