package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerlens/ledgerlens/internal/config"
)

// AccountStore handles ledger account operations (code table and balances)
type AccountStore interface {
	UpsertAccount(ctx context.Context, address string, code []byte, balance string) error
	GetAccount(ctx context.Context, address string) (*Account, error)
	CodeSize(ctx context.Context, address string) (int64, error)
}

// TreeStore handles merkle tree record operations
type TreeStore interface {
	// RegisterTree atomically creates the tree record, marks the creator as a
	// past registrant, credits the treasury with the payment, and appends the
	// registration event. Returns the event sequence number.
	RegisterTree(ctx context.Context, rec *TreeRecord, reg Registration) (int64, error)
	DeactivateTree(ctx context.Context, root string, ev EventInput) (int64, error)
	UpdateTreeDescription(ctx context.Context, root, description string, ev EventInput) (int64, error)
	GetTree(ctx context.Context, root string) (*TreeRecord, error)
	HasRegistered(ctx context.Context, address string) (bool, error)
}

// FeeStore handles platform fee state
type FeeStore interface {
	GetFeeState(ctx context.Context) (*FeeState, error)
	SetFeeState(ctx context.Context, fee, treasury string, ev EventInput) (int64, error)
}

// EventStore handles the append-only event log
type EventStore interface {
	AppendEvent(ctx context.Context, ev EventInput) (int64, error)
	ListEvents(ctx context.Context, afterSeq int64, limit int) ([]Event, error)
}

// APIKeyStore handles API key operations for the admin capability
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, name string) (key string, err error)
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
	ListAPIKeys(ctx context.Context) ([]APIKey, error)
	RevokeAPIKey(ctx context.Context, id string) error
}

// Store combines all storage interfaces with lifecycle methods.
// Domain services define their own minimal interfaces based on their actual usage.
type Store interface {
	AccountStore
	TreeStore
	FeeStore
	EventStore
	APIKeyStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Account is a ledger account row: deployed code plus native balance.
// Addresses are stored as lowercase 0x-prefixed hex, balances as decimal
// wei strings so that 256-bit amounts survive the round trip.
type Account struct {
	Address   string
	Code      []byte
	Balance   string
	UpdatedAt string
}

// TreeRecord is a registered merkle root. Records are never deleted;
// deactivation flips IsActive so auditors can still see removed trees.
type TreeRecord struct {
	Root        string
	Description string
	Timestamp   int64
	ListSize    int64
	Creator     string
	IsActive    bool
	CreatedAt   string
	UpdatedAt   string
}

// FeeState is the process-wide platform fee and treasury address.
type FeeState struct {
	Fee       string
	Treasury  string
	UpdatedAt string
}

// Event is a committed entry in the append-only event log.
type Event struct {
	Seq       int64
	ID        string
	Type      string
	Payload   []byte
	CreatedAt string
}

// EventInput is an event to append alongside a mutation.
type EventInput struct {
	Type    string
	Payload []byte
}

// Registration bundles the side effects committed together with a new tree
// record: the fee payment forwarded to the treasury and the emitted event.
type Registration struct {
	Payment  string // decimal wei, "0" when no fee was charged
	Treasury string // ignored when Payment is "0"
	Event    EventInput
}

// APIKey represents an API key
type APIKey struct {
	ID         string
	Name       string
	KeyHash    string
	CreatedAt  string
	LastUsedAt string
	RevokedAt  string
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
