//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/server"
	"github.com/ledgerlens/ledgerlens/internal/storage"
	"github.com/ledgerlens/ledgerlens/pkg/client"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Store             storage.Store
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("ledgerlens"),
		postgres.WithUsername("ledgerlens"),
		postgres.WithPassword("ledgerlens"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// startServerE starts the ledgerlens server in-process against the given database
func startServerE(connString string) (*httptest.Server, storage.Store, error) {
	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: config.StorageConfig{
			Type: "postgres",
			Postgres: config.PostgresConfig{
				URL: connString,
			},
		},
		Gas: config.GasConfig{
			DefaultPrice: 1_000_000_000,
			SampleWindow: 128,
			Percentile:   60,
		},
		Fees:      config.FeesConfig{PlatformFee: "0"},
		Auth:      config.AuthConfig{Type: "api-key"},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{FilterEnabled: false, MaxBodySizeMB: 10},
		Proxy:     config.ProxyConfig{TrustProxy: false},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	srv := server.New(cfg, store, logger)
	if err := srv.SeedFeeState(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to seed fee state: %w", err)
	}

	testServer := httptest.NewServer(srv.Handler())

	return testServer, store, nil
}

// newClient creates a new API client for the test server
func newClient(testServer *httptest.Server, apiKey string) *client.Client {
	return client.New(testServer.URL, apiKey)
}

// createTestAPIKey creates a test API key using the store directly
func createTestAPIKey(t *testing.T, store storage.Store, name string) string {
	key, err := store.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

// seedAccount writes code and balance for an address through the admin API
func seedAccount(t *testing.T, c *client.Client, address, code, balance string) {
	t.Helper()
	err := c.SeedAccount(context.Background(), address, code, balance)
	require.NoError(t, err, "Failed to seed account %s", address)
}

// assertHTTPError asserts that an error is an APIError with the expected code
func assertHTTPError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	require.Error(t, err, "Expected an error")
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok, "Error should be an APIError, got %T", err)
	require.Equal(t, expectedCode, apiErr.Code, "Error code mismatch")
}

// getErrorCode extracts the API error code, or "" for nil/non-API errors
func getErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := err.(*client.APIError); ok {
		return apiErr.Code
	}
	return ""
}
