package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/observability/metrics"
	"github.com/ledgerlens/ledgerlens/internal/server"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledgerlens-server",
		Short:   "Ledgerlens server - contract analyzer and merkle root registry",
		Version: version,
	}

	// Default behavior (no subcommand) is to serve
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe()
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newKeysCmd())

	return rootCmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys",
	}

	cmd.AddCommand(newKeysCreateCmd())
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysRevokeCmd())

	return cmd
}

func newKeysCreateCmd() *cobra.Command {
	var name string
	var outputFile string
	var quiet bool
	var show bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long: `Create a new API key for admin operations.

By default, the key is written to a file in the current directory.
The key is only shown once - it cannot be retrieved later.

EXAMPLES:
  # Create key, write to file (default)
  ledgerlens-server keys create --name "ops"

  # Create key, write to specific file
  ledgerlens-server keys create --name "ops" --output /secure/path/key.txt

  # Create key, print only (for piping to secrets manager)
  ledgerlens-server keys create --name "ops" --quiet | gh secret set LEDGERLENS_API_KEY

  # Create key, display on screen
  ledgerlens-server keys create --name "ops" --show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysCreate(name, outputFile, quiet, show)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name/label for the key (required)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "write key to file (default: ./ledgerlens-key-{name}.txt)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the key (for piping)")
	cmd.Flags().BoolVar(&show, "show", false, "display key on screen")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysList()
		},
	}
}

func newKeysRevokeCmd() *cobra.Command {
	var keyID string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke an API key",
		Long: `Revoke an API key to prevent further use.

Use 'ledgerlens-server keys list' to find the key ID.

EXAMPLES:
  ledgerlens-server keys revoke --id abc123
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeysRevoke(keyID)
		},
	}

	cmd.Flags().StringVar(&keyID, "id", "", "key ID to revoke (required)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

// Key management commands

func runKeysCreate(name, outputFile string, quiet, show bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.New(cfg.Storage, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	// Ensure migrations are run
	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	key, err := store.CreateAPIKey(context.Background(), name)
	if err != nil {
		return fmt.Errorf("creating API key: %w", err)
	}

	if quiet {
		// Just print the key for piping
		fmt.Println(key)
		return nil
	}

	if show {
		fmt.Println("⚠️  API key (save this - it cannot be retrieved later):")
		fmt.Println()
		fmt.Println("   ", key)
		fmt.Println()
		return nil
	}

	// Default: write to file
	if outputFile == "" {
		outputFile = fmt.Sprintf("./ledgerlens-key-%s.txt", name)
	}

	dir := filepath.Dir(outputFile)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	if err := os.WriteFile(outputFile, []byte(key+"\n"), 0600); err != nil {
		return fmt.Errorf("writing key to file: %w", err)
	}

	fmt.Printf("✅ API key created: %s\n", name)
	fmt.Printf("   Written to: %s (mode 0600)\n", outputFile)
	fmt.Println()
	fmt.Println("   ⚠️  This key cannot be retrieved later. Keep it safe!")
	fmt.Println()
	fmt.Println("   Usage:")
	fmt.Println("     export LEDGERLENS_API_KEY=$(cat", outputFile+")")
	fmt.Println("     ledgerlens fee set --fee 1000000000000000")

	return nil
}

func runKeysList() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.New(cfg.Storage, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	keys, err := store.ListAPIKeys(context.Background())
	if err != nil {
		return fmt.Errorf("listing API keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys found")
		fmt.Println()
		fmt.Println("Create one with: ledgerlens-server keys create --name \"my-key\"")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != "" {
			lastUsed = k.LastUsedAt
		}
		// Truncate ID for display
		idDisplay := k.ID
		if len(k.ID) > 8 {
			idDisplay = k.ID[:8] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", idDisplay, k.Name, k.CreatedAt, lastUsed)
	}
	w.Flush()

	return nil
}

func runKeysRevoke(keyID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.New(cfg.Storage, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	// Find the full key ID if partial was provided
	keys, err := store.ListAPIKeys(context.Background())
	if err != nil {
		return fmt.Errorf("listing API keys: %w", err)
	}

	var fullKeyID string
	for _, k := range keys {
		if k.ID == keyID || (len(keyID) >= 8 && k.ID[:8] == keyID[:8]) {
			fullKeyID = k.ID
			break
		}
	}

	if fullKeyID == "" {
		return fmt.Errorf("key not found: %s", keyID)
	}

	if err := store.RevokeAPIKey(context.Background(), fullKeyID); err != nil {
		return fmt.Errorf("revoking API key: %w", err)
	}

	fmt.Printf("✅ API key revoked: %s\n", keyID)
	return nil
}

// Server command

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg)
	logger.Info("starting ledgerlens-server", "version", version)

	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	metrics.Init(true, "ledgerlens")
	server.Version = version

	srv := server.New(cfg, store, logger)
	defer srv.Close()

	if err := srv.SeedFeeState(context.Background()); err != nil {
		return fmt.Errorf("seeding fee state: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", srv.MetricsHandler())
	mux.Handle("/", srv.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig)
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
