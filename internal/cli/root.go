// Package cli implements the ledgerlens command line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	server  string
	apiKey  string
)

// Execute runs the CLI
func Execute(version string) error {
	rootCmd := &cobra.Command{
		Use:     "ledgerlens",
		Short:   "Contract analyzer and merkle root registry CLI",
		Long:    `Ledgerlens is a CLI for inspecting ledger accounts, quoting deployment costs, and managing merkle root registrations.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ledgerlens.toml or ll.toml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")

	// Add subcommands
	rootCmd.AddCommand(createAnalyzeCmd())
	rootCmd.AddCommand(createAccountCmd())
	rootCmd.AddCommand(createCostCmd())
	rootCmd.AddCommand(createEstimateCmd())
	rootCmd.AddCommand(createSelectorCmd())
	rootCmd.AddCommand(createTreeCmd())
	rootCmd.AddCommand(createFeeCmd())
	rootCmd.AddCommand(createNewcomerCmd())
	rootCmd.AddCommand(createEventsCmd())
	rootCmd.AddCommand(createSeedCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())
	rootCmd.AddCommand(createCheckCmd(version))

	return rootCmd.Execute()
}

// getServer returns the server URL from flag, env, config file, or credentials
func getServer() string {
	// 1. Command line flag
	if server != "" {
		return server
	}

	// 2. Environment variable
	if env := os.Getenv("LEDGERLENS_SERVER"); env != "" {
		return env
	}

	// 3. Project config file (TOML)
	if config := loadProjectConfigSilent(); config != nil && config.Server != "" {
		return config.Server
	}

	// 4. Default
	return "http://localhost:8080"
}

// getAPIKey returns the API key from flag, env, config, or credentials file
func getAPIKey() string {
	// 1. Command line flag
	if apiKey != "" {
		return apiKey
	}

	// 2. Environment variable
	if env := os.Getenv("LEDGERLENS_API_KEY"); env != "" {
		return env
	}

	// 3. Credentials file (keyed by server URL)
	serverURL := getServer()
	if cred := getCredential(serverURL); cred != "" {
		return cred
	}

	return ""
}
