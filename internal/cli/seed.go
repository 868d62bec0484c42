package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/pkg/client"
)

func createSeedCmd() *cobra.Command {
	var code string
	var balance string

	cmd := &cobra.Command{
		Use:   "seed <address>",
		Short: "Seed an account (admin)",
		Long: `Write code and balance for a ledger account. Requires an API key.

The code is hex-encoded contract bytecode; an empty code seeds an
externally owned account.

EXAMPLES:
  # Seed a contract account
  ledgerlens seed 0x1234... --code 0x6080604052... --balance 1000000000000000000

  # Seed an externally owned account
  ledgerlens seed 0x5678... --balance 5000000000000000000
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(args[0], code, balance)
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "hex-encoded contract bytecode")
	cmd.Flags().StringVar(&balance, "balance", "0", "balance in wei")

	return cmd
}

func runSeed(address, code, balance string) error {
	if getAPIKey() == "" {
		return fmt.Errorf("API key required for seed (use --api-key, LEDGERLENS_API_KEY, or ledgerlens auth login)")
	}

	c := client.New(getServer(), getAPIKey())
	if err := c.SeedAccount(context.Background(), address, code, balance); err != nil {
		return fmt.Errorf("failed to seed account: %w", err)
	}

	fmt.Printf("✅ Seeded %s\n", address)
	return nil
}
