package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/pkg/client"
)

func createAnalyzeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <address>",
		Short: "Analyze an account",
		Long: `Analyze a ledger account: contract detection, code size, and an
estimated gas cost for deploying code of the same size at the current
oracle gas price.

EXAMPLES:
  # Analyze an account
  ledgerlens analyze 0x1234567890abcdef1234567890abcdef12345678

  # Output as JSON
  ledgerlens analyze 0x1234... --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runAnalyze(address string, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	analysis, err := c.Analyze(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to analyze account: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Printf("Address:   %s\n", analysis.Address)
	if analysis.IsContract {
		fmt.Printf("Type:      contract (%d bytes of code)\n", analysis.CodeSize)
	} else {
		fmt.Println("Type:      externally owned account (no code)")
	}
	fmt.Printf("Gas price: %d wei\n", analysis.GasPrice)
	fmt.Printf("Deploy:    %s wei to deploy %d bytes at this price\n",
		analysis.EstimatedDeploymentGas, analysis.ContractSize)

	return nil
}

func createAccountCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "account <address>",
		Short: "Show basic account info",
		Long: `Display the code size, balance, and contract flag for an account.

EXAMPLES:
  ledgerlens account 0x1234567890abcdef1234567890abcdef12345678
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccount(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runAccount(address string, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	info, err := c.GetAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Printf("Address:   %s\n", info.Address)
	fmt.Printf("Code size: %d bytes\n", info.CodeSize)
	fmt.Printf("Balance:   %s wei\n", info.Balance)
	fmt.Printf("Contract:  %v\n", info.IsContract)

	return nil
}
