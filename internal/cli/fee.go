package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/pkg/client"
)

func createFeeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee",
		Short: "Platform fee commands",
	}

	cmd.AddCommand(createFeeGetCmd())
	cmd.AddCommand(createFeeSetCmd())

	return cmd
}

func createFeeGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the current platform fee",
		Long: `Display the platform fee charged for repeat tree registrations.

EXAMPLES:
  ledgerlens fee get
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeeGet(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runFeeGet(jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	fee, err := c.GetFee(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get fee: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(fee)
	}

	fmt.Printf("Fee:      %s wei\n", fee.Fee)
	if fee.Treasury != "" {
		fmt.Printf("Treasury: %s\n", fee.Treasury)
	} else {
		fmt.Println("Treasury: (not set, payments are not credited)")
	}

	return nil
}

func createFeeSetCmd() *cobra.Command {
	var fee string
	var treasury string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the platform fee (admin)",
		Long: `Set the platform fee and treasury address. Requires an API key.

EXAMPLES:
  # Set the fee
  ledgerlens fee set --fee 1000000000000000

  # Set fee and treasury
  ledgerlens fee set --fee 1000000000000000 --treasury 0x1234...
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeeSet(fee, treasury)
		},
	}

	cmd.Flags().StringVar(&fee, "fee", "", "fee in wei (required)")
	cmd.Flags().StringVar(&treasury, "treasury", "", "treasury address receiving payments")
	_ = cmd.MarkFlagRequired("fee")

	return cmd
}

func runFeeSet(fee, treasury string) error {
	if getAPIKey() == "" {
		return fmt.Errorf("API key required for fee set (use --api-key, LEDGERLENS_API_KEY, or ledgerlens auth login)")
	}

	c := client.New(getServer(), getAPIKey())
	if err := c.SetFee(context.Background(), fee, treasury); err != nil {
		return fmt.Errorf("failed to set fee: %w", err)
	}

	fmt.Printf("✅ Fee set to %s wei\n", fee)
	if treasury != "" {
		fmt.Printf("   Treasury: %s\n", treasury)
	}
	return nil
}

func createNewcomerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newcomer <address>",
		Short: "Check newcomer status",
		Long: `Check whether an address still has its free first registration.

EXAMPLES:
  ledgerlens newcomer 0x1234...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNewcomer(args[0])
		},
	}

	return cmd
}

func runNewcomer(address string) error {
	c := client.New(getServer(), getAPIKey())

	newcomer, err := c.IsNewcomer(context.Background(), address)
	if err != nil {
		return fmt.Errorf("failed to check newcomer status: %w", err)
	}

	if newcomer {
		fmt.Printf("%s is a newcomer (first registration is free)\n", address)
	} else {
		fmt.Printf("%s has registered before (fee applies)\n", address)
	}

	return nil
}
