package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/pkg/client"
)

func createCostCmd() *cobra.Command {
	var gasPrice uint64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "cost <code-size>",
		Short: "Quote a deployment cost",
		Long: `Quote the cost in wei of deploying code of the given size.

The quote is (21000 + size * 200) gas multiplied by the gas price. With no
--gas-price flag the server's oracle price is used.

EXAMPLES:
  # Quote at the current oracle price
  ledgerlens cost 1024

  # Quote at a fixed gas price (wei per gas)
  ledgerlens cost 1024 --gas-price 2000000000
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid code size %q: must be a non-negative integer", args[0])
			}
			return runCost(size, gasPrice, jsonOutput)
		},
	}

	cmd.Flags().Uint64Var(&gasPrice, "gas-price", 0, "gas price in wei (default: server oracle price)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runCost(codeSize, gasPrice uint64, jsonOutput bool) error {
	if gasPrice == 0 {
		if config := loadProjectConfigSilent(); config != nil {
			gasPrice = config.GasPrice
		}
	}

	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	quote, err := c.DeploymentCost(ctx, codeSize, gasPrice)
	if err != nil {
		return fmt.Errorf("failed to quote deployment cost: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(quote)
	}

	fmt.Printf("Code size: %d bytes\n", quote.CodeSize)
	fmt.Printf("Gas price: %d wei\n", quote.GasPrice)
	fmt.Printf("Cost:      %s wei\n", quote.Cost)

	return nil
}

func createEstimateCmd() *cobra.Command {
	var callData string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "estimate <address> <selector>",
		Short: "Estimate gas for a call",
		Long: `Simulate a call against a contract and report the gas it would use.

The selector is a 4-byte hex function selector (see 'ledgerlens selector'
to derive one from a signature).

EXAMPLES:
  # Estimate a bare call
  ledgerlens estimate 0x1234... 0xa9059cbb

  # Estimate with call data
  ledgerlens estimate 0x1234... 0xa9059cbb --data 0x000000...
`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(args[0], args[1], callData, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&callData, "data", "", "hex-encoded call data appended after the selector")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runEstimate(address, selector, callData string, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	est, err := c.EstimateGas(ctx, client.EstimateGasRequest{
		Address:  address,
		Selector: selector,
		CallData: callData,
	})
	if err != nil {
		return fmt.Errorf("failed to estimate gas: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	}

	if est.Success {
		fmt.Println("Result:    success")
	} else {
		fmt.Println("Result:    revert")
	}
	fmt.Printf("Gas used:  %d\n", est.GasUsed)
	fmt.Printf("Gas price: %d wei\n", est.GasPrice)

	return nil
}

func createSelectorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selector <signature>",
		Short: "Derive a function selector",
		Long: `Derive the 4-byte function selector for a canonical function signature.

The selector is the first 4 bytes of keccak256 over the signature, the
same derivation contracts use for dispatch.

EXAMPLES:
  ledgerlens selector "transfer(address,uint256)"
  ledgerlens selector "balanceOf(address)"
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelector(args[0])
		},
	}

	return cmd
}

func runSelector(signature string) error {
	hash := crypto.Keccak256([]byte(signature))
	fmt.Printf("0x%s\n", hex.EncodeToString(hash[:4]))
	return nil
}
