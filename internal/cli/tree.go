package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerlens/ledgerlens/pkg/client"
)

func createTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Merkle tree registry commands",
	}

	cmd.AddCommand(createTreeAddCmd())
	cmd.AddCommand(createTreeRemoveCmd())
	cmd.AddCommand(createTreeUpdateCmd())
	cmd.AddCommand(createTreeInfoCmd())
	cmd.AddCommand(createTreeCheckCmd())

	return cmd
}

func createTreeAddCmd() *cobra.Command {
	var caller string
	var description string
	var listSize uint64
	var payment string

	cmd := &cobra.Command{
		Use:   "add <root>",
		Short: "Register a merkle root",
		Long: `Register a merkle root in the registry.

A caller's first registration is free. Subsequent registrations require a
payment covering the platform fee (see 'ledgerlens fee get'). The caller
address comes from --caller or the project config.

EXAMPLES:
  # First registration (free for newcomers)
  ledgerlens tree add 0xabc... --caller 0x1234... --description "allowlist v1" --size 100

  # Paid registration
  ledgerlens tree add 0xdef... --caller 0x1234... --size 250 --payment 1000000000000000
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeAdd(args[0], caller, description, listSize, payment)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "caller address (default from config)")
	cmd.Flags().StringVar(&description, "description", "", "tree description")
	cmd.Flags().Uint64Var(&listSize, "size", 0, "number of leaves in the tree")
	cmd.Flags().StringVar(&payment, "payment", "", "payment in wei (required after first registration)")

	return cmd
}

func runTreeAdd(root, callerFlag, description string, listSize uint64, payment string) error {
	caller, err := getCaller(callerFlag)
	if err != nil {
		return err
	}

	c := client.New(getServer(), getAPIKey())
	ctx := context.Background()

	err = c.AddTree(ctx, client.AddTreeRequest{
		Caller:      caller,
		Root:        root,
		Description: description,
		ListSize:    listSize,
		Payment:     payment,
	})
	if err != nil {
		return fmt.Errorf("failed to register tree: %w", err)
	}

	fmt.Printf("✅ Registered %s\n", root)
	return nil
}

func createTreeRemoveCmd() *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "remove <root>",
		Short: "Deactivate a merkle root",
		Long: `Deactivate a registered merkle root.

Only the creator of a tree can remove it. The record is kept but the root
stops validating.

EXAMPLES:
  ledgerlens tree remove 0xabc... --caller 0x1234...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeRemove(args[0], caller)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "caller address (default from config)")

	return cmd
}

func runTreeRemove(root, callerFlag string) error {
	caller, err := getCaller(callerFlag)
	if err != nil {
		return err
	}

	c := client.New(getServer(), getAPIKey())
	if err := c.RemoveTree(context.Background(), caller, root); err != nil {
		return fmt.Errorf("failed to remove tree: %w", err)
	}

	fmt.Printf("✅ Removed %s\n", root)
	return nil
}

func createTreeUpdateCmd() *cobra.Command {
	var caller string
	var description string

	cmd := &cobra.Command{
		Use:   "update <root>",
		Short: "Update a tree's description",
		Long: `Replace the description of a registered tree.

Only the creator can update, and the tree must still be active.

EXAMPLES:
  ledgerlens tree update 0xabc... --caller 0x1234... --description "allowlist v2"
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeUpdate(args[0], caller, description)
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "caller address (default from config)")
	cmd.Flags().StringVar(&description, "description", "", "new description (required)")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runTreeUpdate(root, callerFlag, description string) error {
	caller, err := getCaller(callerFlag)
	if err != nil {
		return err
	}

	c := client.New(getServer(), getAPIKey())
	if err := c.UpdateTree(context.Background(), caller, root, description); err != nil {
		return fmt.Errorf("failed to update tree: %w", err)
	}

	fmt.Printf("✅ Updated %s\n", root)
	return nil
}

func createTreeInfoCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info <root>",
		Short: "Show tree details",
		Long: `Display the stored record for a registered merkle root.

EXAMPLES:
  ledgerlens tree info 0xabc...
  ledgerlens tree info 0xabc... --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeInfo(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runTreeInfo(root string, jsonOutput bool) error {
	c := client.New(getServer(), getAPIKey())

	tree, err := c.GetTree(context.Background(), root)
	if err != nil {
		return fmt.Errorf("failed to get tree: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tree)
	}

	fmt.Printf("Root:        %s\n", tree.Root)
	fmt.Printf("Creator:     %s\n", tree.Creator)
	if tree.Description != "" {
		fmt.Printf("Description: %s\n", tree.Description)
	}
	fmt.Printf("List size:   %d\n", tree.ListSize)
	fmt.Printf("Registered:  %s\n", time.Unix(tree.Timestamp, 0).UTC().Format(time.RFC3339))
	if tree.IsActive {
		fmt.Println("Status:      active")
	} else {
		fmt.Println("Status:      inactive")
	}

	return nil
}

func createTreeCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <root>",
		Short: "Check whether a root is valid",
		Long: `Check whether a merkle root is registered and active.

Exits with status 1 if the root is not valid.

EXAMPLES:
  ledgerlens tree check 0xabc...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreeCheck(args[0])
		},
	}

	return cmd
}

func runTreeCheck(root string) error {
	c := client.New(getServer(), getAPIKey())

	valid, err := c.IsRootValid(context.Background(), root)
	if err != nil {
		return fmt.Errorf("failed to check root: %w", err)
	}

	if !valid {
		fmt.Printf("✗ %s is not valid\n", root)
		os.Exit(1)
	}

	fmt.Printf("✓ %s is valid\n", root)
	return nil
}
