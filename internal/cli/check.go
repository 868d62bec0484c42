package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"

	"github.com/ledgerlens/ledgerlens/pkg/client"
)

func createCheckCmd(cliVersion string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check server connectivity and version",
		Long: `Check that the server is reachable and report its version.

Warns when the server runs a newer major version than this CLI.

EXAMPLES:
  ledgerlens check
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cliVersion)
		},
	}

	return cmd
}

func runCheck(cliVersion string) error {
	serverURL := getServer()
	c := client.New(serverURL, getAPIKey())

	info, err := c.Version(context.Background())
	if err != nil {
		return fmt.Errorf("server %s is not reachable: %w", serverURL, err)
	}

	serverVersion := info["version"]

	fmt.Printf("Server:  %s\n", serverURL)
	fmt.Printf("Service: %s\n", info["service"])
	fmt.Printf("Version: %s", serverVersion)
	if commit := info["commit"]; commit != "" {
		fmt.Printf(" (%s)", commit)
	}
	fmt.Println()
	fmt.Printf("CLI:     %s\n", cliVersion)

	if warning := versionMismatch(cliVersion, serverVersion); warning != "" {
		fmt.Println()
		fmt.Printf("⚠️  %s\n", warning)
	}

	return nil
}

// versionMismatch returns a warning when the server runs a newer major
// version than the CLI. Dev builds and non-semver versions are skipped.
func versionMismatch(cliVersion, serverVersion string) string {
	cliNorm := normalizeVersion(cliVersion)
	serverNorm := normalizeVersion(serverVersion)

	if !semver.IsValid(cliNorm) || !semver.IsValid(serverNorm) {
		return ""
	}

	if semver.Major(serverNorm) != semver.Major(cliNorm) && semver.Compare(serverNorm, cliNorm) > 0 {
		return fmt.Sprintf("server is %s but CLI is %s: upgrade the CLI for full compatibility",
			serverVersion, cliVersion)
	}

	return ""
}

func normalizeVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
