//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAdmin_RequiresAPIKey tests that admin routes reject unauthenticated callers
func TestAdmin_RequiresAPIKey(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		c := newClient(testCtx.TestServer, "")
		err := c.SetFee(context.Background(), "100", "")
		assertHTTPError(t, err, "UNAUTHORIZED")
	})

	t.Run("bogus key", func(t *testing.T) {
		c := newClient(testCtx.TestServer, "ll_key_definitely_not_real")
		err := c.SeedAccount(context.Background(), "0xa0000000000000000000000000000000000000aa", "", "0")
		assertHTTPError(t, err, "UNAUTHORIZED")
	})

	t.Run("valid key", func(t *testing.T) {
		key := createTestAPIKey(t, testCtx.Store, "admin-access")
		c := newClient(testCtx.TestServer, key)
		err := c.SeedAccount(context.Background(), "0xa0000000000000000000000000000000000000aa", "", "42")
		require.NoError(t, err)

		info, err := c.GetAccount(context.Background(), "0xa0000000000000000000000000000000000000aa")
		require.NoError(t, err)
		assert.Equal(t, "42", info.Balance)
	})

	t.Run("revoked key is rejected", func(t *testing.T) {
		key := createTestAPIKey(t, testCtx.Store, "admin-revoked")
		c := newClient(testCtx.TestServer, key)
		require.NoError(t, c.SeedAccount(context.Background(), "0xa0000000000000000000000000000000000000ab", "", "1"))

		keys, err := testCtx.Store.ListAPIKeys(context.Background())
		require.NoError(t, err)
		for _, k := range keys {
			if k.Name == "admin-revoked" {
				require.NoError(t, testCtx.Store.RevokeAPIKey(context.Background(), k.ID))
			}
		}

		err = c.SeedAccount(context.Background(), "0xa0000000000000000000000000000000000000ab", "", "2")
		assertHTTPError(t, err, "UNAUTHORIZED")
	})
}
