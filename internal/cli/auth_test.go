package cli

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialStorage(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	t.Run("save and load credential", func(t *testing.T) {
		err := saveCredential("http://test:8080", "test-api-key")
		require.NoError(t, err)

		key := getCredential("http://test:8080")
		assert.Equal(t, "test-api-key", key)
	})

	t.Run("load non-existent credential", func(t *testing.T) {
		key := getCredential("http://nonexistent:8080")
		assert.Equal(t, "", key)
	})

	t.Run("multiple servers", func(t *testing.T) {
		require.NoError(t, saveCredential("http://server1:8080", "key1"))
		require.NoError(t, saveCredential("http://server2:8080", "key2"))

		creds, err := loadCredentials()
		require.NoError(t, err)
		assert.Len(t, creds.Servers, 3) // Including test:8080 from the first subtest
	})

	t.Run("overwrite existing credential", func(t *testing.T) {
		require.NoError(t, saveCredential("http://test:8080", "new-key"))
		assert.Equal(t, "new-key", getCredential("http://test:8080"))
	})
}

func TestCredentialFilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	require.NoError(t, saveCredential("http://test:8080", "test-key"))

	credPath := filepath.Join(tmpDir, ".ledgerlens", "credentials")
	info, err := os.Stat(credPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "credentials file should have 0600 permissions")

	dirInfo, err := os.Stat(filepath.Join(tmpDir, ".ledgerlens"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm(), "credentials directory should have 0700 permissions")
}

func TestAuthLoginWithFlags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/version" {
			if r.Header.Get("X-API-Key") == "valid-key" {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"service":"ledgerlens","version":"1.0.0"}`))
			} else {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"code":"UNAUTHORIZED"}}`))
			}
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	t.Run("successful login with valid key", func(t *testing.T) {
		err := runAuthLogin(server.URL, "valid-key")
		require.NoError(t, err)

		assert.Equal(t, "valid-key", getCredential(server.URL))
	})

	t.Run("failed login with invalid key", func(t *testing.T) {
		err := runAuthLogin(server.URL, "invalid-key")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid API key")
	})

	t.Run("empty API key rejected", func(t *testing.T) {
		origStdin := os.Stdin
		defer func() { os.Stdin = origStdin }()

		r, w, _ := os.Pipe()
		w.Close() // empty input
		os.Stdin = r

		err := runAuthLogin(server.URL, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key cannot be empty")
	})
}

func TestAuthLoginFromStdin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") == "piped-key" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"service":"ledgerlens"}`))
		} else {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":"UNAUTHORIZED"}}`))
		}
	}))
	defer server.Close()

	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	t.Run("read key from piped stdin", func(t *testing.T) {
		origStdin := os.Stdin
		defer func() { os.Stdin = origStdin }()

		r, w, err := os.Pipe()
		require.NoError(t, err)
		go func() {
			defer w.Close()
			io.WriteString(w, "piped-key\n")
		}()
		os.Stdin = r

		err = runAuthLogin(server.URL, "")
		require.NoError(t, err)
		assert.Equal(t, "piped-key", getCredential(server.URL))
	})

	t.Run("key is trimmed", func(t *testing.T) {
		origStdin := os.Stdin
		defer func() { os.Stdin = origStdin }()

		r, w, err := os.Pipe()
		require.NoError(t, err)
		go func() {
			defer w.Close()
			io.WriteString(w, "  piped-key  \n")
		}()
		os.Stdin = r

		err = runAuthLogin(server.URL, "")
		require.NoError(t, err)
		assert.Equal(t, "piped-key", getCredential(server.URL))
	})
}

func TestAuthLogout(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	defer os.Setenv("HOME", origHome)
	os.Setenv("HOME", tmpDir)

	require.NoError(t, saveCredential("http://server1:8080", "key1"))
	require.NoError(t, saveCredential("http://server2:8080", "key2"))

	t.Run("logout from specific server", func(t *testing.T) {
		err := runAuthLogout("http://server1:8080", false)
		require.NoError(t, err)

		assert.Equal(t, "", getCredential("http://server1:8080"))
		assert.Equal(t, "key2", getCredential("http://server2:8080"))
	})

	t.Run("logout from non-existent server", func(t *testing.T) {
		err := runAuthLogout("http://nonexistent:8080", false)
		require.NoError(t, err)
	})

	t.Run("logout all", func(t *testing.T) {
		require.NoError(t, saveCredential("http://server1:8080", "key1"))

		err := runAuthLogout("", true)
		require.NoError(t, err)

		creds, err := loadCredentials()
		if err == nil {
			assert.Empty(t, creds.Servers)
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") == "valid-key" {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"service":"ledgerlens"}`))
			} else {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"code":"UNAUTHORIZED"}}`))
			}
		}))
		defer server.Close()

		valid, err := validateAPIKey(server.URL, "valid-key")
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("invalid key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":"UNAUTHORIZED"}}`))
		}))
		defer server.Close()

		valid, err := validateAPIKey(server.URL, "invalid-key")
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("server error treated as valid", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		valid, err := validateAPIKey(server.URL, "any-key")
		require.NoError(t, err)
		assert.True(t, valid)
	})

	t.Run("connection error", func(t *testing.T) {
		_, err := validateAPIKey("http://localhost:1", "any-key")
		assert.Error(t, err)
	})
}

func TestAuthCommandStructure(t *testing.T) {
	cmd := createAuthCmd()

	assert.Equal(t, "auth", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	subCmds := cmd.Commands()
	subCmdNames := make([]string, len(subCmds))
	for i, c := range subCmds {
		subCmdNames[i] = c.Name()
	}

	assert.Contains(t, subCmdNames, "login")
	assert.Contains(t, subCmdNames, "logout")
	assert.Contains(t, subCmdNames, "status")
}

func TestAuthLoginCmdFlags(t *testing.T) {
	cmd := createAuthLoginCmd()

	serverFlag := cmd.Flags().Lookup("server")
	assert.NotNil(t, serverFlag)
	assert.Equal(t, "", serverFlag.DefValue)

	apiKeyFlag := cmd.Flags().Lookup("api-key")
	assert.NotNil(t, apiKeyFlag)
	assert.Equal(t, "", apiKeyFlag.DefValue)
}

func TestAuthLogoutCmdFlags(t *testing.T) {
	cmd := createAuthLogoutCmd()

	serverFlag := cmd.Flags().Lookup("server")
	assert.NotNil(t, serverFlag)

	allFlag := cmd.Flags().Lookup("all")
	assert.NotNil(t, allFlag)
	assert.Equal(t, "false", allFlag.DefValue)
}
