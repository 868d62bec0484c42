package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// generateID generates a new UUID
func generateID() string {
	return uuid.New().String()
}

// generateAPIKey generates a new API key
func generateAPIKey() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return fmt.Sprintf("ll_key_%s", hex.EncodeToString(b))
}

// hashAPIKey hashes an API key for storage
func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// addWei adds two decimal wei strings. Balances are stored as text, so the
// arithmetic happens here with 256-bit integers rather than in SQL.
func addWei(a, b string) (string, error) {
	if a == "" {
		a = "0"
	}
	if b == "" {
		b = "0"
	}
	x, err := uint256.FromDecimal(a)
	if err != nil {
		return "", fmt.Errorf("parsing balance %q: %w", a, err)
	}
	y, err := uint256.FromDecimal(b)
	if err != nil {
		return "", fmt.Errorf("parsing amount %q: %w", b, err)
	}
	sum, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return "", fmt.Errorf("balance overflow adding %s to %s", b, a)
	}
	return sum.Dec(), nil
}
