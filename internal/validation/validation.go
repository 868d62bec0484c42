// Package validation provides input parsing and validation for ledgerlens.
package validation

import (
	"encoding/hex"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParseAddress parses a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	if len(s) != 42 {
		return common.Address{}, errors.New("invalid address length: must be 42 characters (0x + 40 hex)")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, errors.New("invalid address: must start with 0x")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("invalid address: non-hex characters")
	}
	return common.HexToAddress(s), nil
}

// ParseRoot parses a 0x-prefixed 32-byte hex merkle root.
func ParseRoot(s string) (common.Hash, error) {
	if len(s) != 66 {
		return common.Hash{}, errors.New("invalid root length: must be 66 characters (0x + 64 hex)")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Hash{}, errors.New("invalid root: must start with 0x")
	}
	if _, err := hex.DecodeString(s[2:]); err != nil {
		return common.Hash{}, errors.New("invalid root: non-hex characters")
	}
	return common.HexToHash(s), nil
}

// ParseSelector parses a 0x-prefixed 4-byte function selector.
func ParseSelector(s string) ([4]byte, error) {
	var sel [4]byte
	if len(s) != 10 {
		return sel, errors.New("invalid selector length: must be 10 characters (0x + 8 hex)")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return sel, errors.New("invalid selector: must start with 0x")
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return sel, errors.New("invalid selector: non-hex characters")
	}
	copy(sel[:], b)
	return sel, nil
}

// ParseCallData parses optional 0x-prefixed hex call data. Empty input is
// valid and yields nil.
func ParseCallData(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return nil, nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.New("invalid call data: non-hex characters")
	}
	return b, nil
}

// ParseWei parses a decimal wei amount. Empty input is treated as zero.
func ParseWei(s string) (*uint256.Int, error) {
	if s == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.New("invalid wei amount: must be a decimal integer")
	}
	return v, nil
}
