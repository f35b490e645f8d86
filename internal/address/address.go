package address

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var hexAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Normalize validates a wallet address string and returns its canonical
// EIP-55 checksum form. The second return value is false for anything that is
// not a well-formed address: wrong prefix, wrong length, non-hex characters,
// or a non-lowercase rendering whose checksum does not match.
func Normalize(input string) (string, bool) {
	cleaned := strings.TrimSpace(input)

	if !strings.HasPrefix(cleaned, "0x") || len(cleaned) != 42 {
		return "", false
	}
	if !hexAddressPattern.MatchString(cleaned) {
		return "", false
	}

	mixed, err := common.NewMixedcaseAddressFromString(cleaned)
	if err != nil {
		return "", false
	}

	// Only an all-lowercase rendering carries no checksum; any other casing
	// must be a valid EIP-55 rendering.
	if cleaned[2:] != strings.ToLower(cleaned[2:]) && !mixed.ValidChecksum() {
		return "", false
	}

	return common.HexToAddress(cleaned).Hex(), true
}

// NormalizeAll converts a list of address strings to checksum form, silently
// dropping invalid entries. It exists for best-effort bulk cleanup of already
// persisted data; data headed for submission goes through row validation,
// where drops are explicit and reported.
func NormalizeAll(inputs []string) []string {
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if addr, ok := Normalize(input); ok {
			out = append(out, addr)
		}
	}
	return out
}
