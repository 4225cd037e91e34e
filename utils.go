package scorer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const pkhPrefix = "did:pkh:eip155:1:"

// expiration formats accepted for credential expirationDate, most precise first.
var expirationLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func IsAddress(address string) bool {
	return common.IsHexAddress(strings.TrimSpace(address))
}

func DIDFromAddress(address string) (string, error) {
	if !IsAddress(address) {
		return "", fmt.Errorf("invalid address: %q", address)
	}
	return pkhPrefix + NormalizeAddress(address), nil
}

// AddressFromDID extracts the account address from a did:pkh or did:ethr identifier.
func AddressFromDID(did string) (common.Address, error) {
	idx := strings.LastIndex(did, ":")
	if idx < 0 || !strings.HasPrefix(did, "did:") {
		return common.Address{}, fmt.Errorf("unsupported did: %q", did)
	}
	account := did[idx+1:]
	if !common.IsHexAddress(account) {
		return common.Address{}, fmt.Errorf("did %q does not carry an address", did)
	}
	return common.HexToAddress(account), nil
}

func ParseExpiration(value string) (time.Time, error) {
	for _, layout := range expirationLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported expiration date format: %q", value)
}
