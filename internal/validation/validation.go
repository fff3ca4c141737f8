// Package validation checks raw request fields before any side effect.
// Rules run in a fixed order and the first failure wins: required fields,
// address format, phone format, then enum membership and amount.
package validation

import (
	"regexp"
	"strings"

	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/xerr"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	liskAddressPattern = regexp.MustCompile(`^lsk[a-zA-Z0-9]{38}$`)
	phonePattern       = regexp.MustCompile(`^254[0-9]{9}$`)
)

// TokenSupport answers whether a token is configured on a network
type TokenSupport interface {
	Supports(network domain.Network, token domain.Token) bool
}

// IsLiskAddress matches the legacy lsk32 address form
func IsLiskAddress(s string) bool {
	return liskAddressPattern.MatchString(s)
}

// IsEVMAddress accepts 0x followed by 40 hex digits in any case. Wallets
// hand out checksummed and lower-case forms alike, so case is not enforced.
func IsEVMAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// IsWalletAddress accepts either supported address form
func IsWalletAddress(s string) bool {
	return IsEVMAddress(s) || IsLiskAddress(s)
}

// IsPhoneNumber matches 254 followed by nine digits
func IsPhoneNumber(s string) bool {
	return phonePattern.MatchString(s)
}

// required returns a validation error naming the first empty field
func required(fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return xerr.Validation("Missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func field(name, value string) [2]string { return [2]string{name, value} }

// parseAmount requires a positive decimal
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !amount.IsPositive() {
		return decimal.Decimal{}, xerr.Validation("Amount must be a positive number")
	}
	return amount, nil
}

// checkPrecision rejects amounts the token cannot represent in base units
func checkPrecision(amount decimal.Decimal, token domain.Token) error {
	if amount.Exponent() < -token.Decimals() {
		return xerr.Validation("Amount has more than %d decimal places", token.Decimals())
	}
	return nil
}

func parseNetwork(s string) (domain.Network, error) {
	n, ok := domain.ParseNetwork(s)
	if !ok {
		return "", xerr.New(xerr.KindUnsupportedNetwork, "Unsupported network: %s", s)
	}
	return n, nil
}

// parseToken checks the symbol and, when a network is given, that it is configured there
func parseToken(s string, network domain.Network, support TokenSupport) (domain.Token, error) {
	t, ok := domain.ParseToken(s)
	if !ok {
		return "", xerr.New(xerr.KindUnsupportedToken, "Unsupported token type: %s", s)
	}
	if support != nil && !support.Supports(network, t) {
		return "", xerr.New(xerr.KindUnsupportedToken, "Token %s is not supported on %s", t, network)
	}
	return t, nil
}
