package domain

import "strings"

// Network identifies a supported chain
type Network string

const (
	NetworkBase Network = "base" // Base mainnet
	NetworkLisk Network = "lisk" // Lisk L2
	NetworkCelo Network = "celo" // Celo
)

// Networks lists every supported network in a stable order
var Networks = []Network{NetworkBase, NetworkLisk, NetworkCelo}

// ParseNetwork normalizes a network tag; ok is false for unknown values
func ParseNetwork(s string) (Network, bool) {
	n := Network(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Networks {
		if n == known {
			return n, true
		}
	}
	return "", false
}

// Token identifies a transferable token
type Token string

const (
	TokenLSK  Token = "LSK"
	TokenUSDT Token = "USDT"
	TokenUSDC Token = "USDC"
	TokenCELO Token = "CELO"
)

// Tokens lists every token the system knows about
var Tokens = []Token{TokenLSK, TokenUSDT, TokenUSDC, TokenCELO}

// ParseToken normalizes a token symbol; ok is false for unknown values
func ParseToken(s string) (Token, bool) {
	t := Token(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Tokens {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Decimals returns the base-unit precision of the token
func (t Token) Decimals() int32 {
	switch t {
	case TokenUSDT, TokenUSDC:
		return 6
	default:
		return 18
	}
}

// TransferType is the direction of a two-leg transfer
type TransferType string

const (
	TransferOnramp  TransferType = "onramp"  // Fiat in, crypto out
	TransferOfframp TransferType = "offramp" // Crypto in, fiat out
)

// ParseTransferType accepts onramp or offramp
func ParseTransferType(s string) (TransferType, bool) {
	switch TransferType(strings.ToLower(strings.TrimSpace(s))) {
	case TransferOnramp:
		return TransferOnramp, true
	case TransferOfframp:
		return TransferOfframp, true
	}
	return "", false
}

// Status is the lifecycle state of a Transaction
type Status string

const (
	StatusPending      Status = "pending"
	StatusSTKInitiated Status = "stk_initiated"
	StatusTokensSent   Status = "tokens_sent"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// transitions holds the allowed forward moves out of each non-terminal state
var transitions = map[Status][]Status{
	StatusPending:      {StatusSTKInitiated, StatusTokensSent, StatusCompleted, StatusFailed},
	StatusSTKInitiated: {StatusCompleted, StatusFailed},
	StatusTokensSent:   {StatusCompleted, StatusFailed},
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether next is a legal move from s
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
