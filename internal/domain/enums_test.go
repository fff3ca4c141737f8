package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to stk", StatusPending, StatusSTKInitiated, true},
		{"pending to tokens sent", StatusPending, StatusTokensSent, true},
		{"pending to completed", StatusPending, StatusCompleted, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"stk to completed", StatusSTKInitiated, StatusCompleted, true},
		{"stk to failed", StatusSTKInitiated, StatusFailed, true},
		{"stk back to pending", StatusSTKInitiated, StatusPending, false},
		{"stk to tokens sent", StatusSTKInitiated, StatusTokensSent, false},
		{"tokens sent to completed", StatusTokensSent, StatusCompleted, true},
		{"tokens sent back to pending", StatusTokensSent, StatusPending, false},
		{"completed is terminal", StatusCompleted, StatusFailed, false},
		{"failed is terminal", StatusFailed, StatusCompleted, false},
		{"pending to pending", StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusSTKInitiated.IsTerminal())
	assert.False(t, StatusTokensSent.IsTerminal())
}

func TestParseEnums(t *testing.T) {
	n, ok := ParseNetwork(" Base ")
	assert.True(t, ok)
	assert.Equal(t, NetworkBase, n)
	_, ok = ParseNetwork("ethereum")
	assert.False(t, ok)

	tok, ok := ParseToken("usdt")
	assert.True(t, ok)
	assert.Equal(t, TokenUSDT, tok)
	_, ok = ParseToken("DAI")
	assert.False(t, ok)

	tt, ok := ParseTransferType("OFFRAMP")
	assert.True(t, ok)
	assert.Equal(t, TransferOfframp, tt)
	_, ok = ParseTransferType("sideways")
	assert.False(t, ok)
}

func TestTokenDecimals(t *testing.T) {
	assert.Equal(t, int32(6), TokenUSDT.Decimals())
	assert.Equal(t, int32(6), TokenUSDC.Decimals())
	assert.Equal(t, int32(18), TokenCELO.Decimals())
	assert.Equal(t, int32(18), TokenLSK.Decimals())
}
