package validation

import (
	"testing"

	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/xerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type supportAll struct{}

func (supportAll) Supports(domain.Network, domain.Token) bool { return true }

type supportOnly map[domain.Network][]domain.Token

func (s supportOnly) Supports(n domain.Network, t domain.Token) bool {
	for _, tok := range s[n] {
		if tok == t {
			return true
		}
	}
	return false
}

const (
	wallet = "0xABCDEF0123456789abcdef0123456789ABCDEF01"
	lower  = "0x52908400098527886e0f7030069857d2e4169ee7"
	phone  = "254712345678"
)

func TestAddressPredicates(t *testing.T) {
	assert.True(t, IsEVMAddress(lower))
	assert.True(t, IsEVMAddress("0x52908400098527886E0F7030069857D2E4169EE7"))
	assert.True(t, IsEVMAddress(wallet))
	assert.False(t, IsEVMAddress("0xZZ908400098527886e0f7030069857d2e4169ee7"))
	assert.False(t, IsEVMAddress("52908400098527886e0f7030069857d2e4169ee7"))
	assert.False(t, IsEVMAddress("0x1234"))

	assert.True(t, IsLiskAddress("lsk"+"a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9"))
	assert.False(t, IsLiskAddress("lsk123"))

	assert.True(t, IsPhoneNumber("254700000000"))
	assert.False(t, IsPhoneNumber("0712345678"))
	assert.False(t, IsPhoneNumber("2547123456789"))
	assert.False(t, IsPhoneNumber("+254712345678"))
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		wallet  string
		lisk    string
		phone   string
		wantErr string
	}{
		{"valid evm", lower, "", phone, ""},
		{"valid lisk", "", "lsk" + "a1b2c3d4e5f6g7h8i9j0k1l2m3n4o5p6q7r8s9", phone, ""},
		{"missing both", "", "", "", "Missing required fields: liskAddress, mpesaPhoneNumber"},
		{"missing phone", lower, "", "", "Missing required fields: mpesaPhoneNumber"},
		{"bad address wins over bad phone", "0xnope", "", "12", "Invalid wallet address format"},
		{"bad lisk", "", "lsk123", phone, "Invalid Lisk address format"},
		{"bad phone", lower, "", "0712345678", "Invalid M-Pesa phone number format. Must start with 254 followed by 9 digits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Register(tt.wallet, tt.lisk, tt.phone)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.phone, in.MpesaPhoneNumber)
				return
			}
			assert.ErrorIs(t, err, xerr.ErrValidation)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestRegisterMixedCaseWallet(t *testing.T) {
	in, err := Register(wallet, "", phone)
	require.NoError(t, err)
	assert.Equal(t, wallet, in.WalletAddress)
}

func TestRamp(t *testing.T) {
	support := supportOnly{domain.NetworkBase: {domain.TokenUSDT, domain.TokenUSDC}}

	in, err := Ramp("100", "254700000000", "usdt", "Base", lower, support)
	require.NoError(t, err)
	assert.Equal(t, "100", in.Amount.String())
	assert.Equal(t, domain.TokenUSDT, in.Token)
	assert.Equal(t, domain.NetworkBase, in.Network)

	_, err = Ramp("100", "254700000000", "USDT", "", lower, support)
	assert.EqualError(t, err, "Missing required fields: network")

	_, err = Ramp("100", "254700000000", "USDT", "solana", lower, support)
	assert.Equal(t, xerr.KindUnsupportedNetwork, xerr.KindOf(err))

	_, err = Ramp("100", "254700000000", "CELO", "base", lower, support)
	assert.Equal(t, xerr.KindUnsupportedToken, xerr.KindOf(err))

	_, err = Ramp("100", "254700000000", "DAI", "base", lower, support)
	assert.Equal(t, xerr.KindUnsupportedToken, xerr.KindOf(err))

	_, err = Ramp("-1", "254700000000", "USDT", "base", lower, support)
	assert.EqualError(t, err, "Amount must be a positive number")

	_, err = Ramp("abc", "254700000000", "USDT", "base", lower, support)
	assert.ErrorIs(t, err, xerr.ErrValidation)

	_, err = Ramp("1.1234567", "254700000000", "USDT", "base", lower, support)
	assert.EqualError(t, err, "Amount has more than 6 decimal places")
	assert.ErrorIs(t, err, xerr.ErrValidation)

	in, err = Ramp("1.123456", "254700000000", "USDC", "base", lower, support)
	require.NoError(t, err)
	assert.Equal(t, "1.123456", in.Amount.String())

	// Address is checked before phone
	_, err = Ramp("1", "bad", "USDT", "base", "lsk123", support)
	assert.EqualError(t, err, "Invalid wallet address format")
}

func TestTransferUsesDefaultNetwork(t *testing.T) {
	in, err := Transfer("2.5", phone, "LSK", "", domain.NetworkLisk, supportAll{})
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkLisk, in.Network)
	assert.Equal(t, domain.TokenLSK, in.Token)

	_, err = Transfer("2.5", phone, "BTC", "", domain.NetworkLisk, supportAll{})
	assert.Equal(t, xerr.KindUnsupportedToken, xerr.KindOf(err))

	_, err = Transfer("0.0000000000000000001", phone, "LSK", "", domain.NetworkLisk, supportAll{})
	assert.EqualError(t, err, "Amount has more than 18 decimal places")

	_, err = Transfer("", phone, "LSK", "", domain.NetworkLisk, supportAll{})
	assert.EqualError(t, err, "Missing required fields: amount")
}

func TestProcess(t *testing.T) {
	in, err := Process("D-ABC123-XY", lower, "celo", "CELO", supportAll{})
	require.NoError(t, err)
	assert.Equal(t, domain.NetworkCelo, in.Network)

	_, err = Process("order-1", lower, "celo", "CELO", supportAll{})
	assert.EqualError(t, err, "Invalid order ID format")
}

func TestQuote(t *testing.T) {
	in, err := Quote("onramp", "100", "kes", "USDT", "lisk")
	require.NoError(t, err)
	assert.Equal(t, domain.TransferOnramp, in.Type)
	assert.Equal(t, "KES", in.FiatCurrency)

	_, err = Quote("sideways", "100", "KES", "USDT", "lisk")
	assert.EqualError(t, err, "Type must be onramp or offramp")
}
