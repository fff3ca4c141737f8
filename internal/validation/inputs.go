package validation

import (
	"strings"

	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/xerr"

	"github.com/shopspring/decimal"
)

// RegisterInput is a validated registration
type RegisterInput struct {
	WalletAddress    string
	MpesaPhoneNumber string
}

// Register validates a registration; liskAddress is the legacy field name
func Register(walletAddress, liskAddress, phone string) (RegisterInput, error) {
	address := strings.TrimSpace(walletAddress)
	name := "walletAddress"
	if address == "" {
		address = strings.TrimSpace(liskAddress)
		name = "liskAddress"
	}
	if err := required(field(name, address), field("mpesaPhoneNumber", phone)); err != nil {
		return RegisterInput{}, err
	}
	if !IsWalletAddress(address) {
		if name == "liskAddress" {
			return RegisterInput{}, xerr.Validation("Invalid Lisk address format")
		}
		return RegisterInput{}, xerr.Validation("Invalid wallet address format")
	}
	if !IsPhoneNumber(phone) {
		return RegisterInput{}, xerr.Validation("Invalid M-Pesa phone number format. Must start with 254 followed by 9 digits")
	}
	return RegisterInput{WalletAddress: address, MpesaPhoneNumber: phone}, nil
}

// TransferInput is a validated legacy direct transfer
type TransferInput struct {
	Amount      decimal.Decimal
	PhoneNumber string
	Token       domain.Token
	Network     domain.Network
}

// Transfer validates a direct transfer. network may be empty, in which case
// defaultNetwork is used.
func Transfer(amount, phone, token, network string, defaultNetwork domain.Network, support TokenSupport) (TransferInput, error) {
	if err := required(field("amount", amount), field("mpesaPhoneNumber", phone), field("paymentType", token)); err != nil {
		return TransferInput{}, err
	}
	if !IsPhoneNumber(phone) {
		return TransferInput{}, xerr.Validation("Invalid M-Pesa phone number format. Must start with 254 followed by 9 digits")
	}
	n := defaultNetwork
	if strings.TrimSpace(network) != "" {
		var err error
		if n, err = parseNetwork(network); err != nil {
			return TransferInput{}, err
		}
	}
	t, err := parseToken(token, n, support)
	if err != nil {
		return TransferInput{}, err
	}
	a, err := parseAmount(amount)
	if err != nil {
		return TransferInput{}, err
	}
	if err := checkPrecision(a, t); err != nil {
		return TransferInput{}, err
	}
	return TransferInput{Amount: a, PhoneNumber: phone, Token: t, Network: n}, nil
}

// RampInput is a validated onramp or offramp request
type RampInput struct {
	Amount        decimal.Decimal
	PhoneNumber   string
	Token         domain.Token
	Network       domain.Network
	WalletAddress string
}

// Ramp validates the body shared by /api/onramp and /api/offramp
func Ramp(amount, phone, cryptoCurrency, network, walletAddress string, support TokenSupport) (RampInput, error) {
	err := required(
		field("amount", amount),
		field("phoneNumber", phone),
		field("cryptoCurrency", cryptoCurrency),
		field("network", network),
		field("walletAddress", walletAddress),
	)
	if err != nil {
		return RampInput{}, err
	}
	if !IsEVMAddress(walletAddress) {
		return RampInput{}, xerr.Validation("Invalid wallet address format")
	}
	if !IsPhoneNumber(phone) {
		return RampInput{}, xerr.Validation("Invalid phone number format. Must start with 254 followed by 9 digits")
	}
	n, err := parseNetwork(network)
	if err != nil {
		return RampInput{}, err
	}
	t, err := parseToken(cryptoCurrency, n, support)
	if err != nil {
		return RampInput{}, err
	}
	a, err := parseAmount(amount)
	if err != nil {
		return RampInput{}, err
	}
	if err := checkPrecision(a, t); err != nil {
		return RampInput{}, err
	}
	return RampInput{Amount: a, PhoneNumber: phone, Token: t, Network: n, WalletAddress: walletAddress}, nil
}

// ProcessInput is a validated /api/onramp/process request
type ProcessInput struct {
	OrderID       string
	WalletAddress string
	Network       domain.Network
	Token         domain.Token
}

// Process validates the onramp release request
func Process(orderID, walletAddress, network, cryptoCurrency string, support TokenSupport) (ProcessInput, error) {
	err := required(
		field("orderID", orderID),
		field("walletAddress", walletAddress),
		field("network", network),
		field("cryptoCurrency", cryptoCurrency),
	)
	if err != nil {
		return ProcessInput{}, err
	}
	if !IsEVMAddress(walletAddress) {
		return ProcessInput{}, xerr.Validation("Invalid wallet address format")
	}
	if !domain.IsOrderID(orderID) {
		return ProcessInput{}, xerr.Validation("Invalid order ID format")
	}
	n, err := parseNetwork(network)
	if err != nil {
		return ProcessInput{}, err
	}
	t, err := parseToken(cryptoCurrency, n, support)
	if err != nil {
		return ProcessInput{}, err
	}
	return ProcessInput{OrderID: orderID, WalletAddress: walletAddress, Network: n, Token: t}, nil
}

// QuoteInput is a validated quote request
type QuoteInput struct {
	Type           domain.TransferType
	Amount         decimal.Decimal
	FiatCurrency   string
	CryptoCurrency domain.Token
	Network        domain.Network
}

// Quote validates a quote lookup. Quotes are priced by the aggregator, so the
// token only has to be known, not configured locally.
func Quote(kind, amount, fiatCurrency, cryptoCurrency, network string) (QuoteInput, error) {
	err := required(
		field("type", kind),
		field("amount", amount),
		field("fiatCurrency", fiatCurrency),
		field("cryptoCurrency", cryptoCurrency),
		field("network", network),
	)
	if err != nil {
		return QuoteInput{}, err
	}
	tt, ok := domain.ParseTransferType(kind)
	if !ok {
		return QuoteInput{}, xerr.Validation("Type must be onramp or offramp")
	}
	n, err := parseNetwork(network)
	if err != nil {
		return QuoteInput{}, err
	}
	t, err := parseToken(cryptoCurrency, n, nil)
	if err != nil {
		return QuoteInput{}, err
	}
	a, err := parseAmount(amount)
	if err != nil {
		return QuoteInput{}, err
	}
	return QuoteInput{
		Type:           tt,
		Amount:         a,
		FiatCurrency:   strings.ToUpper(strings.TrimSpace(fiatCurrency)),
		CryptoCurrency: t,
		Network:        n,
	}, nil
}
