// Package chain sends ERC-20 tokens on the supported EVM networks.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"mpesa_bridge/internal/config"
	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/utils"
	"mpesa_bridge/internal/xerr"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const erc20ABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}]`

var parsedERC20 = mustParseABI(erc20ABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Backend is the subset of the JSON-RPC client the executor needs
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dialer opens a Backend for an RPC URL
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

// DialRPC dials a real node
func DialRPC(ctx context.Context, rpcURL string) (Backend, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

// Transfer is the confirmed result of one token send
type Transfer struct {
	ID          string         `json:"id"`          // Transaction hash
	Status      domain.Status  `json:"status"`      // completed or failed, from the receipt
	Network     domain.Network `json:"network"`     // Chain the transfer ran on
	Token       domain.Token   `json:"token"`       // Token symbol
	Recipient   string         `json:"recipient"`   // Receiving address
	Amount      string         `json:"amount"`      // Human amount
	BlockNumber uint64         `json:"blockNumber"` // Block the transfer was mined in
}

// Executor signs and sends token transfers using per-network configuration
type Executor struct {
	chains       config.Chains
	dial         Dialer
	pollInterval time.Duration

	mu       sync.Mutex
	backends map[domain.Network]Backend
}

// Option customizes an Executor
type Option func(*Executor)

// WithDialer replaces the RPC dialer
func WithDialer(d Dialer) Option {
	return func(e *Executor) { e.dial = d }
}

// WithPollInterval sets how often the receipt is polled while waiting for mining
func WithPollInterval(d time.Duration) Option {
	return func(e *Executor) { e.pollInterval = d }
}

func NewExecutor(chains config.Chains, opts ...Option) *Executor {
	e := &Executor{
		chains:       chains,
		dial:         DialRPC,
		pollInterval: 2 * time.Second,
		backends:     make(map[domain.Network]Backend),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports reports whether token has a contract configured on network
func (e *Executor) Supports(network domain.Network, token domain.Token) bool {
	return e.chains.Supports(network, token)
}

// ContractAddress returns the configured contract of token on network
func (e *Executor) ContractAddress(network domain.Network, token domain.Token) (string, bool) {
	c, ok := e.chains[network].Tokens[token]
	return c.Address, ok
}

// Send transfers amount of token to recipient and waits for the receipt. A
// reverted transfer returns both the Transfer (so the hash can be recorded)
// and an error.
func (e *Executor) Send(ctx context.Context, network domain.Network, token domain.Token, recipient string, amount decimal.Decimal) (*Transfer, error) {
	chainCfg, ok := e.chains[network]
	if !ok {
		return nil, xerr.New(xerr.KindUnsupportedNetwork, "Unsupported network: %s", network)
	}
	contract, ok := chainCfg.Tokens[token]
	if !ok {
		return nil, xerr.New(xerr.KindUnsupportedToken, "Unsupported token type: %s on %s", token, network)
	}
	if chainCfg.PrivateKey == "" {
		return nil, xerr.New(xerr.KindUnsupportedNetwork, "No signing key configured for %s", network)
	}
	if !common.IsHexAddress(recipient) {
		return nil, xerr.Validation("Invalid recipient address: %s", recipient)
	}
	value, err := ToBaseUnits(amount, contract.Decimals)
	if err != nil {
		return nil, err
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(chainCfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signing key for %s: %w", network, err)
	}

	backend, err := e.backend(ctx, network, chainCfg.RPCURL)
	if err != nil {
		return nil, xerr.Upstream(err)
	}
	data, err := packTransfer(common.HexToAddress(recipient), value)
	if err != nil {
		return nil, err
	}
	signed, err := e.buildAndSign(ctx, backend, big.NewInt(chainCfg.ChainID), key, common.HexToAddress(contract.Address), data)
	if err != nil {
		return nil, xerr.Upstream(err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return nil, xerr.Upstream(fmt.Errorf("broadcast failed: %w", err))
	}
	logrus.WithFields(logrus.Fields{
		"request_id": utils.RequestIDFrom(ctx),
		"network":    network,
		"token":      token,
		"recipient":  recipient,
		"amount":     amount.String(),
		"hash":       signed.Hash().Hex(),
	}).Info("Token transfer broadcast")

	receipt, err := e.waitMined(ctx, backend, signed.Hash())
	if err != nil {
		return nil, xerr.Upstream(fmt.Errorf("waiting for %s: %w", signed.Hash().Hex(), err))
	}
	transfer := &Transfer{
		ID:          signed.Hash().Hex(),
		Status:      domain.StatusCompleted,
		Network:     network,
		Token:       token,
		Recipient:   recipient,
		Amount:      amount.String(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		transfer.Status = domain.StatusFailed
		return transfer, xerr.Upstream(fmt.Errorf("token transfer %s reverted", transfer.ID))
	}
	return transfer, nil
}

// backend returns the cached client for network, dialling on first use
func (e *Executor) backend(ctx context.Context, network domain.Network, rpcURL string) (Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.backends[network]; ok {
		return b, nil
	}
	b, err := e.dial(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", network, err)
	}
	e.backends[network] = b
	return b, nil
}

// buildAndSign prepares an EIP-1559 contract call from the hot wallet
func (e *Executor) buildAndSign(ctx context.Context, b Backend, chainID *big.Int, key *ecdsa.PrivateKey, to common.Address, data []byte) (*types.Transaction, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)
	nonce, err := b.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	tip, err := b.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas tip: %w", err)
	}
	head, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get header: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	// MaxFeePerGas = 2 * BaseFee + Tip
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	gas, err := b.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to estimate gas: %w", err)
	}
	gas = gas * 120 / 100

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign failed: %w", err)
	}
	return signed, nil
}

// waitMined polls for the receipt until it appears or ctx is done
func (e *Executor) waitMined(ctx context.Context, b Backend, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := b.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ToBaseUnits converts a human amount to the token's integer representation
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	shifted := amount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, xerr.Validation("Amount has more than %d decimal places", decimals)
	}
	if !shifted.IsPositive() {
		return nil, xerr.Validation("Amount must be a positive number")
	}
	return shifted.BigInt(), nil
}

func packTransfer(to common.Address, value *big.Int) ([]byte, error) {
	return parsedERC20.Pack("transfer", to, value)
}
