package bridge

import (
	"context"
	"encoding/json"
	"time"

	"mpesa_bridge/internal/chain"
	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/ledger"
	"mpesa_bridge/internal/swypt"
	"mpesa_bridge/internal/utils"
	"mpesa_bridge/internal/validation"
	"mpesa_bridge/internal/xerr"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	flowDirect  = "direct"
	flowOnramp  = "onramp"
	flowOfframp = "offramp"
)

func unsupported(network domain.Network, token domain.Token) error {
	return xerr.New(xerr.KindUnsupportedToken, "Unsupported token type: %s on %s", token, network)
}

// DirectResult is the outcome of a legacy single-shot transfer
type DirectResult struct {
	Transaction *domain.Transaction
	Token       *chain.Transfer
	Mpesa       *swypt.Settlement
}

// DirectTransfer sends tokens to the treasury, then pays the phone out in KES
func (s *Service) DirectTransfer(ctx context.Context, in validation.TransferInput) (*DirectResult, error) {
	if err := s.requireSupport(in.Network, in.Token); err != nil {
		return nil, err
	}
	if s.cfg.TreasuryAddress == "" {
		return nil, missingAddress("RECIPIENT_ADDRESS")
	}
	tx := &domain.Transaction{
		Amount:      in.Amount.String(),
		PhoneNumber: in.PhoneNumber,
		TokenType:   in.Token,
		Network:     in.Network,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}

	transfer, err := s.sendTokens(ctx, in.Network, in.Token, s.cfg.TreasuryAddress, in.Amount)
	if err != nil {
		return nil, s.fail(ctx, flowDirect, tx, err, ledger.Fields{TokenTransactionID: tokenID(transfer)})
	}

	start := time.Now()
	payout, err := s.fiat.Payout(ctx, in.Amount.String(), in.PhoneNumber)
	observeLeg("fiat", start, err)
	if err != nil {
		return nil, s.fail(ctx, flowDirect, tx, err, ledger.Fields{TokenTransactionID: transfer.ID})
	}

	err = s.advance(ctx, flowDirect, tx, domain.StatusCompleted, ledger.Fields{
		TokenTransactionID: transfer.ID,
		MpesaTransactionID: payout.Reference,
	})
	if err != nil {
		return nil, err
	}
	return &DirectResult{Transaction: tx, Token: transfer, Mpesa: payout}, nil
}

// OnrampResult is returned once the STK push went out
type OnrampResult struct {
	OrderID     string
	Transaction *domain.Transaction
	STK         *swypt.STKPush
}

// StartOnramp records the order and prompts the phone for payment
func (s *Service) StartOnramp(ctx context.Context, in validation.RampInput) (*OnrampResult, error) {
	if err := s.requireSupport(in.Network, in.Token); err != nil {
		return nil, err
	}
	orderID := s.newOrderID()
	tx := &domain.Transaction{
		OrderID:       &orderID,
		Amount:        in.Amount.String(),
		PhoneNumber:   in.PhoneNumber,
		TokenType:     in.Token,
		TransferType:  domain.TransferOnramp,
		WalletAddress: in.WalletAddress,
		Network:       in.Network,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}

	tokenAddress, _ := s.crypto.ContractAddress(in.Network, in.Token)
	start := time.Now()
	stk, err := s.fiat.InitiateSTKPush(ctx, swypt.STKPushRequest{
		PartyA:       in.PhoneNumber,
		Amount:       in.Amount.String(),
		Side:         flowOnramp,
		UserAddress:  in.WalletAddress,
		TokenAddress: tokenAddress,
		OrderID:      orderID,
	})
	observeLeg("fiat", start, err)
	if err != nil {
		return nil, s.fail(ctx, flowOnramp, tx, err, ledger.Fields{})
	}

	if err := s.advance(ctx, flowOnramp, tx, domain.StatusSTKInitiated, ledger.Fields{MpesaTransactionID: stk.Reference}); err != nil {
		return nil, err
	}
	return &OnrampResult{OrderID: orderID, Transaction: tx, STK: stk}, nil
}

// StatusResult is the read-only view of an onramp order
type StatusResult struct {
	Status      domain.Status       // Latest status recorded in the ledger
	MpesaStatus string              // Aggregator status, empty when it could not be reached
	Aggregator  json.RawMessage     // Aggregator payload, nil when it could not be reached
	Transaction *domain.Transaction // The ledger row
}

// OnrampStatus reads the row and asks the aggregator, without writing anything
func (s *Service) OnrampStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	tx, err := s.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	res := &StatusResult{Status: tx.Status, Transaction: tx}
	dep, err := s.fiat.CheckDepositStatus(ctx, orderID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": utils.RequestIDFrom(ctx),
			"order_id":   orderID,
			"error":      err.Error(),
		}).Warn("Deposit status lookup failed")
		return res, nil
	}
	res.MpesaStatus = dep.Status
	res.Aggregator = dep.Payload
	return res, nil
}

// ProcessResult is the outcome of releasing onramp tokens
type ProcessResult struct {
	Transaction *domain.Transaction
	Token       *chain.Transfer
}

// ProcessOnramp releases the tokens of an order whose STK push went out.
// Any other status is rejected without touching the row. Once the row has
// been written the result carries it even when err is set.
func (s *Service) ProcessOnramp(ctx context.Context, in validation.ProcessInput) (*ProcessResult, error) {
	tx, err := s.store.FindByOrderID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.StatusSTKInitiated {
		return nil, xerr.InvalidState("Transaction %s is %s, expected %s", in.OrderID, tx.Status, domain.StatusSTKInitiated)
	}
	if err := matchOrder(tx, in); err != nil {
		return nil, err
	}
	if err := s.requireSupport(in.Network, in.Token); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(tx.Amount)
	if err != nil {
		return &ProcessResult{Transaction: tx}, s.fail(ctx, flowOnramp, tx, err, ledger.Fields{})
	}

	transfer, err := s.sendTokens(ctx, in.Network, in.Token, in.WalletAddress, amount)
	if err != nil {
		return &ProcessResult{Transaction: tx}, s.fail(ctx, flowOnramp, tx, err, ledger.Fields{TokenTransactionID: tokenID(transfer)})
	}
	if err := s.advance(ctx, flowOnramp, tx, domain.StatusCompleted, ledger.Fields{TokenTransactionID: transfer.ID}); err != nil {
		return &ProcessResult{Transaction: tx}, err
	}
	return &ProcessResult{Transaction: tx, Token: transfer}, nil
}

// matchOrder rejects a release whose destination differs from the recorded order
func matchOrder(tx *domain.Transaction, in validation.ProcessInput) error {
	if tx.WalletAddress != "" && !sameAddress(tx.WalletAddress, in.WalletAddress) {
		return xerr.Validation("Wallet address does not match order %s", in.OrderID)
	}
	if tx.Network != "" && tx.Network != in.Network {
		return xerr.Validation("Network does not match order %s", in.OrderID)
	}
	if tx.TokenType != "" && tx.TokenType != in.Token {
		return xerr.Validation("Crypto currency does not match order %s", in.OrderID)
	}
	return nil
}

// OfframpResult is the outcome of a crypto to M-Pesa transfer
type OfframpResult struct {
	OrderID     string
	Transaction *domain.Transaction
	Token       *chain.Transfer
	Mpesa       *swypt.Settlement
}

// StartOfframp sends tokens to the aggregator's collection address and then
// asks the aggregator to settle the shillings to the phone
func (s *Service) StartOfframp(ctx context.Context, in validation.RampInput) (*OfframpResult, error) {
	if err := s.requireSupport(in.Network, in.Token); err != nil {
		return nil, err
	}
	if s.cfg.CollectionAddress == "" {
		return nil, missingAddress("SWYPT_COLLECTION_ADDRESS")
	}
	orderID := s.newOrderID()
	tx := &domain.Transaction{
		OrderID:       &orderID,
		Amount:        in.Amount.String(),
		PhoneNumber:   in.PhoneNumber,
		TokenType:     in.Token,
		TransferType:  domain.TransferOfframp,
		WalletAddress: in.WalletAddress,
		Network:       in.Network,
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}

	transfer, err := s.sendTokens(ctx, in.Network, in.Token, s.cfg.CollectionAddress, in.Amount)
	if err != nil {
		return nil, s.fail(ctx, flowOfframp, tx, err, ledger.Fields{TokenTransactionID: tokenID(transfer)})
	}
	if err := s.advance(ctx, flowOfframp, tx, domain.StatusTokensSent, ledger.Fields{TokenTransactionID: transfer.ID}); err != nil {
		return nil, err
	}

	start := time.Now()
	settlement, err := s.fiat.Settle(ctx, swypt.SettleRequest{
		Chain:       string(in.Network),
		Address:     in.WalletAddress,
		OrderID:     orderID,
		Hash:        transfer.ID,
		PhoneNumber: in.PhoneNumber,
	})
	observeLeg("fiat", start, err)
	if err != nil {
		return nil, s.fail(ctx, flowOfframp, tx, err, ledger.Fields{})
	}
	if err := s.advance(ctx, flowOfframp, tx, domain.StatusCompleted, ledger.Fields{MpesaTransactionID: settlement.Reference}); err != nil {
		return nil, err
	}
	return &OfframpResult{OrderID: orderID, Transaction: tx, Token: transfer, Mpesa: settlement}, nil
}
