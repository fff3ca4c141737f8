// Package bridge sequences the crypto and fiat legs of a transfer and records
// every status change on the transaction row. There is no compensation: when
// the crypto leg succeeds and the fiat leg fails the row ends up failed with
// the token hash recorded, and nothing is reversed.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mpesa_bridge/internal/chain"
	"mpesa_bridge/internal/config"
	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/ledger"
	"mpesa_bridge/internal/metrics"
	"mpesa_bridge/internal/swypt"
	"mpesa_bridge/internal/utils"
	"mpesa_bridge/internal/validation"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CryptoLeg moves tokens on chain
type CryptoLeg interface {
	Supports(network domain.Network, token domain.Token) bool
	ContractAddress(network domain.Network, token domain.Token) (string, bool)
	Send(ctx context.Context, network domain.Network, token domain.Token, recipient string, amount decimal.Decimal) (*chain.Transfer, error)
}

// FiatLeg moves shillings through the aggregator
type FiatLeg interface {
	Quote(ctx context.Context, q swypt.QuoteRequest) (json.RawMessage, error)
	InitiateSTKPush(ctx context.Context, r swypt.STKPushRequest) (*swypt.STKPush, error)
	CheckDepositStatus(ctx context.Context, orderID string) (*swypt.DepositStatus, error)
	Settle(ctx context.Context, r swypt.SettleRequest) (*swypt.Settlement, error)
	Payout(ctx context.Context, amount, phone string) (*swypt.Settlement, error)
}

// Service is the orchestrator
type Service struct {
	store      *ledger.Ledger
	crypto     CryptoLeg
	fiat       FiatLeg
	cfg        config.Bridge
	newOrderID func() string
}

// Option customizes a Service
type Option func(*Service)

// WithOrderIDs replaces the order ID generator
func WithOrderIDs(gen func() string) Option {
	return func(s *Service) { s.newOrderID = gen }
}

func New(store *ledger.Ledger, crypto CryptoLeg, fiat FiatLeg, cfg config.Bridge, opts ...Option) *Service {
	s := &Service{
		store:      store,
		crypto:     crypto,
		fiat:       fiat,
		cfg:        cfg,
		newOrderID: domain.NewOrderID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Supports reports whether a token can be sent on a network
func (s *Service) Supports(network domain.Network, token domain.Token) bool {
	return s.crypto.Supports(network, token)
}

// DefaultNetwork is used by the legacy transfer when no network is given
func (s *Service) DefaultNetwork() domain.Network {
	return s.cfg.DefaultNetwork
}

// Register creates a user
func (s *Service) Register(ctx context.Context, in validation.RegisterInput) (*domain.User, error) {
	user := &domain.User{WalletAddress: in.WalletAddress, MpesaPhoneNumber: in.MpesaPhoneNumber}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"request_id":     utils.RequestIDFrom(ctx),
		"user_id":        user.ID,
		"wallet_address": user.WalletAddress,
	}).Info("User registered")
	return user, nil
}

// Transactions lists the ledger newest first
func (s *Service) Transactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.store.ListAll(ctx)
}

// TransactionsPage lists one page of the ledger, newest first
func (s *Service) TransactionsPage(ctx context.Context, page, pageSize int) (*ledger.Page, error) {
	return s.store.ListPage(ctx, page, pageSize)
}

// UserTransactions lists the transactions of one M-Pesa number
func (s *Service) UserTransactions(ctx context.Context, phone string) ([]domain.Transaction, error) {
	return s.store.ListByPhone(ctx, phone)
}

// Quote forwards a pricing request to the aggregator
func (s *Service) Quote(ctx context.Context, in validation.QuoteInput) (json.RawMessage, error) {
	return s.fiat.Quote(ctx, swypt.QuoteRequest{
		Type:           string(in.Type),
		Amount:         in.Amount.String(),
		FiatCurrency:   in.FiatCurrency,
		CryptoCurrency: string(in.CryptoCurrency),
		Network:        string(in.Network),
	})
}

// sendTokens runs the crypto leg and records its latency
func (s *Service) sendTokens(ctx context.Context, network domain.Network, token domain.Token, recipient string, amount decimal.Decimal) (*chain.Transfer, error) {
	start := time.Now()
	transfer, err := s.crypto.Send(ctx, network, token, recipient, amount)
	observeLeg("crypto", start, err)
	return transfer, err
}

func observeLeg(leg string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.LegDuration.WithLabelValues(leg, outcome).Observe(time.Since(start).Seconds())
}

// fail records cause on the row before it is returned to the caller
func (s *Service) fail(ctx context.Context, flow string, tx *domain.Transaction, cause error, f ledger.Fields) error {
	f.Error = cause.Error()
	fields := logrus.Fields{
		"request_id": utils.RequestIDFrom(ctx),
		"flow":       flow,
		"id":         tx.ID,
		"order_id":   tx.OrderRef(),
		"from":       tx.Status,
		"error":      f.Error,
	}
	if err := s.store.Transition(ctx, tx.ID, tx.Status, domain.StatusFailed, f); err != nil {
		fields["record_error"] = err.Error()
		logrus.WithFields(fields).Error("Failed to record transaction failure")
	} else {
		tx.Status = domain.StatusFailed
		tx.Error = f.Error
		if f.TokenTransactionID != "" {
			tx.TokenTransactionID = f.TokenTransactionID
		}
	}
	logrus.WithFields(fields).Error("Transfer failed")
	metrics.TransfersTotal.WithLabelValues(flow, string(domain.StatusFailed)).Inc()
	return cause
}

// advance moves the row forward and mirrors the change on tx
func (s *Service) advance(ctx context.Context, flow string, tx *domain.Transaction, to domain.Status, f ledger.Fields) error {
	if err := s.store.Transition(ctx, tx.ID, tx.Status, to, f); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"request_id": utils.RequestIDFrom(ctx),
		"flow":       flow,
		"id":         tx.ID,
		"order_id":   tx.OrderRef(),
		"from":       tx.Status,
		"to":         to,
	}).Info("Transaction status changed")
	tx.Status = to
	if f.TokenTransactionID != "" {
		tx.TokenTransactionID = f.TokenTransactionID
	}
	if f.MpesaTransactionID != "" {
		tx.MpesaTransactionID = f.MpesaTransactionID
	}
	if to == domain.StatusCompleted {
		metrics.TransfersTotal.WithLabelValues(flow, string(to)).Inc()
	}
	return nil
}

// requireSupport fails before any row exists when the pair is not configured
func (s *Service) requireSupport(network domain.Network, token domain.Token) error {
	if !s.crypto.Supports(network, token) {
		return unsupported(network, token)
	}
	return nil
}

func tokenID(t *chain.Transfer) string {
	if t == nil {
		return ""
	}
	return t.ID
}

func missingAddress(name string) error {
	return fmt.Errorf("%s is not configured", name)
}

func sameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
