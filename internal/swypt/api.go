package swypt

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// QuoteRequest mirrors the /swypt-quotes body
type QuoteRequest struct {
	Type           string `json:"type"`
	Amount         string `json:"amount"`
	FiatCurrency   string `json:"fiatCurrency"`
	CryptoCurrency string `json:"cryptoCurrency"`
	Network        string `json:"network"`
}

// Quote asks the aggregator to price a conversion; the payload is returned untouched
func (c *Client) Quote(ctx context.Context, q QuoteRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/swypt-quotes", q, false)
}

// STKPushRequest is the /swypt-onramp body
type STKPushRequest struct {
	PartyA       string `json:"partyA"`                 // Paying phone number
	Amount       string `json:"amount"`                 // KES amount
	Side         string `json:"side"`                   // Always onramp
	UserAddress  string `json:"userAddress"`            // Wallet to credit
	TokenAddress string `json:"tokenAddress,omitempty"` // Contract of the token bought
	OrderID      string `json:"orderID"`                // Our order ID
}

// STKPush is the answer to an STK push
type STKPush struct {
	Reference string          // Aggregator order reference
	Payload   json.RawMessage // Full response body
}

// InitiateSTKPush prompts the phone to authorize the payment
func (c *Client) InitiateSTKPush(ctx context.Context, r STKPushRequest) (*STKPush, error) {
	if r.Side == "" {
		r.Side = "onramp"
	}
	raw, err := c.do(ctx, http.MethodPost, "/swypt-onramp", r, false)
	if err != nil {
		return nil, err
	}
	return &STKPush{Reference: reference(raw, "data.orderID", "orderID", "data.checkoutRequestID", "id"), Payload: raw}, nil
}

// DepositStatus is the aggregator's view of an onramp order
type DepositStatus struct {
	Status  string          // PENDING, SUCCESS or FAILED as reported
	Payload json.RawMessage // Full response body
}

// CheckDepositStatus polls the onramp order; it has no local side effects
func (c *Client) CheckDepositStatus(ctx context.Context, orderID string) (*DepositStatus, error) {
	raw, err := c.do(ctx, http.MethodGet, "/order-onramp-status/"+escape(orderID), nil, false)
	if err != nil {
		return nil, err
	}
	return &DepositStatus{Status: strings.ToUpper(reference(raw, "data.status", "status")), Payload: raw}, nil
}

// SettleRequest is the /swypt-deposit body
type SettleRequest struct {
	Chain       string `json:"chain"`
	Address     string `json:"address"`
	OrderID     string `json:"orderID"`
	Project     string `json:"project"`
	Hash        string `json:"hash,omitempty"`   // Token transaction backing an offramp
	PhoneNumber string `json:"partyB,omitempty"` // Phone receiving the fiat
}

// Settlement is the answer to a settle or payout call
type Settlement struct {
	Reference string
	Payload   json.RawMessage
}

// Settle asks the aggregator to settle an order
func (c *Client) Settle(ctx context.Context, r SettleRequest) (*Settlement, error) {
	if r.Project == "" {
		r.Project = c.project
	}
	raw, err := c.do(ctx, http.MethodPost, "/swypt-deposit", r, false)
	if err != nil {
		return nil, err
	}
	return &Settlement{Reference: reference(raw, "data.orderID", "orderID", "hash", "data.hash", "id"), Payload: raw}, nil
}

type payoutRequest struct {
	Amount      string `json:"amount"`
	PhoneNumber string `json:"phoneNumber"`
	Currency    string `json:"currency"`
}

// Payout sends KES to a phone number; the legacy direct transfer uses it
func (c *Client) Payout(ctx context.Context, amount, phone string) (*Settlement, error) {
	raw, err := c.do(ctx, http.MethodPost, "/mpesa/transfer", payoutRequest{Amount: amount, PhoneNumber: phone, Currency: "KES"}, true)
	if err != nil {
		return nil, err
	}
	return &Settlement{Reference: reference(raw, "id", "data.id", "transactionId", "data.transactionId"), Payload: raw}, nil
}
