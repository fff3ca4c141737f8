package api

import (
	"encoding/json" // Cached quote payload
	"net/http"      // HTTP status codes
	"strings"       // Key normalization
	"time"          // Cache TTL

	"mpesa_bridge/internal/bridge"     // Bridge orchestrator
	"mpesa_bridge/internal/utils"      // Cache helpers
	"mpesa_bridge/internal/validation" // Input validation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

const quoteTTL = 15 * time.Second // Rates move; only absorb bursts of identical lookups

// QuoteRequest prices an onramp or offramp
type QuoteRequest struct {
	Type           string     `json:"type"`           // onramp or offramp
	Amount         flexString `json:"amount"`         // Amount in the source currency
	FiatCurrency   string     `json:"fiatCurrency"`   // KES
	CryptoCurrency string     `json:"cryptoCurrency"` // Token symbol
	Network        string     `json:"network"`        // Chain name
}

// RampRequest starts an onramp or offramp
type RampRequest struct {
	Amount         flexString `json:"amount"`         // Amount to move
	PhoneNumber    string     `json:"phoneNumber"`    // M-Pesa number
	CryptoCurrency string     `json:"cryptoCurrency"` // Token symbol
	Network        string     `json:"network"`        // Chain name
	WalletAddress  string     `json:"walletAddress"`  // User wallet
}

// ProcessRequest releases tokens for a paid onramp order
type ProcessRequest struct {
	OrderID        string `json:"orderID"`        // Order returned by /api/onramp
	WalletAddress  string `json:"walletAddress"`  // Must match the order
	Network        string `json:"network"`        // Must match the order
	CryptoCurrency string `json:"cryptoCurrency"` // Must match the order
}

// QuoteHandler forwards a quote request to the aggregator
func QuoteHandler(svc *bridge.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req QuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		in, err := validation.Quote(req.Type, string(req.Amount), req.FiatCurrency, req.CryptoCurrency, req.Network)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		key := "quote:" + strings.Join([]string{string(in.Type), in.Amount.String(), in.FiatCurrency, string(in.CryptoCurrency), string(in.Network)}, ":")
		var cached json.RawMessage
		if found, err := utils.GetCache(ctx, rdb, key, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"success": true, "quote": cached, "cached": true})
			return
		}
		quote, err := svc.Quote(ctx, in)
		if err != nil {
			respondError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, key, quote, quoteTTL)
		c.JSON(http.StatusOK, gin.H{"success": true, "quote": quote, "cached": false})
	}
}

// OnrampHandler records an onramp order and sends the STK push
func OnrampHandler(svc *bridge.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RampRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		in, err := validation.Ramp(string(req.Amount), req.PhoneNumber, req.CryptoCurrency, req.Network, req.WalletAddress, svc)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		res, err := svc.StartOnramp(ctx, in)
		invalidate(ctx, rdb, in.PhoneNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"orderID":     res.OrderID,
			"transaction": res.Transaction,
			"stkResult":   res.STK.Payload,
		})
	}
}

// OnrampStatusHandler reports an order's ledger and aggregator status
func OnrampStatusHandler(svc *bridge.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := svc.OnrampStatus(c.Request.Context(), c.Param("orderID"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"status":      res.Status,
			"transaction": res.Transaction,
			"mpesaStatus": res.MpesaStatus,
			"details":     res.Aggregator,
		})
	}
}

// ProcessOnrampHandler releases tokens for an order in stk_initiated
func ProcessOnrampHandler(svc *bridge.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ProcessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		in, err := validation.Process(req.OrderID, req.WalletAddress, req.Network, req.CryptoCurrency, svc)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		res, err := svc.ProcessOnramp(ctx, in)
		if res != nil {
			invalidate(ctx, rdb, res.Transaction.PhoneNumber) // The row may have moved to failed
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"transaction": res.Transaction,
			"tokenResult": res.Token,
		})
	}
}

// OfframpHandler sends tokens to the aggregator and settles shillings to the phone
func OfframpHandler(svc *bridge.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RampRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		in, err := validation.Ramp(string(req.Amount), req.PhoneNumber, req.CryptoCurrency, req.Network, req.WalletAddress, svc)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		res, err := svc.StartOfframp(ctx, in)
		invalidate(ctx, rdb, in.PhoneNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"orderID":     res.OrderID,
			"transaction": res.Transaction,
			"tokenResult": res.Token,
			"mpesaResult": settlementView(res.Mpesa),
		})
	}
}
