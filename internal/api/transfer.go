package api

import (
	"net/http" // HTTP status codes

	"mpesa_bridge/internal/bridge"     // Bridge orchestrator
	"mpesa_bridge/internal/validation" // Input validation

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// TransferRequest is a legacy single-shot crypto to M-Pesa transfer
type TransferRequest struct {
	Amount           flexString `json:"amount"`           // Token amount
	LiskAmount       flexString `json:"liskAmount"`       // Legacy name for amount
	MpesaPhoneNumber string     `json:"mpesaPhoneNumber"` // Phone to pay out to
	PaymentType      string     `json:"paymentType"`      // Token symbol
	TokenType        string     `json:"tokenType"`        // Alternative name for paymentType
	Network          string     `json:"network"`          // Optional, defaults to DEFAULT_NETWORK
}

// TransferHandler sends tokens to the treasury and pays the phone out
func TransferHandler(svc *bridge.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransferRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		in, err := validation.Transfer(
			firstOf(string(req.Amount), string(req.LiskAmount)),
			req.MpesaPhoneNumber,
			firstOf(req.PaymentType, req.TokenType),
			req.Network,
			svc.DefaultNetwork(),
			svc,
		)
		if err != nil {
			respondError(c, err)
			return
		}
		ctx := c.Request.Context()
		res, err := svc.DirectTransfer(ctx, in)
		invalidate(ctx, rdb, in.PhoneNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"tokenTransaction": res.Token,
			"mpesaTransaction": settlementView(res.Mpesa),
		})
	}
}
