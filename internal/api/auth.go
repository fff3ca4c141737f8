package api

import (
	"net/http" // HTTP status codes

	"mpesa_bridge/internal/bridge"     // Bridge orchestrator
	"mpesa_bridge/internal/utils"      // JWT helpers
	"mpesa_bridge/internal/validation" // Input validation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RegisterRequest links a wallet to an M-Pesa number
type RegisterRequest struct {
	WalletAddress    string `json:"walletAddress"`    // EVM or Lisk address
	LiskAddress      string `json:"liskAddress"`      // Legacy field name for the same address
	MpesaPhoneNumber string `json:"mpesaPhoneNumber"` // 254XXXXXXXXX
}

// RegisterHandler creates a user and returns a session token for its history
func RegisterHandler(svc *bridge.Service, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		in, err := validation.Register(req.WalletAddress, req.LiskAddress, req.MpesaPhoneNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		user, err := svc.Register(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := gin.H{"success": true, "user": user}
		if jwtSecret != "" {
			token, err := utils.GenerateJWT(user.ID, user.MpesaPhoneNumber, jwtSecret)
			if err != nil {
				logrus.WithFields(logrus.Fields{"user_id": user.ID, "error": err.Error()}).Error("Failed to generate token")
			} else {
				resp["token"] = token
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}
