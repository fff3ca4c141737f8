package api

import (
	"bytes"         // Raw JSON inspection
	"context"       // Cache invalidation context
	"encoding/json" // Flexible amount decoding
	"net/http"      // HTTP status codes

	"mpesa_bridge/internal/middleware" // Request ID lookup
	"mpesa_bridge/internal/swypt"      // Aggregator results
	"mpesa_bridge/internal/utils"      // Cache helpers
	"mpesa_bridge/internal/xerr"       // Error classification

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// flexString accepts a JSON string or number; amounts arrive as either
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// firstOf returns the first non-empty value; request fields have legacy aliases
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// badRequest answers a body that could not be decoded
func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
}

// respondError maps err to its status code and writes the error envelope
func respondError(c *gin.Context, err error) {
	status := xerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.CtxKeyRequestID),
			"path":       c.Request.URL.Path,
			"kind":       xerr.KindOf(err).String(),
			"error":      err.Error(),
		}).Error("Request failed")
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// settlementView renders an aggregator payout or settlement
func settlementView(s *swypt.Settlement) gin.H {
	if s == nil {
		return nil
	}
	return gin.H{"id": s.Reference, "details": s.Payload}
}

// invalidate drops cached history after a flow wrote to the ledger
func invalidate(ctx context.Context, rdb *redis.Client, phone string) {
	if err := utils.InvalidateTransactions(ctx, rdb, phone); err != nil {
		logrus.WithFields(logrus.Fields{"phone": phone, "error": err.Error()}).Warn("Failed to invalidate transaction cache")
	}
}
