package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"mpesa_bridge/internal/bridge" // Bridge orchestrator
	"mpesa_bridge/internal/domain" // Transaction model
	"mpesa_bridge/internal/ledger" // Page type
	"mpesa_bridge/internal/utils"  // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination reads page and page_size; ok is false when neither was given
func pagination(c *gin.Context) (page, pageSize int, ok bool) {
	p, ps := c.Query("page"), c.Query("page_size")
	if p == "" && ps == "" {
		return 0, 0, false
	}
	page, pageSize = 1, defaultPageSize
	if v, err := strconv.Atoi(p); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
		pageSize = v
	}
	return page, pageSize, true
}

// ListTransactionsHandler returns the whole history newest first, or one page
// of it when page or page_size is given
func ListTransactionsHandler(svc *bridge.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if page, pageSize, ok := pagination(c); ok {
			key := utils.TransactionsPageKey(page, pageSize)
			var cached ledger.Page
			if found, err := utils.GetCache(ctx, rdb, key, &cached); err == nil && found {
				c.JSON(http.StatusOK, pageResponse(&cached, true))
				return
			}
			p, err := svc.TransactionsPage(ctx, page, pageSize)
			if err != nil {
				respondError(c, err)
				return
			}
			_ = utils.SetCache(ctx, rdb, key, p, utils.TransactionsTTL)
			c.JSON(http.StatusOK, pageResponse(p, false))
			return
		}

		var cached []domain.Transaction
		if found, err := utils.GetCache(ctx, rdb, utils.TransactionsKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"success": true, "transactions": cached, "cached": true})
			return
		}
		txs, err := svc.Transactions(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, utils.TransactionsKey, txs, utils.TransactionsTTL)
		c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs, "cached": false})
	}
}

func pageResponse(p *ledger.Page, cached bool) gin.H {
	return gin.H{
		"success":      true,
		"transactions": p.Transactions,
		"page":         p.Page,
		"page_size":    p.PageSize,
		"total":        p.Total,
		"total_pages":  p.TotalPages,
		"cached":       cached,
	}
}

// UserTransactionsHandler returns the history of the caller's M-Pesa number
func UserTransactionsHandler(svc *bridge.Service, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		phone := c.GetString("phone") // Set by JWTAuthMiddleware
		if phone == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		key := utils.UserTransactionsKey(phone)
		var cached []domain.Transaction
		if found, err := utils.GetCache(ctx, rdb, key, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"success": true, "transactions": cached, "cached": true})
			return
		}
		txs, err := svc.UserTransactions(ctx, phone)
		if err != nil {
			respondError(c, err)
			return
		}
		_ = utils.SetCache(ctx, rdb, key, txs, utils.TransactionsTTL)
		c.JSON(http.StatusOK, gin.H{"success": true, "transactions": txs, "cached": false})
	}
}
