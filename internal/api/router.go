package api

import (
	"net/http" // HTTP status codes
	"time"     // CORS preflight cache

	"mpesa_bridge/internal/bridge"     // Bridge orchestrator
	"mpesa_bridge/internal/middleware" // Request ID, logging, JWT

	"github.com/gin-contrib/cors"                             // CORS for the web frontend
	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the collaborators the HTTP surface needs
type Deps struct {
	DB          *gorm.DB        // Store, pinged by /healthz
	Bridge      *bridge.Service // Flow orchestration
	Redis       *redis.Client   // Optional, nil disables caching
	JWTSecret   string          // Empty disables session tokens
	CORSOrigins []string        // Empty allows any origin
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recover(), corsMiddleware(d.CORSOrigins))

	r.GET("/healthz", HealthHandler(d.DB, d.Redis))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", RegisterHandler(d.Bridge, d.JWTSecret))
	r.GET("/transactions", ListTransactionsHandler(d.Bridge, d.Redis))
	r.POST("/transfer", TransferHandler(d.Bridge, d.Redis))

	apiGroup := r.Group("/api")
	apiGroup.POST("/quote", QuoteHandler(d.Bridge, d.Redis))
	apiGroup.POST("/onramp", OnrampHandler(d.Bridge, d.Redis))
	apiGroup.GET("/onramp/status/:orderID", OnrampStatusHandler(d.Bridge))
	apiGroup.POST("/onramp/process", ProcessOnrampHandler(d.Bridge, d.Redis))
	apiGroup.POST("/offramp", OfframpHandler(d.Bridge, d.Redis))

	if d.JWTSecret != "" {
		userGroup := r.Group("/user")
		userGroup.Use(middleware.JWTAuthMiddleware(d.JWTSecret))
		userGroup.GET("/transactions", UserTransactionsHandler(d.Bridge, d.Redis))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	})
}
