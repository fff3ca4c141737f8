package main

import (
	"context"   // Redis ping and shutdown
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Signal source
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Shutdown timeout

	"mpesa_bridge/internal/api"     // HTTP handlers and routes
	"mpesa_bridge/internal/bridge"  // Flow orchestration
	"mpesa_bridge/internal/chain"   // Crypto leg
	"mpesa_bridge/internal/config"  // Configuration
	"mpesa_bridge/internal/db"      // Store connection and schema
	"mpesa_bridge/internal/ledger"  // Transaction ledger
	"mpesa_bridge/internal/metrics" // Prometheus collectors
	"mpesa_bridge/internal/swypt"   // Fiat leg

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Redis is optional; without it every read goes to the store
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("failed to connect to Redis: %v", err)
		}
	}

	if cfg.Bridge.TreasuryAddress == "" || cfg.Bridge.CollectionAddress == "" {
		logrus.Warn("RECIPIENT_ADDRESS or SWYPT_COLLECTION_ADDRESS is empty; flows that need it will fail")
	}
	for network, c := range cfg.Chains {
		logrus.WithFields(logrus.Fields{
			"network": network,
			"rpc":     c.RPCURL,
			"tokens":  len(c.Tokens),
			"signer":  c.PrivateKey != "",
		}).Info("Chain configured")
	}

	metrics.MustRegister()
	svc := bridge.New(
		ledger.New(gdb),
		chain.NewExecutor(cfg.Chains),
		swypt.New(cfg.Swypt),
		cfg.Bridge,
	)

	r := api.NewRouter(api.Deps{
		DB:          gdb,
		Bridge:      svc,
		Redis:       redisClient,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		logrus.WithFields(logrus.Fields{"port": cfg.AppPort, "db": cfg.DBDriver}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Token transfers wait for mining, so give in-flight requests time to finish
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	logrus.Info("Server stopped")
}
