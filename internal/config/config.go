package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For env key building

	"mpesa_bridge/internal/domain" // Network and token enums

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort     string   // Application port
	DBDriver    string   // sqlite (default) or mysql
	SQLitePath  string   // Store file for the sqlite driver
	DBUser      string   // Database user
	DBPassword  string   // Database password
	DBHost      string   // Database host
	DBPort      string   // Database port
	DBName      string   // Database name
	JWTSecret   string   // JWT secret key
	RedisAddr   string   // Redis server address, caching is off when empty
	RedisPass   string   // Redis password
	RedisDB     int      // Redis database number
	IsProd      bool     // Is production environment
	CORSOrigins []string // Allowed frontend origins
	Swypt       Swypt    // Aggregator settings
	Chains      Chains   // Per-network chain settings
	Bridge      Bridge   // Orchestrator settings
}

// Swypt holds the aggregator API settings
type Swypt struct {
	BaseURL   string // API root, e.g. https://pool.swypt.io/api
	APIKey    string // x-api-key header
	APISecret string // x-api-secret header
	Project   string // Project tag sent on settlement
}

// TokenContract describes one ERC-20 deployment
type TokenContract struct {
	Address  string // Contract address
	Decimals int32  // Base-unit precision
}

// Chain holds everything needed to sign and send on one network
type Chain struct {
	RPCURL     string                         // JSON-RPC endpoint
	ChainID    int64                          // EIP-155 chain ID
	PrivateKey string                         // Hex signing key of the hot wallet
	Tokens     map[domain.Token]TokenContract // Token contracts deployed on this network
}

// Chains is keyed by the closed set of supported networks
type Chains map[domain.Network]Chain

// Bridge holds the addresses and project data the orchestrator needs
type Bridge struct {
	TreasuryAddress   string // Recipient of the legacy direct-transfer crypto leg
	CollectionAddress string // Aggregator collection address for offramp
	DefaultNetwork    domain.Network
}

// defaultChainIDs for the supported mainnets
var defaultChainIDs = map[domain.Network]int64{
	domain.NetworkBase: 8453,
	domain.NetworkLisk: 1135,
	domain.NetworkCelo: 42220,
}

// defaultRPCURLs for the supported mainnets
var defaultRPCURLs = map[domain.Network]string{
	domain.NetworkBase: "https://mainnet.base.org",
	domain.NetworkLisk: "https://rpc.api.lisk.com",
	domain.NetworkCelo: "https://forno.celo.org",
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	defaultNetwork, ok := domain.ParseNetwork(os.Getenv("DEFAULT_NETWORK"))
	if !ok {
		defaultNetwork = domain.NetworkLisk // The legacy transfer flow ran on Lisk
	}
	return &Config{
		AppPort:     getEnv("APP_PORT", "3000"),                 // Application port
		DBDriver:    getEnv("DB_DRIVER", "sqlite"),              // Database driver
		SQLitePath:  getEnv("SQLITE_PATH", "./database.sqlite"), // Local store file
		DBUser:      os.Getenv("DB_USER"),                       // Database user
		DBPassword:  os.Getenv("DB_PASSWORD"),                   // Database password
		DBHost:      os.Getenv("DB_HOST"),                       // Database host
		DBPort:      os.Getenv("DB_PORT"),                       // Database port
		DBName:      os.Getenv("DB_NAME"),                       // Database name
		JWTSecret:   os.Getenv("JWT_SECRET"),                    // JWT secret key
		RedisAddr:   os.Getenv("REDIS_ADDR"),                    // Redis server address
		RedisPass:   os.Getenv("REDIS_PASS"),                    // Redis password
		RedisDB:     redisDB,                                    // Redis database number
		IsProd:      os.Getenv("IS_PROD") == "true",             // Is production environment
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),       // Frontend origins
		Swypt: Swypt{
			BaseURL:   getEnv("SWYPT_API_URL", "https://pool.swypt.io/api"),
			APIKey:    os.Getenv("SWYPT_API_KEY"),
			APISecret: os.Getenv("SWYPT_API_SECRET"),
			Project:   getEnv("SWYPT_PROJECT", "swypt-bridge"),
		},
		Chains: loadChains(),
		Bridge: Bridge{
			TreasuryAddress:   os.Getenv("RECIPIENT_ADDRESS"),
			CollectionAddress: os.Getenv("SWYPT_COLLECTION_ADDRESS"),
			DefaultNetwork:    defaultNetwork,
		},
	}
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// loadChains reads BASE_RPC_URL, BASE_PRIVATE_KEY, BASE_USDT_CONTRACT and so on.
// A token is only configured on a network when its contract env var is set.
func loadChains() Chains {
	chains := make(Chains, len(domain.Networks))
	for _, n := range domain.Networks {
		prefix := strings.ToUpper(string(n)) + "_"
		chainID := defaultChainIDs[n]
		if v, err := strconv.ParseInt(os.Getenv(prefix+"CHAIN_ID"), 10, 64); err == nil {
			chainID = v // Override for testnets
		}
		tokens := make(map[domain.Token]TokenContract)
		for _, t := range domain.Tokens {
			addr := os.Getenv(prefix + string(t) + "_CONTRACT")
			if addr == "" {
				continue
			}
			tokens[t] = TokenContract{Address: addr, Decimals: t.Decimals()}
		}
		chains[n] = Chain{
			RPCURL:     getEnv(prefix+"RPC_URL", defaultRPCURLs[n]),
			ChainID:    chainID,
			PrivateKey: os.Getenv(prefix + "PRIVATE_KEY"),
			Tokens:     tokens,
		}
	}
	return chains
}

// Supports reports whether token has a contract configured on network
func (c Chains) Supports(network domain.Network, token domain.Token) bool {
	chain, ok := c[network]
	if !ok {
		return false
	}
	_, ok = chain.Tokens[token]
	return ok
}

// getEnv returns the variable or a fallback when it is unset
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
