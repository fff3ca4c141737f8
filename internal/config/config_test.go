package config

import (
	"testing"

	"mpesa_bridge/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DEFAULT_NETWORK", "")
	t.Setenv("BASE_USDT_CONTRACT", "")
	cfg := LoadConfig()
	assert.Equal(t, "3000", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, domain.NetworkLisk, cfg.Bridge.DefaultNetwork)
	assert.Equal(t, int64(8453), cfg.Chains[domain.NetworkBase].ChainID)
	assert.Equal(t, "https://forno.celo.org", cfg.Chains[domain.NetworkCelo].RPCURL)
	assert.False(t, cfg.Chains.Supports(domain.NetworkBase, domain.TokenUSDT))
}

func TestLoadChainsFromEnv(t *testing.T) {
	t.Setenv("BASE_USDC_CONTRACT", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	t.Setenv("BASE_CHAIN_ID", "84532")
	t.Setenv("BASE_PRIVATE_KEY", "abc")
	t.Setenv("CORS_ORIGINS", "http://localhost:3001, https://bridge.example ")
	cfg := LoadConfig()
	base := cfg.Chains[domain.NetworkBase]
	assert.Equal(t, int64(84532), base.ChainID)
	assert.Equal(t, "abc", base.PrivateKey)
	assert.Equal(t, TokenContract{Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6}, base.Tokens[domain.TokenUSDC])
	assert.True(t, cfg.Chains.Supports(domain.NetworkBase, domain.TokenUSDC))
	assert.False(t, cfg.Chains.Supports(domain.NetworkCelo, domain.TokenUSDC))
	assert.Equal(t, []string{"http://localhost:3001", "https://bridge.example"}, cfg.CORSOrigins)
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "h", DBPort: "3306", DBName: "bridge"}
	assert.Equal(t, "u:p@tcp(h:3306)/bridge?parseTime=true", cfg.DSN())
}
