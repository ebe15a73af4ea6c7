/**
 * @description
 * This file is responsible for managing the relay's configuration.
 * It loads environment variables from a .env file and the system environment,
 * making them available to the rest of the application in a structured format.
 *
 * Key features:
 * - Structured Config: Defines a `Config` struct to hold all configuration parameters.
 * - .env Loading: Uses the `godotenv` library to load variables from a `.env.local` file,
 *   falling back to `.env`.
 * - Defaults: Venue endpoints, EIP-712 domain and order defaults target Polygon mainnet.
 *
 * @notes
 * - A missing POLYMARKET_PRIVATE_KEY is not a load error. The relay still starts and
 *   serves /health; trades fail with a configuration error until the key is set.
 */

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poly-pro/clob-relay/internal/polymarket"
)

// Config holds all configuration for the relay.
type Config struct {
	Port string

	CLOBAPIURL string
	ChainID    int64

	PrivateKey         string
	ProxyWalletAddress string
	CLOBAPIKey         string
	CLOBAPISecret      string
	CLOBAPIPassphrase  string

	RelaySecret string

	FeeRateBps             int64
	OrderExpiration        time.Duration
	ExchangeAddress        string
	NegRiskExchangeAddress string
	DomainName             string
	DomainVersion          string

	CORSAllowedOrigins []string

	RedisURL          string
	RedisTradeChannel string
}

// HasStaticCredentials reports whether all three L2 credentials are configured.
func (c Config) HasStaticCredentials() bool {
	return c.CLOBAPIKey != "" && c.CLOBAPISecret != "" && c.CLOBAPIPassphrase != ""
}

// Domain returns the EIP-712 domain for regular or neg-risk markets.
func (c Config) Domain(negRisk bool) polymarket.Domain {
	contract := c.ExchangeAddress
	if negRisk {
		contract = c.NegRiskExchangeAddress
	}
	return polymarket.Domain{
		Name:              c.DomainName,
		Version:           c.DomainVersion,
		ChainID:           c.ChainID,
		VerifyingContract: contract,
	}
}

/**
 * @description
 * LoadConfig reads configuration from environment variables and/or a .env.local file
 * located in the specified path.
 *
 * @param path The path to the directory containing the .env.local file.
 * @returns A Config struct populated with the loaded values, or an error if a
 *          numeric variable cannot be parsed.
 */
func LoadConfig(path string) (config Config, err error) {
	// Variables already present in the environment win over both files.
	if err := godotenv.Load(filepath.Join(path, ".env.local")); err != nil {
		_ = godotenv.Load(filepath.Join(path, ".env"))
	}

	config.Port = getEnv("PORT", "3000")
	config.CLOBAPIURL = getEnv("CLOB_API_URL", polymarket.DefaultBaseURL)

	config.PrivateKey = strings.TrimSpace(os.Getenv("POLYMARKET_PRIVATE_KEY"))
	config.ProxyWalletAddress = strings.TrimSpace(os.Getenv("PROXY_WALLET_ADDRESS"))
	config.CLOBAPIKey = os.Getenv("POLYMARKET_API_KEY")
	config.CLOBAPISecret = os.Getenv("POLYMARKET_API_SECRET")
	config.CLOBAPIPassphrase = os.Getenv("POLYMARKET_PASSPHRASE")
	config.RelaySecret = os.Getenv("RELAY_SECRET")

	if config.ChainID, err = getEnvInt("CHAIN_ID", polymarket.DefaultChainID); err != nil {
		return Config{}, err
	}
	if config.FeeRateBps, err = getEnvInt("FEE_RATE_BPS", 0); err != nil {
		return Config{}, err
	}
	expirationSeconds, err := getEnvInt("ORDER_EXPIRATION_SECONDS", 300)
	if err != nil {
		return Config{}, err
	}
	config.OrderExpiration = time.Duration(expirationSeconds) * time.Second

	config.ExchangeAddress = getEnv("EXCHANGE_ADDRESS", polymarket.DefaultExchangeAddress)
	config.NegRiskExchangeAddress = getEnv("NEG_RISK_EXCHANGE_ADDRESS", polymarket.DefaultNegRiskExchangeAddress)
	config.DomainName = getEnv("EIP712_DOMAIN_NAME", polymarket.DefaultDomainName)
	config.DomainVersion = getEnv("EIP712_DOMAIN_VERSION", polymarket.DefaultDomainVersion)

	config.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	config.RedisURL = os.Getenv("REDIS_URL")
	config.RedisTradeChannel = getEnv("REDIS_TRADE_CHANNEL", "relay:trades")

	return config, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
