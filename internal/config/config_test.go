package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poly-pro/clob-relay/internal/polymarket"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "CHAIN_ID", "FEE_RATE_BPS", "ORDER_EXPIRATION_SECONDS", "POLYMARKET_PRIVATE_KEY", "CORS_ALLOWED_ORIGINS", "EXCHANGE_ADDRESS"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %s, want 3000", cfg.Port)
	}
	if cfg.ChainID != 137 {
		t.Errorf("ChainID = %d, want 137", cfg.ChainID)
	}
	if cfg.OrderExpiration != 5*time.Minute {
		t.Errorf("OrderExpiration = %s", cfg.OrderExpiration)
	}
	if cfg.PrivateKey != "" {
		t.Errorf("PrivateKey = %q, want empty", cfg.PrivateKey)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if d := cfg.Domain(false); d.VerifyingContract != polymarket.DefaultExchangeAddress || d.Name != polymarket.DefaultDomainName {
		t.Errorf("Domain(false) = %+v", d)
	}
	if d := cfg.Domain(true); d.VerifyingContract != polymarket.DefaultNegRiskExchangeAddress {
		t.Errorf("Domain(true) = %+v", d)
	}
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := "FEE_RATE_BPS=300\nPROXY_WALLET_ADDRESS=0x00000000000000000000000000000000000000aa\nCORS_ALLOWED_ORIGINS=https://a.example, https://b.example\n"
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set.
	t.Setenv("FEE_RATE_BPS", "")
	os.Unsetenv("FEE_RATE_BPS")
	t.Setenv("PROXY_WALLET_ADDRESS", "")
	os.Unsetenv("PROXY_WALLET_ADDRESS")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	os.Unsetenv("CORS_ALLOWED_ORIGINS")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.FeeRateBps != 300 {
		t.Errorf("FeeRateBps = %d, want 300", cfg.FeeRateBps)
	}
	if cfg.ProxyWalletAddress != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("ProxyWalletAddress = %s", cfg.ProxyWalletAddress)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadConfigRejectsBadInteger(t *testing.T) {
	t.Setenv("CHAIN_ID", "polygon")
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for non-numeric CHAIN_ID")
	}
}

func TestHasStaticCredentials(t *testing.T) {
	cfg := Config{CLOBAPIKey: "k", CLOBAPISecret: "s"}
	if cfg.HasStaticCredentials() {
		t.Error("partial credentials reported complete")
	}
	cfg.CLOBAPIPassphrase = "p"
	if !cfg.HasStaticCredentials() {
		t.Error("complete credentials reported incomplete")
	}
}
