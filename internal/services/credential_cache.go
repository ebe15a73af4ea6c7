/**
 * @description
 * This service owns the relay's signing identity and memoizes the authenticated
 * CLOB client built from it.
 *
 * Key features:
 * - Fingerprinting: A client is keyed by (key prefix, funder, static-credential presence).
 *   The same fingerprint always returns the same client, so trades do not pay an
 *   authentication round-trip.
 * - Credential Resolution: Static credentials from config are used as-is; otherwise the
 *   existing credentials are derived, falling back to create-or-derive.
 * - Funder Selection: A configured proxy wallet becomes the maker (signature type 2);
 *   otherwise the signer's own address is used (signature type 0).
 *
 * @notes
 * - The lock only guards the cached pointer. Two cold-cache callers may both derive
 *   credentials; the results are identical and the last write wins.
 */

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/poly-pro/clob-relay/internal/crypto"
	"github.com/poly-pro/clob-relay/internal/polymarket"
)

const fingerprintKeyPrefix = 10

// CredentialCacheConfig is the identity configuration the cache is built from.
type CredentialCacheConfig struct {
	PrivateKey         string
	ProxyWalletAddress string
	StaticCredentials  polymarket.APICredentials
}

// CredentialCache lazily builds and caches the authenticated CLOB client.
type CredentialCache struct {
	clob   *polymarket.CLOBAPIClient
	cfg    CredentialCacheConfig
	logger *slog.Logger

	mu          sync.Mutex
	client      *polymarket.AuthedClient
	fingerprint string
}

// NewCredentialCache creates a cache. No network call is made until the first trade.
func NewCredentialCache(clob *polymarket.CLOBAPIClient, cfg CredentialCacheConfig, logger *slog.Logger) *CredentialCache {
	return &CredentialCache{
		clob:   clob,
		cfg:    cfg,
		logger: logger,
	}
}

func (c *CredentialCache) cached(fingerprint string) *polymarket.AuthedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil && c.fingerprint == fingerprint {
		return c.client
	}
	return nil
}

func (c *CredentialCache) store(fingerprint string, client *polymarket.AuthedClient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.client = client
	c.fingerprint = fingerprint
}

func fingerprint(privateKey string, funder common.Address, hasCreds bool) string {
	prefix := privateKey
	if len(prefix) > fingerprintKeyPrefix {
		prefix = prefix[:fingerprintKeyPrefix]
	}
	return prefix + "|" + funder.Hex() + "|" + strconv.FormatBool(hasCreds)
}

/**
 * @description
 * GetAuthedClient returns the authenticated client for the configured identity,
 * building it on first use.
 *
 * @returns The cached or newly built client.
 * @returns ErrConfiguration if no (valid) signing key is configured, or the
 *          derivation error if neither derive nor create-or-derive succeeds.
 */
func (c *CredentialCache) GetAuthedClient(ctx context.Context) (*polymarket.AuthedClient, error) {
	if c.cfg.PrivateKey == "" {
		return nil, fmt.Errorf("%w: POLYMARKET_PRIVATE_KEY not set", ErrConfiguration)
	}
	signer, err := crypto.FromPrivateKeyHex(c.cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	funder := signer.Address()
	signatureType := polymarket.SignatureTypeEOA
	if c.cfg.ProxyWalletAddress != "" {
		if !common.IsHexAddress(c.cfg.ProxyWalletAddress) {
			return nil, fmt.Errorf("%w: PROXY_WALLET_ADDRESS is not an address", ErrConfiguration)
		}
		funder = common.HexToAddress(c.cfg.ProxyWalletAddress)
		signatureType = polymarket.SignatureTypePolyGnosisSafe
	}

	hasCreds := c.cfg.StaticCredentials.Complete()
	key := fingerprint(c.cfg.PrivateKey, funder, hasCreds)
	if client := c.cached(key); client != nil {
		return client, nil
	}

	creds := c.cfg.StaticCredentials
	if !hasCreds {
		creds, err = c.clob.DeriveAPIKey(ctx, signer)
		if err != nil {
			c.logger.Warn("derive API key failed, trying create-or-derive", "address", signer.Address().Hex(), "error", err)
			creds, err = c.clob.CreateOrDeriveAPIKey(ctx, signer)
			if err != nil {
				c.logger.Error("failed to obtain API credentials", "address", signer.Address().Hex(), "error", err)
				return nil, fmt.Errorf("failed to obtain API credentials: %w", err)
			}
		}
	}

	client := polymarket.NewAuthedClient(c.clob, signer, funder, signatureType, creds)
	c.store(key, client)
	c.logger.Info("authenticated CLOB client ready",
		"signer", signer.Address().Hex(),
		"funder", funder.Hex(),
		"signature_type", int(signatureType),
		"static_credentials", hasCreds,
	)
	return client, nil
}
