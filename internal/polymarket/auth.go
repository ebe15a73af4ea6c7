/**
 * @description
 * This file builds the two header sets the CLOB API authenticates with.
 *
 * Key features:
 * - L1 Headers: An EIP-712 `ClobAuth` signature by the wallet key. Used only to
 *   create or derive API credentials.
 * - L2 Headers: An HMAC-SHA256 over `timestamp + method + path + body`, keyed with the
 *   url-safe base64 decoded API secret. Used for trading endpoints.
 */

package polymarket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/poly-pro/clob-relay/internal/crypto"
)

const clobAuthMessage = "This message attests that I control the given wallet"

// ErrMissingCredentials is returned when an L2 request is attempted without API credentials.
var ErrMissingCredentials = errors.New("API credentials not configured")

// APICredentials is the key/secret/passphrase triple issued by the CLOB for a wallet.
type APICredentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Complete reports whether all three parts are present.
func (c APICredentials) Complete() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

func clobAuthTypedData(address string, chainID int64, timestamp int64, nonce int64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			"ClobAuth": {
				{Name: "address", Type: "address"},
				{Name: "timestamp", Type: "string"},
				{Name: "nonce", Type: "uint256"},
				{Name: "message", Type: "string"},
			},
		},
		PrimaryType: "ClobAuth",
		Domain: apitypes.TypedDataDomain{
			Name:    "ClobAuthDomain",
			Version: "1",
			ChainId: math.NewHexOrDecimal256(chainID),
		},
		Message: apitypes.TypedDataMessage{
			"address":   address,
			"timestamp": strconv.FormatInt(timestamp, 10),
			"nonce":     math.NewHexOrDecimal256(nonce),
			"message":   clobAuthMessage,
		},
	}
}

// L1Headers signs a ClobAuth attestation for the signer's address.
func L1Headers(signer *crypto.Signer, chainID int64, timestamp int64, nonce int64) (map[string]string, error) {
	address := signer.Address().Hex()
	signature, err := signer.SignTypedData(clobAuthTypedData(address, chainID, timestamp, nonce))
	if err != nil {
		return nil, fmt.Errorf("failed to create L1 signature: %w", err)
	}
	return map[string]string{
		"POLY_ADDRESS":   address,
		"POLY_SIGNATURE": signature,
		"POLY_TIMESTAMP": strconv.FormatInt(timestamp, 10),
		"POLY_NONCE":     strconv.FormatInt(nonce, 10),
	}, nil
}

// L2Headers creates the HMAC authentication headers for a trading request.
func L2Headers(creds APICredentials, address, method, path, body string, timestamp int64) (map[string]string, error) {
	if !creds.Complete() {
		return nil, ErrMissingCredentials
	}

	signature, err := hmacSignature(creds.Secret, strconv.FormatInt(timestamp, 10)+method+path+body)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"POLY_ADDRESS":    address,
		"POLY_API_KEY":    creds.APIKey,
		"POLY_PASSPHRASE": creds.Passphrase,
		"POLY_SIGNATURE":  signature,
		"POLY_TIMESTAMP":  strconv.FormatInt(timestamp, 10),
	}, nil
}

func hmacSignature(secret, message string) (string, error) {
	// Secrets are issued url-safe base64; some clients strip the padding.
	key, err := base64.URLEncoding.DecodeString(secret)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(secret, "="))
		if err != nil {
			return "", fmt.Errorf("failed to decode secret: %w", err)
		}
	}

	h := hmac.New(sha256.New, key)
	h.Write([]byte(message))
	return base64.URLEncoding.EncodeToString(h.Sum(nil)), nil
}
